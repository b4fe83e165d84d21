// Package config provides YAML configuration loading with validation and
// environment variable substitution for the replay probe. Secrets are never
// written into config files; they arrive via ${VAR} substitution from the
// process environment (typically populated from .env.local).
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default scenario endpoints. These mirror the deployment topology the
// probe was built for: a local dev API on 3000, a local analyzer on 8000,
// and the production pair.
const (
	LocalAPIURL      = "http://localhost:3000"
	ProdAPIURL       = "https://www.ladderlegendsacademy.com"
	LocalAnalyzerURL = "http://localhost:8000"
	ProdAnalyzerURL  = "https://sc2-replay-analyzer-gold.vercel.app/"
)

// Config is the top-level probe configuration.
type Config struct {
	Auth      AuthConfig       `yaml:"auth"`
	Upload    UploadConfig     `yaml:"upload"`
	Scenarios []ScenarioConfig `yaml:"scenarios"`
	Monitor   MonitorConfig    `yaml:"monitor"`
	Logging   LoggingConfig    `yaml:"logging"`

	// Warnings holds non-fatal config issues detected during loading.
	// Stored on the Config itself (not a package-level var) so it is
	// safe to call Load concurrently from the hot-reload goroutine.
	Warnings []string `yaml:"-"`
}

// AuthConfig holds token signing settings. Secret is required before any
// upload is attempted; UserID and RoleID have fixed test-account defaults.
type AuthConfig struct {
	Secret      string `yaml:"secret"`
	UserID      string `yaml:"user_id"`
	RoleID      string `yaml:"role_id"`
	AnalyzerKey string `yaml:"analyzer_key"`
}

// UploadConfig holds the upload endpoint settings.
type UploadConfig struct {
	Path        string        `yaml:"path"`         // endpoint path on the API; default: /api/my-replays
	Timeout     time.Duration `yaml:"timeout"`      // whole-request deadline; default: 60s
	DefaultFile string        `yaml:"default_file"` // replay used when none is given on the command line
}

// ScenarioConfig defines one named API/analyzer pairing under test.
type ScenarioConfig struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	APIURL      string   `yaml:"api_url"`
	AnalyzerURL string   `yaml:"analyzer_url"`
	Requires    []string `yaml:"requires"` // "service:port" markers that must be listening locally
}

// MonitorConfig holds serve-mode settings.
type MonitorConfig struct {
	ListenAddr  string        `yaml:"listen_addr"`   // default: :9464
	MetricsPath string        `yaml:"metrics_path"`  // default: /metrics
	Interval    time.Duration `yaml:"interval"`      // time between probe sweeps; default: 5m
	RunsPerHour float64       `yaml:"runs_per_hour"` // rate limit on upload attempts; default: 60
	Burst       int           `yaml:"burst"`         // limiter burst; default: 3
}

// LoggingConfig holds log output and rotation settings.
type LoggingConfig struct {
	Output     string `yaml:"output"`       // "stdout", "stderr", or file path; default: "stderr"
	MaxSizeMB  int    `yaml:"max_size_mb"`  // max log file size before rotation; default: 50
	MaxBackups int    `yaml:"max_backups"`  // number of rotated files to keep; default: 3
	MaxAgeDays int    `yaml:"max_age_days"` // max days to retain rotated files; default: 14
}

var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns in s with the corresponding
// environment variable value. Unset variables are left as-is so validation
// can report them.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		key := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return match
	})
}

// Load reads and parses a YAML configuration file, applies environment
// variable substitution, sets defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes. Useful for testing.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.Warnings = collectWarnings(&cfg)

	return &cfg, nil
}

// Default returns the built-in configuration used when no config file is
// given: the three standard scenarios, secrets from the environment.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Warnings = collectWarnings(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret = os.Getenv("AUTH_SECRET")
	}
	if cfg.Auth.AnalyzerKey == "" {
		cfg.Auth.AnalyzerKey = os.Getenv("SC2READER_API_KEY")
	}
	if cfg.Auth.UserID == "" {
		cfg.Auth.UserID = envOr("TEST_USER_ID", "161384451518103552")
	}
	if cfg.Auth.RoleID == "" {
		cfg.Auth.RoleID = envOr("TEST_ROLE_ID", "1386739785283928124")
	}

	if cfg.Upload.Path == "" {
		cfg.Upload.Path = "/api/my-replays"
	}
	if cfg.Upload.Timeout == 0 {
		cfg.Upload.Timeout = 60 * time.Second
	}

	if len(cfg.Scenarios) == 0 {
		cfg.Scenarios = defaultScenarios()
	}

	if cfg.Monitor.ListenAddr == "" {
		cfg.Monitor.ListenAddr = ":9464"
	}
	if cfg.Monitor.MetricsPath == "" {
		cfg.Monitor.MetricsPath = "/metrics"
	}
	if cfg.Monitor.Interval == 0 {
		cfg.Monitor.Interval = 5 * time.Minute
	}
	if cfg.Monitor.RunsPerHour == 0 {
		cfg.Monitor.RunsPerHour = 60
	}
	if cfg.Monitor.Burst == 0 {
		cfg.Monitor.Burst = 3
	}

	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 50
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 3
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = 14
	}
}

func defaultScenarios() []ScenarioConfig {
	return []ScenarioConfig{
		{
			Key:         "1",
			Name:        "Step 1: Local API -> Local analyzer",
			APIURL:      LocalAPIURL,
			AnalyzerURL: LocalAnalyzerURL,
			Requires:    []string{"next:3000", "sc2reader:8000"},
		},
		{
			Key:         "2",
			Name:        "Step 2: Local API -> Production analyzer",
			APIURL:      LocalAPIURL,
			AnalyzerURL: ProdAnalyzerURL,
			Requires:    []string{"next:3000"},
		},
		{
			Key:         "3",
			Name:        "Step 3: Production API -> Production analyzer",
			APIURL:      ProdAPIURL,
			AnalyzerURL: ProdAnalyzerURL,
		},
	}
}

func validate(cfg *Config) error {
	if !strings.HasPrefix(cfg.Upload.Path, "/") {
		return fmt.Errorf("upload.path must start with /, got %q", cfg.Upload.Path)
	}
	if cfg.Upload.Timeout < 0 {
		return fmt.Errorf("upload.timeout must be positive")
	}
	if cfg.Monitor.RunsPerHour <= 0 {
		return fmt.Errorf("monitor.runs_per_hour must be positive")
	}
	if cfg.Monitor.Burst <= 0 {
		return fmt.Errorf("monitor.burst must be positive")
	}

	seen := make(map[string]bool, len(cfg.Scenarios))
	for i, sc := range cfg.Scenarios {
		if sc.Key == "" {
			return fmt.Errorf("scenarios[%d]: key is required", i)
		}
		if seen[sc.Key] {
			return fmt.Errorf("scenarios[%d]: duplicate key %q", i, sc.Key)
		}
		seen[sc.Key] = true

		if sc.APIURL == "" {
			return fmt.Errorf("scenario %q: api_url is required", sc.Key)
		}
		u, err := url.Parse(sc.APIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("scenario %q: api_url %q is not an absolute URL", sc.Key, sc.APIURL)
		}

		for _, req := range sc.Requires {
			service, port, ok := strings.Cut(req, ":")
			if !ok || service == "" {
				return fmt.Errorf("scenario %q: requirement %q must be service:port", sc.Key, req)
			}
			if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
				return fmt.Errorf("scenario %q: requirement %q has invalid port", sc.Key, req)
			}
		}
	}
	return nil
}

func collectWarnings(cfg *Config) []string {
	var warnings []string
	if cfg.Auth.Secret == "" {
		warnings = append(warnings, "auth.secret is not set (AUTH_SECRET missing from environment); uploads will fail")
	}
	if cfg.Auth.AnalyzerKey == "" {
		warnings = append(warnings, "auth.analyzer_key is not set (SC2READER_API_KEY missing from environment); remediation hints will be incomplete")
	}
	if strings.Contains(cfg.Auth.Secret, `\$`) {
		warnings = append(warnings, `auth.secret contains a literal \$ sequence; check the quoting in your env file`)
	}
	for _, sc := range cfg.Scenarios {
		if sc.Name == "" {
			warnings = append(warnings, fmt.Sprintf("scenario %q has no display name", sc.Key))
		}
	}
	return warnings
}

// Scenario returns the scenario with the given key.
func (c *Config) Scenario(key string) (ScenarioConfig, bool) {
	for _, sc := range c.Scenarios {
		if sc.Key == key {
			return sc, true
		}
	}
	return ScenarioConfig{}, false
}

// ScenarioKeys returns all scenario keys in fixed (sorted) order. "all"
// runs follow this order so results are reproducible.
func (c *Config) ScenarioKeys() []string {
	keys := make([]string, 0, len(c.Scenarios))
	for _, sc := range c.Scenarios {
		keys = append(keys, sc.Key)
	}
	sort.Strings(keys)
	return keys
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
