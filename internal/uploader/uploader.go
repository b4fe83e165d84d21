// Package uploader performs the single-shot replay upload against an API
// endpoint and interprets the JSON response. One invocation means exactly
// one HTTP request: there is no retry logic, and every failure mode is
// folded into a Result instead of crashing the caller.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultPath is the upload endpoint path on the API.
const DefaultPath = "/api/my-replays"

// DefaultTimeout bounds the whole upload request, including the analyzer
// round-trip the API performs before answering.
const DefaultTimeout = 60 * time.Second

// maxErrorBody caps how much of a non-JSON error body is surfaced.
const maxErrorBody = 200

// Outcome classifies an upload attempt. Values double as metric labels.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"           // 200 with success:true
	OutcomeRejected    Outcome = "rejected"     // 200 with success:false
	OutcomeHTTPError   Outcome = "http_error"   // non-200 or malformed body
	OutcomeConnection  Outcome = "connection"   // could not reach the API
	OutcomeTimeout     Outcome = "timeout"      // request deadline exceeded
	OutcomeFileMissing Outcome = "file_missing" // replay file not found locally
)

// Fingerprint is the descriptive record the analyzer attaches to a
// successfully processed replay.
type Fingerprint struct {
	Matchup    string `json:"matchup"`
	Race       string `json:"race"`
	PlayerName string `json:"player_name"`
	Metadata   struct {
		Map string `json:"map"`
	} `json:"metadata"`
}

// Replay is the record the API returns for an accepted upload.
type Replay struct {
	ID          string       `json:"id"`
	Fingerprint *Fingerprint `json:"fingerprint,omitempty"`
}

type uploadResponse struct {
	Success bool    `json:"success"`
	Replay  *Replay `json:"replay"`
}

// apiError is the error body the API returns on non-200 responses.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Result is the read-only interpretation of one upload attempt.
type Result struct {
	Outcome Outcome
	Status  int     // HTTP status, 0 when no response was received
	Replay  *Replay // set only on OutcomeOK
	Detail  string  // human-readable diagnostic or remediation text
}

// OK reports whether the upload succeeded end to end.
func (r *Result) OK() bool { return r.Outcome == OutcomeOK }

// Client uploads replay files to one API base URL.
type Client struct {
	// BaseURL is the API origin, e.g. "http://localhost:3000".
	BaseURL string

	// Path is the endpoint path; DefaultPath when empty.
	Path string

	// HTTPClient is used for the request. When nil, a client with
	// DefaultTimeout is used. Tests inject their own.
	HTTPClient *http.Client

	// Logger receives debug-level request/response details. When nil,
	// slog.Default() is used.
	Logger *slog.Logger
}

func (c *Client) path() string {
	if c.Path == "" {
		return DefaultPath
	}
	return c.Path
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Endpoint returns the full upload URL.
func (c *Client) Endpoint() string {
	return strings.TrimRight(c.BaseURL, "/") + c.path()
}

// Upload POSTs the file at filePath as a multipart form with the given
// bearer token and interprets the response. The file is checked for
// existence before any network activity. All failures are reported through
// the Result; Upload never panics and never returns nil.
func (c *Client) Upload(ctx context.Context, bearer, filePath string) *Result {
	log := c.logger()

	if _, err := os.Stat(filePath); err != nil {
		return &Result{
			Outcome: OutcomeFileMissing,
			Detail:  fmt.Sprintf("replay file not found: %s", filePath),
		}
	}

	body, contentType, err := multipartFile(filePath)
	if err != nil {
		return &Result{
			Outcome: OutcomeFileMissing,
			Detail:  fmt.Sprintf("reading replay file: %v", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), body)
	if err != nil {
		return &Result{
			Outcome: OutcomeConnection,
			Detail:  fmt.Sprintf("building request: %v", err),
		}
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", contentType)

	log.Debug("uploading replay", "url", c.Endpoint(), "file", filePath)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	return c.interpret(resp)
}

// multipartFile builds an in-memory multipart body with a single "file"
// field carrying the replay as application/octet-stream. Replays are small
// (hundreds of KB), so buffering is fine.
func multipartFile(filePath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filePath)))
	h.Set("Content-Type", "application/octet-stream")

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Client) classifyTransportError(err error) *Result {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if !timeout && errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}

	if timeout {
		return &Result{
			Outcome: OutcomeTimeout,
			Detail:  fmt.Sprintf("request to %s timed out", c.BaseURL),
		}
	}
	return &Result{
		Outcome: OutcomeConnection,
		Detail: fmt.Sprintf("could not connect to %s; make sure the API server is running",
			c.BaseURL),
	}
}

func (c *Client) interpret(resp *http.Response) *Result {
	log := c.logger()

	if resp.StatusCode == http.StatusOK {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return &Result{
				Outcome: OutcomeHTTPError,
				Status:  resp.StatusCode,
				Detail:  fmt.Sprintf("reading response body: %v", err),
			}
		}

		var parsed uploadResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return &Result{
				Outcome: OutcomeHTTPError,
				Status:  resp.StatusCode,
				Detail:  fmt.Sprintf("malformed response body: %s", truncate(string(raw))),
			}
		}

		if !parsed.Success {
			return &Result{
				Outcome: OutcomeRejected,
				Status:  resp.StatusCode,
				Detail:  string(raw),
			}
		}

		if parsed.Replay == nil || parsed.Replay.ID == "" {
			return &Result{
				Outcome: OutcomeHTTPError,
				Status:  resp.StatusCode,
				Detail:  "success response is missing the replay record",
			}
		}

		log.Debug("upload accepted", "replay_id", parsed.Replay.ID)
		return &Result{
			Outcome: OutcomeOK,
			Status:  resp.StatusCode,
			Replay:  parsed.Replay,
		}
	}

	// Non-200: prefer the structured error body, fall back to raw text.
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr apiError
	if err := json.Unmarshal(raw, &apiErr); err == nil && (apiErr.Error != "" || apiErr.Message != "") {
		detail := apiErr.Error
		if apiErr.Message != "" {
			if detail != "" {
				detail += ": "
			}
			detail += apiErr.Message
		}
		return &Result{
			Outcome: OutcomeHTTPError,
			Status:  resp.StatusCode,
			Detail:  detail,
		}
	}

	return &Result{
		Outcome: OutcomeHTTPError,
		Status:  resp.StatusCode,
		Detail:  truncate(string(raw)),
	}
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}
