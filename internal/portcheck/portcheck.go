// Package portcheck verifies that the local services a scenario depends on
// are actually listening before any upload is attempted. A requirement is a
// "service:port" marker; the check is a plain TCP dial against localhost,
// which answers the only question that matters: is something accepting
// connections on that port.
package portcheck

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// DefaultDialTimeout bounds each localhost dial. Local listeners answer in
// microseconds; anything slower is as good as down.
const DefaultDialTimeout = 2 * time.Second

// Requirement is one parsed "service:port" marker.
type Requirement struct {
	Service string
	Port    int
}

// Marker returns the requirement in its "service:port" form.
func (r Requirement) Marker() string {
	return fmt.Sprintf("%s:%d", r.Service, r.Port)
}

// Parse splits a "service:port" marker.
func Parse(marker string) (Requirement, error) {
	service, portStr, ok := strings.Cut(marker, ":")
	if !ok || service == "" {
		return Requirement{}, fmt.Errorf("requirement %q must be service:port", marker)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return Requirement{}, fmt.Errorf("requirement %q has invalid port", marker)
	}
	return Requirement{Service: service, Port: port}, nil
}

// Checker dials local ports to test requirements.
type Checker struct {
	// DialTimeout per port; DefaultDialTimeout when zero.
	DialTimeout time.Duration

	// Host dialled for checks; "localhost" when empty. Tests point this
	// at 127.0.0.1 listeners.
	Host string
}

func (c *Checker) timeout() time.Duration {
	if c.DialTimeout > 0 {
		return c.DialTimeout
	}
	return DefaultDialTimeout
}

func (c *Checker) host() string {
	if c.Host != "" {
		return c.Host
	}
	return "localhost"
}

// Listening reports whether something accepts TCP connections on the port.
func (c *Checker) Listening(port int) bool {
	addr := net.JoinHostPort(c.host(), strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, c.timeout())
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Missing returns the requirements from markers that are not satisfied.
// Malformed markers count as missing rather than aborting the check.
func (c *Checker) Missing(markers []string) []Requirement {
	var missing []Requirement
	for _, marker := range markers {
		req, err := Parse(marker)
		if err != nil {
			missing = append(missing, Requirement{Service: marker, Port: 0})
			continue
		}
		if !c.Listening(req.Port) {
			missing = append(missing, req)
		}
	}
	return missing
}

// Hint returns the command to start a missing service. The well-known
// services in this pipeline get their exact startup incantations;
// anything else gets a generic message.
func Hint(r Requirement, analyzerURL, analyzerKey string) string {
	switch r.Service {
	case "next":
		return fmt.Sprintf("Start the web API with:\n"+
			"  env SC2READER_API_URL=%q SC2READER_API_KEY=%q npm run dev",
			analyzerURL, analyzerKey)
	case "sc2reader":
		return fmt.Sprintf("Start the analyzer with:\n"+
			"  python -m uvicorn api.index:app --reload --port %d", r.Port)
	default:
		return fmt.Sprintf("Start %s on port %d", r.Service, r.Port)
	}
}
