// Package main provides a stub upload API for exercising the probe without
// the real services. It implements the upload contract with canned
// responses, validates bearer tokens when a secret is configured, and can
// force arbitrary status codes for error-path testing.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	port := flag.Int("port", 3000, "port to listen on")
	flag.Parse()

	if p := os.Getenv("PORT"); p != "" {
		fmt.Sscanf(p, "%d", port)
	}
	secret := os.Getenv("AUTH_SECRET")

	// The upload endpoint: accepts a multipart "file" field and answers
	// with a canned success record, so the probe's happy path can be
	// exercised offline.
	http.HandleFunc("/api/my-replays", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
				"error": "Method Not Allowed",
			})
			return
		}

		if secret != "" {
			if err := checkBearer(r, secret); err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
					"error":   "Unauthorized",
					"message": err.Error(),
				})
				return
			}
		}

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":   "Bad Request",
				"message": "expected multipart form data",
			})
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":   "Bad Request",
				"message": `missing "file" field`,
			})
			return
		}
		file.Close()

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"replay": map[string]interface{}{
				"id": fmt.Sprintf("stub-%d", time.Now().UnixNano()),
				"fingerprint": map[string]interface{}{
					"matchup":     "TvZ",
					"race":        "Terran",
					"player_name": "stub-player",
					"metadata": map[string]string{
						"map": strings.TrimSuffix(header.Filename, ".SC2Replay"),
					},
				},
			},
		})
	})

	// /__reject answers the upload shape with success:false, for testing
	// the rejection path.
	http.HandleFunc("/__reject/api/my-replays", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   "replay could not be analyzed",
		})
	})

	// /__status/{code} returns an arbitrary HTTP status code.
	// Example: POST /__status/503/api/my-replays -> 503
	http.HandleFunc("/__status/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/__status/")
		codeStr, _, _ := strings.Cut(rest, "/")
		code, err := strconv.Atoi(codeStr)
		if err != nil || code < 100 || code > 599 {
			code = 500
		}
		writeJSON(w, code, map[string]interface{}{
			"error":   http.StatusText(code),
			"message": "forced status",
		})
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("stub upload API listening on %s (auth %s)", addr, authMode(secret))
	log.Fatal(http.ListenAndServe(addr, nil))
}

func authMode(secret string) string {
	if secret == "" {
		return "disabled"
	}
	return "enabled"
}

func checkBearer(r *http.Request, secret string) error {
	auth := r.Header.Get("Authorization")
	tokenStr, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || tokenStr == "" {
		return fmt.Errorf("missing or malformed Authorization header")
	}

	_, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
