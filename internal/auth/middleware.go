// Package auth protects the HTTP surface of the MCP server.
package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/sha1n/plenumbot/internal/config"
)

const (
	// APIKeyHeader carries the API key.
	APIKeyHeader = "X-API-Key"
	// APIKeyParam carries the API key in the query string. Calendar clients
	// subscribe by URL and cannot send headers.
	APIKeyParam = "key"

	realm = "plenumbot"
)

// PublicPaths bypass authentication.
var PublicPaths = []string{"/health"}

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// credentialCheck reports whether a request carries valid credentials.
type credentialCheck func(r *http.Request) bool

// NewMiddleware creates the authentication middleware for settings.
func NewMiddleware(settings config.AuthSettings) (Middleware, error) {
	switch settings.Type {
	case config.AuthTypeNone, "":
		return func(next http.Handler) http.Handler { return next }, nil
	case config.AuthTypeBasic:
		if settings.Basic.Username == "" || settings.Basic.Password == "" {
			return nil, fmt.Errorf("basic auth requires non-empty username and password")
		}
		return require(basicCredentials(settings.Basic), `Basic realm="`+realm+`"`), nil
	case config.AuthTypeAPIKey:
		if len(settings.APIKeys) == 0 {
			return nil, fmt.Errorf("apikey auth requires at least one API key")
		}
		return require(apiKeyCredentials(settings.APIKeys), ""), nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", settings.Type)
	}
}

func isPublic(path string) bool {
	for _, p := range PublicPaths {
		if p == path {
			return true
		}
	}
	return false
}

// require rejects requests to non-public paths that fail check.
func require(check credentialCheck, challenge string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) || check(r) {
				next.ServeHTTP(w, r)
				return
			}
			if challenge != "" {
				w.Header().Set("WWW-Authenticate", challenge)
			}
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		})
	}
}

func basicCredentials(settings config.BasicAuthSettings) credentialCheck {
	return func(r *http.Request) bool {
		user, pass, ok := r.BasicAuth()
		if !ok {
			return false
		}
		userMatch := equal(user, settings.Username)
		passMatch := equal(pass, settings.Password)
		return userMatch && passMatch
	}
}

func apiKeyCredentials(keys []string) credentialCheck {
	return func(r *http.Request) bool {
		key := presentedKey(r)
		if key == "" {
			return false
		}
		valid := false
		for _, k := range keys {
			// no early exit so every key is compared
			if equal(key, k) {
				valid = true
			}
		}
		return valid
	}
}

// presentedKey returns the API key from the header, a bearer token or the
// query string, in that order.
func presentedKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get(APIKeyParam)
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
