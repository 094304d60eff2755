package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// APIKeyHeader carries an API key when Authorization is not used.
const APIKeyHeader = "X-API-Key"

// apiKeys matches presented keys against the configured set. Keys are
// compared as SHA-256 digests in constant time.
type apiKeys struct {
	digests [][sha256.Size]byte
}

func newAPIKeys(keys []string) *apiKeys {
	if len(keys) == 0 {
		return nil
	}
	a := &apiKeys{digests: make([][sha256.Size]byte, 0, len(keys))}
	for _, k := range keys {
		a.digests = append(a.digests, sha256.Sum256([]byte(k)))
	}
	return a
}

func (a *apiKeys) valid(key string) bool {
	sum := sha256.Sum256([]byte(key))
	ok := 0
	for _, d := range a.digests {
		ok |= subtle.ConstantTimeCompare(sum[:], d[:])
	}
	return ok == 1
}

// presentedKey reads "Authorization: Bearer <key>" or the X-API-Key header.
func presentedKey(r *http.Request) string {
	if v := r.Header.Get("Authorization"); v != "" {
		if scheme, key, ok := strings.Cut(v, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(key)
		}
	}
	return r.Header.Get(APIKeyHeader)
}

// require wraps next so that requests without a configured key get 401.
// A nil set lets every request through.
func (a *apiKeys) require(logger *slog.Logger, next http.Handler) http.Handler {
	if a == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := presentedKey(r)
		if key == "" || !a.valid(key) {
			logger.Warn("Rejected request without a valid API key",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
				"key_present", key != "")
			w.Header().Set("WWW-Authenticate", `Bearer realm="exceller"`)
			writeError(w, http.StatusUnauthorized, KindUnauthorized, "missing or invalid API key", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
