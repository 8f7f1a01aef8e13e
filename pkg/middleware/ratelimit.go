package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/ratelimit"
)

// RateLimit rejects clients that have used up their tokens with 429 and a
// Retry-After header. Clients are keyed by remote address; health probes are
// never limited.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}
			key := clientKey(r)
			if limiter.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}
			wait := limiter.RetryAfter(key)
			logger.FromContext(r.Context()).Warn("rate limit exceeded", "client", key, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(apperrors.HTTPStatusCode(apperrors.ErrRateLimited))
			_ = json.NewEncoder(w).Encode(map[string]string{"error": apperrors.ErrRateLimited.Error()})
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
