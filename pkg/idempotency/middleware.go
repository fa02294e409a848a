package idempotency

import (
	"context"
	"log/slog"
	"net/http"
)

// HeaderKey is the client-supplied request key.
const HeaderKey = "Idempotency-Key"

// Claims is the key store consumed by the middleware.
type Claims interface {
	Key(route, clientKey string) string
	Seen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Middleware rejects a request whose Idempotency-Key was already claimed.
// Requests without the header pass through; supplying one is the client's
// choice. A key claimed by a request that then fails server-side (5xx) is
// released again, so the client can retry with the same key once the
// failure clears. A redis outage fails open so payments keep flowing.
func Middleware(log *slog.Logger, store Claims) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(HeaderKey)
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := store.Key(r.URL.Path, clientKey)
			seen, err := store.Seen(r.Context(), key)
			if err != nil {
				log.Error("idempotency check failed", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if seen {
				log.Info("duplicate request rejected", "key", key)
				http.Error(w, "duplicate request", http.StatusConflict)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusInternalServerError {
				if err := store.Release(r.Context(), key); err != nil {
					log.Error("idempotency release failed", "key", key, "err", err)
				}
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
