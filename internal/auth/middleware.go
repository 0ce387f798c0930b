package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Middleware resolves the bearer token on every request and stores the owner
// id on the context. Requests without a valid token get a 401 here, upstream
// of every domain handler.
func Middleware(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			ownerID, err := service.Resolve(r.Context(), token)
			if err != nil {
				if logger != nil && !errors.Is(err, httpx.ErrUnauthorized) {
					logger.Error("resolve token", slog.Any("error", err))
				}
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithOwner(r.Context(), ownerID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
