package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"blogapi/internal/model"
	"blogapi/pkg/logger"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey struct{}

func withUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func userFromContext(ctx context.Context) *model.User {
	u, _ := ctx.Value(ctxKey{}).(*model.User)
	return u
}

// requestLogger puts a request-scoped logger into the context and logs
// every response once it is written.
func requestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := base.With(
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logger.WithLogger(r.Context(), l)))

			l.Info("request served",
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

// basicAuth resolves the Authorization header to a user and rejects the
// request with 401 when it does not.
func (h *handler) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			writeUnauthorized(w, r)
			return
		}

		user, err := h.users.Authenticate(r.Context(), username, password)
		if err != nil {
			writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), &user)))
	})
}
