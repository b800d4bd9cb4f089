package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mkurosawa/partscan/internal/api/response"
)

// Recovery turns a handler panic into a 500 envelope instead of killing the
// connection. http.ErrAbortHandler is re-raised so net/http can abort the
// response the way the handler asked for.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("panic recovered",
				"error", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"stack", string(debug.Stack()),
			)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "An unexpected error occurred", nil)
		}()
		next.ServeHTTP(w, r)
	})
}
