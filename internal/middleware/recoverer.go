package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// CodeInternal is the error code of an unexpected server failure.
const CodeInternal = "INTERNAL_ERROR"

// MsgInternal is returned for recovered panics.
const MsgInternal = "Internal server error"

// Recoverer recovers from panics, logs the stack trace and answers with a
// JSON 500. http.ErrAbortHandler is re-raised so the server aborts the
// connection as usual.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.Error("panic recovered",
					"panic", rvr,
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", chimw.GetReqID(r.Context()),
					"stack", string(debug.Stack()),
				)

				if r.Header.Get("Connection") != "Upgrade" {
					writeError(w, r, http.StatusInternalServerError, MsgInternal, CodeInternal)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
