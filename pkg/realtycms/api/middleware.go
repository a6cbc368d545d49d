package api

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Recoverer recovers from panics and returns a JSON 500 error.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			requestID := middleware.GetReqID(r.Context())
			slog.Error("PANIC", "request_id", requestID, "panic", rec, "stack", string(debug.Stack()))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{
				"error":      "An internal server error occurred",
				"request_id": requestID,
			})
		}()

		next.ServeHTTP(w, r)
	})
}
