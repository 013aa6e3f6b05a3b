package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"stockex-offline-sync/pkg/apierror"
)

// Recovery turns handler panics into a 500 JSON error. http.ErrAbortHandler
// is re-raised: the reverse proxy uses it to abort a response whose body
// copy failed, and net/http handles it without a stack trace.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}
			log.Printf("[Recovery] PANIC %s %s (request %s): %v\n%s",
				r.Method, r.URL.Path, GetRequestID(r.Context()), err, debug.Stack())
			apierror.InternalError("internal server error").Write(w)
		}()

		next.ServeHTTP(w, r)
	})
}
