package httpmw

import (
	"fmt"
	"net/http"

	"github.com/keithlinneman/charactergen/internal/log"
	"github.com/keithlinneman/charactergen/internal/xerrors"
)

const panicBody = `{"success":false,"error":"An unexpected error occurred."}`

// Recover turns a handler panic into a JSON 500, logs it with the stack of
// the panicking goroutine and calls onPanic (for counting) when set.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func Recover(L log.Logger, onPanic func()) func(http.Handler) http.Handler {
	if L == nil {
		L = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", rec)
				}
				L.With("http.request.method", r.Method, "url.path", r.URL.Path).
					Error(r.Context(), xerrors.WithStack(err), "httpserver panic recovered")
				if onPanic != nil {
					onPanic()
				}

				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(panicBody))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
