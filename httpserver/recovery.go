package httpserver

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/pure-golang/mailer/logger"
)

// Recovery turns a handler panic into a 500 response and an ERROR log with
// the stack.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}

			var stack []string
			for _, line := range strings.Split(strings.ReplaceAll(string(debug.Stack()), "\t", ""), "\n") {
				if line != "" {
					stack = append(stack, line)
				}
			}

			logger.FromContext(r.Context()).
				With("err", err, "stack", stack).
				Error("panic recovered from handler")
			w.WriteHeader(http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
