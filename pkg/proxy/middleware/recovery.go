package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/cd-Crypton/anistream/pkg/proxy/types"
)

// RecoveryMiddleware turns a panic in next into a JSON 500 carrying the
// panic's diagnostic text, so the client always gets a well-formed
// response. http.ErrAbortHandler is re-raised so net/http can abort the
// connection as the handler intended.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.ErrorContext(r.Context(), "panic in handler",
				"error", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			errResp := types.NewServerError(fmt.Sprintf("unhandled fault: %v", rec))
			_ = errResp.Response().Write(w)
		}()

		next.ServeHTTP(w, r)
	})
}
