package chi

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tokenmeter/internal/auth"
	"github.com/kailas-cloud/tokenmeter/internal/domain"
	logpkg "github.com/kailas-cloud/tokenmeter/internal/logger"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

const bearerPrefix = "Bearer "

// BearerAuthMiddleware resolves the bearer token to a caller id and stores
// it in the request context.
func BearerAuthMiddleware(v auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				writeError(w, r, http.StatusForbidden, CodeMissingToken, "Missing auth token")
				return
			}

			callerID, err := v.Verify(r.Context(), header[len(bearerPrefix):])
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrMissingToken):
				writeError(w, r, http.StatusForbidden, CodeInvalidToken, "Unauthorized: Invalid token")
				return
			default:
				logpkg.FromContext(r.Context()).Error("token verification failed", zap.Error(err))
				writeError(w, r, http.StatusUnauthorized, CodeAuthFailure, err.Error())
				return
			}

			ctx := auth.ContextWithCaller(r.Context(), callerID)
			ctx = logpkg.With(ctx, zap.String("caller_id", callerID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
