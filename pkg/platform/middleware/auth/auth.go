package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	request "provenant/pkg/platform/middleware/request"
	"provenant/pkg/requestcontext"
)

// TokenValidator validates a bearer token for the given role and returns the
// authenticated principal. Validation is stateless.
type TokenValidator interface {
	Authorize(token string, requiredRole id.Role) (*Principal, error)
}

// Principal is the identity extracted from a valid session token.
type Principal struct {
	ID   id.PrincipalID
	Role id.Role
	JTI  string
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireRole rejects requests without a bearer token valid for role. On success
// the principal and role are placed on the request context.
func RequireRole(validator TokenValidator, role id.Role, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			principal, err := validator.Authorize(token, role)
			if err != nil {
				status, code, desc := classify(err)
				logger.WarnContext(ctx, "unauthorized access - token rejected",
					"error", err,
					"required_role", role,
					"request_id", requestID,
				)
				writeJSONError(w, status, code, desc)
				return
			}

			ctx = requestcontext.WithPrincipal(ctx, principal.ID, principal.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// classify keeps token failure details out of responses. A well-formed token
// for the wrong role is the only case reported as forbidden.
func classify(err error) (status int, code, desc string) {
	if dErrors.HasCode(err, dErrors.CodeForbidden) {
		return http.StatusForbidden, "forbidden", "Insufficient role"
	}
	return http.StatusUnauthorized, "unauthorized", "Invalid or expired token"
}
