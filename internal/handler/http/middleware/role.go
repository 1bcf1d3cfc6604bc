package middleware

import (
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/homecare-payroll/internal/handler/http/response"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/jwt"
)

// RequireRole admits operators whose role is one of roles.
func RequireRole(roles ...jwt.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			op, err := jwt.OperatorFromContext(r.Context())
			if err != nil {
				response.HandleError(w, err)
				return
			}

			for _, role := range roles {
				if op.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Forbidden(w, fmt.Sprintf("Insufficient permissions: role '%s' not allowed", op.Role))
		})
	}
}

// RequireApprover admits admins and payroll managers
func RequireApprover(next http.Handler) http.Handler {
	return RequireRole(jwt.RoleAdmin, jwt.RolePayrollManager)(next)
}
