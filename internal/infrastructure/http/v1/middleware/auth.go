package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"oficina/internal/core/apperror"
	appctx "oficina/internal/core/context"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
)

// TenantHeader optionally pins the workshop a request is meant for. When
// present it must match the tenant of the token.
const TenantHeader = "X-Tenant-ID"

// JWTValidator interface for token validation.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.UserContext, error)
}

// Auth middleware validates JWT tokens and populates user and tenant context.
// The tenant always comes from the token; domain code reads it with
// tenant.RequireID.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		user, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		if id.IsNil(user.TenantID) || id.IsNil(user.UserID) {
			abortUnauthorized(c, "token carries no user or tenant")
			return
		}

		if raw := c.GetHeader(TenantHeader); raw != "" {
			headerTenant, err := id.Parse(raw)
			if err != nil || headerTenant != user.TenantID {
				_ = c.Error(
					apperror.NewUnauthorized("tenant mismatch").
						WithDetail("header_tenant_id", raw).
						WithDetail("token_tenant_id", user.TenantID.String()),
				)
				c.Abort()
				return
			}
		}

		ctx := appctx.WithUser(c.Request.Context(), user)
		ctx = tenant.WithID(ctx, user.TenantID)
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", user.UserID.String())
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
