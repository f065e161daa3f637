package rbac

import (
	"net/http"

	"callnotes/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole lets the request through when the caller's role is one of allowed.
// Admins pass every check; roles this service does not know pass none. It must run after
// auth.RequireAccessToken.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required", "code": "unauthorized"})
			return
		}
		if !allows(allowedSet, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "code": "forbidden"})
			return
		}
		c.Next()
	}
}

func allows(allowed map[string]struct{}, role string) bool {
	if !IsKnownRole(role) {
		return false
	}
	if IsAdmin(role) {
		return true
	}
	_, ok := allowed[role]
	return ok
}
