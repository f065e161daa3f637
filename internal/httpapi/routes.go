package httpapi

import (
	"callnotes/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Register wires HTTP routes to handlers. authMW must verify access tokens and put the
// identity into the request context.
func Register(r *gin.Engine, h Handlers, authMW gin.HandlerFunc) {
	r.GET("/healthz", h.Healthz)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", h.Signup)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}

	protected := r.Group("/")
	protected.Use(authMW)
	{
		protected.GET("/me", h.Me)

		callsGroup := protected.Group("/calls")
		callsGroup.Use(rbac.RequireAnyRole(rbac.RoleUser))
		{
			callsGroup.POST("", h.CreateCall)
			callsGroup.GET("", h.ListCalls)
			callsGroup.GET("/:id", h.GetCall)
			callsGroup.PUT("/:id", h.UpdateCall)
			callsGroup.DELETE("/:id", h.DeleteCall)
		}

		admin := protected.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			admin.GET("/summary", h.UsageSummary)
			admin.GET("/audit", h.ListAuditEvents)
		}
	}
}
