package httpapi

import (
	"talkline/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Mount registers the /v1 API. authMW authenticates every route except login.
func Mount(r *gin.Engine, h Handlers, authMW gin.HandlerFunc) {
	v1 := r.Group("/v1")

	// The login gate is the only unauthenticated route.
	v1.POST("/auth/login", h.Login)

	api := v1.Group("")
	api.Use(authMW, rbac.RequireAccount())
	{
		sessions := api.Group("/sessions")
		sessions.POST("", rbac.RequireAnyRole(rbac.RoleTalker), h.OpenSession)
		sessions.GET("/:id", h.GetSession)
		sessions.POST("/:id/activate", rbac.RequireAnyRole(rbac.RoleTransport), h.ActivateSession)
		sessions.POST("/:id/elapsed", rbac.RequireAnyRole(rbac.RoleTransport), h.ReportElapsed)
		sessions.POST("/:id/end", h.EndSession)
		sessions.POST("/:id/settle", h.SettleSession)

		api.POST("/reports", rbac.RequireAnyRole(rbac.RoleTalker, rbac.RoleListener, rbac.RoleModerator), h.SubmitReport)
		api.GET("/reports/sessions", h.SessionsSummary)
		api.GET("/reports/earnings", h.EarningsSummary)

		accounts := api.Group("/accounts/:id")
		accounts.GET("/reports/count", h.ReportCount)
		accounts.GET("/suspension", h.SuspensionStatus)

		api.GET("/payouts/balance", rbac.RequireAnyRole(rbac.RoleListener), h.PayoutBalance)
	}
}
