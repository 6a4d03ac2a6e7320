package main

import (
	"github.com/max-belichenko/vehicle-manager/internal/httpapi"
	"github.com/max-belichenko/vehicle-manager/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")

	// Token issuance is public; everything else requires an access token.
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/token", h.IssueToken)
		authGroup.POST("/refresh", h.Refresh)
	}

	protected := v1.Group("")
	protected.Use(authMW)
	{
		vehicles := protected.Group("/vehicles")
		{
			vehicles.GET("", h.ListVehicles)
			vehicles.POST("", h.CreateVehicle)
			vehicles.PUT("/import", h.ImportVehicles)
			vehicles.GET("/export", h.ExportVehicles)
			vehicles.GET("/:id", h.GetVehicle)
			vehicles.PUT("/:id", h.UpdateVehicle)
			vehicles.DELETE("/:id", h.DeleteVehicle)
		}

		// The audit log is admin-only.
		logs := protected.Group("/logs")
		logs.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			logs.GET("", h.ListAuditLog)
		}
	}
}
