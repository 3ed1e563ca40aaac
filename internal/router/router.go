package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/signalboard/signalboard/internal/handlers"
	"github.com/signalboard/signalboard/internal/middleware"
	"github.com/signalboard/signalboard/internal/types"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)

		auth := api.Group("/auth")
		{
			auth.POST("/login", handlers.LoginUser)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
		}

		public := api.Group("/public")
		{
			public.GET("/status", handlers.PublicStatus)
			public.GET("/incidents", handlers.PublicIncidents)
			public.GET("/maintenance", handlers.PublicMaintenance)
			public.GET("/summary", handlers.PublicSummary)
		}

		admin := api.Group("/admin", middleware.AuthMiddleware())
		{
			admin.GET("/status", handlers.GetOverallStatus)

			roles := admin.Group("/roles", middleware.RequirePermission(types.PermissionManageRoles))
			{
				roles.POST("", handlers.CreateRole)
				roles.GET("", handlers.ListRoles)
				roles.GET("/:id", handlers.GetRole)
				roles.PATCH("/:id", handlers.UpdateRole)
				roles.DELETE("/:id", handlers.DeleteRole)
			}

			users := admin.Group("/users", middleware.RequirePermission(types.PermissionManageUsers))
			{
				users.POST("", handlers.CreateUser)
				users.GET("", handlers.ListUsers)
				users.GET("/:id", handlers.GetUser)
				users.PATCH("/:id", handlers.UpdateUser)
				users.DELETE("/:id", handlers.DeleteUser)
			}

			groups := admin.Group("/component-groups", middleware.RequirePermission(types.PermissionManageComponents))
			{
				groups.POST("", handlers.CreateComponentGroup)
				groups.GET("", handlers.ListComponentGroups)
				groups.GET("/:id", handlers.GetComponentGroup)
				groups.PATCH("/:id", handlers.UpdateComponentGroup)
				groups.DELETE("/:id", handlers.DeleteComponentGroup)
			}

			components := admin.Group("/components", middleware.RequirePermission(types.PermissionManageComponents))
			{
				components.POST("", handlers.CreateComponent)
				components.GET("", handlers.ListComponents)
				components.GET("/:id", handlers.GetComponent)
				components.PATCH("/:id", handlers.UpdateComponent)
				components.DELETE("/:id", handlers.DeleteComponent)
			}

			incidents := admin.Group("/incidents", middleware.RequirePermission(types.PermissionManageIncidents))
			{
				incidents.POST("", handlers.CreateIncident)
				incidents.GET("", handlers.ListIncidents)
				incidents.GET("/active", handlers.GetActiveIncidents)
				incidents.GET("/recent", handlers.GetRecentIncidents)
				incidents.GET("/history", handlers.GetIncidentHistory)
				incidents.GET("/:id", handlers.GetIncident)
				incidents.PATCH("/:id", handlers.UpdateIncident)
				incidents.DELETE("/:id", handlers.DeleteIncident)

				incidents.POST("/:id/updates", handlers.CreateIncidentUpdate)
				incidents.GET("/:id/updates/:update_id", handlers.GetIncidentUpdate)
				incidents.PATCH("/:id/updates/:update_id", handlers.UpdateIncidentUpdate)
				incidents.DELETE("/:id/updates/:update_id", handlers.DeleteIncidentUpdate)
			}

			maintenance := admin.Group("/maintenance", middleware.RequirePermission(types.PermissionManageMaintenance))
			{
				maintenance.POST("", handlers.CreateMaintenance)
				maintenance.GET("", handlers.ListMaintenance)
				maintenance.GET("/active", handlers.GetActiveMaintenance)
				maintenance.GET("/upcoming", handlers.GetUpcomingMaintenance)
				maintenance.GET("/recent-completed", handlers.GetRecentCompletedMaintenance)
				maintenance.GET("/:id", handlers.GetMaintenance)
				maintenance.PATCH("/:id", handlers.UpdateMaintenance)
				maintenance.DELETE("/:id", handlers.DeleteMaintenance)

				maintenance.POST("/:id/updates", handlers.CreateMaintenanceUpdate)
				maintenance.GET("/:id/updates/:update_id", handlers.GetMaintenanceUpdate)
				maintenance.PATCH("/:id/updates/:update_id", handlers.UpdateMaintenanceUpdate)
				maintenance.DELETE("/:id/updates/:update_id", handlers.DeleteMaintenanceUpdate)
			}

			automations := admin.Group("/automations", middleware.RequirePermission(types.PermissionManageAutomations))
			{
				automations.POST("", handlers.CreateAutomation)
				automations.GET("", handlers.ListAutomations)
				automations.GET("/:id", handlers.GetAutomation)
				automations.PATCH("/:id", handlers.UpdateAutomation)
				automations.DELETE("/:id", handlers.DeleteAutomation)
				automations.POST("/:id/execute", handlers.ExecuteAutomation)
				automations.POST("/:id/components", handlers.AddAutomationComponents)
				automations.DELETE("/:id/components", handlers.RemoveAutomationComponents)
			}

			auditLogs := admin.Group("/audit-logs", middleware.RequirePermission(types.PermissionViewAuditLogs))
			{
				auditLogs.POST("", handlers.CreateAuditLog)
				auditLogs.GET("", handlers.ListAuditLogs)
			}

			settings := admin.Group("/settings", middleware.RequirePermission(types.PermissionManageSettings))
			{
				settings.GET("", handlers.ListSiteSettings)
				settings.PUT("", handlers.UpdateSiteSetting)
				settings.GET("/maintenance-mode", handlers.GetMaintenanceMode)
				settings.PUT("/maintenance-mode", handlers.SetMaintenanceMode)
				settings.GET("/:key", handlers.GetSiteSetting)
			}
		}
	}

	return r
}
