package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/handler"
	"github.com/JoshuaMusyokar/real-estate-sub004/internal/middleware"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/config"
)

type routeDeps struct {
	tokens middleware.TokenValidator
	rbac   *middleware.RBAC

	auth        *handler.AuthHandler
	permissions *handler.PermissionHandler
	roles       *handler.RoleHandler
	users       *handler.UserHandler
	properties  *handler.PropertyHandler
	locations   *handler.LocationHandler
	metrics     *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, d routeDeps) {
	r.GET("/health", d.metrics.Health)
	r.GET("/ready", d.metrics.Ready)
	r.GET("/metrics", d.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", d.auth.Login)
	// The token in the path authorizes the download.
	api.GET("/users/export/download/:token", d.users.DownloadExport)

	secured := api.Group("")
	secured.Use(middleware.JWT(d.tokens))
	require := d.rbac.Require

	secured.GET("/auth/me", d.auth.Me)
	secured.GET("/metrics/summary", d.metrics.Summary)

	rbac := secured.Group("/rbac")
	{
		rbac.GET("/permissions", require("permissions.read"), d.permissions.List)
		rbac.POST("/permissions", require("permissions.create"), d.permissions.Create)
		rbac.GET("/permissions/check", d.permissions.Check)
		rbac.GET("/permissions/:id", require("permissions.read"), d.permissions.Get)
		rbac.PUT("/permissions/:id", require("permissions.update"), d.permissions.Update)
		rbac.DELETE("/permissions/:id", require("permissions.delete"), d.permissions.Delete)

		rbac.GET("/roles", require("roles.read"), d.roles.List)
		rbac.POST("/roles", require("roles.create"), d.roles.Create)
		rbac.GET("/roles/st/stats", require("roles.read"), d.roles.Stats)
		rbac.GET("/roles/:id", require("roles.read"), d.roles.Get)
		rbac.PUT("/roles/:id", require("roles.update"), d.roles.Update)
		rbac.DELETE("/roles/:id", require("roles.delete"), d.roles.Delete)

		rbac.POST("/users/assign-role", require("users.update"), d.users.AssignRole)
		rbac.GET("/users/:id/role", require("users.read"), d.users.Role)
	}

	users := secured.Group("/users")
	{
		users.GET("", require("users.read"), d.users.List)
		users.POST("", require("users.create"), d.users.Create)
		users.POST("/bulk", require("users.update"), d.users.Bulk)
		users.POST("/export", require("users.export"), d.users.Export)
		users.POST("/export/jobs", require("users.export"), d.users.CreateExportJob)
		users.GET("/export/jobs/:id", require("users.export"), d.users.ExportJob)
		users.GET("/:id", require("users.read"), d.users.Get)
		users.PUT("/:id", require("users.update"), d.users.Update)
		users.DELETE("/:id", require("users.delete"), d.users.Delete)
		users.PATCH("/:id/status", require("users.update"), d.users.UpdateStatus)
		users.PATCH("/:id/role", require("users.update"), d.users.UpdateRole)
	}

	properties := secured.Group("/properties")
	{
		properties.GET("", require("properties.read"), d.properties.List)
		properties.POST("", require("properties.create"), d.properties.Create)
		properties.GET("/:id", require("properties.read"), d.properties.Get)
		properties.PUT("/:id", require("properties.update"), d.properties.Update)
		properties.PATCH("/:id/status", require("properties.update"), d.properties.UpdateStatus)
		properties.DELETE("/:id", require("properties.delete"), d.properties.Delete)
	}

	locations := secured.Group("/locations")
	{
		locations.GET("/cities", d.locations.Cities)
		locations.GET("/localities", d.locations.Localities)
	}
}
