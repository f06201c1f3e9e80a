package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gigboard/internal/middleware"
	"github.com/noah-isme/gigboard/internal/models"
	"github.com/noah-isme/gigboard/internal/service"
	"github.com/noah-isme/gigboard/internal/tokenstore"
	"github.com/noah-isme/gigboard/pkg/config"
)

// Routes groups what RegisterRoutes mounts.
type Routes struct {
	APIPrefix string
	Sessions  tokenstore.Store
	Session   config.SessionConfig

	AuthService *service.AuthService
	Audit       *service.AuditService

	Health *HealthHandler
	Events *EventHandler
	Admin  *AdminEventHandler
	Auth   *AuthHandler
}

// RegisterRoutes mounts the ops endpoints at the root and the API under
// APIPrefix.
func RegisterRoutes(r *gin.Engine, rt Routes) {
	r.GET("/health", rt.Health.Health)
	r.GET("/ready", rt.Health.Ready)
	r.GET("/metrics", rt.Health.Prometheus)

	prefix := rt.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)
	api.GET("/events", rt.Events.List)

	sessioned := api.Group("")
	sessioned.Use(middleware.Session(rt.Sessions, rt.Session))

	auth := sessioned.Group("/auth")
	auth.POST("/login", rt.Auth.Login)
	auth.POST("/logout", rt.Auth.Logout)
	auth.GET("/session", rt.Auth.Session)

	admin := sessioned.Group("/admin/events")
	admin.Use(middleware.RequireAuth(rt.AuthService))
	admin.GET("", rt.Admin.List)
	admin.GET("/export", rt.Admin.Export)
	admin.GET("/:id", rt.Admin.Get)
	admin.POST("", middleware.Audit(rt.Audit, models.AuditActionEventCreate, models.AuditResourceEvent), rt.Admin.Create)
	admin.PUT("/:id", middleware.Audit(rt.Audit, models.AuditActionEventUpdate, models.AuditResourceEvent), rt.Admin.Update)
	admin.DELETE("/:id", middleware.Audit(rt.Audit, models.AuditActionEventDelete, models.AuditResourceEvent), rt.Admin.Delete)
}
