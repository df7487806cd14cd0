package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"

  "github.com/yungbote/launchcopy-backend/internal/handlers"
  "github.com/yungbote/launchcopy-backend/internal/middleware"
)

type RouterConfig struct {
  AuthHandler    *handlers.AuthHandler
  AuthMiddleware *middleware.AuthMiddleware
  ProjectHandler *handlers.ProjectHandler
  SectionHandler *handlers.SectionHandler
  PublishHandler *handlers.PublishHandler
  SSEHandler     *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5174",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  // ===============
  // || Public    ||
  // ===============
  router.GET("/healthcheck", handlers.HealthCheck)
  router.POST("/register", cfg.AuthHandler.Register)
  router.POST("/login", cfg.AuthHandler.Login)

  // ===============
  // || Protected ||
  // ===============
  protected := router.Group("/")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  // Auth
  protected.POST("/logout", cfg.AuthHandler.Logout)
  // SSE
  protected.GET("/sse/stream", cfg.SSEHandler.Stream)
  // Projects
  protected.POST("/projects", cfg.ProjectHandler.Create)
  protected.GET("/projects", cfg.ProjectHandler.List)
  protected.GET("/projects/:projectId", cfg.ProjectHandler.Get)
  protected.DELETE("/projects/:projectId", cfg.ProjectHandler.Delete)
  // Section content
  protected.PUT("/projects/:projectId/sections/:sectionType/document", cfg.SectionHandler.PutDocument)
  protected.GET("/projects/:projectId/sections/:sectionType/document", cfg.SectionHandler.GetDocument)
  protected.PATCH("/projects/:projectId/sections/:sectionType/field", cfg.SectionHandler.SetField)
  protected.POST("/projects/:projectId/sections/:sectionType/fields", cfg.SectionHandler.BatchSetFields)
  protected.GET("/projects/:projectId/sections/:sectionType/fields", cfg.SectionHandler.ListFields)
  protected.POST("/projects/:projectId/sections/:sectionType/approve", cfg.SectionHandler.Approve)
  // Publish preview
  protected.GET("/projects/:projectId/publish/preview", cfg.PublishHandler.Preview)

  return router
}
