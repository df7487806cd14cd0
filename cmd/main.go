package main

import (
  "context"
  "fmt"
  "net/http"
  "os"
  "os/signal"
  "syscall"
  "time"

  "github.com/yungbote/launchcopy-backend/internal/clients/redis"
  "github.com/yungbote/launchcopy-backend/internal/db"
  "github.com/yungbote/launchcopy-backend/internal/handlers"
  "github.com/yungbote/launchcopy-backend/internal/jobs"
  "github.com/yungbote/launchcopy-backend/internal/middleware"
  "github.com/yungbote/launchcopy-backend/internal/modules/content"
  "github.com/yungbote/launchcopy-backend/internal/observability"
  "github.com/yungbote/launchcopy-backend/internal/platform/logger"
  "github.com/yungbote/launchcopy-backend/internal/repos"
  "github.com/yungbote/launchcopy-backend/internal/server"
  "github.com/yungbote/launchcopy-backend/internal/services"
  "github.com/yungbote/launchcopy-backend/internal/sse"
  "github.com/yungbote/launchcopy-backend/internal/utils"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Env
  log.Info("Loading environment variables from main...")
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
  refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
  poolWorkers := utils.GetEnvAsInt("PROPAGATION_WORKERS", 4, log)
  poolQueue := utils.GetEnvAsInt("PROPAGATION_QUEUE", 256, log)

  // Tracing
  ctx, cancel := context.WithCancel(context.Background())
  defer cancel()
  otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
    ServiceName: "launchcopy",
    Environment: utils.GetEnv("ENVIRONMENT", "development", log),
    Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
  })

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  userRepo := repos.NewUserRepo(thePG, log)
  userTokenRepo := repos.NewUserTokenRepo(thePG, log)
  projectRepo := repos.NewProjectRepo(thePG, log)
  sectionDocumentRepo := repos.NewSectionDocumentRepo(thePG, log)
  fieldRecordRepo := repos.NewFieldRecordRepo(thePG, log)

  // Content core
  log.Info("Setting up content core from main...")
  registry := content.DefaultRegistry()
  rules, err := content.DefaultRules(registry)
  if err != nil {
    log.Error("Rule tables failed to load", "error", err)
    os.Exit(1)
  }
  validator := content.NewValidator(registry)
  reconciler := content.NewReconciler(log, registry, fieldRecordRepo)
  pool := jobs.NewPool(log, poolWorkers, poolQueue)
  pool.Start(ctx)
  propagator := content.NewPropagator(log, pool, rules, registry, sectionDocumentRepo, reconciler)
  syncEngine := content.NewSyncEngine(log, rules, sectionDocumentRepo, fieldRecordRepo, reconciler)

  // SSE
  log.Info("Setting up SSE hub now...")
  sseHub := sse.NewSSEHub(log)
  var sseBus redis.SSEBus
  if os.Getenv("REDIS_ADDR") != "" {
    sseBus, err = redis.NewSSEBus(log)
    if err != nil {
      log.Warn("Redis SSE bus init failed, staying single-instance", "error", err)
      sseBus = nil
    } else if err := sseBus.StartForwarder(ctx, sseHub.Broadcast); err != nil {
      log.Warn("Redis SSE forwarder failed to start", "error", err)
    }
  }

  // Services
  log.Info("Setting up Services from main...")
  notifier := services.NewNotifier(log, sseHub, sseBus)
  authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
  projectService := services.NewProjectService(thePG, log, projectRepo, notifier)
  contentService := services.NewContentService(thePG, log, registry, validator, reconciler, syncEngine, propagator, sectionDocumentRepo, fieldRecordRepo, projectRepo, notifier)
  publishService := services.NewPublishService(thePG, log, registry, fieldRecordRepo, projectRepo)

  propagator.OnResult = func(in content.PropagationInput, result content.PropagationResult) {
    notifier.PropagationCompleted(in.ProjectID, in.SectionType, result.UpdatedSections, len(result.SkippedStale) > 0)
  }

  // Handlers
  log.Info("Setting up handlers from main...")
  authHandler := handlers.NewAuthHandler(log, authService)
  projectHandler := handlers.NewProjectHandler(log, projectService)
  sectionHandler := handlers.NewSectionHandler(log, contentService)
  publishHandler := handlers.NewPublishHandler(log, publishService)
  sseHandler := handlers.NewSSEHandler(log, sseHub)

  // Middleware
  log.Info("Setting up middleware from main...")
  authMiddleware := middleware.NewAuthMiddleware(log, authService)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    AuthHandler:    authHandler,
    AuthMiddleware: authMiddleware,
    ProjectHandler: projectHandler,
    SectionHandler: sectionHandler,
    PublishHandler: publishHandler,
    SSEHandler:     sseHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  srv := &http.Server{Addr: ":" + port, Handler: router}

  go func() {
    log.Info("Server listening", "port", port)
    if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
      log.Error("Server failed", "error", err)
      cancel()
    }
  }()

  // Shutdown: stop accepting requests, then drain the propagation pool so
  // in-flight dependent updates finish.
  quit := make(chan os.Signal, 1)
  signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
  select {
  case <-quit:
  case <-ctx.Done():
  }
  log.Info("Shutting down...")

  shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
  defer shutdownCancel()
  if err := srv.Shutdown(shutdownCtx); err != nil {
    log.Warn("HTTP shutdown failed", "error", err)
  }
  pool.Stop()
  if sseBus != nil {
    _ = sseBus.Close()
  }
  if otelShutdown != nil {
    _ = otelShutdown(shutdownCtx)
  }
}
