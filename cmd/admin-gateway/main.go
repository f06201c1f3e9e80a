package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/gigboard/api/swagger"
	"github.com/noah-isme/gigboard/internal/client"
	"github.com/noah-isme/gigboard/internal/codec"
	"github.com/noah-isme/gigboard/internal/handler"
	"github.com/noah-isme/gigboard/internal/middleware"
	"github.com/noah-isme/gigboard/internal/repository"
	"github.com/noah-isme/gigboard/internal/service"
	"github.com/noah-isme/gigboard/internal/tokenstore"
	"github.com/noah-isme/gigboard/internal/validation"
	"github.com/noah-isme/gigboard/pkg/cache"
	"github.com/noah-isme/gigboard/pkg/clock"
	"github.com/noah-isme/gigboard/pkg/config"
	"github.com/noah-isme/gigboard/pkg/database"
	"github.com/noah-isme/gigboard/pkg/jobs"
	"github.com/noah-isme/gigboard/pkg/logger"
	corsmiddleware "github.com/noah-isme/gigboard/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gigboard/pkg/middleware/requestid"
)

// @title gigboard admin gateway
// @version 0.1.0
// @description Event listing and administration in front of the events API
// @BasePath /
// @schemes http
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventCodec, err := codec.NewForZone(cfg.Display.Timezone)
	if err != nil {
		logr.Fatal("invalid display timezone", zap.String("timezone", cfg.Display.Timezone), zap.Error(err))
	}

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	sessions, err := sessionStore(ctx, cfg, checks)
	if err != nil {
		logr.Fatal("failed to init session store", zap.Error(err))
	}

	var auditRepo *repository.AuditRepository
	if cfg.Audit.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect audit database", zap.Error(err))
		}
		defer db.Close()
		auditRepo = repository.NewAuditRepository(db)
		checks["audit_db"] = db.PingContext
	}
	var audit *service.AuditService
	if auditRepo != nil {
		audit = service.NewAuditService(auditRepo, metrics, logr)
		audit.StartAsync(context.Background(), jobs.QueueConfig{Workers: 2, Logger: logr})
		defer audit.Stop()
	}

	opts := client.Options{
		BaseURL:    cfg.Upstream.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Upstream.Timeout},
		Logger:     logr,
		Observer:   metrics,
	}
	events := client.NewEventClient(opts)
	clk := clock.NewSystem()

	authSvc := service.NewAuthService(client.NewAuthClient(opts), audit, logr)
	lists := service.NewEventListService(eventCodec, clk, logr)
	forms := service.NewEventFormService(eventCodec, validation.NewEventValidator(validator.New(), eventCodec), metrics, logr)
	exports := service.NewExportService(eventCodec, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.RegisterRoutes(r, handler.Routes{
		APIPrefix:   cfg.APIPrefix,
		Sessions:    sessions,
		Session:     cfg.Session,
		AuthService: authSvc,
		Audit:       audit,
		Health:      handler.NewHealthHandler(metrics, checks),
		Events:      handler.NewEventHandler(lists, events, eventCodec),
		Admin:       handler.NewAdminEventHandler(lists, forms, exports, events, eventCodec, clk),
		Auth:        handler.NewAuthHandler(authSvc),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "upstream", cfg.Upstream.BaseURL, "mode", cfg.Upstream.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

// sessionStore picks the token store backend. Redis adds a readiness check.
func sessionStore(ctx context.Context, cfg *config.Config, checks map[string]handler.ReadinessCheck) (tokenstore.Store, error) {
	switch cfg.Session.Store {
	case "redis":
		rdb, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		checks["sessions"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		return tokenstore.NewRedisStore(rdb, "gigboard:session:"), nil
	case "", "memory":
		return tokenstore.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
}
