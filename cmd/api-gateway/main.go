package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	_ "github.com/noah-isme/grievance-api/api/swagger"
	"github.com/noah-isme/grievance-api/internal/handler"
	"github.com/noah-isme/grievance-api/internal/middleware"
	"github.com/noah-isme/grievance-api/internal/remote"
	"github.com/noah-isme/grievance-api/internal/repository"
	"github.com/noah-isme/grievance-api/internal/router"
	"github.com/noah-isme/grievance-api/internal/service"
	"github.com/noah-isme/grievance-api/internal/workflow"
	"github.com/noah-isme/grievance-api/pkg/cache"
	"github.com/noah-isme/grievance-api/pkg/config"
	"github.com/noah-isme/grievance-api/pkg/database"
	"github.com/noah-isme/grievance-api/pkg/jobs"
	"github.com/noah-isme/grievance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/grievance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/grievance-api/pkg/middleware/requestid"
)

// @title Grievance API
// @version 1.0.0
// @description Grievance submission, routing and escalation for students and staff.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// stores bundles the persistence backends selected by STORE_DRIVER.
type stores struct {
	grievances  service.GrievanceStore
	students    service.StudentStore
	proctors    service.ProctorStore
	credentials service.CredentialVerifier
	ready       handler.ReadinessCheck
	close       func()
}

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	backend, err := openStores(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer backend.close()

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	publisher, closePublisher := connectEvents(cfg.Events, logr)
	defer closePublisher()
	eventSvc := service.NewEventService(publisher, cfg.Events.SubjectPrefix, jobs.QueueConfig{
		Workers:    cfg.Events.Workers,
		MaxRetries: cfg.Events.Retries,
		RetryDelay: cfg.Events.RetryDelay,
	}, metricsSvc, logr.Named("events"))
	eventSvc.Start(ctx)
	defer eventSvc.Stop()

	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, "grievance:directory", logr),
		metricsSvc,
		cfg.Directory.CacheTTL,
		logr,
		cfg.Directory.CacheEnabled,
	)

	engine := workflow.NewEngine(workflow.DefaultRoutingTable(), time.Now)
	grievanceSvc := service.NewGrievanceService(backend.grievances, backend.students, engine, eventSvc, service.NewExportService(logr), metricsSvc, validate, logr.Named("grievances"))
	directorySvc := service.NewDirectoryService(backend.students, backend.proctors, cacheSvc, validate, logr.Named("directory"))
	authSvc := service.NewAuthService(backend.credentials, repository.NewSessionRepository(redisClient), validate, logr.Named("auth"), service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		Issuer:      cfg.JWT.Issuer,
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metricsSvc))

	router.Register(r, cfg, router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(authSvc),
		GrievanceHandler: handler.NewGrievanceHandler(grievanceSvc),
		DirectoryHandler: handler.NewDirectoryHandler(directorySvc),
		MetricsHandler: handler.NewMetricsHandler(metricsSvc, map[string]handler.ReadinessCheck{
			"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
			"store": backend.ready,
		}),
		Sessions: authSvc,
		Logger:   logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return postgresStores(db), nil
	default:
		client := remote.NewClient(cfg.Store.RemoteBaseURL, remote.NewHTTPClient(cfg.Store.RemoteTimeout), logr.Named("remote"))
		return &stores{
			grievances:  remote.NewGrievanceStore(client),
			students:    remote.NewStudentStore(client),
			proctors:    remote.NewProctorStore(client),
			credentials: remote.NewAuthenticator(client),
			ready:       client.Ping,
			close:       func() {},
		}, nil
	}
}

func postgresStores(db *sqlx.DB) *stores {
	return &stores{
		grievances:  repository.NewGrievanceRepository(db),
		students:    repository.NewStudentRepository(db),
		proctors:    repository.NewProctorRepository(db),
		credentials: repository.NewUserRepository(db),
		ready:       db.PingContext,
		close:       func() { _ = db.Close() },
	}
}

// connectEvents dials NATS when configured. Without a URL events are only logged.
func connectEvents(cfg config.EventsConfig, logr *zap.Logger) (service.EventPublisher, func()) {
	if cfg.NATSURL == "" {
		logr.Info("event broker not configured, events will be logged")
		return nil, func() {}
	}
	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("grievance-api"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logr.Warn("event broker disconnected", zap.Error(err))
			}
		}),
	)
	if err != nil {
		logr.Warn("event broker unavailable, events will be logged", zap.String("url", cfg.NATSURL), zap.Error(err))
		return nil, func() {}
	}
	return conn, func() { _ = conn.Drain() }
}
