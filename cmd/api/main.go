package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/harentsoaR/tutor-api/internal/config"
	"github.com/harentsoaR/tutor-api/internal/handlers"
	"github.com/harentsoaR/tutor-api/internal/logger"
	"github.com/harentsoaR/tutor-api/internal/middleware"
	"github.com/harentsoaR/tutor-api/internal/server"
	"github.com/harentsoaR/tutor-api/internal/services"
	"github.com/harentsoaR/tutor-api/internal/store"
	"github.com/harentsoaR/tutor-api/internal/store/memstore"
	"github.com/harentsoaR/tutor-api/internal/store/mongostore"
	"github.com/harentsoaR/tutor-api/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer closeStore()

	// --- Initialize Services ---
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	notify := services.NewNotificationService(services.NewMailer(cfg, zl), cfg.TextbeltAPIKey, zl)
	authSvc := services.NewAuthService(st, tokens, notify, cfg.OTPTTL, zl)

	if cfg.AdminEmail != "" {
		seedCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		err := authSvc.EnsureAdmin(seedCtx, cfg.AdminEmail, cfg.AdminPassword)
		cancel()
		if err != nil {
			return err
		}
	}

	h := handlers.NewHandler(handlers.Handler{
		Auth:           authSvc,
		Catalog:        services.NewCatalogService(st, zl),
		Availability:   services.NewAvailabilityService(st, zl),
		Booking:        services.NewBookingService(st, notify, zl),
		Payments:       services.NewPaymentService(st, notify, zl),
		Admin:          services.NewAdminService(st, zl),
		Tokens:         tokens,
		Log:            zl,
		CookieName:     cfg.CookieName,
		CookieSecure:   cfg.CookieSecure,
		RequestTimeout: cfg.RequestTimeout,
	})

	limiter := middleware.NewLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
	go limiter.Run(ctx, cfg.AuthRateWindow)

	if cfg.LogFormat != "console" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := server.NewRouter(h, server.Options{
		CORSOrigins: cfg.CORSOrigins,
		AuthLimiter: limiter,
		Ping:        st.Ping,
		Log:         zl,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		zl.Info("starting server", zap.String("port", cfg.APIPort), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http shutdown", zap.Error(err))
	}
	// Let queued mails and SMS finish.
	notify.Wait()
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) (*store.Store, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		zl.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongostore.Connect(connectCtx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	db := client.Database(cfg.MongoDatabase)
	if err := mongostore.EnsureIndexes(connectCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	zl.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	return mongostore.New(db), func() { disconnect(client, zl) }, nil
}

func disconnect(client *mongo.Client, zl *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		zl.Warn("mongo disconnect", zap.Error(err))
	}
}
