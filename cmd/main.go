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

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/markjakearzadon/zapshift-gobackend/internal/auth"
	"github.com/markjakearzadon/zapshift-gobackend/internal/config"
	"github.com/markjakearzadon/zapshift-gobackend/internal/db"
	"github.com/markjakearzadon/zapshift-gobackend/internal/handlers"
	"github.com/markjakearzadon/zapshift-gobackend/internal/logger"
	"github.com/markjakearzadon/zapshift-gobackend/internal/metrics"
	"github.com/markjakearzadon/zapshift-gobackend/internal/repository"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
	"github.com/markjakearzadon/zapshift-gobackend/internal/tracking"
)

type stores struct {
	parcels  services.ParcelStore
	payments services.PaymentLedger
	users    services.UserStore
	riders   services.RiderStore
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zl, err := logger.New(logger.Config{
		ServiceName:   cfg.AppName,
		Environment:   cfg.Environment,
		Level:         cfg.LogLevel,
		Format:        cfg.LogFormat,
		IncludeCaller: cfg.LogIncludeCaller,
	})
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, client, err := openStores(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("open storage", zap.Error(err))
	}
	if client != nil {
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := client.Disconnect(dctx); err != nil {
				zl.Warn("disconnect mongo", zap.Error(err))
			}
		}()
	}

	m := metrics.New()
	stripe := services.NewStripeClient(cfg.StripeSecret, cfg.StripeBaseURL)

	router := handlers.Router{
		Parcels:        handlers.NewParcelHandler(services.NewParcelService(st.parcels)),
		Users:          handlers.NewUserHandler(services.NewUserService(st.users)),
		Riders:         handlers.NewRiderHandler(services.NewRiderService(st.riders)),
		Checkout:       handlers.NewCheckoutHandler(services.NewCheckoutService(stripe, cfg.SiteDomain)),
		Payments:       handlers.NewPaymentHandler(services.NewPaymentService(stripe, st.payments, st.parcels, tracking.New(), m)),
		Verifier:       auth.NewVerifier(cfg.AuthJWTSecret),
		Metrics:        m.Handler(),
		Logger:         zl,
		RequestTimeout: cfg.RequestTimeout,
	}

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server running", zap.String("port", cfg.Port), zap.String("storage", cfg.StorageDriver))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			zl.Error("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		zl.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(sctx); err != nil {
			zl.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}

func openStores(ctx context.Context, cfg config.Config, zl *zap.Logger) (stores, *mongo.Client, error) {
	if cfg.StorageDriver == config.StorageMemory {
		if cfg.IsProduction() {
			return stores{}, nil, errors.New("memory storage is not allowed in production")
		}
		zl.Warn("using in-memory storage, data is lost on restart")
		return stores{
			parcels:  repository.NewMemoryParcelStore(),
			payments: repository.NewMemoryPaymentLedger(),
			users:    repository.NewMemoryUserStore(),
			riders:   repository.NewMemoryRiderStore(),
		}, nil, nil
	}

	client, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return stores{}, nil, err
	}
	zl.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	database := client.Database(cfg.MongoDatabase)
	ictx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.EnsureIndexes(ictx, database); err != nil {
		_ = client.Disconnect(context.Background())
		return stores{}, nil, err
	}

	return stores{
		parcels:  repository.NewMongoParcelStore(database.Collection(db.ParcelsCollection)),
		payments: repository.NewMongoPaymentLedger(database.Collection(db.PaymentsCollection)),
		users:    repository.NewMongoUserStore(database.Collection(db.UsersCollection)),
		riders:   repository.NewMongoRiderStore(database.Collection(db.RidersCollection)),
	}, client, nil
}
