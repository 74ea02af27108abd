package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/auth"
	"github.com/iyhunko/product-catalog/internal/blob"
	"github.com/iyhunko/product-catalog/internal/config"
	httpAPI "github.com/iyhunko/product-catalog/internal/http"
	"github.com/iyhunko/product-catalog/internal/http/controller"
	"github.com/iyhunko/product-catalog/internal/http/middleware"
	"github.com/iyhunko/product-catalog/internal/logger"
	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/repository/memory"
	repomongo "github.com/iyhunko/product-catalog/internal/repository/mongo"
	reposql "github.com/iyhunko/product-catalog/internal/repository/sql"
	"github.com/iyhunko/product-catalog/internal/service"
	sqspkg "github.com/iyhunko/product-catalog/internal/sqs"
)

const shutdownTimeout = 10 * time.Second

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)

	logger.InitJSONLogger(conf.DebugMode)
	if !conf.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	productRepository, closeRepository, err := newProductRepository(ctx, conf)
	handleErr("starting product repository", err)
	defer closeRepository()

	store, keyFromURL, err := newBlobStore(ctx, conf)
	handleErr("starting image storage", err)

	opts := []service.Option{
		service.WithUploadTimeout(conf.Blob.UploadTimeout),
		service.WithKeyResolver(keyFromURL),
	}
	if links := service.NewOrderLinks(conf.Order); links != nil {
		opts = append(opts, service.WithOrderLinks(links))
	}
	if conf.AWS.SQSQueueURL != "" {
		sqsClient, err := sqspkg.NewClient(ctx, conf.AWS)
		handleErr("creating SQS client", err)
		opts = append(opts, service.WithPublisher(sqspkg.NewPublisher(sqsClient, conf.AWS.SQSQueueURL)))
		slog.Info("Publishing product events", slog.String("queue_url", conf.AWS.SQSQueueURL))
	}
	productService := service.NewProductService(productRepository, store, opts...)

	authenticator := auth.NewAuthenticator(conf.Admin)
	ctr := controller.New(conf, authenticator)
	productCtr := controller.NewProductController(productService)

	engine := gin.New()
	engine.MaxMultipartMemory = conf.Blob.MaxUploadBytes
	engine = httpAPI.InitRouter(conf, engine, middleware.New(conf, authenticator), ctr, productCtr)

	httpServer := &http.Server{
		Addr:              ":" + conf.HTTPServer.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server starting", slog.String("port", conf.HTTPServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			handleErr("listening to HTTP requests", err)
		}
	}()

	metricsServer := metrics.StartMetricsServer(conf)

	<-ctx.Done()
	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", slog.Any("err", err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Metrics server shutdown failed", slog.Any("err", err))
	}
}

// newProductRepository opens the configured backend and returns a func releasing it.
func newProductRepository(ctx context.Context, conf *config.Config) (repository.ProductRepository, func(), error) {
	switch conf.RepositoryDriver {
	case config.DriverPostgres:
		db, err := reposql.StartDB(ctx, conf.Database)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				slog.Error("Failed to close database", slog.Any("err", err))
			}
		}
		return reposql.NewProductRepository(db), closeDB, nil
	case config.DriverMongo:
		client, err := repomongo.Connect(ctx, conf.Mongo)
		if err != nil {
			return nil, nil, err
		}
		disconnect := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				slog.Error("Failed to disconnect mongo", slog.Any("err", err))
			}
		}
		return repomongo.NewProductRepository(client.Database(conf.Mongo.Database)), disconnect, nil
	case config.DriverMemory:
		slog.Warn("Using in-memory product repository, data is lost on restart")
		return memory.NewProductRepository(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown repository driver %q", conf.RepositoryDriver)
}

func newBlobStore(ctx context.Context, conf *config.Config) (blob.Store, func(string) (string, error), error) {
	switch conf.Blob.Backend {
	case config.BlobBackendLocal:
		store, err := blob.NewLocalStore(conf.Blob.Dir, conf.Blob.PublicPath, conf.Blob.MaxUploadBytes)
		if err != nil {
			return nil, nil, err
		}
		return store, store.KeyFromURL, nil
	case config.BlobBackendS3:
		client, err := blob.NewS3Client(ctx, conf.AWS.Region, conf.AWS.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		store := blob.NewS3Store(client, conf.AWS, conf.Blob.MaxUploadBytes)
		return store, store.KeyFromURL, nil
	}
	return nil, nil, fmt.Errorf("unknown blob backend %q", conf.Blob.Backend)
}

func handleErr(msg string, err error) {
	if err != nil {
		slog.Error("error while "+msg, slog.Any("err", err))
		os.Exit(1)
	}
}
