package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/cart-api/internal/auth"
	"github.com/fjod/cart-api/internal/cache"
	"github.com/fjod/cart-api/internal/config"
	"github.com/fjod/cart-api/internal/consumer"
	httpapi "github.com/fjod/cart-api/internal/http"
	"github.com/fjod/cart-api/internal/publisher"
	"github.com/fjod/cart-api/internal/repository"
	"github.com/fjod/cart-api/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the outbox publisher and the checkout consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	creds := cfg.Credentials()
	repo, err := repository.NewRepository(creds)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		return err
	}
	log.Info("database migrations completed")

	catalog, closeCatalog, err := openCatalog(repo)
	if err != nil {
		return err
	}
	defer closeCatalog()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, user lookups will hit the database", "addr", cfg.RedisAddr, "error", err)
	}
	users := cache.NewCachedDirectory(repo, cache.NewRedisCache(redisClient, cfg.UserCacheTTL), log)

	tokens, err := auth.NewManager(auth.Config{
		Key:        []byte(cfg.JWTKey),
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		Expiration: cfg.JWTExpiration,
	})
	if err != nil {
		return fmt.Errorf("configure tokens (JWT_KEY): %w", err)
	}

	carts := service.NewCartService(catalog, users, repo, log)
	accounts := service.NewUserService(users, tokens, log)

	// continue traces started by upstream callers
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Carts:          httpapi.NewCartHandler(carts, cfg.RequestTimeout, log),
		Auth:           httpapi.NewAuthHandler(accounts, cfg.RequestTimeout, log),
		Items:          httpapi.NewItemHandler(catalog, cfg.RequestTimeout, log),
		Tokens:         tokens,
		Health:         repo.Ping,
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	outbox := publisher.NewOutboxPublisher(repo, cfg.CartEventsTopic, log, cfg.KafkaBrokers...)
	defer outbox.Close()

	checkouts := consumer.NewCheckoutConsumer(carts, cfg.CheckoutTopic, log, cfg.KafkaBrokers...)
	defer checkouts.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("cart-api listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return outbox.Run(gctx)
	})
	g.Go(func() error {
		return checkouts.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("cart-api stopped")
	return nil
}

func openCatalog(repo *repository.Repository) (repository.Catalog, func(), error) {
	if cfg.CatalogDriver != config.CatalogSQLite {
		return repo, func() {}, nil
	}

	catalog, err := repository.NewSQLiteCatalog(cfg.CatalogDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite catalog: %w", err)
	}
	if err := catalog.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		catalog.Close()
		return nil, nil, err
	}
	log.Info("using sqlite catalog", "path", cfg.CatalogDBPath)
	return catalog, func() { catalog.Close() }, nil
}
