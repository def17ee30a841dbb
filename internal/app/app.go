// Package app wires configuration, storage, domain services and the HTTP
// server into a running process.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/karomart/backend/internal/domain/cart"
	"github.com/karomart/backend/internal/domain/catalog"
	"github.com/karomart/backend/internal/domain/coupon"
	"github.com/karomart/backend/internal/domain/order"
	"github.com/karomart/backend/internal/handler"
	"github.com/karomart/backend/internal/payment"
	"github.com/karomart/backend/internal/storage/postgres"
	"github.com/karomart/backend/internal/storage/rediscache"
	"github.com/karomart/backend/pkg/ginmiddleware"
	"github.com/karomart/backend/pkg/health"
	"github.com/karomart/backend/pkg/mailer"
)

const productCacheTTL = 5 * time.Minute

// orderNotifier bridges the order service's notification hook to the mailer.
type orderNotifier struct {
	mails *mailer.OrderMailer
}

func (n *orderNotifier) OrderPlaced(ctx context.Context, email string, o *order.Order) {
	n.mails.OrderPlaced(ctx, email, o.ID)
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.DatabasePingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories.
	var products catalog.ProductRepository = postgres.NewProductRepository(pool)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis URL")
		}
		client := redis.NewClient(opts)
		defer func() { _ = client.Close() }()

		products = rediscache.NewProductCache(products, client, productCacheTTL)
		healthSvc.AddReadinessCheck("redis", 5*time.Second, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		lg.Info("Product cache enabled")
	}
	categories := postgres.NewCategoryRepository(pool)
	carts := postgres.NewCartRepository(pool)
	wallets := postgres.NewWalletRepository(pool)
	addresses := postgres.NewAddressRepository(pool)
	store := postgres.NewStore(pool)

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Domain services.
	cartSvc := cart.NewService(products, carts)
	couponSvc := coupon.NewService(postgres.NewCouponRepository(pool), carts)
	provider := payment.NewStripeProvider(cfg.StripeKey)
	notifier := &orderNotifier{mails: mailer.NewOrderMailer(mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}))}
	orderSvc := order.NewService(store, provider, notifier)

	// HTTP router.
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		ginmiddleware.RequestID(),
		ginmiddleware.Logger(lg),
		cors.New(corsConfig(cfg.CORS)),
		ginmiddleware.RateLimitWithCleanup(ctx, ginmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
	)
	router.GET("/livez", gin.WrapF(healthSvc.LiveEndpoint))
	router.GET("/readyz", gin.WrapF(healthSvc.ReadyEndpoint))

	h := handler.New(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL, JWTSecret: []byte(cfg.JWTSecret)},
		products, categories, cartSvc, carts, couponSvc, orderSvc, wallets, addresses,
	)
	h.Routes(router)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(router, "karomart-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Warn("Shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	<-shutdownDone
	return nil
}

// corsConfig translates the application CORS settings into gin-contrib's.
func corsConfig(cfg CORSConfig) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = []string{"Content-Type", "Authorization"}
	c.AllowCredentials = cfg.AllowCredentials
	c.MaxAge = 24 * time.Hour

	if len(cfg.Origins) == 1 && cfg.Origins[0] == "*" {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.Origins
	}
	return c
}
