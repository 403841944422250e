package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"                     // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // request logging and panic recovery
	"github.com/labstack/gommon/log"                // leveled logger behind echo.Logger

	"github.com/iliyamo/car-rental/internal/config"     // Internal config loader
	"github.com/iliyamo/car-rental/internal/database"   // MySQL connection and schema
	"github.com/iliyamo/car-rental/internal/handler"    // HTTP handlers
	"github.com/iliyamo/car-rental/internal/middleware" // session, cache and rate limiting
	"github.com/iliyamo/car-rental/internal/queue"      // booking events over RabbitMQ
	"github.com/iliyamo/car-rental/internal/repository" // MySQL stores
	"github.com/iliyamo/car-rental/internal/router"     // Internal router setup
	"github.com/iliyamo/car-rental/internal/scheduler"  // periodic maintenance
	"github.com/iliyamo/car-rental/internal/service"    // domain services
)

func main() {
	cfg := config.Load() // Load environment config

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Logger.SetPrefix("car-rental")
	e.Logger.SetLevel(log.INFO)
	if !cfg.Production() {
		e.Logger.SetLevel(log.DEBUG)
	}
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	logger := e.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatalf("database: %v", err)
		}
	}

	// Redis is optional: without it the cache and rate limiter pass through.
	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		logger.Warn("redis unavailable; response cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	// Leave events nil unless enabled so the service skips publishing.
	var events service.EventPublisher
	if cfg.EventsEnabled {
		events = queue.NewPublisher(cfg.RabbitURL, logger)
	}

	users := repository.NewUserRepo(db)
	authSvc := service.NewAuthService(users, repository.NewTokenRepo(db), service.AuthConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     time.Duration(cfg.AccessTTLMin) * time.Minute,
		RefreshTTL:    time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
		BcryptCost:    cfg.BcryptCost,
	}, logger)
	bookingSvc := service.NewBookingService(repository.NewBookingRepo(db), events, logger)
	carSvc := service.NewCarService(repository.NewCarRepo(db))
	userSvc := service.NewUserService(users)

	cookies := middleware.Cookies{Secure: cfg.Production()}
	cacheCfg := config.LoadCacheConfig()

	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				c.Logger().Infof("%s %s %d %s %s err=%v", v.Method, v.URI, v.Status, v.Latency, v.RemoteIP, v.Error)
				return nil
			}
			c.Logger().Infof("%s %s %d %s %s", v.Method, v.URI, v.Status, v.Latency, v.RemoteIP)
			return nil
		},
	}))
	e.Use(echomw.Recover())
	// Throttle before resolving sessions so a flood never reaches the
	// token and user lookups.  The bucket therefore keys on IP and route.
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.SessionResolver(authSvc, cookies))

	bookingH := handler.NewBookingHandler(bookingSvc)
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, cookies),
		middleware.NewTokenBucket(config.LoadLoginRateLimitConfig(), rdb))
	router.RegisterCatalog(e, handler.NewCarHandler(carSvc), bookingH,
		middleware.NewRedisCache(cacheCfg, rdb), middleware.InvalidateCache(cacheCfg, rdb))
	router.RegisterBookings(e, bookingH)
	router.RegisterAdmin(e, handler.NewAdminHandler(userSvc))

	jobs := scheduler.New(logger)
	if err := jobs.Add("purge-refresh-tokens", cfg.TokenPurgeSchedule, time.Minute,
		scheduler.PurgeTokens(authSvc, logger)); err != nil {
		logger.Fatalf("scheduler: %v", err)
	}
	jobs.Start()

	consumerDone := make(chan struct{})
	if cfg.ConsumerEnabled {
		go func() {
			defer close(consumerDone)
			if err := queue.NewConsumer(cfg.RabbitURL, cfg.BookingLogPath, logger).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("booking consumer stopped: %v", err)
			}
		}()
	} else {
		close(consumerDone)
	}

	addr := ":" + cfg.Port // Address string with port
	go func() {
		logger.Infof("listening on %s (env=%s)", addr, cfg.Env) // Print startup info
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http shutdown: %v", err)
	}
	jobs.Stop()
	bookingSvc.Wait()
	<-consumerDone
}
