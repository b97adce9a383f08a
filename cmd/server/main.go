package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/config"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/database"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/email"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/gateway"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/handler"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/logging"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/middleware"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/queue"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/repository"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/router"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/scheduler"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/service"
)

func main() {
	// A missing .env is fine; the environment may be set by the runtime.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.Env)
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(log.GetLevel())

	if cfg.Chapa.WebhookSecret == "" {
		if cfg.IsProd() {
			log.Fatal("CHAPA_WEBHOOK_SECRET is required in production")
		}
		log.Warn("CHAPA_WEBHOOK_SECRET not set: webhook signatures are not verified")
	}
	log.WithField("gateway", cfg.Chapa.String()).Info("configuration loaded")

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	if cfg.DBMigrate {
		mctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(mctx, db)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("schema migration failed")
		}
		log.Info("schema migrated")
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listings := repository.NewListingRepo(db)
	bookings := repository.NewBookingRepo(db)
	payments := repository.NewPaymentRepo(db)
	users := repository.NewUserRepo(db)

	publisher := service.NewPublisher(cfg.Broker.URL, cfg.Broker.Buffer, log.WithField("component", "publisher"))
	go publisher.Start(ctx)

	if mailer, err := email.NewClient(cfg.SMTP); err != nil {
		log.WithError(err).Warn("smtp not configured: notification consumer disabled")
	} else {
		consumer := &queue.Consumer{
			URL:      cfg.Broker.URL,
			Mailer:   mailer,
			SiteName: cfg.SMTP.FromName,
			Log:      log.WithField("component", "consumer"),
		}
		go consumer.Run(ctx)
	}

	bookingSvc := &service.BookingService{
		Listings: listings,
		Bookings: bookings,
		Users:    users,
		Notifier: publisher,
		Log:      log.WithField("component", "bookings"),
	}
	paymentSvc := &service.PaymentService{
		Bookings: bookings,
		Payments: payments,
		Listings: listings,
		Users:    users,
		Gateway: gateway.New(gateway.Config{
			BaseURL:   cfg.Chapa.BaseURL,
			SecretKey: cfg.Chapa.SecretKey,
			Timeout:   cfg.Chapa.Timeout,
		}),
		Notifier: publisher,
		Locker:   repository.NewRedisLocker(rdb, "lock"),
		Log:      log.WithField("component", "payments"),
		Settings: service.PaymentSettings{
			Currency:    "ETB",
			CallbackURL: cfg.Chapa.CallbackURL,
			ReturnURL:   cfg.Chapa.ReturnURL,
			Expiry:      cfg.Payments.Expiry,
			LockTTL:     cfg.Payments.InitiateLockTTL,
		},
	}

	sweeper := &scheduler.PaymentSweeper{
		Payments:  paymentSvc,
		Completer: bookingSvc,
		Interval:  cfg.Payments.SweepInterval,
		Log:       log.WithField("component", "sweeper"),
	}
	go sweeper.Start(ctx)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(handler.AuthSettings{
		JWTSecret:    cfg.JWTSecret,
		AccessTTLMin: cfg.AccessTTLMin,
		BcryptCost:   cfg.BcryptCost,
	}, users, log), cfg.JWTSecret)
	router.RegisterListings(e, handler.NewListingHandler(listings, log), cfg.JWTSecret,
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterBookings(e, handler.NewBookingHandler(bookingSvc, log), cfg.JWTSecret)
	router.RegisterPayments(e,
		handler.NewPaymentHandler(paymentSvc, log),
		handler.NewWebhookHandler(paymentSvc, cfg.Chapa.WebhookSecret, log),
		cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log.WithField("component", "ratelimit")),
	)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown failed")
	}
	select {
	case <-publisher.Done():
	case <-shutdownCtx.Done():
	}
}
