package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nexo/config"
	"nexo/internal/database"
	"nexo/internal/logger"
	"nexo/internal/middleware"
	"nexo/internal/repository"
	"nexo/internal/repository/memory"
	"nexo/internal/repository/mysql"
	"nexo/internal/router"
	"nexo/internal/scheduler"
	"nexo/internal/service"
	"nexo/internal/ws"
	"nexo/pkg/events"
	"nexo/pkg/idempotency"
	"nexo/pkg/keylock"
	"nexo/pkg/payment"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logger.New(cfg.Log.Level)

	store, err := openStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	if err := database.Seed(context.Background(), store, cfg, log); err != nil {
		log.WithError(err).Fatal("seed")
	}

	idem, err := idempotency.Open(cfg.Idempotency.Path)
	if err != nil {
		log.WithError(err).Fatal("idempotency store")
	}
	defer idem.Close()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		p, err := events.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			log.WithError(err).Fatal("rabbitmq")
		}
		publisher = p
	} else {
		log.Info("RABBITMQ_URL not set, outbox events will be dropped")
	}
	defer publisher.Close()

	var push service.PushSender
	if fcm := service.NewFCMService(cfg.Firebase.ServiceAccountPath, log); fcm != nil {
		push = fcm
		log.Info("push notifications enabled")
	} else {
		log.Info("push notifications disabled: set FIREBASE_SERVICE_ACCOUNT_PATH to enable")
	}
	var mailer service.Mailer
	if m := service.NewSendGridMailer(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName); m != nil {
		mailer = m
	}

	var provider payment.Provider = &payment.StubProvider{}
	if cfg.Payment.Provider == "razorpay" {
		provider = payment.NewRazorpayProvider(cfg.Razorpay.BaseURL, cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, log)
	}
	if cfg.Payment.WebhookSecret == "" {
		if cfg.UnsignedWebhooksAllowed() {
			log.Warn("payment webhook accepts unsigned requests (stub provider, non-production)")
		} else {
			log.Warn("payment webhook refuses all requests: set PAYMENT_WEBHOOK_SECRET to enable")
		}
	}

	hub := ws.NewHub()
	locks := keylock.New[uint]()
	notify := service.NewNotificationService(store, push, mailer, hub, log)
	plans := service.NewPlanService(store, locks, notify, &cfg.Leads, log)
	ledger := service.NewLedgerService(store, plans, locks, hub, log, cfg.Leads.Currency)
	relay := service.NewOutboxRelay(store, publisher, cfg.Scheduler.OutboxBatchSize, cfg.Scheduler.OutboxMaxAttempts, log)
	limiter := middleware.NewInMemoryRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)
	defer limiter.Stop()

	engine := router.Setup(cfg, router.Deps{
		Ledger:        ledger,
		Plans:         plans,
		Leads:         service.NewLeadEngine(store, ledger, plans, locks, notify, hub, log),
		TopUps:        service.NewTopUpService(store, ledger, provider, locks, notify, &cfg.Payment, log),
		Notifications: notify,
		Admins:        service.NewAdminService(store, plans, cfg, log),
		Bookings:      service.NewBookingService(store),
		Hub:           hub,
		Idempotency:   idem,
		Limiter:       limiter,
		Log:           log,
	})

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(&cfg.Scheduler, &scheduler.JobRunner{
			Plans:          plans,
			Outbox:         relay,
			Idempotency:    idem,
			IdempotencyTTL: cfg.Idempotency.TTL,
			Log:            log,
		}, log)
		if err != nil {
			log.WithError(err).Fatal("scheduler")
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.WithField("port", cfg.Server.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	log.Info("server stopped")
}

// openStore returns the configured repository backend, migrating MySQL first.
func openStore(cfg *config.Config, log *logrus.Logger) (repository.Store, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(), nil
	}
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}
	return mysql.NewStore(db), nil
}
