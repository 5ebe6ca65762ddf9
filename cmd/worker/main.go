package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mindease/booking-api/config"
	"github.com/mindease/booking-api/internal/email"
	"github.com/mindease/booking-api/internal/repository/postgres"
	"github.com/mindease/booking-api/internal/service/availability"
	"github.com/mindease/booking-api/internal/service/fee"
	"github.com/mindease/booking-api/internal/service/notification"
	"github.com/mindease/booking-api/internal/service/scheduling"
	internalworker "github.com/mindease/booking-api/internal/worker"
	"github.com/mindease/booking-api/pkg/logger"
	"github.com/mindease/booking-api/pkg/meeting"
	"github.com/mindease/booking-api/pkg/messaging/redis"
	"github.com/mindease/booking-api/pkg/metrics"
	"github.com/mindease/booking-api/pkg/payment"
	"github.com/mindease/booking-api/pkg/worker"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), log.Zerolog())
	if err != nil {
		log.Fatal(err, "failed to connect to Redis")
	}
	defer broker.Close()

	// Repositories
	slotRepo := postgres.NewSlotRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	paymentRepo := postgres.NewPaymentIntentRepository(db)
	counsellorRepo := postgres.NewCounsellorRepository(db)
	clientRepo := postgres.NewClientRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	zapLog, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err, "failed to initialize payment logger")
	}
	defer zapLog.Sync()

	m := metrics.NewMetrics("booking_worker")
	gateway := payment.NewHTTPGateway(cfg.Payment.ToGatewayConfig(), zapLog)
	resolver := availability.NewResolver(slotRepo, appointmentRepo, cfg.Booking.RequireSlotContainment)
	fees := fee.NewCachedProvider(counsellorRepo, cfg.Booking.FeeCacheTTL)

	schedulingSvc := scheduling.NewService(appointmentRepo, paymentRepo, outboxRepo, resolver, fees, gateway, log, m)

	mailer := email.NewSMTPService(email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	meetings := meeting.NewCodeProvider("https://meet.google.com")
	dispatcher := notification.NewDispatcher(appointmentRepo, clientRepo, meetings, mailer, cfg.Booking.FeedbackBaseURL, log, m)

	processor := worker.NewOutboxProcessor(outboxRepo, broker, cfg.Outbox.ToWorkerConfig(), log, m)
	sweeper := internalworker.NewSweeper(schedulingSvc, dispatcher, internalworker.SweeperConfig{Interval: cfg.Sweeper.Interval}, log)

	setupHealthCheck(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		cancel()
	}()

	go sweeper.Start(ctx)
	go func() {
		if err := dispatcher.Run(ctx, broker, cfg.Outbox.Channel); err != nil && ctx.Err() == nil {
			log.Fatal(err, "dispatcher stopped")
		}
	}()

	processor.Start(ctx)
}

func setupHealthCheck(log *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			log.Fatal(err, "health check server failed")
		}
	}()
}
