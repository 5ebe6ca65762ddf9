package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mindease/booking-api/config"
	appointmenthandler "github.com/mindease/booking-api/internal/handler/appointment"
	paymenthandler "github.com/mindease/booking-api/internal/handler/payment"
	slothandler "github.com/mindease/booking-api/internal/handler/slot"
	"github.com/mindease/booking-api/internal/middleware"
	"github.com/mindease/booking-api/internal/repository/postgres"
	"github.com/mindease/booking-api/internal/router"
	"github.com/mindease/booking-api/internal/service/availability"
	"github.com/mindease/booking-api/internal/service/fee"
	"github.com/mindease/booking-api/internal/service/scheduling"
	slotservice "github.com/mindease/booking-api/internal/service/slot"
	"github.com/mindease/booking-api/pkg/auth"
	"github.com/mindease/booking-api/pkg/logger"
	"github.com/mindease/booking-api/pkg/metrics"
	"github.com/mindease/booking-api/pkg/payment"
	"github.com/mindease/booking-api/pkg/validator"
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

	// Repositories
	slotRepo := postgres.NewSlotRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	paymentRepo := postgres.NewPaymentIntentRepository(db)
	counsellorRepo := postgres.NewCounsellorRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Domain services
	zapLog, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err, "failed to initialize payment logger")
	}
	defer zapLog.Sync()

	gateway := payment.NewHTTPGateway(cfg.Payment.ToGatewayConfig(), zapLog)
	resolver := availability.NewResolver(slotRepo, appointmentRepo, cfg.Booking.RequireSlotContainment)
	fees := fee.NewCachedProvider(counsellorRepo, cfg.Booking.FeeCacheTTL)
	m := metrics.NewMetrics("booking")

	schedulingSvc := scheduling.NewService(appointmentRepo, paymentRepo, outboxRepo, resolver, fees, gateway, log, m)
	slotSvc := slotservice.NewService(slotRepo)

	// HTTP surface
	validate := validator.New()
	authMiddleware := middleware.NewAuthMiddleware(auth.NewJWTValidator(cfg.JWT.Secret))

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	engine := router.New(router.Dependencies{
		DB:           db,
		Logger:       log,
		Auth:         authMiddleware,
		RateLimiter:  rateLimiter,
		Slots:        slothandler.NewHandler(slotSvc, validate),
		Appointments: appointmenthandler.NewHandler(schedulingSvc, validate),
		Payments:     paymenthandler.NewHandler(schedulingSvc, validate),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err, "server forced to shutdown")
	}

	log.Info("server exited properly")
}
