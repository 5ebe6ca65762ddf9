package router

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mindease/booking-api/internal/handler"
	appointmenthandler "github.com/mindease/booking-api/internal/handler/appointment"
	paymenthandler "github.com/mindease/booking-api/internal/handler/payment"
	slothandler "github.com/mindease/booking-api/internal/handler/slot"
	"github.com/mindease/booking-api/internal/middleware"
	"github.com/mindease/booking-api/pkg/logger"
)

// Dependencies carries everything the HTTP surface needs.
type Dependencies struct {
	DB          *sqlx.DB
	Logger      *logger.Logger
	Auth        *middleware.AuthMiddleware
	RateLimiter *middleware.RateLimiter

	Slots        *slothandler.Handler
	Appointments *appointmenthandler.Handler
	Payments     *paymenthandler.Handler
}

// New assembles the gin engine with the full middleware chain and all routes.
func New(deps Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.HTTPMetrics())
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Limit())
	}

	r.GET("/health", handler.Health(deps.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(deps.Auth.Authenticate())

	deps.Slots.RegisterRoutes(v1, deps.Auth)
	deps.Appointments.RegisterRoutes(v1)
	deps.Payments.RegisterRoutes(v1)

	return r
}
