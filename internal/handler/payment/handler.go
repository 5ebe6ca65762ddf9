package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindease/booking-api/internal/handler"
	"github.com/mindease/booking-api/internal/middleware"
	"github.com/mindease/booking-api/internal/model"
	"github.com/mindease/booking-api/internal/service/scheduling"
	apperrors "github.com/mindease/booking-api/pkg/errors"
	"github.com/mindease/booking-api/pkg/validator"
)

type Handler struct {
	service  *scheduling.Service
	validate *validator.Validator
}

func NewHandler(service *scheduling.Service, validate *validator.Validator) *Handler {
	return &Handler{service: service, validate: validate}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	payments.POST("/order", h.CreateOrder)
	payments.POST("/verify", h.Verify)
}

func (h *Handler) CreateOrder(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		handler.Error(c, apperrors.Forbidden("authentication required"))
		return
	}

	var req model.CreatePaymentOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.Validation("invalid request body"))
		return
	}

	order, err := h.service.CreatePaymentOrder(c.Request.Context(), actor, req.AppointmentID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(order))
}

func (h *Handler) Verify(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		handler.Error(c, apperrors.Forbidden("authentication required"))
		return
	}

	var req model.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.Validation("invalid request body"))
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		handler.Error(c, err)
		return
	}

	apt, err := h.service.ConfirmPayment(c.Request.Context(), actor, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}
