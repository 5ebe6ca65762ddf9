package appointment

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

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
	appointments := r.Group("/appointments")
	appointments.POST("", h.Book)
	appointments.GET("", h.List)
	appointments.GET("/:id", h.Get)
	appointments.POST("/:id/reschedule", h.Reschedule)
	appointments.POST("/:id/cancel", h.Cancel)
	appointments.POST("/availability", h.CheckAvailability)
}

func (h *Handler) Book(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		handler.Error(c, apperrors.Forbidden("authentication required"))
		return
	}

	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.Validation("invalid request body"))
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		handler.Error(c, err)
		return
	}

	apt, err := h.service.BookAppointment(c.Request.Context(), actor, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(apt))
}

func (h *Handler) Get(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.Validation("invalid appointment id"))
		return
	}

	apt, err := h.service.GetAppointment(c.Request.Context(), actor, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) List(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	filters := &model.AppointmentFilters{
		Status: model.AppointmentStatus(c.Query("status")),
	}
	var err error
	if filters.Range, err = queryRange(c); err != nil {
		handler.Error(c, err)
		return
	}

	appointments, err := h.service.ListAppointments(c.Request.Context(), actor, filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) Reschedule(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.Validation("invalid appointment id"))
		return
	}

	var req model.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.Validation("invalid request body"))
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		handler.Error(c, err)
		return
	}

	apt, err := h.service.RescheduleAppointment(c.Request.Context(), actor, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) Cancel(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.Validation("invalid appointment id"))
		return
	}

	var req model.CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		handler.Error(c, apperrors.Validation("invalid request body"))
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		handler.Error(c, err)
		return
	}

	apt, err := h.service.CancelAppointment(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) CheckAvailability(c *gin.Context) {
	var req model.CheckAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.Validation("invalid request body"))
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		handler.Error(c, err)
		return
	}

	decision, err := h.service.CheckAvailability(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(decision))
}

func queryRange(c *gin.Context) (model.DateRange, error) {
	var rng model.DateRange
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return rng, apperrors.Validation("invalid from timestamp")
		}
		rng.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return rng, apperrors.Validation("invalid to timestamp")
		}
		rng.To = t
	}
	return rng, nil
}
