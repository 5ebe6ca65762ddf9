package slot

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mindease/booking-api/internal/handler"
	"github.com/mindease/booking-api/internal/middleware"
	"github.com/mindease/booking-api/internal/model"
	slotservice "github.com/mindease/booking-api/internal/service/slot"
	apperrors "github.com/mindease/booking-api/pkg/errors"
	"github.com/mindease/booking-api/pkg/validator"
)

type Handler struct {
	service  *slotservice.Service
	validate *validator.Validator
}

func NewHandler(service *slotservice.Service, validate *validator.Validator) *Handler {
	return &Handler{service: service, validate: validate}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	slots := r.Group("/slots")
	slots.GET("", h.List)

	counsellorOnly := slots.Group("", auth.RequireRole(model.RoleCounsellor))
	counsellorOnly.POST("", h.Create)
	counsellorOnly.PATCH("/:id/toggle", h.Toggle)
	counsellorOnly.DELETE("/:id", h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		handler.Error(c, apperrors.Forbidden("authentication required"))
		return
	}

	var req model.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.Validation("invalid request body"))
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		handler.Error(c, err)
		return
	}

	created, err := h.service.AddSlot(c.Request.Context(), actor.ID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) Toggle(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.Validation("invalid slot id"))
		return
	}

	updated, err := h.service.ToggleAvailability(c.Request.Context(), actor, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

func (h *Handler) Delete(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.Validation("invalid slot id"))
		return
	}

	if err := h.service.DeleteSlot(c.Request.Context(), actor, id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted": id}))
}

func (h *Handler) List(c *gin.Context) {
	var req model.ListSlotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handler.Error(c, apperrors.Validation("invalid query parameters"))
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		handler.Error(c, err)
		return
	}

	counsellorID := req.CounsellorID
	if counsellorID == uuid.Nil {
		actor, ok := middleware.ActorFrom(c)
		if !ok || !actor.IsCounsellor() {
			handler.Error(c, apperrors.Validation("counsellor_id is required"))
			return
		}
		counsellorID = actor.ID
	}

	rng, err := parseRange(req.From, req.To)
	if err != nil {
		handler.Error(c, err)
		return
	}

	slots, err := h.service.ListSlots(c.Request.Context(), counsellorID, rng)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(slots))
}

func parseRange(from, to string) (model.DateRange, error) {
	var rng model.DateRange
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return rng, apperrors.Validation("invalid from date")
		}
		rng.From = t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return rng, apperrors.Validation("invalid to date")
		}
		rng.To = t
	}
	return rng, nil
}
