package slot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mindease/booking-api/internal/model"
	"github.com/mindease/booking-api/internal/repository"
	apperrors "github.com/mindease/booking-api/pkg/errors"
)

type Service struct {
	repo repository.SlotRepository
	now  func() time.Time
}

func NewService(repo repository.SlotRepository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// AddSlot declares an availability window for the counsellor. Overlapping
// declarations are allowed; slots are advisory and double-booking is
// enforced at the appointment ledger.
func (s *Service) AddSlot(ctx context.Context, counsellorID uuid.UUID, req *model.CreateSlotRequest) (*model.Slot, error) {
	date, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	if err != nil {
		return nil, apperrors.Validation("date must be in YYYY-MM-DD form")
	}
	start, err := parseTimeOfDay(date, req.Start)
	if err != nil {
		return nil, apperrors.Validation("start must be in HH:MM form")
	}
	end, err := parseTimeOfDay(date, req.End)
	if err != nil {
		return nil, apperrors.Validation("end must be in HH:MM form")
	}

	if !start.Before(end) {
		return nil, apperrors.Validation("slot start must be before end")
	}
	if date.Before(s.now().Truncate(24 * time.Hour)) {
		return nil, apperrors.Validation("slot date must not be in the past")
	}

	slot := &model.Slot{
		Base:         model.Base{ID: uuid.New()},
		CounsellorID: counsellorID,
		Date:         date,
		StartTime:    start,
		EndTime:      end,
		IsAvailable:  true,
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("failed to create slot: %w", err)
	}
	return slot, nil
}

// ToggleAvailability flips the slot's availability flag.
func (s *Service) ToggleAvailability(ctx context.Context, actor model.Actor, slotID uuid.UUID) (*model.Slot, error) {
	slot, err := s.ownedSlot(ctx, actor, slotID)
	if err != nil {
		return nil, err
	}

	slot.IsAvailable = !slot.IsAvailable
	if err := s.repo.Update(ctx, slot); err != nil {
		return nil, fmt.Errorf("failed to toggle slot: %w", err)
	}
	return slot, nil
}

func (s *Service) DeleteSlot(ctx context.Context, actor model.Actor, slotID uuid.UUID) error {
	if _, err := s.ownedSlot(ctx, actor, slotID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, slotID); err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	return nil
}

func (s *Service) ListSlots(ctx context.Context, counsellorID uuid.UUID, rng model.DateRange) ([]*model.Slot, error) {
	slots, err := s.repo.List(ctx, counsellorID, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

func (s *Service) ownedSlot(ctx context.Context, actor model.Actor, slotID uuid.UUID) (*model.Slot, error) {
	slot, err := s.repo.Get(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.CounsellorID != actor.ID {
		return nil, apperrors.Forbidden("slot belongs to another counsellor")
	}
	return slot, nil
}

func parseTimeOfDay(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
