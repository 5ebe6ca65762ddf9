package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mindease/booking-api/internal/model"
	"github.com/mindease/booking-api/internal/repository"
)

// Reasons surfaced to the client when a requested time cannot be booked.
const (
	ReasonNoSlotOnDate = "counsellor is not available on this date"
	ReasonOutsideHours = "requested time falls outside the counsellor's declared hours"
	ReasonSlotConflict = "time slot conflicts with an existing appointment"
)

// Decision is the resolver verdict for a proposed interval.
type Decision struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Resolver decides whether a counsellor is free for a proposed interval.
// Slot declarations are checked at day granularity by default; when
// requireContainment is set the interval must also fall inside a declared
// window. Non-overlap with existing appointments is always enforced.
type Resolver struct {
	slots              repository.SlotRepository
	appointments       repository.AppointmentRepository
	requireContainment bool
}

func NewResolver(slots repository.SlotRepository, appointments repository.AppointmentRepository, requireContainment bool) *Resolver {
	return &Resolver{
		slots:              slots,
		appointments:       appointments,
		requireContainment: requireContainment,
	}
}

// Check evaluates the half-open interval [start, start+duration) for the
// counsellor. excludeID removes one appointment from the conflict set so a
// reschedule does not collide with itself.
func (r *Resolver) Check(ctx context.Context, counsellorID uuid.UUID, start time.Time, durationMinutes int, excludeID *uuid.UUID) (Decision, error) {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	slots, err := r.slots.ListAvailableOn(ctx, counsellorID, start)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load slots: %w", err)
	}
	if len(slots) == 0 {
		return Decision{Available: false, Reason: ReasonNoSlotOnDate}, nil
	}
	if r.requireContainment && !containedInAny(start, end, slots) {
		return Decision{Available: false, Reason: ReasonOutsideHours}, nil
	}

	conflicts, err := r.appointments.ListActiveOverlapping(ctx, counsellorID, start, end, excludeID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load appointments: %w", err)
	}
	if len(conflicts) > 0 {
		return Decision{Available: false, Reason: ReasonSlotConflict}, nil
	}

	return Decision{Available: true}, nil
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. An appointment ending exactly when another
// starts is not a conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func containedInAny(start, end time.Time, slots []*model.Slot) bool {
	for _, s := range slots {
		if !start.Before(s.StartTime) && !end.After(s.EndTime) {
			return true
		}
	}
	return false
}
