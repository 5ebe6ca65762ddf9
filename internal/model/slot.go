package model

import (
	"time"

	"github.com/google/uuid"
)

// Slot is a counsellor-declared availability window. Slots are advisory:
// overlapping declarations are allowed, and double-booking is prevented at
// the appointment ledger, not here.
type Slot struct {
	Base
	CounsellorID uuid.UUID `db:"counsellor_id" json:"counsellor_id"`
	Date         time.Time `db:"slot_date" json:"date"`
	StartTime    time.Time `db:"start_time" json:"start_time"`
	EndTime      time.Time `db:"end_time" json:"end_time"`
	IsAvailable  bool      `db:"is_available" json:"is_available"`
}

type CreateSlotRequest struct {
	Date  string `json:"date" binding:"required" validate:"datetime=2006-01-02"`
	Start string `json:"start" binding:"required" validate:"datetime=15:04"`
	End   string `json:"end" binding:"required" validate:"datetime=15:04"`
}

type ListSlotsRequest struct {
	CounsellorID uuid.UUID `form:"counsellor_id"`
	From         string    `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To           string    `form:"to" validate:"omitempty,datetime=2006-01-02"`
}
