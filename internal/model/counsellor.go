package model

// Counsellor carries the subset of the practitioner profile the scheduling
// core needs: identity, contact, and the per-session fee in minor units.
type Counsellor struct {
	Base
	DisplayName string `db:"display_name" json:"display_name"`
	Email       string `db:"email" json:"email"`
	SessionFee  int64  `db:"session_fee" json:"session_fee"`
}

// Client mirrors Counsellor for the booking side.
type Client struct {
	Base
	DisplayName string `db:"display_name" json:"display_name"`
	Email       string `db:"email" json:"email"`
}
