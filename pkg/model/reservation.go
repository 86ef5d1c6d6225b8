package model

import (
	"time"

	"github.com/google/uuid"
)

const DefaultKeepPeriod = 7 * 24 * time.Hour

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCollected Status = "collected"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusExpired, StatusCollected:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

// CanTransitionTo reports whether the status machine allows moving from s to target.
// Only active reservations move, and only to a terminal status.
func (s Status) CanTransitionTo(target Status) bool {
	return s == StatusActive && (target == StatusExpired || target == StatusCollected)
}

func (s Status) Terminal() bool {
	return s == StatusExpired || s == StatusCollected
}

type Reservation struct {
	ID         uuid.UUID `json:"id" db:"id"`
	OwnerID    uuid.UUID `json:"user_id" db:"owner_id"`
	VinylID    uuid.UUID `json:"vinyl_id" db:"vinyl_id"`
	ReservedAt time.Time `json:"reserved_at" db:"reserved_at"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
	Status     Status    `json:"status" db:"status"`
}

// Overdue reports whether an active reservation outlived its keep period.
func (r *Reservation) Overdue(now time.Time) bool {
	return r.Status == StatusActive && now.After(r.ExpiresAt)
}

// ReservationDetails is a reservation joined with summaries of what it references.
type ReservationDetails struct {
	Reservation
	Vinyl *VinylSummary `json:"vinyl"`
	Owner *UserSummary  `json:"user,omitempty"`
}
