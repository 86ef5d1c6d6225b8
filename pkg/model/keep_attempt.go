package model

import (
	"time"

	"github.com/google/uuid"
)

// KeepAttempt is an audit record of a keep request that reached the stock decision.
type KeepAttempt struct {
	UserID        uuid.UUID
	VinylID       uuid.UUID
	CreatedAt     time.Time
	ReservationID uuid.UUID // uuid.Nil when the attempt failed
	Error         string
}
