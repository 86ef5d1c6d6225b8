package model

import (
	"time"

	"github.com/google/uuid"
)

type WishlistEntry struct {
	UserID    uuid.UUID     `json:"user_id" db:"user_id"`
	VinylID   uuid.UUID     `json:"vinyl_id" db:"vinyl_id"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	Vinyl     *VinylSummary `json:"vinyl,omitempty" db:"-"`
}
