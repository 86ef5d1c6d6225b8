package model

import (
	"time"

	"github.com/google/uuid"
)

type Base struct {
	ID        uuid.UUID `json:"id" db:"id" firestore:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at" firestore:"created_at"`
}
