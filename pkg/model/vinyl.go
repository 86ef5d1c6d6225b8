package model

import "github.com/google/uuid"

// Vinyl is a catalog item. Stock is mutated only by the inventory ledger.
type Vinyl struct {
	Base
	Title       string `json:"title" db:"title" firestore:"title"`
	Artist      string `json:"artist" db:"artist" firestore:"artist"`
	Year        int    `json:"year,omitempty" db:"year" firestore:"year"`
	Genre       string `json:"genre,omitempty" db:"genre" firestore:"genre"`
	Price       int64  `json:"price" db:"price" firestore:"price"` // minor currency units
	Stock       int    `json:"stock" db:"stock" firestore:"stock"`
	Description string `json:"description,omitempty" db:"description" firestore:"description"`
	CoverURL    string `json:"cover_url,omitempty" db:"cover_url" firestore:"cover_url"`
	AudioURL    string `json:"audio_url,omitempty" db:"audio_url" firestore:"audio_url"`
}

func (v *Vinyl) Summary() VinylSummary {
	return VinylSummary{
		ID:       v.ID,
		Title:    v.Title,
		Artist:   v.Artist,
		Price:    v.Price,
		Stock:    v.Stock,
		CoverURL: v.CoverURL,
	}
}

// Validate checks fields required for a new catalog entry.
func (v *Vinyl) Validate() error {
	switch {
	case v.Title == "" || v.Artist == "":
		return Invalid("title and artist are required")
	case v.Stock < 0:
		return Invalid("stock can't be negative")
	case v.Price < 0:
		return Invalid("price can't be negative")
	}
	return nil
}

type VinylSummary struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Title    string    `json:"title" db:"title"`
	Artist   string    `json:"artist" db:"artist"`
	Price    int64     `json:"price" db:"price"`
	Stock    int       `json:"stock" db:"stock"`
	CoverURL string    `json:"cover_url,omitempty" db:"cover_url"`
}

type UserSummary struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Username string    `json:"username" db:"username"`
	Email    string    `json:"email,omitempty" db:"email"`
}

// VinylPatch holds catalog fields to change. Nil fields are left as is. Stock can't be patched.
type VinylPatch struct {
	Title       *string `json:"title"`
	Artist      *string `json:"artist"`
	Year        *int    `json:"year"`
	Genre       *string `json:"genre"`
	Price       *int64  `json:"price"`
	Description *string `json:"description"`
	CoverURL    *string `json:"cover_url"`
	AudioURL    *string `json:"audio_url"`
}

// Apply copies set fields of p into v.
func (p VinylPatch) Apply(v *Vinyl) {
	set(&v.Title, p.Title)
	set(&v.Artist, p.Artist)
	set(&v.Year, p.Year)
	set(&v.Genre, p.Genre)
	set(&v.Price, p.Price)
	set(&v.Description, p.Description)
	set(&v.CoverURL, p.CoverURL)
	set(&v.AudioURL, p.AudioURL)
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
