package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/IlyushaZ/vinyl-store/pkg/database/memory"
	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

var (
	userA = model.Principal{ID: uuid.MustParse("a0000000-0000-0000-0000-00000000000a"), Username: "alice", Role: model.RoleUser}
	userB = model.Principal{ID: uuid.MustParse("b0000000-0000-0000-0000-00000000000b"), Username: "bob", Role: model.RoleUser}
	admin = model.Principal{ID: uuid.MustParse("c0000000-0000-0000-0000-00000000000c"), Username: "root", Role: model.RoleAdmin}
)

type fixture struct {
	store *memory.Store
	svc   *ReservationGeneric
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: memory.New(),
		now:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	f.svc = &ReservationGeneric{
		Store: f.store,
		Now:   func() time.Time { return f.now },
	}

	for _, p := range []model.Principal{userA, userB, admin} {
		f.store.SeedUser(model.UserSummary{ID: p.ID, Username: p.Username, Email: p.Username + "@example.com"})
	}

	return f
}

func (f *fixture) vinyl(title string, stock int) model.Vinyl {
	v := model.Vinyl{
		Base:   model.Base{ID: uuid.New(), CreatedAt: f.now},
		Title:  title,
		Artist: "Miles Davis",
		Price:  2999,
		Stock:  stock,
	}
	f.store.SeedVinyl(v)
	return v
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

var ctx = context.Background()
