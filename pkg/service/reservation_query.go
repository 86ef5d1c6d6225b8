package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/IlyushaZ/vinyl-store/pkg/model"
	"github.com/IlyushaZ/vinyl-store/pkg/policy"
)

func (rg *ReservationGeneric) ListMine(ctx context.Context, p model.Principal) ([]model.ReservationDetails, error) {
	if !p.Authenticated() {
		return nil, model.ErrUnauthenticated
	}

	rs, err := rg.Store.Reservations().FindByOwner(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("can't find reservations: %w", err)
	}

	mine := rs[:0]
	for _, r := range rs {
		if policy.CanViewOwn(p, r) {
			mine = append(mine, r)
		}
	}

	return rg.join(ctx, mine, false)
}

func (rg *ReservationGeneric) ListAll(ctx context.Context, p model.Principal) ([]model.ReservationDetails, error) {
	if !p.Authenticated() {
		return nil, model.ErrUnauthenticated
	}

	if !policy.CanListAll(p) {
		return nil, model.ErrForbidden
	}

	rs, err := rg.Store.Reservations().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't find reservations: %w", err)
	}

	return rg.join(ctx, rs, true)
}

// join attaches vinyl (and owner) summaries to reservations. Summaries are fetched concurrently,
// one batch per kind. A reference to a row which doesn't exist anymore leaves the summary empty.
func (rg *ReservationGeneric) join(ctx context.Context, rs []model.Reservation, withOwners bool) ([]model.ReservationDetails, error) {
	var (
		vinylIDs = make([]uuid.UUID, 0, len(rs))
		ownerIDs = make([]uuid.UUID, 0, len(rs))
		seen     = make(map[uuid.UUID]struct{}, len(rs)*2)
	)

	for _, r := range rs {
		if _, ok := seen[r.VinylID]; !ok {
			seen[r.VinylID] = struct{}{}
			vinylIDs = append(vinylIDs, r.VinylID)
		}
		if _, ok := seen[r.OwnerID]; withOwners && !ok {
			seen[r.OwnerID] = struct{}{}
			ownerIDs = append(ownerIDs, r.OwnerID)
		}
	}

	var (
		vinyls map[uuid.UUID]model.VinylSummary
		owners map[uuid.UUID]model.UserSummary
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		vinyls, err = rg.Store.Vinyls().Summaries(gctx, vinylIDs)
		if err != nil {
			return fmt.Errorf("can't get vinyl summaries: %w", err)
		}
		return nil
	})

	if withOwners {
		g.Go(func() (err error) {
			owners, err = rg.Store.Users().Summaries(gctx, ownerIDs)
			if err != nil {
				return fmt.Errorf("can't get user summaries: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	details := make([]model.ReservationDetails, 0, len(rs))
	for _, r := range rs {
		d := model.ReservationDetails{Reservation: r}

		if v, ok := vinyls[r.VinylID]; ok {
			d.Vinyl = &v
		}
		if o, ok := owners[r.OwnerID]; ok {
			d.Owner = &o
		}

		details = append(details, d)
	}

	sort.SliceStable(details, func(i, j int) bool {
		return details[i].ReservedAt.After(details[j].ReservedAt)
	})

	return details, nil
}
