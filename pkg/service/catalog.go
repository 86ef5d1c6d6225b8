package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/IlyushaZ/vinyl-store/pkg/database"
	"github.com/IlyushaZ/vinyl-store/pkg/model"
	"github.com/IlyushaZ/vinyl-store/pkg/policy"
)

const (
	DefaultPageNum  = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Catalog interface {
	ListPage(ctx context.Context, onlyAvailable bool, pageNum, pageSize int) ([]model.Vinyl, int, error)
	Get(ctx context.Context, id uuid.UUID) (model.Vinyl, error)
	Create(ctx context.Context, p model.Principal, v model.Vinyl) (model.Vinyl, error)
	// Update changes catalog fields of a vinyl. Stock is changed by reservations only.
	Update(ctx context.Context, p model.Principal, id uuid.UUID, patch model.VinylPatch) (model.Vinyl, error)
	// Delete removes a vinyl nobody has ever reserved.
	Delete(ctx context.Context, p model.Principal, id uuid.UUID) error
}

type CatalogGeneric struct {
	Store database.Store
	Now   func() time.Time
}

func (cg *CatalogGeneric) ListPage(ctx context.Context, onlyAvailable bool, pageNum, pageSize int) ([]model.Vinyl, int, error) {
	if pageNum < 1 {
		return nil, 0, model.Invalid("page_num must be positive")
	}

	if pageSize < 1 || pageSize > MaxPageSize {
		return nil, 0, model.Invalid(fmt.Sprintf("page_size must be between 1 and %d", MaxPageSize))
	}

	vinyls, total, err := cg.Store.Vinyls().GetPage(ctx, onlyAvailable, pageNum, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("can't get vinyls page: %w", err)
	}

	return vinyls, total, nil
}

func (cg *CatalogGeneric) Get(ctx context.Context, id uuid.UUID) (model.Vinyl, error) {
	v, err := cg.Store.Vinyls().Get(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return model.Vinyl{}, model.ErrItemNotFound
		}
		return model.Vinyl{}, fmt.Errorf("can't get vinyl %s: %w", id, err)
	}

	return v, nil
}

func (cg *CatalogGeneric) Create(ctx context.Context, p model.Principal, v model.Vinyl) (model.Vinyl, error) {
	if err := canManage(p); err != nil {
		return model.Vinyl{}, err
	}

	if err := v.Validate(); err != nil {
		return model.Vinyl{}, err
	}

	v.ID = uuid.New()
	v.CreatedAt = time.Now().UTC()
	if cg.Now != nil {
		v.CreatedAt = cg.Now()
	}

	if err := cg.Store.Vinyls().Create(ctx, v); err != nil {
		return model.Vinyl{}, fmt.Errorf("can't create vinyl: %w", err)
	}

	return v, nil
}

func (cg *CatalogGeneric) Update(ctx context.Context, p model.Principal, id uuid.UUID, patch model.VinylPatch) (model.Vinyl, error) {
	if err := canManage(p); err != nil {
		return model.Vinyl{}, err
	}

	var v model.Vinyl
	err := cg.Store.RunInTx(ctx, func(ctx context.Context, r database.Repositories) (err error) {
		v, err = r.Vinyls().Get(ctx, id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return model.ErrItemNotFound
			}
			return err
		}

		patch.Apply(&v)
		if err := v.Validate(); err != nil {
			return err
		}

		return r.Vinyls().Update(ctx, v)
	})
	if err != nil {
		return model.Vinyl{}, fmt.Errorf("can't update vinyl %s: %w", id, err)
	}

	return v, nil
}

func (cg *CatalogGeneric) Delete(ctx context.Context, p model.Principal, id uuid.UUID) error {
	if err := canManage(p); err != nil {
		return err
	}

	err := cg.Store.RunInTx(ctx, func(ctx context.Context, r database.Repositories) error {
		if _, err := r.Vinyls().Get(ctx, id); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return model.ErrItemNotFound
			}
			return err
		}

		reserved, err := r.Reservations().ExistsForVinyl(ctx, id)
		if err != nil {
			return err
		}
		if reserved {
			return model.ErrVinylReserved
		}

		// a keep may have slipped in after the check
		if err := r.Vinyls().Delete(ctx, id); errors.Is(err, database.ErrConflict) {
			return model.ErrVinylReserved
		} else if err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("can't delete vinyl %s: %w", id, err)
	}

	return nil
}

func canManage(p model.Principal) error {
	if !p.Authenticated() {
		return model.ErrUnauthenticated
	}

	if !policy.CanManageCatalog(p) {
		return model.ErrForbidden
	}

	return nil
}
