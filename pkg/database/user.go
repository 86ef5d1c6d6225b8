package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

type UserDatabase struct {
	q sqlx.ExtContext
}

func (ud *UserDatabase) Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.UserSummary, error) {
	res := make(map[uuid.UUID]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return res, nil
	}

	q, args, err := sqlx.In(`select id, username, email from users where id in (?)`, idStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("can't build summaries query: %w", err)
	}

	var summaries []model.UserSummary
	if err := sqlx.SelectContext(ctx, ud.q, &summaries, ud.q.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("can't query user summaries: %w", err)
	}

	for _, s := range summaries {
		res[s.ID] = s
	}

	return res, nil
}
