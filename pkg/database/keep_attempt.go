package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

const flushTimeout = 10 * time.Second

type KeepAttemptDatabase struct {
	DB *sqlx.DB
}

func (kd *KeepAttemptDatabase) Add(ctx context.Context, kas ...model.KeepAttempt) error {
	if len(kas) == 0 {
		return nil
	}

	q := buildBatchQuery(len(kas))

	args := make([]any, 0, len(kas)*5)
	for _, ka := range kas {
		reservationID := uuid.NullUUID{UUID: ka.ReservationID, Valid: ka.ReservationID != uuid.Nil}
		errMsg := sql.NullString{String: ka.Error, Valid: ka.Error != ""}

		args = append(args, ka.UserID, ka.VinylID, ka.CreatedAt, reservationID, errMsg)
	}

	res, err := kd.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert keep attempts: %w", err)
	}

	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("can't get affected rows: %w", err)
	} else if int(affected) != len(kas) {
		return fmt.Errorf("expected %d records to be inserted, got %d", len(kas), affected)
	}

	return nil
}

func buildBatchQuery(rows int) string {
	sb := strings.Builder{}
	sb.WriteString("insert into keep_attempts (user_id, vinyl_id, created_at, reservation_id, error) values ")

	phs := make([]string, 0, rows)

	for i := range rows {
		phs = append(phs, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", i*5+1, i*5+2, i*5+3, i*5+4, i*5+5))
	}

	sb.WriteString(strings.Join(phs, ","))
	return sb.String()
}

// KeepAttemptBatching buffers keep attempts and writes them to the wrapped repository
// once batchSize is reached or on every flush interval tick, whatever comes first.
type KeepAttemptBatching struct {
	next          KeepAttemptRepository
	buffer        []model.KeepAttempt
	batchSize     int
	flushInterval time.Duration
	mu            sync.Mutex
}

func NewKeepAttemptBatching(next KeepAttemptRepository, batchSize int, flushInterval time.Duration) *KeepAttemptBatching {
	return &KeepAttemptBatching{
		next:          next,
		buffer:        make([]model.KeepAttempt, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

func (kb *KeepAttemptBatching) Add(_ context.Context, kas ...model.KeepAttempt) error {
	if len(kas) == 0 {
		return nil
	}

	kb.mu.Lock()
	kb.buffer = append(kb.buffer, kas...)
	shouldFlush := len(kb.buffer) >= kb.batchSize
	kb.mu.Unlock()

	if shouldFlush {
		go func() {
			if err := kb.Flush(context.Background()); err != nil {
				slog.Error("can't flush keep attempts buffer", slog.Any("error", err))
			}
		}()
	}

	return nil
}

// Run flushes the buffer periodically until ctx is done, then flushes what is left.
func (kb *KeepAttemptBatching) Run(ctx context.Context) error {
	ticker := time.NewTicker(kb.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return kb.Flush(context.Background())
		case <-ticker.C:
			if err := kb.Flush(ctx); err != nil {
				slog.Error("can't flush keep attempts buffer", slog.Any("error", err))
			}
		}
	}
}

func (kb *KeepAttemptBatching) Flush(ctx context.Context) error {
	kb.mu.Lock()
	if len(kb.buffer) == 0 {
		kb.mu.Unlock()
		return nil
	}

	batch := make([]model.KeepAttempt, len(kb.buffer))
	copy(batch, kb.buffer)
	kb.buffer = kb.buffer[:0]
	kb.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	// TODO: put the batch back into the buffer when the insert fails with a retriable error
	if err := kb.next.Add(ctx, batch...); err != nil {
		return fmt.Errorf("can't insert batch: %w", err)
	}

	return nil
}
