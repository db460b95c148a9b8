package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/pkg/postgres"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
)

type RequestEvent struct {
	db *pgxpool.Pool
}

func NewRequestEvent(db *pgxpool.Pool) *RequestEvent {
	return &RequestEvent{db: db}
}

// AppendEvent inserts one timeline entry for the request. The append
// order follows accepted transitions, seq is assigned by the database.
func (r *RequestEvent) AppendEvent(ctx context.Context, requestID uuid.UUID, kind types.EventKind, data json.RawMessage) error {
	q := TxorDB(ctx, r.db)

	query := `INSERT INTO request_events (request_id, event_type, event_data)
			  VALUES ($1, $2, $3);`

	_, err := q.Exec(ctx, query, requestID, kind.String(), data)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return types.ErrRequestNotFound
		}
		return fmt.Errorf("request event repo: AppendEvent: %w", err)
	}
	return nil
}

// ListByRequest returns the full timeline in append order.
func (r *RequestEvent) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.TimelineEntry, error) {
	q := TxorDB(ctx, r.db)

	query := `
        SELECT seq, event_type, event_data, created_at
        FROM request_events
        WHERE request_id = $1
        ORDER BY seq;`

	rows, err := q.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("request event repo: ListByRequest: %w", err)
	}
	defer rows.Close()

	var out []models.TimelineEntry
	for rows.Next() {
		var e models.TimelineEntry
		if err := rows.Scan(&e.Seq, &e.EventType, &e.EventData, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("request event repo: ListByRequest (scan): %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("request event repo: ListByRequest (rows): %w", err)
	}

	return out, nil
}
