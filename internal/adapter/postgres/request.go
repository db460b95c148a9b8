package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
)

type RequestRepo struct {
	db *pgxpool.Pool
}

func NewRequestRepo(db *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{db: db}
}

func (r *RequestRepo) Create(ctx context.Context, req *models.Request) (*models.Request, error) {
	q := TxorDB(ctx, r.db)

	query := `
        INSERT INTO tow_requests (
            id, request_number, status, user_id, tow_type, vehicle_category,
            pickup_address, pickup_latitude, pickup_longitude,
            dropoff_address, dropoff_latitude, dropoff_longitude,
            estimated_price
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING created_at;`

	var dropoffAddr *string
	var dropoffLat, dropoffLon *float64
	if req.Dropoff != nil {
		dropoffAddr = &req.Dropoff.Address
		dropoffLat = &req.Dropoff.Latitude
		dropoffLon = &req.Dropoff.Longitude
	}

	err := q.QueryRow(ctx, query,
		req.ID, req.RequestNumber, req.Status, req.UserID, req.TowType, req.VehicleCategory,
		req.Pickup.Address, req.Pickup.Latitude, req.Pickup.Longitude,
		dropoffAddr, dropoffLat, dropoffLon,
		req.EstimatedPrice,
	).Scan(&req.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("request repo: Create: %w", err)
	}

	return req, nil
}

func (r *RequestRepo) Get(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	q := TxorDB(ctx, r.db)

	query := `
        SELECT
            id, request_number, status, user_id, driver_id, tow_type, vehicle_category,
            pickup_address, pickup_latitude, pickup_longitude,
            dropoff_address, dropoff_latitude, dropoff_longitude,
            estimated_price, actual_price, cancellation_reason, artifacts,
            created_at, broadcast_at, assigned_at, arrived_at,
            in_transit_at, destination_at, completed_at, cancelled_at
        FROM tow_requests
        WHERE id = $1;`

	var req models.Request
	var dropoffAddr *string
	var dropoffLat, dropoffLon *float64

	err := q.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.RequestNumber, &req.Status, &req.UserID, &req.DriverID, &req.TowType, &req.VehicleCategory,
		&req.Pickup.Address, &req.Pickup.Latitude, &req.Pickup.Longitude,
		&dropoffAddr, &dropoffLat, &dropoffLon,
		&req.EstimatedPrice, &req.ActualPrice, &req.CancellationReason, &req.Artifacts,
		&req.CreatedAt, &req.BroadcastAt, &req.AssignedAt, &req.ArrivedAt,
		&req.InTransitAt, &req.DestinationAt, &req.CompletedAt, &req.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrRequestNotFound
		}
		return nil, fmt.Errorf("request repo: Get: %w", err)
	}

	if dropoffLat != nil && dropoffLon != nil {
		req.Dropoff = &models.Location{
			Latitude:  *dropoffLat,
			Longitude: *dropoffLon,
		}
		if dropoffAddr != nil {
			req.Dropoff.Address = *dropoffAddr
		}
	}

	return &req, nil
}

// Update writes the request back only while the stored status still
// equals expect. A false return means someone else transitioned the row
// first, the caller re-reads and decides.
func (r *RequestRepo) Update(ctx context.Context, req *models.Request, expect types.RequestStatus) (bool, error) {
	q := TxorDB(ctx, r.db)

	query := `
        UPDATE tow_requests
        SET
            status = $3,
            driver_id = $4,
            actual_price = $5,
            cancellation_reason = $6,
            artifacts = $7,
            broadcast_at = $8,
            assigned_at = $9,
            arrived_at = $10,
            in_transit_at = $11,
            destination_at = $12,
            completed_at = $13,
            cancelled_at = $14,
            updated_at = now()
        WHERE id = $1 AND status = $2;`

	cmdTag, err := q.Exec(ctx, query,
		req.ID,
		expect,
		req.Status,
		req.DriverID,
		req.ActualPrice,
		req.CancellationReason,
		req.Artifacts,
		req.BroadcastAt,
		req.AssignedAt,
		req.ArrivedAt,
		req.InTransitAt,
		req.DestinationAt,
		req.CompletedAt,
		req.CancelledAt,
	)
	if err != nil {
		return false, fmt.Errorf("request repo: Update: %w", err)
	}

	return cmdTag.RowsAffected() == 1, nil
}

func (r *RequestRepo) HasActiveForDriver(ctx context.Context, driverID uuid.UUID) (bool, error) {
	q := TxorDB(ctx, r.db)

	query := `
        SELECT EXISTS(
            SELECT 1 FROM tow_requests
            WHERE driver_id = $1
              AND status NOT IN ('COMPLETED', 'CANCELLED')
        );`

	var exists bool
	if err := q.QueryRow(ctx, query, driverID).Scan(&exists); err != nil {
		return false, fmt.Errorf("request repo: HasActiveForDriver: %w", err)
	}

	return exists, nil
}

func (r *RequestRepo) CountByDate(ctx context.Context, date time.Time) (int, error) {
	q := TxorDB(ctx, r.db)

	var count int
	query := `SELECT COUNT(*) FROM tow_requests WHERE DATE(created_at) = $1;`

	err := q.QueryRow(ctx, query, date.Format("2006-01-02")).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("request repo: CountByDate: %w", err)
	}
	return count, nil
}

// CountRequestsSince feeds the scarcity fare modifier.
func (r *RequestRepo) CountRequestsSince(ctx context.Context, since time.Time, statuses []types.RequestStatus) (int, error) {
	q := TxorDB(ctx, r.db)

	vals := make([]string, len(statuses))
	for i, s := range statuses {
		vals[i] = string(s)
	}

	var count int
	query := `
        SELECT COUNT(*) FROM tow_requests
        WHERE created_at >= $1 AND status = ANY($2);`

	err := q.QueryRow(ctx, query, since, vals).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("request repo: CountRequestsSince: %w", err)
	}
	return count, nil
}

// ListByUser returns the user's requests, newest first.
func (r *RequestRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Request, error) {
	q := TxorDB(ctx, r.db)

	query := `
        SELECT
            id, request_number, status, user_id, driver_id, tow_type, vehicle_category,
            pickup_address, pickup_latitude, pickup_longitude,
            estimated_price, actual_price, created_at
        FROM tow_requests
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3;`

	rows, err := q.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("request repo: ListByUser: %w", err)
	}
	defer rows.Close()

	var out []models.Request
	for rows.Next() {
		var req models.Request
		err := rows.Scan(
			&req.ID, &req.RequestNumber, &req.Status, &req.UserID, &req.DriverID, &req.TowType, &req.VehicleCategory,
			&req.Pickup.Address, &req.Pickup.Latitude, &req.Pickup.Longitude,
			&req.EstimatedPrice, &req.ActualPrice, &req.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("request repo: ListByUser (scan): %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("request repo: ListByUser (rows): %w", err)
	}

	return out, nil
}
