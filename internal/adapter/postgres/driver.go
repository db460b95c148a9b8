package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
)

type DriverRepo struct {
	db *pgxpool.Pool
}

func NewDriverRepo(db *pgxpool.Pool) *DriverRepo {
	return &DriverRepo{db: db}
}

// Register inserts the driver or refreshes name/tow_type on repeat
// registration. A deactivated driver comes back active.
func (r *DriverRepo) Register(ctx context.Context, driver *models.Driver) error {
	const op = "DriverRepo.Register"
	query := `
		INSERT INTO drivers(id, name, tow_type, is_available, is_active)
		VALUES($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    tow_type = EXCLUDED.tow_type,
		    is_active = true,
		    modified_at = now();`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query,
		driver.ID,
		driver.Name,
		driver.TowType,
		driver.IsAvailable,
		driver.IsActive,
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *DriverRepo) Get(ctx context.Context, driverID uuid.UUID) (*models.Driver, error) {
	const op = "DriverRepo.Get"
	query := `
		SELECT id, name, tow_type, is_available, is_active,
		       latitude, longitude, rating, completed_jobs,
		       created_at, located_at, modified_at
		FROM drivers
		WHERE id = $1;`

	var d models.Driver
	var lat, lon *float64

	err := TxorDB(ctx, r.db).QueryRow(ctx, query, driverID).Scan(
		&d.ID, &d.Name, &d.TowType, &d.IsAvailable, &d.IsActive,
		&lat, &lon, &d.Rating, &d.CompletedJobs,
		&d.CreatedAt, &d.LocatedAt, &d.ModifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrDriverNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if lat != nil && lon != nil {
		d.Position = &models.Location{Latitude: *lat, Longitude: *lon}
	}

	return &d, nil
}

// ListAvailableWithPosition returns drivers that are online, free and
// have reported at least one position. Feeds the geo index.
func (r *DriverRepo) ListAvailableWithPosition(ctx context.Context) ([]models.Driver, error) {
	const op = "DriverRepo.ListAvailableWithPosition"
	query := `
		SELECT id, name, tow_type, is_available, is_active,
		       latitude, longitude, rating, completed_jobs
		FROM drivers
		WHERE is_active = true
		  AND is_available = true
		  AND latitude IS NOT NULL
		  AND longitude IS NOT NULL;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.Driver
	for rows.Next() {
		var d models.Driver
		var lat, lon float64

		err := rows.Scan(
			&d.ID, &d.Name, &d.TowType, &d.IsAvailable, &d.IsActive,
			&lat, &lon, &d.Rating, &d.CompletedJobs,
		)
		if err != nil {
			return nil, fmt.Errorf("%s (scan): %w", op, err)
		}

		d.Position = &models.Location{Latitude: lat, Longitude: lon}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	return out, nil
}

func (r *DriverRepo) CountAvailableWithPosition(ctx context.Context) (int, error) {
	const op = "DriverRepo.CountAvailableWithPosition"
	query := `
		SELECT COUNT(*) FROM drivers
		WHERE is_active = true
		  AND is_available = true
		  AND latitude IS NOT NULL
		  AND longitude IS NOT NULL;`

	var count int
	if err := TxorDB(ctx, r.db).QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// UpsertPosition stores the driver's last reported fix. Last write wins,
// there is no position history here.
func (r *DriverRepo) UpsertPosition(ctx context.Context, driverID uuid.UUID, lat, lon float64) error {
	const op = "DriverRepo.UpsertPosition"
	query := `
		UPDATE drivers
		SET latitude = $2, longitude = $3, located_at = now(), modified_at = now()
		WHERE id = $1;`

	cmdTag, err := TxorDB(ctx, r.db).Exec(ctx, query, driverID, lat, lon)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return types.ErrDriverNotFound
	}

	return nil
}

func (r *DriverRepo) SetAvailability(ctx context.Context, driverID uuid.UUID, available bool) error {
	const op = "DriverRepo.SetAvailability"
	query := `
		UPDATE drivers
		SET is_available = $2, modified_at = now()
		WHERE id = $1;`

	cmdTag, err := TxorDB(ctx, r.db).Exec(ctx, query, driverID, available)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return types.ErrDriverNotFound
	}

	return nil
}

// UpdateStats adds finished jobs and earnings to the driver's running
// totals.
func (r *DriverRepo) UpdateStats(ctx context.Context, driverID uuid.UUID, completedJobs int, earnings float64) error {
	const op = "DriverRepo.UpdateStats"
	query := `
		UPDATE drivers
		SET completed_jobs = completed_jobs + $2,
		    total_earnings = total_earnings + $3,
		    modified_at = now()
		WHERE id = $1;`

	cmdTag, err := TxorDB(ctx, r.db).Exec(ctx, query, driverID, completedJobs, earnings)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return types.ErrDriverNotFound
	}

	return nil
}
