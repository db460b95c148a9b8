package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/Dias-T/tow-dispatch-system/config"
	"github.com/Dias-T/tow-dispatch-system/pkg/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
	seed       = flag.Bool("seed", false, "Insert a few test drivers after migrating")
)

func main() {
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	client, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Pool.Close()

	migrateSchema(client.Pool)

	if *seed {
		seedDrivers(client.Pool)
	}
}

func migrateSchema(db *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS drivers (
			id             uuid PRIMARY KEY,
			name           text NOT NULL,
			tow_type       text NOT NULL,
			is_available   boolean NOT NULL DEFAULT false,
			is_active      boolean NOT NULL DEFAULT true,
			latitude       double precision,
			longitude      double precision,
			rating         double precision NOT NULL DEFAULT 5.0,
			completed_jobs integer NOT NULL DEFAULT 0,
			total_earnings double precision NOT NULL DEFAULT 0,
			created_at     timestamptz NOT NULL DEFAULT now(),
			located_at     timestamptz,
			modified_at    timestamptz NOT NULL DEFAULT now()
		);`,

		`CREATE TABLE IF NOT EXISTS tow_requests (
			id                  uuid PRIMARY KEY,
			request_number      text NOT NULL UNIQUE,
			status              text NOT NULL,
			user_id             uuid NOT NULL,
			driver_id           uuid REFERENCES drivers (id),
			tow_type            text NOT NULL,
			vehicle_category    text NOT NULL,
			pickup_address      text NOT NULL DEFAULT '',
			pickup_latitude     double precision NOT NULL,
			pickup_longitude    double precision NOT NULL,
			dropoff_address     text,
			dropoff_latitude    double precision,
			dropoff_longitude   double precision,
			estimated_price     double precision NOT NULL,
			actual_price        double precision,
			cancellation_reason text,
			artifacts           jsonb,
			created_at          timestamptz NOT NULL DEFAULT now(),
			broadcast_at        timestamptz,
			assigned_at         timestamptz,
			arrived_at          timestamptz,
			in_transit_at       timestamptz,
			destination_at      timestamptz,
			completed_at        timestamptz,
			cancelled_at        timestamptz,
			updated_at          timestamptz NOT NULL DEFAULT now()
		);`,

		`CREATE INDEX IF NOT EXISTS idx_tow_requests_status ON tow_requests (status);`,
		`CREATE INDEX IF NOT EXISTS idx_tow_requests_user ON tow_requests (user_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_tow_requests_driver ON tow_requests (driver_id) WHERE driver_id IS NOT NULL;`,

		`CREATE TABLE IF NOT EXISTS request_events (
			seq        bigserial PRIMARY KEY,
			request_id uuid NOT NULL REFERENCES tow_requests (id),
			event_type text NOT NULL,
			event_data jsonb,
			created_at timestamptz NOT NULL DEFAULT now()
		);`,

		`CREATE INDEX IF NOT EXISTS idx_request_events_request ON request_events (request_id, seq);`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
	}

	log.Println("schema migrated")
}

func seedDrivers(db *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type testDriver struct {
		ID       string
		Name     string
		TowType  string
		Lat, Lon float64
	}

	// Пара водителей в центре Астаны для ручного тестирования
	drivers := []testDriver{
		{"0d9302c6-21e5-4d5c-9375-300887ba6dd6", "Bekzat", "FLATBED", 51.1284, 71.4306},
		{"4f9f092f-54ff-4d71-8806-c9e20fbaa8e1", "Mansur", "HOOK", 51.1605, 71.4704},
		{"8f0f9cb2-6f3b-4a56-9216-7062d4e3fdab", "Dias", "FLATBED", 51.0909, 71.4184},
	}

	for _, d := range drivers {
		_, err := db.Exec(ctx, `
			INSERT INTO drivers (id, name, tow_type, is_available, is_active, latitude, longitude, located_at)
			VALUES ($1, $2, $3, true, true, $4, $5, now())
			ON CONFLICT (id) DO NOTHING;`,
			d.ID, d.Name, d.TowType, d.Lat, d.Lon,
		)
		if err != nil {
			log.Fatalf("seeding driver %s failed: %v", d.Name, err)
		}
	}

	log.Println("test drivers seeded")
}
