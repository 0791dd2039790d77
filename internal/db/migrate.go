package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Statements are idempotent so Migrate can run on every startup.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		username      TEXT PRIMARY KEY,
		role          TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS vaccines (
		name  TEXT PRIMARY KEY,
		doses INT NOT NULL CHECK (doses >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS availabilities (
		caregiver TEXT NOT NULL,
		day       DATE NOT NULL,
		PRIMARY KEY (caregiver, day)
	)`,
	`CREATE SEQUENCE IF NOT EXISTS appointment_ids`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id        BIGINT PRIMARY KEY,
		patient   TEXT NOT NULL,
		caregiver TEXT NOT NULL,
		vaccine   TEXT NOT NULL,
		day       DATE NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS appointments_patient_idx ON appointments (patient, id)`,
	`CREATE INDEX IF NOT EXISTS appointments_caregiver_idx ON appointments (caregiver, id)`,
	`CREATE INDEX IF NOT EXISTS availabilities_day_idx ON availabilities (day, caregiver)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
