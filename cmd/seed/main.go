package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/vaccine-scheduler/internal/account"
	"github.com/clinicdesk/vaccine-scheduler/internal/db"
	"github.com/clinicdesk/vaccine-scheduler/internal/scheduling"
)

// Every seeded account gets this password so the dataset is usable from curl.
const seedPassword = "changeme"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	caregivers, err := seedAccounts(context.Background(), pool, scheduling.RoleCaregiver, 20)
	if err != nil {
		log.Fatalf("seed caregivers: %v", err)
	}
	if _, err := seedAccounts(context.Background(), pool, scheduling.RolePatient, 200); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedVaccines(context.Background(), pool); err != nil {
		log.Fatalf("seed vaccines: %v", err)
	}
	if err := seedAvailabilities(context.Background(), pool, caregivers, 14); err != nil {
		log.Fatalf("seed availabilities: %v", err)
	}

	log.Println("seed complete")
}

func seedAccounts(ctx context.Context, pool *pgxpool.Pool, role scheduling.Role, count int) ([]string, error) {
	log.Printf("seeding %d %s accounts", count, role)

	hash, err := account.HashPassword(seedPassword)
	if err != nil {
		return nil, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	usernames := make([]string, 0, count)
	for i := 0; i < count; i++ {
		username := fmt.Sprintf("%s%d", strings.ToLower(gofakeit.FirstName()), gofakeit.Number(1, 9999))

		_, err := tx.Exec(ctx, `
			INSERT INTO accounts (username, role, password_hash, created_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (username) DO NOTHING
		`, username, string(role), hash)
		if err != nil {
			return nil, err
		}
		usernames = append(usernames, username)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Printf("%s accounts seeded", role)
	return usernames, nil
}

func seedVaccines(ctx context.Context, pool *pgxpool.Pool) error {
	vaccines := []string{"Pfizer", "Moderna", "Janssen", "Novavax", "AstraZeneca"}
	log.Printf("seeding %d vaccines", len(vaccines))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, name := range vaccines {
		_, err := tx.Exec(ctx, `
			INSERT INTO vaccines (name, doses)
			VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING
		`, name, gofakeit.Number(50, 500))
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("vaccines seeded")
	return nil
}

func seedAvailabilities(ctx context.Context, pool *pgxpool.Pool, caregivers []string, days int) error {
	log.Printf("seeding availabilities for %d caregivers over %d days", len(caregivers), days)

	start := scheduling.NormalizeDay(time.Now())

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, caregiver := range caregivers {
		for d := 0; d < days; d++ {
			// Roughly half the days per caregiver are offered.
			if gofakeit.Bool() {
				continue
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO availabilities (caregiver, day)
				VALUES ($1, $2)
				ON CONFLICT (caregiver, day) DO NOTHING
			`, caregiver, start.AddDate(0, 0, d))
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availabilities seeded")
	return nil
}
