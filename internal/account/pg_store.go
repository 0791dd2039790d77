package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/vaccine-scheduler/internal/scheduling"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Create(ctx context.Context, a Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (username, role, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, a.Username, string(a.Role), a.PasswordHash, a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUsernameTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PgStore) Get(ctx context.Context, username string) (Account, error) {
	var a Account
	var role string
	err := s.pool.QueryRow(ctx, `
		SELECT username, role, password_hash, created_at
		FROM accounts
		WHERE username = $1
	`, username).Scan(&a.Username, &role, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	a.Role = scheduling.Role(role)
	return a, nil
}
