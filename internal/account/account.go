package account

import (
	"context"
	"errors"
	"time"

	"github.com/clinicdesk/vaccine-scheduler/internal/scheduling"
)

var (
	ErrUsernameTaken      = errors.New("username taken")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type Account struct {
	Username     string
	Role         scheduling.Role
	PasswordHash string
	CreatedAt    time.Time
}

// Store persists patient and caregiver accounts.
type Store interface {
	Create(ctx context.Context, a Account) error
	Get(ctx context.Context, username string) (Account, error)
}
