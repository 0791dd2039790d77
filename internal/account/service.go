package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clinicdesk/vaccine-scheduler/internal/scheduling"
)

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Register creates a patient or caregiver account with a salted Argon2id
// password hash. Usernames are unique across both roles.
func (s *Service) Register(ctx context.Context, username, password string, role scheduling.Role) (Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Account{}, fmt.Errorf("username is required")
	}
	if password == "" {
		return Account{}, fmt.Errorf("password is required")
	}
	if !role.Valid() {
		return Account{}, fmt.Errorf("role must be %q or %q", scheduling.RolePatient, scheduling.RoleCaregiver)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}

	a := Account{
		Username:     username,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Create(ctx, a); err != nil {
		return Account{}, err
	}
	return a, nil
}

// Authenticate verifies a username/password pair. Unknown usernames and
// wrong passwords both report ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Account, error) {
	a, err := s.store.Get(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, fmt.Errorf("load account: %w", err)
	}

	ok, err := VerifyPassword(password, a.PasswordHash)
	if err != nil {
		return Account{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return Account{}, ErrInvalidCredentials
	}
	return a, nil
}
