package session

import (
	"context"
	"errors"

	"github.com/clinicdesk/vaccine-scheduler/internal/scheduling"
)

var ErrSessionNotFound = errors.New("session not found or expired")

// Session binds an opaque bearer token to the authenticated identity and
// role. There is no global current user; handlers resolve the token on
// every request.
type Session struct {
	Token    string
	Identity string
	Role     scheduling.Role
}

type Store interface {
	Create(ctx context.Context, identity string, role scheduling.Role) (Session, error)
	Get(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
}
