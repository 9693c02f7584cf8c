package repository

import (
	"context"
	"errors"

	"github.com/immxrtalbeast/medsignal/internal/domain"
)

var (
	ErrUserExists  = errors.New("user already exists")
	ErrInvalidRole = errors.New("invalid role")
)

// UserDirectory resolves notification audiences. It is the only external
// lookup the relay performs.
type UserDirectory interface {
	GetUsersByRole(ctx context.Context, role domain.Role) ([]*domain.User, error)
}
