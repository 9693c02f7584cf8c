package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/immxrtalbeast/medsignal/internal/domain"
)

type InMemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

var _ UserDirectory = (*InMemoryUserRepository)(nil)

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !user.Role.Valid() {
		return ErrInvalidRole
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return ErrUserExists
	}

	r.users[user.ID] = user
	return nil
}

func (r *InMemoryUserRepository) GetUsersByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.User, 0)
	for _, user := range r.users {
		if user.Role == role {
			result = append(result, user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
