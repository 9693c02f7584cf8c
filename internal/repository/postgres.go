package repository

import (
	"context"

	"github.com/immxrtalbeast/medsignal/internal/domain"
	"github.com/immxrtalbeast/medsignal/internal/repository/model"
	"gorm.io/gorm"
)

// PostgresUserRepository reads the users table owned by the CRUD layer.
// The relay never writes to it.
type PostgresUserRepository struct {
	db *gorm.DB
}

var _ UserDirectory = (*PostgresUserRepository)(nil)

func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) GetUsersByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	var users []model.User
	if err := r.db.WithContext(ctx).Where("role = ?", string(role)).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}

	result := make([]*domain.User, 0, len(users))
	for i := range users {
		result = append(result, toDomainUser(&users[i]))
	}
	return result, nil
}

func toDomainUser(user *model.User) *domain.User {
	email := ""
	if user.Email != nil {
		email = *user.Email
	}

	return &domain.User{
		ID:        user.ID,
		Name:      user.Name,
		Email:     email,
		Role:      domain.Role(user.Role),
		CreatedAt: user.CreatedAt.UTC(),
		UpdatedAt: user.UpdatedAt.UTC(),
	}
}
