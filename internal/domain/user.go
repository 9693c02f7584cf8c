package domain

import (
	"time"
)

// User is a directory entry of the surrounding platform. Only the fields the
// relay needs to address notifications are carried.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUser(id string, name string, role Role) *User {
	now := time.Now().UTC()
	return &User{
		ID:        id,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
