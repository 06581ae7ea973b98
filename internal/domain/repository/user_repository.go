package repository

import (
	"context"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/google/uuid"
)

// UserRepository defines the interface for staff account data operations
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	// GetByEmail loads the user with roles
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

// RoleRepository defines the interface for role data operations
type RoleRepository interface {
	GetByName(ctx context.Context, name string) (*entity.Role, error)
	List(ctx context.Context) ([]entity.Role, error)
}
