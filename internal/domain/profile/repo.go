package profile

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	ListAvailableDoctors(ctx context.Context, limit, offset int) ([]*Profile, int, error)
}

type RoleRepository interface {
	Assign(ctx context.Context, userID uuid.UUID, role string) error
	RoleOf(ctx context.Context, userID uuid.UUID) (string, error)
}
