package media

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists video metadata.
type Repository interface {
	Create(ctx context.Context, v *EmergencyVideo) error
	GetByID(ctx context.Context, id uuid.UUID) (*EmergencyVideo, error)
	List(ctx context.Context, limit, offset int) ([]*VideoWithUploader, int, error)
}
