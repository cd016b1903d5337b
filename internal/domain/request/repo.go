package request

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *MedicalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRequest, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*RequestWithPatient, error)
	// MarkResponded performs the conditional pending→responded update and
	// reports whether this caller won it. False with a nil error means the
	// request exists but was not pending.
	MarkResponded(ctx context.Context, id, doctorID uuid.UUID, reply, medicines string) (bool, error)
	SetImageURL(ctx context.Context, id uuid.UUID, url string) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRequest, int, error)
	ListAll(ctx context.Context, limit, offset int) ([]*RequestWithPatient, int, error)
}

type HistoryRepository interface {
	Append(ctx context.Context, e *HistoryEntry) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*HistoryEntry, int, error)
}
