package booking

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists bookings.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// UpdateStatus moves a booking from one status to another, guarded by
	// the prior status. It returns false when the booking was no longer in
	// the expected prior status, which means a concurrent transition won.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)

	ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*PatientView, int, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*DoctorView, int, error)
}
