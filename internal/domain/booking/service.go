package booking

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gramacare/gramacare/internal/platform/apperr"
	"github.com/gramacare/gramacare/internal/platform/auth"
	"github.com/gramacare/gramacare/internal/platform/notifier"
)

type Service struct {
	bookings Repository
	events   notifier.Publisher
}

func NewService(bookings Repository, events notifier.Publisher) *Service {
	return &Service{bookings: bookings, events: events}
}

// CreateInput is a villager's appointment request.
type CreateInput struct {
	DoctorID    uuid.UUID `json:"doctor_id"`
	BookingDate string    `json:"booking_date"`
	Notes       string    `json:"notes"`
}

// Create books an appointment in the pending state. Two patients may hold
// pending bookings with the same doctor at the same time; resolving that
// is the doctor's call at confirmation.
func (s *Service) Create(ctx context.Context, patientID uuid.UUID, in CreateInput) (*Booking, error) {
	if in.DoctorID == uuid.Nil {
		return nil, apperr.New(apperr.Validation, "doctor_id is required")
	}
	date, err := parseBookingDate(in.BookingDate)
	if err != nil {
		return nil, err
	}

	b := &Booking{
		PatientID:   patientID,
		DoctorID:    in.DoctorID,
		BookingDate: date,
		Notes:       in.Notes,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, apperr.FromDB(err, "booking")
	}

	s.publish(ctx, notifier.OpInsert, b)
	return b, nil
}

func parseBookingDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apperr.New(apperr.Validation, "booking_date is required")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.New(apperr.Validation, "booking_date must be a date or RFC 3339 timestamp")
}

// Transition moves a booking along one state-machine edge on behalf of the
// actor. Edges: pending→confirmed, pending→cancelled, confirmed→completed.
// Confirm and complete belong to the booked doctor; cancel belongs to the
// booked doctor or the owning patient. A missing edge is InvalidTransition,
// a wrong actor is Authorization, and losing the guarded update to a
// concurrent transition is InvalidState.
func (s *Service) Transition(ctx context.Context, bookingID uuid.UUID, actor Actor, newStatus string) (*Booking, error) {
	switch newStatus {
	case StatusConfirmed, StatusCancelled, StatusCompleted:
	default:
		return nil, apperr.New(apperr.Validation, "unknown status %q", newStatus)
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, apperr.FromDB(err, "booking")
	}

	if !CanTransition(b.Status, newStatus) {
		return nil, apperr.New(apperr.InvalidTransition,
			"booking cannot move from %s to %s", b.Status, newStatus)
	}

	if err := s.authorize(b, actor, newStatus); err != nil {
		return nil, err
	}

	won, err := s.bookings.UpdateStatus(ctx, bookingID, b.Status, newStatus)
	if err != nil {
		return nil, apperr.FromDB(err, "booking")
	}
	if !won {
		return nil, apperr.New(apperr.InvalidState,
			"booking %s changed concurrently", bookingID)
	}

	b.Status = newStatus
	s.publish(ctx, notifier.OpUpdate, b)
	return b, nil
}

func (s *Service) authorize(b *Booking, actor Actor, newStatus string) error {
	isDoctor := actor.Role == auth.RoleDoctor && actor.ID == b.DoctorID
	switch newStatus {
	case StatusConfirmed, StatusCompleted:
		if !isDoctor {
			return apperr.New(apperr.Authorization, "only the booked doctor may %s", verbFor(newStatus))
		}
	case StatusCancelled:
		isPatient := actor.Role == auth.RoleVillager && actor.ID == b.PatientID
		if !isDoctor && !isPatient {
			return apperr.New(apperr.Authorization, "only the booked doctor or the owning patient may cancel")
		}
	}
	return nil
}

func verbFor(status string) string {
	if status == StatusCompleted {
		return "complete"
	}
	return "confirm"
}

// ListForPatient returns the patient's bookings with doctor details,
// soonest appointment first.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*PatientView, int, error) {
	items, total, err := s.bookings.ListForPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "bookings")
	}
	return items, total, nil
}

// ListForDoctor returns the doctor's bookings with patient details,
// soonest appointment first.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*DoctorView, int, error) {
	items, total, err := s.bookings.ListForDoctor(ctx, doctorID, limit, offset)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "bookings")
	}
	return items, total, nil
}

func (s *Service) publish(ctx context.Context, op string, b *Booking) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, notifier.Event{
		Table: "bookings",
		Op:    op,
		ID:    b.ID.String(),
		Filters: []string{
			notifier.FilterTopic("bookings", "patient_id", b.PatientID.String()),
			notifier.FilterTopic("bookings", "doctor_id", b.DoctorID.String()),
		},
	})
}
