// Package booking implements appointment bookings between villagers and
// doctors, governed by a strict status state machine.
package booking

import (
	"time"

	"github.com/google/uuid"
)

// Booking statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// transitions is the full set of legal status edges. Anything absent here
// is an invalid transition, including every edge out of the terminal
// cancelled and completed states.
var transitions = map[string]map[string]bool{
	StatusPending:   {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusCompleted: true},
}

// CanTransition reports whether the edge from→to exists.
func CanTransition(from, to string) bool {
	return transitions[from][to]
}

// Booking is one appointment request.
type Booking struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	BookingDate time.Time `json:"booking_date"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DoctorSummary is the doctor detail a patient sees on their bookings.
type DoctorSummary struct {
	Name            string   `json:"name"`
	HospitalName    string   `json:"hospital_name,omitempty"`
	Specialization  string   `json:"specialization,omitempty"`
	ConsultationFee *float64 `json:"consultation_fee,omitempty"`
}

// PatientSummary is the patient detail a doctor sees on their bookings.
type PatientSummary struct {
	Name    string `json:"name"`
	Village string `json:"village,omitempty"`
	Age     *int   `json:"age,omitempty"`
}

// PatientView is a booking joined with the counterpart doctor.
type PatientView struct {
	Booking
	Doctor DoctorSummary `json:"doctor"`
}

// DoctorView is a booking joined with the counterpart patient.
type DoctorView struct {
	Booking
	Patient PatientSummary `json:"patient"`
}

// Actor identifies who is attempting a transition.
type Actor struct {
	ID   uuid.UUID
	Role string
}
