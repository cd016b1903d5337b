// Package request implements the symptom-request lifecycle: villagers
// submit symptoms (optionally with an image), a doctor responds exactly
// once, and each accepted response appends an entry to the patient's
// medical history.
package request

import (
	"time"

	"github.com/google/uuid"
)

// Request statuses. A request is created pending and becomes responded at
// most once; there is no edge back.
const (
	StatusPending   = "pending"
	StatusResponded = "responded"
)

// MedicalRequest is one symptom submission by a patient.
type MedicalRequest struct {
	ID           uuid.UUID  `json:"id"`
	PatientID    uuid.UUID  `json:"patient_id"`
	DoctorID     *uuid.UUID `json:"doctor_id,omitempty"`
	Symptoms     string     `json:"symptoms"`
	ImageURL     *string    `json:"image_url,omitempty"`
	Status       string     `json:"status"`
	ReplyMessage string     `json:"reply_message,omitempty"`
	Medicines    string     `json:"medicines,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// PatientSummary is the slice of the patient profile doctors see next to a
// request.
type PatientSummary struct {
	Name    string `json:"name"`
	Village string `json:"village,omitempty"`
	Age     *int   `json:"age,omitempty"`
}

// RequestWithPatient is a request joined with its patient's summary, the
// doctor-facing list and detail shape.
type RequestWithPatient struct {
	MedicalRequest
	Patient PatientSummary `json:"patient"`
}

// HistoryEntry is one append-only medical-history row, written only by the
// respond transaction.
type HistoryEntry struct {
	ID           uuid.UUID `json:"id"`
	PatientID    uuid.UUID `json:"patient_id"`
	DoctorID     uuid.UUID `json:"doctor_id"`
	Diagnosis    string    `json:"diagnosis"`
	Prescription string    `json:"prescription"`
	Notes        string    `json:"notes,omitempty"`
	VisitDate    time.Time `json:"visit_date"`
	CreatedAt    time.Time `json:"created_at"`
}
