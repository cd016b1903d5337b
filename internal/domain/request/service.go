package request

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gramacare/gramacare/internal/platform/apperr"
	"github.com/gramacare/gramacare/internal/platform/blobstore"
	"github.com/gramacare/gramacare/internal/platform/db"
	"github.com/gramacare/gramacare/internal/platform/notifier"
)

type Service struct {
	requests Repository
	history  HistoryRepository
	blobs    blobstore.Store
	tx       db.TxRunner
	events   notifier.Publisher
}

func NewService(requests Repository, history HistoryRepository, blobs blobstore.Store,
	tx db.TxRunner, events notifier.Publisher) *Service {
	return &Service{requests: requests, history: history, blobs: blobs, tx: tx, events: events}
}

// SubmitInput is a villager's symptom submission. DoctorID optionally
// addresses a specific doctor; ImageURL carries an already-uploaded photo
// reference.
type SubmitInput struct {
	Symptoms string     `json:"symptoms"`
	DoctorID *uuid.UUID `json:"doctor_id"`
	ImageURL *string    `json:"image_url"`
}

// Submit creates a pending request for the patient.
func (s *Service) Submit(ctx context.Context, patientID uuid.UUID, in SubmitInput) (*MedicalRequest, error) {
	if strings.TrimSpace(in.Symptoms) == "" {
		return nil, apperr.New(apperr.Validation, "symptoms are required")
	}

	m := &MedicalRequest{
		PatientID: patientID,
		DoctorID:  in.DoctorID,
		Symptoms:  in.Symptoms,
		ImageURL:  in.ImageURL,
	}
	if err := s.requests.Create(ctx, m); err != nil {
		return nil, apperr.FromDB(err, "request")
	}

	s.publish(ctx, notifier.OpInsert, m)
	return m, nil
}

// AttachImage uploads a symptom photo and stores its public URL on the
// request. The metadata write happens only after the blob store has
// acknowledged the upload, so a stored URL never dangles.
func (s *Service) AttachImage(ctx context.Context, patientID, requestID uuid.UUID,
	filename, contentType string, content io.Reader) (*MedicalRequest, error) {
	m, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperr.FromDB(err, "request")
	}
	if m.PatientID != patientID {
		return nil, apperr.New(apperr.Authorization, "request belongs to another patient")
	}

	path := fmt.Sprintf("%s/%s", requestID, filename)
	obj, err := s.blobs.Upload(ctx, blobstore.BucketMedicalImages, path, contentType, content)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, err, "image rejected")
	}

	url := s.blobs.PublicURL(obj.Bucket, obj.Path)
	if err := s.requests.SetImageURL(ctx, requestID, url); err != nil {
		return nil, apperr.FromDB(err, "request")
	}

	m.ImageURL = &url
	s.publish(ctx, notifier.OpUpdate, m)
	return m, nil
}

// RespondInput is a doctor's reply to a pending request.
type RespondInput struct {
	Diagnosis string `json:"diagnosis"`
	Advice    string `json:"advice"`
	Medicines string `json:"medicines"`
	Notes     string `json:"notes"`
}

// Respond accepts a doctor's response. In one transaction the request is
// conditionally moved pending→responded and exactly one history entry is
// appended; if the conditional update affects no row the request was
// already responded and the caller loses with InvalidState. The change
// event goes out only after the transaction commits.
func (s *Service) Respond(ctx context.Context, doctorID, requestID uuid.UUID, in RespondInput) (*MedicalRequest, error) {
	if strings.TrimSpace(in.Diagnosis) == "" {
		return nil, apperr.New(apperr.Validation, "diagnosis is required")
	}
	if strings.TrimSpace(in.Medicines) == "" {
		return nil, apperr.New(apperr.Validation, "medicines are required")
	}

	reply := in.Advice
	if strings.TrimSpace(reply) == "" {
		reply = in.Diagnosis
	}

	var m *MedicalRequest
	txErr := s.tx(ctx, func(ctx context.Context) error {
		existing, err := s.requests.GetByID(ctx, requestID)
		if err != nil {
			return apperr.FromDB(err, "request")
		}

		won, err := s.requests.MarkResponded(ctx, requestID, doctorID, reply, in.Medicines)
		if err != nil {
			return apperr.FromDB(err, "request")
		}
		if !won {
			return apperr.New(apperr.InvalidState, "request %s has already been responded to", requestID)
		}

		entry := &HistoryEntry{
			PatientID:    existing.PatientID,
			DoctorID:     doctorID,
			Diagnosis:    in.Diagnosis,
			Prescription: in.Medicines,
			Notes:        in.Notes,
			VisitDate:    time.Now().UTC(),
		}
		if err := s.history.Append(ctx, entry); err != nil {
			return apperr.FromDB(err, "history")
		}

		m = existing
		m.Status = StatusResponded
		m.DoctorID = &doctorID
		m.ReplyMessage = reply
		m.Medicines = in.Medicines
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.publish(ctx, notifier.OpUpdate, m)
	return m, nil
}

// ListForPatient returns the patient's own requests, newest first.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRequest, int, error) {
	items, total, err := s.requests.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "requests")
	}
	return items, total, nil
}

// ListAll returns every request joined with the patient summary, newest
// first. Doctor view.
func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]*RequestWithPatient, int, error) {
	items, total, err := s.requests.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "requests")
	}
	return items, total, nil
}

// Detail returns one request joined with the patient summary.
func (s *Service) Detail(ctx context.Context, requestID uuid.UUID) (*RequestWithPatient, error) {
	m, err := s.requests.GetDetail(ctx, requestID)
	if err != nil {
		return nil, apperr.FromDB(err, "request")
	}
	return m, nil
}

// HistoryForPatient returns the patient's history, most recent visit first.
func (s *Service) HistoryForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*HistoryEntry, int, error) {
	items, total, err := s.history.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "history")
	}
	return items, total, nil
}

func (s *Service) publish(ctx context.Context, op string, m *MedicalRequest) {
	if s.events == nil {
		return
	}
	ev := notifier.Event{
		Table: "medical_requests",
		Op:    op,
		ID:    m.ID.String(),
		Filters: []string{
			notifier.FilterTopic("medical_requests", "patient_id", m.PatientID.String()),
		},
	}
	if m.DoctorID != nil {
		ev.Filters = append(ev.Filters,
			notifier.FilterTopic("medical_requests", "doctor_id", m.DoctorID.String()))
	}
	_ = s.events.Publish(ctx, ev)
}
