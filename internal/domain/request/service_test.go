package request

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gramacare/gramacare/internal/platform/apperr"
	"github.com/gramacare/gramacare/internal/platform/blobstore"
	"github.com/gramacare/gramacare/internal/platform/notifier"
)

// -- mocks --

type mockRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*MedicalRequest
	history  []*HistoryEntry
	patients map[uuid.UUID]PatientSummary
	clock    time.Time
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		requests: make(map[uuid.UUID]*MedicalRequest),
		patients: make(map[uuid.UUID]PatientSummary),
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mockRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

func (m *mockRepo) Create(_ context.Context, r *MedicalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.New()
	r.Status = StatusPending
	r.CreatedAt = m.tick()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.requests[r.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*MedicalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) GetDetail(_ context.Context, id uuid.UUID) (*RequestWithPatient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &RequestWithPatient{MedicalRequest: *r, Patient: m.patients[r.PatientID]}, nil
}

func (m *mockRepo) MarkResponded(_ context.Context, id, doctorID uuid.UUID, reply, medicines string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return false, nil
	}
	if r.Status != StatusPending {
		return false, nil
	}
	r.Status = StatusResponded
	r.DoctorID = &doctorID
	r.ReplyMessage = reply
	r.Medicines = medicines
	r.UpdatedAt = m.tick()
	return true, nil
}

func (m *mockRepo) SetImageURL(_ context.Context, id uuid.UUID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return pgx.ErrNoRows
	}
	r.ImageURL = &url
	return nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*MedicalRequest
	for _, r := range m.requests {
		if r.PatientID == patientID {
			cp := *r
			items = append(items, &cp)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, len(items), nil
}

func (m *mockRepo) ListAll(_ context.Context, limit, offset int) ([]*RequestWithPatient, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*RequestWithPatient
	for _, r := range m.requests {
		items = append(items, &RequestWithPatient{MedicalRequest: *r, Patient: m.patients[r.PatientID]})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, len(items), nil
}

func (m *mockRepo) Append(_ context.Context, e *HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = m.tick()
	cp := *e
	m.history = append(m.history, &cp)
	return nil
}

func (m *mockRepo) historyFor(patientID uuid.UUID) []*HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*HistoryEntry
	for _, e := range m.history {
		if e.PatientID == patientID {
			items = append(items, e)
		}
	}
	return items
}

type historyAdapter struct{ *mockRepo }

func (h historyAdapter) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*HistoryEntry, int, error) {
	items := h.mockRepo.historyFor(patientID)
	sort.Slice(items, func(i, j int) bool { return items[i].VisitDate.After(items[j].VisitDate) })
	return items, len(items), nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []notifier.Event
}

func (p *capturingPublisher) Publish(_ context.Context, e notifier.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(repo *mockRepo) (*Service, *capturingPublisher) {
	pub := &capturingPublisher{}
	svc := NewService(repo, historyAdapter{repo}, blobstore.NewInMemoryStore("http://localhost:8000"), passthroughTx, pub)
	return svc, pub
}

// -- tests --

func TestSubmit(t *testing.T) {
	repo := newMockRepo()
	svc, pub := newTestService(repo)
	patientID := uuid.New()

	m, err := svc.Submit(context.Background(), patientID, SubmitInput{Symptoms: "fever and headache"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if m.Status != StatusPending {
		t.Errorf("status = %q, want pending", m.Status)
	}
	if m.PatientID != patientID {
		t.Error("patient id mismatch")
	}
	if len(pub.events) != 1 || pub.events[0].Op != notifier.OpInsert {
		t.Errorf("expected one insert event, got %+v", pub.events)
	}
}

func TestSubmitWithUploadedImage(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)
	url := "http://localhost:8000/files/medical-images/pre/rash.jpg"

	m, err := svc.Submit(context.Background(), uuid.New(), SubmitInput{
		Symptoms: "rash on arm",
		ImageURL: &url,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), m.ID)
	if stored.ImageURL == nil || *stored.ImageURL != url {
		t.Errorf("image url not persisted: %v", stored.ImageURL)
	}
}

func TestSubmitRequiresSymptoms(t *testing.T) {
	svc, _ := newTestService(newMockRepo())

	_, err := svc.Submit(context.Background(), uuid.New(), SubmitInput{Symptoms: "   "})
	if apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("kind = %v, want Validation", apperr.KindOf(err))
	}
}

func TestRespondWritesExactlyOneHistoryEntry(t *testing.T) {
	repo := newMockRepo()
	svc, pub := newTestService(repo)
	patientID, doctorID := uuid.New(), uuid.New()

	m, _ := svc.Submit(context.Background(), patientID, SubmitInput{Symptoms: "fever"})
	pub.events = nil

	responded, err := svc.Respond(context.Background(), doctorID, m.ID, RespondInput{
		Diagnosis: "viral fever",
		Advice:    "rest and fluids",
		Medicines: "paracetamol 500mg",
		Notes:     "review in 3 days",
	})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if responded.Status != StatusResponded {
		t.Errorf("status = %q", responded.Status)
	}
	if responded.DoctorID == nil || *responded.DoctorID != doctorID {
		t.Error("doctor id not recorded")
	}
	if responded.ReplyMessage != "rest and fluids" {
		t.Errorf("reply = %q", responded.ReplyMessage)
	}

	entries := repo.historyFor(patientID)
	if len(entries) != 1 {
		t.Fatalf("expected exactly one history entry, got %d", len(entries))
	}
	e := entries[0]
	if e.PatientID != patientID {
		t.Error("history entry names the wrong patient")
	}
	if e.Diagnosis != "viral fever" || e.Prescription != "paracetamol 500mg" {
		t.Errorf("history entry = %+v", e)
	}

	if len(pub.events) != 1 || pub.events[0].Op != notifier.OpUpdate {
		t.Errorf("expected one update event, got %+v", pub.events)
	}
	wantTopic := notifier.FilterTopic("medical_requests", "patient_id", patientID.String())
	found := false
	for _, f := range pub.events[0].Filters {
		if f == wantTopic {
			found = true
		}
	}
	if !found {
		t.Errorf("event missing patient filter topic: %+v", pub.events[0].Filters)
	}
}

func TestRespondValidation(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)
	m, _ := svc.Submit(context.Background(), uuid.New(), SubmitInput{Symptoms: "fever"})

	_, err := svc.Respond(context.Background(), uuid.New(), m.ID, RespondInput{Medicines: "x"})
	if apperr.KindOf(err) != apperr.Validation {
		t.Errorf("missing diagnosis: kind = %v", apperr.KindOf(err))
	}

	_, err = svc.Respond(context.Background(), uuid.New(), m.ID, RespondInput{Diagnosis: "x"})
	if apperr.KindOf(err) != apperr.Validation {
		t.Errorf("missing medicines: kind = %v", apperr.KindOf(err))
	}

	if len(repo.history) != 0 {
		t.Error("validation failure must not write history")
	}
}

func TestRespondUnknownRequest(t *testing.T) {
	svc, _ := newTestService(newMockRepo())

	_, err := svc.Respond(context.Background(), uuid.New(), uuid.New(),
		RespondInput{Diagnosis: "x", Medicines: "y"})
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("kind = %v, want NotFound", apperr.KindOf(err))
	}
}

func TestRespondTwiceRejected(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)
	patientID := uuid.New()

	m, _ := svc.Submit(context.Background(), patientID, SubmitInput{Symptoms: "fever"})

	if _, err := svc.Respond(context.Background(), uuid.New(), m.ID,
		RespondInput{Diagnosis: "viral fever", Medicines: "paracetamol"}); err != nil {
		t.Fatalf("first respond: %v", err)
	}

	_, err := svc.Respond(context.Background(), uuid.New(), m.ID,
		RespondInput{Diagnosis: "different", Medicines: "other"})
	if apperr.KindOf(err) != apperr.InvalidState {
		t.Fatalf("kind = %v, want InvalidState", apperr.KindOf(err))
	}

	// First response stands untouched, still exactly one history entry.
	got, _ := svc.Detail(context.Background(), m.ID)
	if got.Medicines != "paracetamol" {
		t.Errorf("losing respond overwrote the winner: %q", got.Medicines)
	}
	if len(repo.historyFor(patientID)) != 1 {
		t.Error("expected exactly one history entry after losing respond")
	}
}

func TestConcurrentRespondsOneWinner(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)
	patientID := uuid.New()

	m, _ := svc.Submit(context.Background(), patientID, SubmitInput{Symptoms: "fever"})

	const n = 10
	results := make(chan error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Respond(context.Background(), uuid.New(), m.ID,
				RespondInput{Diagnosis: "viral fever", Medicines: "paracetamol"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case apperr.KindOf(err) == apperr.InvalidState:
			losses++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
	if losses != n-1 {
		t.Fatalf("losses = %d, want %d", losses, n-1)
	}
	if len(repo.historyFor(patientID)) != 1 {
		t.Fatal("expected exactly one history entry after the race")
	}
}

func TestFeverScenario(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)
	patientID, doctorID := uuid.New(), uuid.New()
	repo.patients[patientID] = PatientSummary{Name: "ramu", Village: "Kandukur"}

	// Villager reports fever.
	m, err := svc.Submit(context.Background(), patientID, SubmitInput{Symptoms: "fever since two days"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Doctor sees it in the queue with the patient summary.
	queue, _, err := svc.ListAll(context.Background(), 20, 0)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(queue) != 1 || queue[0].Patient.Name != "ramu" {
		t.Fatalf("queue = %+v", queue)
	}

	// Doctor responds with viral fever.
	if _, err := svc.Respond(context.Background(), doctorID, m.ID, RespondInput{
		Diagnosis: "viral fever",
		Medicines: "paracetamol 500mg twice daily",
	}); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	// Patient sees the reply and the new history entry.
	mine, _, _ := svc.ListForPatient(context.Background(), patientID, 20, 0)
	if len(mine) != 1 || mine[0].Status != StatusResponded {
		t.Fatalf("mine = %+v", mine)
	}
	history, _, err := svc.HistoryForPatient(context.Background(), patientID, 20, 0)
	if err != nil {
		t.Fatalf("HistoryForPatient: %v", err)
	}
	if len(history) != 1 || history[0].Diagnosis != "viral fever" {
		t.Fatalf("history = %+v", history)
	}
}

func TestListForPatientNewestFirst(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)
	patientID := uuid.New()

	first, _ := svc.Submit(context.Background(), patientID, SubmitInput{Symptoms: "cough"})
	second, _ := svc.Submit(context.Background(), patientID, SubmitInput{Symptoms: "fever"})

	items, total, err := svc.ListForPatient(context.Background(), patientID, 20, 0)
	if err != nil {
		t.Fatalf("ListForPatient: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d", total)
	}
	if items[0].ID != second.ID || items[1].ID != first.ID {
		t.Error("expected newest-first ordering")
	}
}

func TestAttachImage(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)
	patientID := uuid.New()

	m, _ := svc.Submit(context.Background(), patientID, SubmitInput{Symptoms: "rash"})

	updated, err := svc.AttachImage(context.Background(), patientID, m.ID,
		"rash.png", "image/png", strings.NewReader("fake-png"))
	if err != nil {
		t.Fatalf("AttachImage: %v", err)
	}
	if updated.ImageURL == nil || !strings.Contains(*updated.ImageURL, "/files/medical-images/") {
		t.Errorf("image url = %v", updated.ImageURL)
	}

	got, _ := svc.Detail(context.Background(), m.ID)
	if got.ImageURL == nil {
		t.Error("image url not persisted")
	}
}

func TestAttachImageOwnerOnly(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)

	m, _ := svc.Submit(context.Background(), uuid.New(), SubmitInput{Symptoms: "rash"})

	_, err := svc.AttachImage(context.Background(), uuid.New(), m.ID,
		"rash.png", "image/png", strings.NewReader("fake-png"))
	if apperr.KindOf(err) != apperr.Authorization {
		t.Fatalf("kind = %v, want Authorization", apperr.KindOf(err))
	}
}

func TestAttachImageRejectsBadContentType(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)
	patientID := uuid.New()

	m, _ := svc.Submit(context.Background(), patientID, SubmitInput{Symptoms: "rash"})

	_, err := svc.AttachImage(context.Background(), patientID, m.ID,
		"note.txt", "text/plain", strings.NewReader("hello"))
	if apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("kind = %v, want Validation", apperr.KindOf(err))
	}
}
