package request

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gramacare/gramacare/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const requestCols = `id, patient_id, doctor_id, symptoms, image_url, status,
	reply_message, medicines, created_at, updated_at`

func scanRequest(row pgx.Row) (*MedicalRequest, error) {
	var m MedicalRequest
	err := row.Scan(&m.ID, &m.PatientID, &m.DoctorID, &m.Symptoms, &m.ImageURL,
		&m.Status, &m.ReplyMessage, &m.Medicines, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, m *MedicalRequest) error {
	m.ID = uuid.New()
	m.Status = StatusPending
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_requests (id, patient_id, doctor_id, symptoms, image_url, status)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.PatientID, m.DoctorID, m.Symptoms, m.ImageURL, m.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalRequest, error) {
	return scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestCols+` FROM medical_requests WHERE id = $1`, id))
}

func (r *repoPG) GetDetail(ctx context.Context, id uuid.UUID) (*RequestWithPatient, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT r.id, r.patient_id, r.doctor_id, r.symptoms, r.image_url, r.status,
			r.reply_message, r.medicines, r.created_at, r.updated_at,
			p.name, p.village, p.age
		FROM medical_requests r
		JOIN profiles p ON p.id = r.patient_id
		WHERE r.id = $1`, id)
	return scanRequestWithPatient(row)
}

func scanRequestWithPatient(row pgx.Row) (*RequestWithPatient, error) {
	var m RequestWithPatient
	err := row.Scan(&m.ID, &m.PatientID, &m.DoctorID, &m.Symptoms, &m.ImageURL,
		&m.Status, &m.ReplyMessage, &m.Medicines, &m.CreatedAt, &m.UpdatedAt,
		&m.Patient.Name, &m.Patient.Village, &m.Patient.Age)
	return &m, err
}

// MarkResponded is the winner-takes-all update keyed on the pending status.
// A concurrent second responder affects zero rows and loses.
func (r *repoPG) MarkResponded(ctx context.Context, id, doctorID uuid.UUID, reply, medicines string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_requests
		SET status = $2, doctor_id = $3, reply_message = $4, medicines = $5, updated_at = NOW()
		WHERE id = $1 AND status = $6`,
		id, StatusResponded, doctorID, reply, medicines, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) SetImageURL(ctx context.Context, id uuid.UUID, url string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE medical_requests SET image_url = $2, updated_at = NOW() WHERE id = $1`, id, url)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRequest, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_requests WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+requestCols+` FROM medical_requests
		WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*MedicalRequest
	for rows.Next() {
		m, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListAll(ctx context.Context, limit, offset int) ([]*RequestWithPatient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_requests`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT r.id, r.patient_id, r.doctor_id, r.symptoms, r.image_url, r.status,
			r.reply_message, r.medicines, r.created_at, r.updated_at,
			p.name, p.village, p.age
		FROM medical_requests r
		JOIN profiles p ON p.id = r.patient_id
		ORDER BY r.created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*RequestWithPatient
	for rows.Next() {
		m, err := scanRequestWithPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

type historyRepoPG struct{ pool *pgxpool.Pool }

func NewHistoryRepoPG(pool *pgxpool.Pool) HistoryRepository { return &historyRepoPG{pool: pool} }

func (r *historyRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *historyRepoPG) Append(ctx context.Context, e *HistoryEntry) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_history (id, patient_id, doctor_id, diagnosis, prescription, notes, visit_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.PatientID, e.DoctorID, e.Diagnosis, e.Prescription, e.Notes, e.VisitDate)
	return err
}

func (r *historyRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*HistoryEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_history WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, doctor_id, diagnosis, prescription, notes, visit_date, created_at
		FROM medical_history
		WHERE patient_id = $1
		ORDER BY visit_date DESC, created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.PatientID, &e.DoctorID, &e.Diagnosis,
			&e.Prescription, &e.Notes, &e.VisitDate, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &e)
	}
	return items, total, rows.Err()
}
