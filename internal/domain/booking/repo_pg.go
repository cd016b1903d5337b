package booking

import (
	"context"

	"github.com/google/uuid"
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

const bookingCols = `id, patient_id, doctor_id, booking_date, status, notes, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, b *Booking) error {
	b.ID = uuid.New()
	b.Status = StatusPending
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bookings (id, patient_id, doctor_id, booking_date, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		b.ID, b.PatientID, b.DoctorID, b.BookingDate, b.Status, b.Notes)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var b Booking
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE id = $1`, id).
		Scan(&b.ID, &b.PatientID, &b.DoctorID, &b.BookingDate, &b.Status,
			&b.Notes, &b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

// UpdateStatus is guarded by the prior status so two racing transitions
// cannot both apply. The loser affects zero rows.
func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bookings SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`, id, to, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*PatientView, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT b.id, b.patient_id, b.doctor_id, b.booking_date, b.status, b.notes,
			b.created_at, b.updated_at,
			p.name, p.hospital_name, p.specialization, p.consultation_fee
		FROM bookings b
		JOIN profiles p ON p.id = b.doctor_id
		WHERE b.patient_id = $1
		ORDER BY b.booking_date ASC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*PatientView
	for rows.Next() {
		var v PatientView
		if err := rows.Scan(&v.ID, &v.PatientID, &v.DoctorID, &v.BookingDate, &v.Status,
			&v.Notes, &v.CreatedAt, &v.UpdatedAt,
			&v.Doctor.Name, &v.Doctor.HospitalName, &v.Doctor.Specialization,
			&v.Doctor.ConsultationFee); err != nil {
			return nil, 0, err
		}
		items = append(items, &v)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*DoctorView, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT b.id, b.patient_id, b.doctor_id, b.booking_date, b.status, b.notes,
			b.created_at, b.updated_at,
			p.name, p.village, p.age
		FROM bookings b
		JOIN profiles p ON p.id = b.patient_id
		WHERE b.doctor_id = $1
		ORDER BY b.booking_date ASC LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*DoctorView
	for rows.Next() {
		var v DoctorView
		if err := rows.Scan(&v.ID, &v.PatientID, &v.DoctorID, &v.BookingDate, &v.Status,
			&v.Notes, &v.CreatedAt, &v.UpdatedAt,
			&v.Patient.Name, &v.Patient.Village, &v.Patient.Age); err != nil {
			return nil, 0, err
		}
		items = append(items, &v)
	}
	return items, total, rows.Err()
}
