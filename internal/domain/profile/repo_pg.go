package profile

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

const profileCols = `id, name, phone, village, age, hospital_name, hospital_address,
	hospital_contact, specialization, consultation_fee, available, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Name, &p.Phone, &p.Village, &p.Age,
		&p.HospitalName, &p.HospitalAddress, &p.HospitalContact,
		&p.Specialization, &p.ConsultationFee, &p.Available,
		&p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

// Create inserts a profile. The id is the identity provider's user id, not
// a fresh UUID, so the caller must set it.
func (r *repoPG) Create(ctx context.Context, p *Profile) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO profiles (id, name, phone, village, age, hospital_name,
			hospital_address, hospital_contact, specialization, consultation_fee, available)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.Name, p.Phone, p.Village, p.Age, p.HospitalName,
		p.HospitalAddress, p.HospitalContact, p.Specialization,
		p.ConsultationFee, p.Available)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Profile) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE profiles SET name=$2, phone=$3, village=$4, age=$5, hospital_name=$6,
			hospital_address=$7, hospital_contact=$8, specialization=$9,
			consultation_fee=$10, available=$11, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Phone, p.Village, p.Age, p.HospitalName,
		p.HospitalAddress, p.HospitalContact, p.Specialization,
		p.ConsultationFee, p.Available)
	return err
}

func (r *repoPG) ListAvailableDoctors(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM profiles p
		JOIN user_roles ur ON ur.user_id = p.id
		WHERE ur.role = 'doctor'`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+profileCols+` FROM profiles p
		JOIN user_roles ur ON ur.user_id = p.id
		WHERE ur.role = 'doctor'
		ORDER BY p.name ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

type roleRepoPG struct{ pool *pgxpool.Pool }

func NewRoleRepoPG(pool *pgxpool.Pool) RoleRepository { return &roleRepoPG{pool: pool} }

func (r *roleRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *roleRepoPG) Assign(ctx context.Context, userID uuid.UUID, role string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, userID, role)
	return err
}

func (r *roleRepoPG) RoleOf(ctx context.Context, userID uuid.UUID) (string, error) {
	var role string
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT role FROM user_roles WHERE user_id = $1`, userID).Scan(&role)
	return role, err
}
