package media

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

func (r *repoPG) Create(ctx context.Context, v *EmergencyVideo) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO emergency_videos (id, title, description, video_url, uploaded_by)
		VALUES ($1,$2,$3,$4,$5)`,
		v.ID, v.Title, v.Description, v.VideoURL, v.UploadedBy)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*EmergencyVideo, error) {
	var v EmergencyVideo
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, title, description, video_url, uploaded_by, created_at
		FROM emergency_videos WHERE id = $1`, id).
		Scan(&v.ID, &v.Title, &v.Description, &v.VideoURL, &v.UploadedBy, &v.CreatedAt)
	return &v, err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*VideoWithUploader, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM emergency_videos`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT v.id, v.title, v.description, v.video_url, v.uploaded_by, v.created_at, p.name
		FROM emergency_videos v
		JOIN profiles p ON p.id = v.uploaded_by
		ORDER BY v.created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*VideoWithUploader
	for rows.Next() {
		var v VideoWithUploader
		if err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.VideoURL,
			&v.UploadedBy, &v.CreatedAt, &v.UploaderName); err != nil {
			return nil, 0, err
		}
		items = append(items, &v)
	}
	return items, total, rows.Err()
}
