package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/time-capsule-api/internal/domain"
)

// MediaRepo provides typed Postgres operations for media metadata.
type MediaRepo struct {
	db *pgxpool.Pool
}

func NewMediaRepo(db *pgxpool.Pool) *MediaRepo {
	return &MediaRepo{db: db}
}

const mediaColumns = `id, capsule_id, filename, file_path, file_type, content_type, size, uploaded_at`

func (r *MediaRepo) Create(ctx context.Context, m *domain.Media) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO media (`+mediaColumns+`)
		VALUES (@id, @capsule_id, @filename, @file_path, @file_type, @content_type, @size, @uploaded_at)`,
		pgx.NamedArgs{
			"id":           m.ID,
			"capsule_id":   m.CapsuleID,
			"filename":     m.Filename,
			"file_path":    m.FilePath,
			"file_type":    m.FileType,
			"content_type": m.ContentType,
			"size":         m.Size,
			"uploaded_at":  m.UploadedAt,
		})
	if err != nil {
		return fmt.Errorf("insert media: %w", err)
	}
	return nil
}

func (r *MediaRepo) Get(ctx context.Context, mediaID string) (*domain.Media, error) {
	row := r.db.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, mediaID)
	m, err := scanMedia(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("media not found: %w", domain.ErrNotFound)
	}
	return m, err
}

// ListByCapsule returns media in upload order.
func (r *MediaRepo) ListByCapsule(ctx context.Context, capsuleID string) ([]domain.Media, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE capsule_id = $1 ORDER BY uploaded_at ASC, id ASC`, capsuleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *MediaRepo) Delete(ctx context.Context, mediaID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM media WHERE id = $1`, mediaID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("media not found: %w", domain.ErrNotFound)
	}
	return nil
}

func scanMedia(row pgx.Row) (*domain.Media, error) {
	var m domain.Media
	if err := row.Scan(&m.ID, &m.CapsuleID, &m.Filename, &m.FilePath, &m.FileType,
		&m.ContentType, &m.Size, &m.UploadedAt); err != nil {
		return nil, err
	}
	m.UploadedAt = m.UploadedAt.UTC()
	return &m, nil
}
