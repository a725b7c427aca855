package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/quietlocations/backend/internal/domain"
)

type tagRepo struct {
	db  conn
	now func() time.Time
}

// Upsert relies on the UNIQUE(name) constraint; the no-op DO UPDATE makes
// RETURNING yield the surviving row when another writer got there first.
func (r *tagRepo) Upsert(ctx context.Context, name string) (domain.Tag, error) {
	const q = `
		INSERT INTO tags (id, name, created_at)
		VALUES (@id, @name, @now)
		ON CONFLICT (name) DO UPDATE SET name = excluded.name
		RETURNING id, name, created_at`

	row := r.db.QueryRowContext(ctx, q,
		sql.Named("id", uuid.NewString()),
		sql.Named("name", name),
		sql.Named("now", formatTime(r.now())),
	)
	tag, err := scanTag(row)
	if err != nil {
		return domain.Tag{}, fmt.Errorf("sqlite.TagRepo.Upsert: %w", err)
	}
	return tag, nil
}

func (r *tagRepo) Link(ctx context.Context, locationID string, tagID uuid.UUID) error {
	const q = `
		INSERT INTO location_tags (location_id, tag_id)
		VALUES (@location_id, @tag_id)
		ON CONFLICT (location_id, tag_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, q, sql.Named("location_id", locationID), sql.Named("tag_id", tagID.String()))
	if err != nil {
		return fmt.Errorf("sqlite.TagRepo.Link: %w", err)
	}
	return nil
}

func (r *tagRepo) List(ctx context.Context, prefix string) ([]domain.Tag, error) {
	const q = `
		SELECT t.id, t.name, t.created_at, COUNT(lt.location_id)
		FROM tags t
		LEFT JOIN location_tags lt ON lt.tag_id = t.id
		WHERE substr(t.name, 1, length(@prefix)) = @prefix
		GROUP BY t.id
		ORDER BY t.name`

	rows, err := r.db.QueryContext(ctx, q, sql.Named("prefix", prefix))
	if err != nil {
		return nil, fmt.Errorf("sqlite.TagRepo.List: %w", err)
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		var (
			id, createdAt string
			tag           domain.Tag
		)
		if err := rows.Scan(&id, &tag.Name, &createdAt, &tag.Locations); err != nil {
			return nil, fmt.Errorf("sqlite.TagRepo.List: scan: %w", err)
		}
		if tag.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("sqlite.TagRepo.List: %w", err)
		}
		if tag.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("sqlite.TagRepo.List: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite.TagRepo.List: rows: %w", err)
	}
	return tags, nil
}

func scanTag(s rowScanner) (domain.Tag, error) {
	var (
		t             domain.Tag
		id, createdAt string
	)
	if err := s.Scan(&id, &t.Name, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Tag{}, domain.ErrNotFound
		}
		return domain.Tag{}, err
	}
	var err error
	if t.ID, err = uuid.Parse(id); err != nil {
		return domain.Tag{}, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Tag{}, err
	}
	return t, nil
}
