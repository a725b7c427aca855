package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/quietlocations/backend/internal/domain"
)

// TagRepo defines the persistence operations for Tags and the location_tags join table.
type TagRepo interface {
	// Upsert inserts a tag by name, or returns the existing tag if the name
	// is already taken. Concurrent callers with the same name get the same row.
	Upsert(ctx context.Context, name string) (domain.Tag, error)

	// Link associates a tag with a location. Idempotent: no error if already linked.
	Link(ctx context.Context, locationID string, tagID uuid.UUID) error

	// List returns tags whose name starts with prefix, ordered by name, each
	// with the number of locations using it. Empty prefix returns all tags.
	List(ctx context.Context, prefix string) ([]domain.Tag, error)
}

// pgTagRepo is the Postgres implementation of TagRepo.
type pgTagRepo struct {
	db db
}

// NewTagRepo constructs a TagRepo backed by the provided db connection.
func NewTagRepo(db db) TagRepo {
	return &pgTagRepo{db: db}
}

// Upsert inserts a tag or returns the existing row on name conflict.
// The DO UPDATE SET makes RETURNING fire on conflict too; DO NOTHING would
// return no row.
func (r *pgTagRepo) Upsert(ctx context.Context, name string) (domain.Tag, error) {
	const q = `
		INSERT INTO tags (name)
		VALUES (@name)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"name": name})
	result, err := scanTag(row)
	if err != nil {
		return domain.Tag{}, fmt.Errorf("repo.TagRepo.Upsert: %w", err)
	}
	return result, nil
}

// Link inserts the edge with ON CONFLICT DO NOTHING.
func (r *pgTagRepo) Link(ctx context.Context, locationID string, tagID uuid.UUID) error {
	const q = `
		INSERT INTO location_tags (location_id, tag_id)
		VALUES (@location_id, @tag_id)
		ON CONFLICT (location_id, tag_id) DO NOTHING`

	_, err := r.db.Exec(ctx, q, pgx.NamedArgs{"location_id": locationID, "tag_id": tagID})
	if err != nil {
		return fmt.Errorf("repo.TagRepo.Link: %w", err)
	}
	return nil
}

func (r *pgTagRepo) List(ctx context.Context, prefix string) ([]domain.Tag, error) {
	const q = `
		SELECT t.id, t.name, t.created_at, COUNT(lt.location_id)
		FROM tags t
		LEFT JOIN location_tags lt ON lt.tag_id = t.id
		WHERE starts_with(t.name, @prefix)
		GROUP BY t.id
		ORDER BY t.name COLLATE "C"`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"prefix": prefix})
	if err != nil {
		return nil, fmt.Errorf("repo.TagRepo.List: %w", err)
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		var (
			tag domain.Tag
			id  pgtype.UUID
		)
		if err := rows.Scan(&id, &tag.Name, &tag.CreatedAt, &tag.Locations); err != nil {
			return nil, fmt.Errorf("repo.TagRepo.List: scan: %w", err)
		}
		tag.ID = uuid.UUID(id.Bytes)
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TagRepo.List: rows: %w", err)
	}
	return tags, nil
}

// scanTag maps a single database row into a domain.Tag.
func scanTag(s scanner) (domain.Tag, error) {
	var (
		t  domain.Tag
		id pgtype.UUID
	)
	err := s.Scan(&id, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Tag{}, domain.ErrNotFound
		}
		return domain.Tag{}, err
	}
	t.ID = uuid.UUID(id.Bytes)
	return t, nil
}
