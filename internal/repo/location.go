package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/quietlocations/backend/internal/domain"
)

// LocationRepo defines the persistence operations for Locations.
// Tag links live in TagRepo; reads here resolve them to sorted names.
type LocationRepo interface {
	// Create inserts the location row (tags are linked separately) and returns
	// it with timestamps populated. A taken id yields domain.ErrConflict.
	Create(ctx context.Context, loc domain.Location) (domain.Location, error)

	// GetByID returns a location with its tag names.
	// Returns domain.ErrNotFound if no location with that id exists.
	GetByID(ctx context.Context, id string) (domain.Location, error)

	// List returns locations ordered by name then id. When tags is non-empty
	// only locations linked to every one of them are returned.
	List(ctx context.Context, tags []string) ([]domain.Location, error)

	// Update overwrites the scalar fields of an existing location.
	// Returns domain.ErrNotFound if it does not exist.
	Update(ctx context.Context, loc domain.Location) (domain.Location, error)

	// Delete removes a location; its tag links and reports cascade.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error

	// ClearTags removes every tag link of a location. Tag rows are kept.
	ClearTags(ctx context.Context, id string) error
}

// pgLocationRepo is the Postgres implementation of LocationRepo.
type pgLocationRepo struct {
	db db
}

// NewLocationRepo constructs a LocationRepo backed by the provided db connection.
func NewLocationRepo(db db) LocationRepo {
	return &pgLocationRepo{db: db}
}

const locationColumns = `l.id, l.name, l.lat, l.lng, l.address, l.description, l.created_at, l.updated_at`

// locationSelect aggregates tag names so a single query yields complete records.
const locationSelect = `
	SELECT ` + locationColumns + `,
	       COALESCE(array_agg(t.name ORDER BY t.name COLLATE "C") FILTER (WHERE t.name IS NOT NULL), '{}') AS tags
	FROM locations l
	LEFT JOIN location_tags lt ON lt.location_id = l.id
	LEFT JOIN tags t ON t.id = lt.tag_id`

func (r *pgLocationRepo) Create(ctx context.Context, loc domain.Location) (domain.Location, error) {
	const q = `
		INSERT INTO locations AS l (id, name, lat, lng, address, description)
		VALUES (@id, @name, @lat, @lng, @address, @description)
		RETURNING ` + locationColumns

	row := r.db.QueryRow(ctx, q, locationArgs(loc))
	result, err := scanLocation(row, false)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Location{}, fmt.Errorf("repo.LocationRepo.Create: location %q: %w", loc.ID, domain.ErrConflict)
		}
		return domain.Location{}, fmt.Errorf("repo.LocationRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgLocationRepo) GetByID(ctx context.Context, id string) (domain.Location, error) {
	const q = locationSelect + `
		WHERE l.id = @id
		GROUP BY l.id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanLocation(row, true)
	if err != nil {
		return domain.Location{}, fmt.Errorf("repo.LocationRepo.GetByID: %w", err)
	}
	return result, nil
}

// List applies the tag filter with relational division: a location qualifies
// when the number of distinct matching tag names equals the number requested.
// Callers must pass de-duplicated names.
func (r *pgLocationRepo) List(ctx context.Context, tags []string) ([]domain.Location, error) {
	const q = locationSelect + `
		WHERE cardinality(@tags::text[]) = 0
		   OR l.id IN (
		       SELECT flt.location_id
		       FROM location_tags flt
		       JOIN tags ft ON ft.id = flt.tag_id
		       WHERE ft.name = ANY(@tags::text[])
		       GROUP BY flt.location_id
		       HAVING COUNT(DISTINCT ft.name) = cardinality(@tags::text[]))
		GROUP BY l.id
		ORDER BY l.name COLLATE "C", l.id COLLATE "C"`

	if tags == nil {
		tags = []string{}
	}
	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"tags": tags})
	if err != nil {
		return nil, fmt.Errorf("repo.LocationRepo.List: %w", err)
	}
	defer rows.Close()

	locations := []domain.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows, true)
		if err != nil {
			return nil, fmt.Errorf("repo.LocationRepo.List: scan: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.LocationRepo.List: rows: %w", err)
	}
	return locations, nil
}

func (r *pgLocationRepo) Update(ctx context.Context, loc domain.Location) (domain.Location, error) {
	const q = `
		UPDATE locations AS l
		SET name        = @name,
		    lat         = @lat,
		    lng         = @lng,
		    address     = @address,
		    description = @description,
		    updated_at  = now()
		WHERE l.id = @id
		RETURNING ` + locationColumns

	row := r.db.QueryRow(ctx, q, locationArgs(loc))
	result, err := scanLocation(row, false)
	if err != nil {
		return domain.Location{}, fmt.Errorf("repo.LocationRepo.Update: %w", err)
	}
	return result, nil
}

func (r *pgLocationRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM locations WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if isForeignKeyViolation(err) {
		return fmt.Errorf("repo.LocationRepo.Delete: location %q: %w", id, domain.ErrLocationInUse)
	}
	if err != nil {
		return fmt.Errorf("repo.LocationRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.LocationRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgLocationRepo) ClearTags(ctx context.Context, id string) error {
	const q = `DELETE FROM location_tags WHERE location_id = @id`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id}); err != nil {
		return fmt.Errorf("repo.LocationRepo.ClearTags: %w", err)
	}
	return nil
}

func locationArgs(loc domain.Location) pgx.NamedArgs {
	return pgx.NamedArgs{
		"id":          loc.ID,
		"name":        loc.Name,
		"lat":         loc.Latitude,
		"lng":         loc.Longitude,
		"address":     loc.Address,
		"description": loc.Description,
	}
}

// scanLocation maps a row into a domain.Location. withTags is set when the
// query carries the aggregated tag column.
func scanLocation(s scanner, withTags bool) (domain.Location, error) {
	var l domain.Location
	dest := []any{&l.ID, &l.Name, &l.Latitude, &l.Longitude, &l.Address, &l.Description, &l.CreatedAt, &l.UpdatedAt}
	if withTags {
		dest = append(dest, &l.Tags)
	}
	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Location{}, domain.ErrNotFound
		}
		return domain.Location{}, err
	}
	if l.Tags == nil {
		l.Tags = []string{}
	}
	return l, nil
}
