package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/pkordes/quietlocations/backend/internal/domain"
)

type locationRepo struct {
	db  conn
	now func() time.Time
}

const locationColumns = `l.id, l.name, l.lat, l.lng, l.address, l.description, l.created_at, l.updated_at`

// returningLocation lists the same columns unqualified; RETURNING may only
// name columns of the table being written.
const returningLocation = `id, name, lat, lng, address, description, created_at, updated_at`

// locationSelect resolves tag names with a correlated json_group_array; the
// aggregate always yields a row, "[]" for an untagged location.
const locationSelect = `
	SELECT ` + locationColumns + `,
	       (SELECT json_group_array(t.name)
	        FROM location_tags lt
	        JOIN tags t ON t.id = lt.tag_id
	        WHERE lt.location_id = l.id) AS tags
	FROM locations l`

func (r *locationRepo) Create(ctx context.Context, loc domain.Location) (domain.Location, error) {
	const q = `
		INSERT INTO locations (id, name, lat, lng, address, description, created_at, updated_at)
		VALUES (@id, @name, @lat, @lng, @address, @description, @now, @now)
		RETURNING ` + returningLocation

	row := r.db.QueryRowContext(ctx, q, locationArgs(loc, r.now())...)
	result, err := scanLocation(row, false)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Location{}, fmt.Errorf("sqlite.LocationRepo.Create: location %q: %w", loc.ID, domain.ErrConflict)
		}
		return domain.Location{}, fmt.Errorf("sqlite.LocationRepo.Create: %w", err)
	}
	return result, nil
}

func (r *locationRepo) GetByID(ctx context.Context, id string) (domain.Location, error) {
	const q = locationSelect + ` WHERE l.id = @id`

	result, err := scanLocation(r.db.QueryRowContext(ctx, q, sql.Named("id", id)), true)
	if err != nil {
		return domain.Location{}, fmt.Errorf("sqlite.LocationRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *locationRepo) List(ctx context.Context, tags []string) ([]domain.Location, error) {
	const q = locationSelect + `
		WHERE @tag_count = 0
		   OR l.id IN (
		       SELECT flt.location_id
		       FROM location_tags flt
		       JOIN tags ft ON ft.id = flt.tag_id
		       WHERE ft.name IN (SELECT value FROM json_each(@tags))
		       GROUP BY flt.location_id
		       HAVING COUNT(DISTINCT ft.name) = @tag_count)
		ORDER BY l.name, l.id`

	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("sqlite.LocationRepo.List: encode tags: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, q, sql.Named("tags", string(encoded)), sql.Named("tag_count", len(tags)))
	if err != nil {
		return nil, fmt.Errorf("sqlite.LocationRepo.List: %w", err)
	}
	defer rows.Close()

	locations := []domain.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows, true)
		if err != nil {
			return nil, fmt.Errorf("sqlite.LocationRepo.List: scan: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite.LocationRepo.List: rows: %w", err)
	}
	return locations, nil
}

func (r *locationRepo) Update(ctx context.Context, loc domain.Location) (domain.Location, error) {
	const q = `
		UPDATE locations
		SET name        = @name,
		    lat         = @lat,
		    lng         = @lng,
		    address     = @address,
		    description = @description,
		    updated_at  = @now
		WHERE id = @id
		RETURNING ` + returningLocation

	result, err := scanLocation(r.db.QueryRowContext(ctx, q, locationArgs(loc, r.now())...), false)
	if err != nil {
		return domain.Location{}, fmt.Errorf("sqlite.LocationRepo.Update: %w", err)
	}
	return result, nil
}

func (r *locationRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM locations WHERE id = @id`, sql.Named("id", id))
	if isForeignKeyViolation(err) {
		return fmt.Errorf("sqlite.LocationRepo.Delete: location %q: %w", id, domain.ErrLocationInUse)
	}
	if err != nil {
		return fmt.Errorf("sqlite.LocationRepo.Delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite.LocationRepo.Delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("sqlite.LocationRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *locationRepo) ClearTags(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM location_tags WHERE location_id = @id`, sql.Named("id", id)); err != nil {
		return fmt.Errorf("sqlite.LocationRepo.ClearTags: %w", err)
	}
	return nil
}

func locationArgs(loc domain.Location, now time.Time) []any {
	return []any{
		sql.Named("id", loc.ID),
		sql.Named("name", loc.Name),
		sql.Named("lat", loc.Latitude),
		sql.Named("lng", loc.Longitude),
		sql.Named("address", loc.Address),
		sql.Named("description", loc.Description),
		sql.Named("now", formatTime(now)),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(s rowScanner, withTags bool) (domain.Location, error) {
	var (
		l                    domain.Location
		createdAt, updatedAt string
		tags                 string
	)
	dest := []any{&l.ID, &l.Name, &l.Latitude, &l.Longitude, &l.Address, &l.Description, &createdAt, &updatedAt}
	if withTags {
		dest = append(dest, &tags)
	}
	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Location{}, domain.ErrNotFound
		}
		return domain.Location{}, err
	}

	var err error
	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Location{}, err
	}
	if l.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Location{}, err
	}

	l.Tags = []string{}
	if withTags && tags != "" {
		if err := json.Unmarshal([]byte(tags), &l.Tags); err != nil {
			return domain.Location{}, fmt.Errorf("decode tags: %w", err)
		}
		sort.Strings(l.Tags)
	}
	return l, nil
}
