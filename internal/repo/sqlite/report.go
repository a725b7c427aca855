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

type reportRepo struct {
	db  conn
	now func() time.Time
}

const (
	reportColumns   = `r.id, r.location_id, r.reporter_id, r.occupancy_level, r.lat, r.lng, r.device_type, r.created_at`
	returningReport = `id, location_id, reporter_id, occupancy_level, lat, lng, device_type, created_at`
)

func (r *reportRepo) Create(ctx context.Context, rep domain.OccupancyReport) (domain.OccupancyReport, error) {
	const q = `
		INSERT INTO occupancy_reports (id, location_id, reporter_id, occupancy_level, lat, lng, device_type, created_at)
		VALUES (@id, @location_id, @reporter_id, @level, @lat, @lng, @device_type, @now)
		RETURNING ` + returningReport

	row := r.db.QueryRowContext(ctx, q,
		sql.Named("id", uuid.NewString()),
		sql.Named("location_id", rep.LocationID),
		sql.Named("reporter_id", rep.ReporterID),
		sql.Named("level", int(rep.Level)),
		sql.Named("lat", rep.Latitude),
		sql.Named("lng", rep.Longitude),
		sql.Named("device_type", rep.DeviceType),
		sql.Named("now", formatTime(r.now())),
	)
	result, err := scanReport(row)
	if err != nil {
		return domain.OccupancyReport{}, fmt.Errorf("sqlite.ReportRepo.Create: %w", err)
	}
	return result, nil
}

func (r *reportRepo) Latest(ctx context.Context, locationID string, since time.Time) (*domain.OccupancyReport, int, error) {
	const q = `
		SELECT ` + reportColumns + `,
		       (SELECT COUNT(*) FROM occupancy_reports c
		        WHERE c.location_id = @location_id AND c.created_at >= @since)
		FROM occupancy_reports r
		WHERE r.location_id = @location_id
		ORDER BY r.created_at DESC, r.seq DESC
		LIMIT 1`

	var count int
	row := r.db.QueryRowContext(ctx, q, sql.Named("location_id", locationID), sql.Named("since", formatTime(since)))
	rep, err := scanReport(row, &count)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite.ReportRepo.Latest: %w", err)
	}
	return &rep, count, nil
}

func (r *reportRepo) LatestByReporter(ctx context.Context, locationID, reporterID string) (domain.OccupancyReport, error) {
	const q = `
		SELECT ` + reportColumns + `
		FROM occupancy_reports r
		WHERE r.location_id = @location_id AND r.reporter_id = @reporter_id
		ORDER BY r.created_at DESC, r.seq DESC
		LIMIT 1`

	rep, err := scanReport(r.db.QueryRowContext(ctx, q,
		sql.Named("location_id", locationID), sql.Named("reporter_id", reporterID)))
	if err != nil {
		return domain.OccupancyReport{}, fmt.Errorf("sqlite.ReportRepo.LatestByReporter: %w", err)
	}
	return rep, nil
}

func (r *reportRepo) ListByLocation(ctx context.Context, locationID string, p domain.PaginationParams) ([]domain.OccupancyReport, int64, error) {
	const countQ = `SELECT COUNT(*) FROM occupancy_reports WHERE location_id = @location_id`
	const q = `
		SELECT ` + reportColumns + `
		FROM occupancy_reports r
		WHERE r.location_id = @location_id
		ORDER BY r.created_at DESC, r.seq DESC
		LIMIT @limit OFFSET @offset`

	var total int64
	if err := r.db.QueryRowContext(ctx, countQ, sql.Named("location_id", locationID)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite.ReportRepo.ListByLocation: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, q,
		sql.Named("location_id", locationID),
		sql.Named("limit", p.Limit),
		sql.Named("offset", p.Offset()),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite.ReportRepo.ListByLocation: %w", err)
	}
	defer rows.Close()

	reports := []domain.OccupancyReport{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite.ReportRepo.ListByLocation: scan: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite.ReportRepo.ListByLocation: rows: %w", err)
	}
	return reports, total, nil
}

// scanReport maps the report columns; extra receives any trailing columns.
func scanReport(s rowScanner, extra ...any) (domain.OccupancyReport, error) {
	var (
		rep           domain.OccupancyReport
		id, createdAt string
		level         int
	)
	dest := append([]any{&id, &rep.LocationID, &rep.ReporterID, &level, &rep.Latitude, &rep.Longitude, &rep.DeviceType, &createdAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OccupancyReport{}, domain.ErrNotFound
		}
		return domain.OccupancyReport{}, err
	}
	var err error
	if rep.ID, err = uuid.Parse(id); err != nil {
		return domain.OccupancyReport{}, err
	}
	if rep.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.OccupancyReport{}, err
	}
	rep.Level = domain.OccupancyLevel(level)
	return rep, nil
}
