package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/quietlocations/backend/internal/domain"
)

// ReportRepo defines the persistence operations for the append-only
// occupancy report ledger. Reports are never updated.
type ReportRepo interface {
	// Create appends a report and returns it with id and created_at assigned.
	Create(ctx context.Context, r domain.OccupancyReport) (domain.OccupancyReport, error)

	// Latest returns the newest report for a location, ordered by
	// (created_at, seq), together with the number of reports created at or
	// after since. The report is nil when the location has none.
	Latest(ctx context.Context, locationID string, since time.Time) (*domain.OccupancyReport, int, error)

	// LatestByReporter returns the newest report a user filed for a location.
	// Returns domain.ErrNotFound if the user never reported it.
	LatestByReporter(ctx context.Context, locationID, reporterID string) (domain.OccupancyReport, error)

	// ListByLocation returns one page of a location's reports, newest first,
	// and the total number of reports for the location.
	ListByLocation(ctx context.Context, locationID string, p domain.PaginationParams) ([]domain.OccupancyReport, int64, error)
}

// pgReportRepo is the Postgres implementation of ReportRepo.
type pgReportRepo struct {
	db db
}

// NewReportRepo constructs a ReportRepo backed by the provided db connection.
func NewReportRepo(db db) ReportRepo {
	return &pgReportRepo{db: db}
}

const reportColumns = `r.id, r.location_id, r.reporter_id, r.occupancy_level, r.lat, r.lng, r.device_type, r.created_at`

func (r *pgReportRepo) Create(ctx context.Context, rep domain.OccupancyReport) (domain.OccupancyReport, error) {
	const q = `
		INSERT INTO occupancy_reports AS r (location_id, reporter_id, occupancy_level, lat, lng, device_type)
		VALUES (@location_id, @reporter_id, @level, @lat, @lng, @device_type)
		RETURNING ` + reportColumns

	args := pgx.NamedArgs{
		"location_id": rep.LocationID,
		"reporter_id": rep.ReporterID,
		"level":       int(rep.Level),
		"lat":         rep.Latitude,
		"lng":         rep.Longitude,
		"device_type": rep.DeviceType,
	}
	result, err := scanReport(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.OccupancyReport{}, fmt.Errorf("repo.ReportRepo.Create: %w", err)
	}
	return result, nil
}

// Latest reads the newest report and the window count in one statement so
// both come from the same snapshot.
func (r *pgReportRepo) Latest(ctx context.Context, locationID string, since time.Time) (*domain.OccupancyReport, int, error) {
	const q = `
		SELECT ` + reportColumns + `,
		       (SELECT COUNT(*) FROM occupancy_reports c
		        WHERE c.location_id = @location_id AND c.created_at >= @since)
		FROM occupancy_reports r
		WHERE r.location_id = @location_id
		ORDER BY r.created_at DESC, r.seq DESC
		LIMIT 1`

	var (
		rep   domain.OccupancyReport
		id    pgtype.UUID
		level int
		count int
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"location_id": locationID, "since": since}).Scan(
		&id, &rep.LocationID, &rep.ReporterID, &level, &rep.Latitude, &rep.Longitude, &rep.DeviceType, &rep.CreatedAt, &count,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ReportRepo.Latest: %w", err)
	}
	rep.ID = uuid.UUID(id.Bytes)
	rep.Level = domain.OccupancyLevel(level)
	return &rep, count, nil
}

func (r *pgReportRepo) LatestByReporter(ctx context.Context, locationID, reporterID string) (domain.OccupancyReport, error) {
	const q = `
		SELECT ` + reportColumns + `
		FROM occupancy_reports r
		WHERE r.location_id = @location_id AND r.reporter_id = @reporter_id
		ORDER BY r.created_at DESC, r.seq DESC
		LIMIT 1`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"location_id": locationID, "reporter_id": reporterID})
	result, err := scanReport(row)
	if err != nil {
		return domain.OccupancyReport{}, fmt.Errorf("repo.ReportRepo.LatestByReporter: %w", err)
	}
	return result, nil
}

func (r *pgReportRepo) ListByLocation(ctx context.Context, locationID string, p domain.PaginationParams) ([]domain.OccupancyReport, int64, error) {
	const countQ = `SELECT COUNT(*) FROM occupancy_reports WHERE location_id = @location_id`
	const q = `
		SELECT ` + reportColumns + `
		FROM occupancy_reports r
		WHERE r.location_id = @location_id
		ORDER BY r.created_at DESC, r.seq DESC
		LIMIT @limit OFFSET @offset`

	var total int64
	if err := r.db.QueryRow(ctx, countQ, pgx.NamedArgs{"location_id": locationID}).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.ReportRepo.ListByLocation: count: %w", err)
	}

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"location_id": locationID,
		"limit":       p.Limit,
		"offset":      p.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ReportRepo.ListByLocation: %w", err)
	}
	defer rows.Close()

	reports := []domain.OccupancyReport{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.ReportRepo.ListByLocation: scan: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.ReportRepo.ListByLocation: rows: %w", err)
	}
	return reports, total, nil
}

func scanReport(s scanner) (domain.OccupancyReport, error) {
	var (
		rep   domain.OccupancyReport
		id    pgtype.UUID
		level int
	)
	err := s.Scan(&id, &rep.LocationID, &rep.ReporterID, &level, &rep.Latitude, &rep.Longitude, &rep.DeviceType, &rep.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OccupancyReport{}, domain.ErrNotFound
		}
		return domain.OccupancyReport{}, err
	}
	rep.ID = uuid.UUID(id.Bytes)
	rep.Level = domain.OccupancyLevel(level)
	return rep, nil
}
