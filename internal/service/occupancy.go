package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkordes/quietlocations/backend/internal/domain"
	"github.com/pkordes/quietlocations/backend/internal/geo"
	"github.com/pkordes/quietlocations/backend/internal/repo"
	"github.com/pkordes/quietlocations/backend/internal/validation"
)

// ConsentChecker reports whether a user agreed to contribute reports.
// Consent records live with the account system.
type ConsentChecker interface {
	HasReportingConsent(ctx context.Context, userID string) (bool, error)
}

// StaticConsent answers every consent query with the same value.
// It stands in until the account system exposes per-user consent.
type StaticConsent bool

// HasReportingConsent implements ConsentChecker.
func (c StaticConsent) HasReportingConsent(context.Context, string) (bool, error) {
	return bool(c), nil
}

// OccupancyConfig holds the tunables of the report ledger.
type OccupancyConfig struct {
	// MaxDistanceKm is the proximity radius, inclusive.
	MaxDistanceKm float64
	// Window is how far back reports count as recent.
	Window time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// OccupancyService accepts proximity-gated reports and derives the current
// occupancy of each location from them.
type OccupancyService struct {
	store   repo.Store
	consent ConsentChecker
	maxKm   float64
	window  time.Duration
	now     func() time.Time
}

// NewOccupancyService constructs an OccupancyService.
func NewOccupancyService(store repo.Store, consent ConsentChecker, cfg OccupancyConfig) *OccupancyService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &OccupancyService{
		store:   store,
		consent: consent,
		maxKm:   cfg.MaxDistanceKm,
		window:  cfg.Window,
		now:     now,
	}
}

// Submission is an accepted report and the reporter's updated score.
type Submission struct {
	Report          domain.OccupancyReport
	ReputationScore int
	// DistanceKm is how far the device was from the location.
	DistanceKm float64
}

const maxDeviceTypeLength = 50

// SubmitReport runs the admission checks in a fixed order and reports the
// first failure: identity, location, level, coordinates, proximity, consent.
// On success the report and the reporter's +1 reputation commit together.
func (s *OccupancyService) SubmitReport(ctx context.Context, id *domain.Identity, in domain.ReportInput) (Submission, error) {
	if id == nil || id.UserID == "" {
		return Submission{}, &domain.AuthError{
			Reason:  domain.AuthMissingOrMalformed,
			Message: "Authentication required. Please log in.",
		}
	}

	loc, err := s.store.Repos().Locations.GetByID(ctx, in.LocationID)
	if err != nil {
		return Submission{}, fmt.Errorf("service.OccupancyService.SubmitReport: %w", err)
	}

	level, err := parseLevel(in.Level)
	if err != nil {
		return Submission{}, fmt.Errorf("service.OccupancyService.SubmitReport: %w", err)
	}

	if in.Latitude == nil || in.Longitude == nil {
		return Submission{}, fmt.Errorf("service.OccupancyService.SubmitReport: %w: location verification required", domain.ErrValidation)
	}
	if err := validation.Var("latitude", *in.Latitude, "gte=-90,lte=90"); err != nil {
		return Submission{}, fmt.Errorf("service.OccupancyService.SubmitReport: %w", err)
	}
	if err := validation.Var("longitude", *in.Longitude, "gte=-180,lte=180"); err != nil {
		return Submission{}, fmt.Errorf("service.OccupancyService.SubmitReport: %w", err)
	}

	device := geo.Point{Lat: *in.Latitude, Lng: *in.Longitude}
	verdict := geo.CheckProximity(device, geo.Point{Lat: loc.Latitude, Lng: loc.Longitude}, s.maxKm)
	if !verdict.Admitted {
		return Submission{}, fmt.Errorf("service.OccupancyService.SubmitReport: %w",
			&domain.ProximityError{DistanceKm: verdict.DistanceKm, MaxKm: verdict.MaxKm})
	}

	ok, err := s.consent.HasReportingConsent(ctx, id.UserID)
	if err != nil {
		return Submission{}, fmt.Errorf("service.OccupancyService.SubmitReport: consent: %w", err)
	}
	if !ok {
		return Submission{}, fmt.Errorf("service.OccupancyService.SubmitReport: %w", domain.ErrPermission)
	}

	deviceType := strings.TrimSpace(in.DeviceType)
	if deviceType == "" {
		deviceType = domain.DefaultDeviceType
	}
	if err := validation.Var("device_type", deviceType, fmt.Sprintf("max=%d", maxDeviceTypeLength)); err != nil {
		return Submission{}, fmt.Errorf("service.OccupancyService.SubmitReport: %w", err)
	}

	var sub Submission
	err = s.store.InTx(ctx, func(r repo.Repos) error {
		rep, err := r.Reports.Create(ctx, domain.OccupancyReport{
			LocationID: loc.ID,
			ReporterID: id.UserID,
			Level:      level,
			Latitude:   device.Lat,
			Longitude:  device.Lng,
			DeviceType: deviceType,
		})
		if err != nil {
			return err
		}
		score, err := r.Reputation.Increment(ctx, id.UserID, id.Email, 1)
		if err != nil {
			return err
		}
		sub = Submission{Report: rep, ReputationScore: score, DistanceKm: verdict.DistanceKm}
		return nil
	})
	if err != nil {
		return Submission{}, fmt.Errorf("service.OccupancyService.SubmitReport: %w", err)
	}
	return sub, nil
}

func parseLevel(v *float64) (domain.OccupancyLevel, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: occupancy_level is required", domain.ErrValidation)
	}
	level := domain.OccupancyLevel(*v)
	if *v != math.Trunc(*v) || !level.Valid() {
		return 0, fmt.Errorf("%w: occupancy_level must be an integer between 1 and 5", domain.ErrValidation)
	}
	return level, nil
}

// Current returns the occupancy summary of a location. The newest report
// wins; RecentReports counts reports inside the configured window.
func (s *OccupancyService) Current(ctx context.Context, locationID string) (domain.CurrentOccupancy, error) {
	r := s.store.Repos()
	if _, err := r.Locations.GetByID(ctx, locationID); err != nil {
		return domain.CurrentOccupancy{}, fmt.Errorf("service.OccupancyService.Current: %w", err)
	}

	now := s.now()
	latest, recent, err := r.Reports.Latest(ctx, locationID, now.Add(-s.window))
	if err != nil {
		return domain.CurrentOccupancy{}, fmt.Errorf("service.OccupancyService.Current: %w", err)
	}
	return domain.CurrentOccupancy{
		LocationID:    locationID,
		Latest:        latest,
		RecentReports: recent,
		Window:        s.window,
		Stale:         latest != nil && now.Sub(latest.CreatedAt) > s.window,
	}, nil
}

// History returns one page of a location's reports, newest first.
func (s *OccupancyService) History(ctx context.Context, locationID string, p domain.PaginationParams) (domain.Page[domain.OccupancyReport], error) {
	r := s.store.Repos()
	if _, err := r.Locations.GetByID(ctx, locationID); err != nil {
		return domain.Page[domain.OccupancyReport]{}, fmt.Errorf("service.OccupancyService.History: %w", err)
	}
	items, total, err := r.Reports.ListByLocation(ctx, locationID, p)
	if err != nil {
		return domain.Page[domain.OccupancyReport]{}, fmt.Errorf("service.OccupancyService.History: %w", err)
	}
	return domain.Page[domain.OccupancyReport]{Items: items, Total: total, Params: p}, nil
}

// LastByReporter returns the caller's own newest report for a location, or
// nil when they have never reported it.
func (s *OccupancyService) LastByReporter(ctx context.Context, locationID, userID string) (*domain.OccupancyReport, error) {
	rep, err := s.store.Repos().Reports.LatestByReporter(ctx, locationID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service.OccupancyService.LastByReporter: %w", err)
	}
	return &rep, nil
}

// Reputation returns the user's score; users who never reported have 0.
func (s *OccupancyService) Reputation(ctx context.Context, userID string) (int, error) {
	score, err := s.store.Repos().Reputation.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("service.OccupancyService.Reputation: %w", err)
	}
	return score, nil
}
