package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pkordes/quietlocations/backend/internal/domain"
	"github.com/pkordes/quietlocations/backend/internal/repo"
	"github.com/pkordes/quietlocations/backend/internal/validation"
)

// CatalogService maintains the location catalog. Every write, including the
// tag normalization it triggers, runs in one transaction.
type CatalogService struct {
	store repo.Store
}

// NewCatalogService constructs a CatalogService backed by the provided Store.
func NewCatalogService(store repo.Store) *CatalogService {
	return &CatalogService{store: store}
}

// locationRules carries the validation tags for a location's scalar fields.
type locationRules struct {
	ID          string  `json:"id" validate:"required,max=200"`
	Name        string  `json:"name" validate:"required,max=200"`
	Latitude    float64 `json:"lat" validate:"gte=-90,lte=90"`
	Longitude   float64 `json:"lng" validate:"gte=-180,lte=180"`
	Address     string  `json:"address" validate:"max=500"`
	Description string  `json:"description" validate:"max=2000"`
}

func validateLocation(loc domain.Location) error {
	return validation.Struct(locationRules{
		ID:          loc.ID,
		Name:        loc.Name,
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		Address:     loc.Address,
		Description: loc.Description,
	})
}

// Create validates and persists a new location with its tags.
// A taken id is a domain.ErrConflict; the existing record is left untouched.
func (s *CatalogService) Create(ctx context.Context, loc domain.Location) (domain.Location, error) {
	loc.ID = strings.TrimSpace(loc.ID)
	loc.Name = strings.TrimSpace(loc.Name)
	if err := validateLocation(loc); err != nil {
		return domain.Location{}, fmt.Errorf("service.CatalogService.Create: %w", err)
	}
	tags, err := NormalizeNames(loc.Tags)
	if err != nil {
		return domain.Location{}, fmt.Errorf("service.CatalogService.Create: %w", err)
	}
	loc.Tags = tags

	var created domain.Location
	err = s.store.InTx(ctx, func(r repo.Repos) error {
		var err error
		created, err = createLocation(ctx, r, loc)
		return err
	})
	if err != nil {
		return domain.Location{}, fmt.Errorf("service.CatalogService.Create: %w", err)
	}
	return created, nil
}

// createLocation inserts loc and links its already-normalized tags on r.
func createLocation(ctx context.Context, r repo.Repos, loc domain.Location) (domain.Location, error) {
	if _, err := r.Locations.Create(ctx, loc); err != nil {
		return domain.Location{}, err
	}
	if err := replaceTags(ctx, r, loc.ID, loc.Tags); err != nil {
		return domain.Location{}, err
	}
	return r.Locations.GetByID(ctx, loc.ID)
}

func replaceTags(ctx context.Context, r repo.Repos, locationID string, names []string) error {
	if err := r.Locations.ClearTags(ctx, locationID); err != nil {
		return err
	}
	for _, name := range names {
		tag, err := ensureTag(ctx, r.Tags, name)
		if err != nil {
			return err
		}
		if err := linkLocationTag(ctx, r.Tags, locationID, tag.ID); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a single location by id.
func (s *CatalogService) Get(ctx context.Context, id string) (domain.Location, error) {
	loc, err := s.store.Repos().Locations.GetByID(ctx, id)
	if err != nil {
		return domain.Location{}, fmt.Errorf("service.CatalogService.Get: %w", err)
	}
	return loc, nil
}

// List returns all locations, or only those carrying every tag in filter.
func (s *CatalogService) List(ctx context.Context, filter []string) ([]domain.Location, error) {
	locs, err := s.store.Repos().Locations.List(ctx, normalizeFilter(filter))
	if err != nil {
		return nil, fmt.Errorf("service.CatalogService.List: %w", err)
	}
	return locs, nil
}

// Update merges the supplied fields of patch into the stored location.
// A supplied tag list replaces the whole set; an empty list clears it.
func (s *CatalogService) Update(ctx context.Context, id string, patch domain.LocationPatch) (domain.Location, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}

	var updated domain.Location
	err := s.store.InTx(ctx, func(r repo.Repos) error {
		current, err := r.Locations.GetByID(ctx, id)
		if err != nil {
			return err
		}
		var tags []string
		if patch.Tags != nil {
			if tags, err = NormalizeNames(*patch.Tags); err != nil {
				return err
			}
		}
		merged := patch.Apply(current)
		if err := validateLocation(merged); err != nil {
			return err
		}
		if _, err := r.Locations.Update(ctx, merged); err != nil {
			return err
		}
		if patch.Tags != nil {
			if err := replaceTags(ctx, r, id, tags); err != nil {
				return err
			}
		}
		updated, err = r.Locations.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return domain.Location{}, fmt.Errorf("service.CatalogService.Update: %w", err)
	}
	return updated, nil
}

// Delete removes a location and its tag links; the tags themselves stay in
// the dictionary. A location with reports is kept and the call fails with
// domain.ErrLocationInUse.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	err := s.store.InTx(ctx, func(r repo.Repos) error {
		if _, err := r.Locations.GetByID(ctx, id); err != nil {
			return err
		}
		_, reports, err := r.Reports.ListByLocation(ctx, id, domain.PaginationParams{Page: 1, Limit: 1})
		if err != nil {
			return err
		}
		if reports > 0 {
			return fmt.Errorf("location %q: %w", id, domain.ErrLocationInUse)
		}
		return r.Locations.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("service.CatalogService.Delete: %w", err)
	}
	return nil
}

// Export returns the whole catalog in seed-file form, ordered by name.
func (s *CatalogService) Export(ctx context.Context) ([]domain.CatalogRecord, error) {
	locs, err := s.store.Repos().Locations.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("service.CatalogService.Export: %w", err)
	}
	records := make([]domain.CatalogRecord, 0, len(locs))
	for _, loc := range locs {
		records = append(records, domain.RecordFromLocation(loc))
	}
	return records, nil
}

// ImportResult counts what a bulk import did.
type ImportResult struct {
	Created int
	Skipped int
}

// Import creates every record in one transaction; any failure rolls back the
// whole batch. With skipExisting, records whose id is already present are
// skipped (not updated); otherwise they fail the import with ErrConflict.
func (s *CatalogService) Import(ctx context.Context, records []domain.CatalogRecord, skipExisting bool) (ImportResult, error) {
	locs := make([]domain.Location, 0, len(records))
	for i, rec := range records {
		loc := rec.Location()
		loc.ID = strings.TrimSpace(loc.ID)
		loc.Name = strings.TrimSpace(loc.Name)
		if err := validateLocation(loc); err != nil {
			return ImportResult{}, fmt.Errorf("service.CatalogService.Import: record %d: %w", i, err)
		}
		tags, err := NormalizeNames(loc.Tags)
		if err != nil {
			return ImportResult{}, fmt.Errorf("service.CatalogService.Import: record %d: %w", i, err)
		}
		loc.Tags = tags
		locs = append(locs, loc)
	}

	var result ImportResult
	err := s.store.InTx(ctx, func(r repo.Repos) error {
		result = ImportResult{}
		for _, loc := range locs {
			if skipExisting {
				_, err := r.Locations.GetByID(ctx, loc.ID)
				if err == nil {
					result.Skipped++
					continue
				}
				if !errors.Is(err, domain.ErrNotFound) {
					return err
				}
			}
			if _, err := createLocation(ctx, r, loc); err != nil {
				return fmt.Errorf("location %q: %w", loc.ID, err)
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("service.CatalogService.Import: %w", err)
	}
	return result, nil
}
