// Package service contains the business logic for the Quiet Locations API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here: services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/quietlocations/backend/internal/domain"
	"github.com/pkordes/quietlocations/backend/internal/repo"
)

// TagService owns the shared tag dictionary. Tag identity is the exact name
// after trimming surrounding whitespace, so "Quiet" and "quiet" are distinct
// while " quiet " and "quiet" are the same tag.
type TagService struct {
	store repo.Store
}

// NewTagService constructs a TagService backed by the provided Store.
func NewTagService(store repo.Store) *TagService {
	return &TagService{store: store}
}

// EnsureTag returns the canonical tag for name, creating it on first use.
func (s *TagService) EnsureTag(ctx context.Context, name string) (domain.Tag, error) {
	return ensureTag(ctx, s.store.Repos().Tags, name)
}

// LinkLocationTag associates a tag with a location. Repeating it is a no-op.
func (s *TagService) LinkLocationTag(ctx context.Context, locationID string, tagID uuid.UUID) error {
	return linkLocationTag(ctx, s.store.Repos().Tags, locationID, tagID)
}

// List returns tags whose name starts with prefix, with usage counts.
func (s *TagService) List(ctx context.Context, prefix string) ([]domain.Tag, error) {
	tags, err := s.store.Repos().Tags.List(ctx, strings.TrimSpace(prefix))
	if err != nil {
		return nil, fmt.Errorf("service.TagService.List: %w", err)
	}
	return tags, nil
}

// NormalizeNames trims every name, rejects empty ones and drops repeats,
// keeping the first occurrence order. A nil input yields an empty slice.
func NormalizeNames(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("%w: tag names must not be empty", domain.ErrValidation)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}

// normalizeFilter is NormalizeNames for query filters: blank entries are
// ignored rather than rejected, so "?tags=quiet," filters on quiet alone.
func normalizeFilter(names []string) []string {
	kept := make([]string, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) != "" {
			kept = append(kept, name)
		}
	}
	out, _ := NormalizeNames(kept)
	return out
}

// ensureTag is the single path by which tags enter the dictionary. It runs on
// whatever TagRepo it is handed, so catalog writes call it inside their own
// transaction.
func ensureTag(ctx context.Context, tags repo.TagRepo, name string) (domain.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Tag{}, fmt.Errorf("service.EnsureTag: %w: tag names must not be empty", domain.ErrValidation)
	}
	tag, err := tags.Upsert(ctx, name)
	if err != nil {
		return domain.Tag{}, fmt.Errorf("service.EnsureTag: %w", err)
	}
	return tag, nil
}

func linkLocationTag(ctx context.Context, tags repo.TagRepo, locationID string, tagID uuid.UUID) error {
	if err := tags.Link(ctx, locationID, tagID); err != nil {
		return fmt.Errorf("service.LinkLocationTag: %w", err)
	}
	return nil
}
