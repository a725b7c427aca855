package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/quietlocations/backend/internal/domain"
)

// decodeJSON reads the request body into v. Empty bodies, malformed JSON and
// oversize bodies are reported as errors handled by writeServiceError.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	var bytesErr *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &bytesErr):
		return err
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: request body is required", domain.ErrValidation)
	default:
		return fmt.Errorf("%w: request body must be valid JSON", domain.ErrValidation)
	}
}

// queryTags binds ?tags=a,b (comma separated, form style) to a slice.
func queryTags(r *http.Request) ([]string, error) {
	var tags []string
	if err := runtime.BindQueryParameter("form", false, false, "tags", r.URL.Query(), &tags); err != nil {
		return nil, fmt.Errorf("%w: tags must be a comma separated list", domain.ErrValidation)
	}
	return tags, nil
}

// queryPagination binds ?page= and ?limit=; absent values take the defaults.
func queryPagination(r *http.Request) (domain.PaginationParams, error) {
	var page, limit *int
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "page", q, &page); err != nil {
		return domain.PaginationParams{}, fmt.Errorf("%w: page must be an integer", domain.ErrValidation)
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		return domain.PaginationParams{}, fmt.Errorf("%w: limit must be an integer", domain.ErrValidation)
	}
	if page != nil && *page > domain.MaxPage {
		return domain.PaginationParams{}, fmt.Errorf("%w: page must be at most %d", domain.ErrValidation, domain.MaxPage)
	}
	return domain.NewPaginationParams(page, limit), nil
}
