package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/quietlocations/backend/internal/domain"
)

// locationResponse is the wire shape of a Location. Coordinates use the
// short lat/lng names the map client and the seed files share.
type locationResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type createLocationRequest struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Address     string   `json:"address"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// updateLocationRequest fields are all optional; omitted fields keep their value.
type updateLocationRequest struct {
	Name        *string   `json:"name"`
	Lat         *float64  `json:"lat"`
	Lng         *float64  `json:"lng"`
	Address     *string   `json:"address"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

func locationToResponse(l domain.Location) locationResponse {
	tags := l.Tags
	if tags == nil {
		tags = []string{}
	}
	return locationResponse{
		ID:          l.ID,
		Name:        l.Name,
		Lat:         l.Latitude,
		Lng:         l.Longitude,
		Address:     l.Address,
		Description: l.Description,
		Tags:        tags,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

// ListLocations handles GET /locations.
// ?tags=a,b returns only locations carrying every listed tag.
func (s *Server) ListLocations(w http.ResponseWriter, r *http.Request) {
	filter, err := queryTags(r)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()
	locs, err := s.catalog.List(ctx, filter)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	out := make([]locationResponse, len(locs))
	for i, l := range locs {
		out[i] = locationToResponse(l)
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateLocation handles POST /locations.
func (s *Server) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req createLocationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	if req.Lat == nil || req.Lng == nil {
		s.writeServiceError(w, r, fmt.Errorf("%w: lat and lng are required", domain.ErrValidation), "")
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()
	created, err := s.catalog.Create(ctx, domain.Location{
		ID:          req.ID,
		Name:        req.Name,
		Latitude:    *req.Lat,
		Longitude:   *req.Lng,
		Address:     req.Address,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, locationToResponse(created))
}

// GetLocation handles GET /locations/{id}.
func (s *Server) GetLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r.Context())
	defer cancel()
	loc, err := s.catalog.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err, "location not found")
		return
	}
	writeJSON(w, http.StatusOK, locationToResponse(loc))
}

// UpdateLocation handles PUT /locations/{id}.
// Only supplied fields change; a supplied tags array replaces the whole set.
func (s *Server) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req updateLocationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()
	updated, err := s.catalog.Update(ctx, chi.URLParam(r, "id"), domain.LocationPatch{
		Name:        req.Name,
		Latitude:    req.Lat,
		Longitude:   req.Lng,
		Address:     req.Address,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		s.writeServiceError(w, r, err, "location not found")
		return
	}
	writeJSON(w, http.StatusOK, locationToResponse(updated))
}

// DeleteLocation handles DELETE /locations/{id}.
// Tag rows survive; only the location's associations go.
func (s *Server) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r.Context())
	defer cancel()
	if err := s.catalog.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err, "location not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
