package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

type tagResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Locations int       `json:"locations"`
	CreatedAt time.Time `json:"created_at"`
}

// ListTags handles GET /tags.
// The optional ?q= query parameter filters tags by name prefix. Matching is
// case-sensitive, like tag identity.
func (s *Server) ListTags(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r.Context())
	defer cancel()
	tags, err := s.tags.List(ctx, r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	out := make([]tagResponse, len(tags))
	for i, t := range tags {
		out[i] = tagResponse{ID: t.ID, Name: t.Name, Locations: t.Locations, CreatedAt: t.CreatedAt}
	}
	writeJSON(w, http.StatusOK, out)
}
