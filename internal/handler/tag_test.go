package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/quietlocations/backend/internal/domain"
)

func TestListTags_PassesPrefix(t *testing.T) {
	var gotPrefix string
	tags := &mockTags{
		list: func(_ context.Context, prefix string) ([]domain.Tag, error) {
			gotPrefix = prefix
			return []domain.Tag{{ID: uuid.New(), Name: "quiet", Locations: 2}}, nil
		},
	}
	h := newHTTPHandler(t, deps{tags: tags})

	rec := do(t, h, http.MethodGet, "/tags?q=qu", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "qu", gotPrefix)
	body := decode[[]struct {
		Name      string `json:"name"`
		Locations int    `json:"locations"`
	}](t, rec)
	require.Len(t, body, 1)
	assert.Equal(t, "quiet", body[0].Name)
	assert.Equal(t, 2, body[0].Locations)
}

func TestListTags_Empty(t *testing.T) {
	tags := &mockTags{
		list: func(context.Context, string) ([]domain.Tag, error) { return nil, nil },
	}
	h := newHTTPHandler(t, deps{tags: tags})

	rec := do(t, h, http.MethodGet, "/tags", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
