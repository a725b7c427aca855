// Package handler: export.go implements GET /export.
// Returns the whole catalog in the same record format the seed importer reads.
// Supports ?format=csv and ?format=yaml; the default is JSON.
package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pkordes/quietlocations/backend/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{"id", "name", "lat", "lng", "address", "description", "tags"}

// GetExport handles GET /export.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	switch format {
	case "", "json", "csv", "yaml":
	default:
		writeError(w, http.StatusBadRequest, codeValidation, "format must be one of json, csv, yaml")
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()
	records, err := s.catalog.Export(ctx)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	switch format {
	case "csv":
		writeBody(w, "text/csv; charset=utf-8", buildCSV(records))
	case "yaml":
		body, err := yaml.Marshal(records)
		if err != nil {
			s.writeServiceError(w, r, err, "")
			return
		}
		writeBody(w, "application/yaml", body)
	default:
		if records == nil {
			records = []domain.CatalogRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func writeBody(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// buildCSV encodes records as CSV.
// Tags within a row are pipe-separated ("|") to keep each location on a single CSV line.
func buildCSV(records []domain.CatalogRecord) []byte {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, rec := range records {
		//nolint:errcheck
		cw.Write([]string{
			rec.ID,
			rec.Name,
			strconv.FormatFloat(rec.Lat, 'f', -1, 64),
			strconv.FormatFloat(rec.Lng, 'f', -1, 64),
			rec.Address,
			rec.Description,
			strings.Join(rec.Tags, "|"),
		})
	}
	cw.Flush()
	return buf.Bytes()
}
