// Package seed reads and writes catalog files: a JSON array or YAML list of
// {id, name, lat, lng, tags, address, description} records.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/pkordes/quietlocations/backend/internal/domain"
	"github.com/pkordes/quietlocations/backend/internal/metrics"
	"github.com/pkordes/quietlocations/backend/internal/service"
)

// Format is a catalog file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension; anything that is
// not .yaml or .yml is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// idNamespace scopes derived location ids.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://quietlocations.app/locations"))

// DeriveID returns a stable id for a record that has none, so re-running an
// import of the same file collides on the id instead of duplicating rows.
func DeriveID(name string, lat, lng float64) string {
	key := strings.TrimSpace(name) + "|" +
		strconv.FormatFloat(lat, 'f', -1, 64) + "|" +
		strconv.FormatFloat(lng, 'f', -1, 64)
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

// Decode parses a catalog file. Records without an id get DeriveID.
func Decode(r io.Reader, f Format) ([]domain.CatalogRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("seed.Decode: %w", err)
	}

	var records []domain.CatalogRecord
	switch f {
	case FormatYAML:
		err = yaml.Unmarshal(data, &records)
	case FormatJSON:
		err = json.Unmarshal(bytes.TrimSpace(data), &records)
	default:
		return nil, fmt.Errorf("seed.Decode: unknown format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("seed.Decode: %s: %w", f, err)
	}

	for i := range records {
		if strings.TrimSpace(records[i].ID) == "" {
			records[i].ID = DeriveID(records[i].Name, records[i].Lat, records[i].Lng)
		}
	}
	return records, nil
}

// Encode writes records in f.
func Encode(w io.Writer, records []domain.CatalogRecord, f Format) error {
	if records == nil {
		records = []domain.CatalogRecord{}
	}
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("seed.Encode: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("seed.Encode: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("seed.Encode: unknown format %q", f)
	}
}

// Catalog is the part of service.CatalogService the seeder uses.
type Catalog interface {
	Import(ctx context.Context, records []domain.CatalogRecord, skipExisting bool) (service.ImportResult, error)
	Export(ctx context.Context) ([]domain.CatalogRecord, error)
}

// ImportFile loads path and imports it in one transaction. Nothing is written
// if any record fails.
func ImportFile(ctx context.Context, c Catalog, path string, skipExisting bool) (service.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return service.ImportResult{}, fmt.Errorf("seed.ImportFile: %w", err)
	}
	defer f.Close()

	records, err := Decode(f, FormatFromPath(path))
	if err != nil {
		return service.ImportResult{}, fmt.Errorf("seed.ImportFile: %s: %w", path, err)
	}

	res, err := c.Import(ctx, records, skipExisting)
	if err != nil {
		metrics.SeedRecordsImported.WithLabelValues("failed").Add(float64(len(records)))
		return service.ImportResult{}, fmt.Errorf("seed.ImportFile: %s: %w", path, err)
	}
	metrics.SeedRecordsImported.WithLabelValues("created").Add(float64(res.Created))
	metrics.SeedRecordsImported.WithLabelValues("skipped").Add(float64(res.Skipped))
	return res, nil
}

// ExportFile writes the whole catalog to path, in the format its extension names.
func ExportFile(ctx context.Context, c Catalog, path string) (int, error) {
	records, err := c.Export(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed.ExportFile: %w", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, records, FormatFromPath(path)); err != nil {
		return 0, fmt.Errorf("seed.ExportFile: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("seed.ExportFile: %w", err)
	}
	return len(records), nil
}
