package domain

// CatalogRecord is the flat, file-friendly shape of a location used by bulk
// import and by catalog export. Field names match the legacy locations.json.
type CatalogRecord struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Lat         float64  `json:"lat" yaml:"lat"`
	Lng         float64  `json:"lng" yaml:"lng"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Address     string   `json:"address,omitempty" yaml:"address,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Location converts the record to a domain Location.
func (r CatalogRecord) Location() Location {
	return Location{
		ID:          r.ID,
		Name:        r.Name,
		Latitude:    r.Lat,
		Longitude:   r.Lng,
		Address:     r.Address,
		Description: r.Description,
		Tags:        r.Tags,
	}
}

// RecordFromLocation is the inverse of CatalogRecord.Location.
func RecordFromLocation(l Location) CatalogRecord {
	return CatalogRecord{
		ID:          l.ID,
		Name:        l.Name,
		Lat:         l.Latitude,
		Lng:         l.Longitude,
		Tags:        l.Tags,
		Address:     l.Address,
		Description: l.Description,
	}
}
