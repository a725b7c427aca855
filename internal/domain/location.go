// Package domain contains the core data types for the Quiet Locations API.
// This package depends only on uuid and is imported by every other
// internal package (repo, service, handler).
package domain

import "time"

// Location is a physical place shown on the map.
// ID is supplied by the caller and never changes once created.
// Tags holds canonical tag names sorted alphabetically.
type Location struct {
	ID          string
	Name        string
	Latitude    float64
	Longitude   float64
	Address     string // empty when unknown
	Description string // empty when unknown
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LocationPatch carries a partial update. Nil fields keep their stored value.
// A non-nil Tags replaces the whole tag set; a pointer to an empty slice clears it.
type LocationPatch struct {
	Name        *string
	Latitude    *float64
	Longitude   *float64
	Address     *string
	Description *string
	Tags        *[]string
}

// Apply returns loc with every supplied field of p merged in.
func (p LocationPatch) Apply(loc Location) Location {
	if p.Name != nil {
		loc.Name = *p.Name
	}
	if p.Latitude != nil {
		loc.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		loc.Longitude = *p.Longitude
	}
	if p.Address != nil {
		loc.Address = *p.Address
	}
	if p.Description != nil {
		loc.Description = *p.Description
	}
	if p.Tags != nil {
		loc.Tags = append([]string{}, *p.Tags...)
	}
	return loc
}
