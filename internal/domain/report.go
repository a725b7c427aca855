package domain

import (
	"time"

	"github.com/google/uuid"
)

// OccupancyLevel is an ordinal crowd rating from 1 (empty) to 5 (crowded).
type OccupancyLevel int

const (
	LevelEmpty OccupancyLevel = iota + 1
	LevelFewPeople
	LevelModerate
	LevelBusy
	LevelCrowded
)

var levelLabels = map[OccupancyLevel]string{
	LevelEmpty:     "Empty",
	LevelFewPeople: "Few People",
	LevelModerate:  "Moderate",
	LevelBusy:      "Busy",
	LevelCrowded:   "Crowded",
}

// Valid reports whether l is inside 1..5.
func (l OccupancyLevel) Valid() bool {
	return l >= LevelEmpty && l <= LevelCrowded
}

// Label returns the display name shown next to the level, or "" if invalid.
func (l OccupancyLevel) Label() string {
	return levelLabels[l]
}

// DefaultDeviceType is recorded when a report does not name its device.
const DefaultDeviceType = "web"

// OccupancyReport is one accepted "how busy is it" report.
// Reports are immutable; a correction is a new report.
type OccupancyReport struct {
	ID         uuid.UUID
	LocationID string
	ReporterID string
	Level      OccupancyLevel
	Latitude   float64
	Longitude  float64
	DeviceType string
	CreatedAt  time.Time
}

// ReportInput is what a client submits. Pointer fields distinguish "absent"
// from zero so the ledger can report which precondition failed first.
type ReportInput struct {
	LocationID string
	Level      *float64
	Latitude   *float64
	Longitude  *float64
	DeviceType string
}

// CurrentOccupancy is the derived state of a location: the newest report wins.
// Latest is nil when the location has never been reported.
type CurrentOccupancy struct {
	LocationID    string
	Latest        *OccupancyReport
	RecentReports int
	Window        time.Duration
	Stale         bool
}
