package model

import (
	"strconv"
	"time"
)

// Status is the lifecycle state of a project.
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusActive    Status = "active"
	StatusOnHold    Status = "on_hold"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists all valid states in display order.
var Statuses = []Status{StatusPlanned, StatusActive, StatusOnHold, StatusCompleted, StatusCancelled}

func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusActive, StatusOnHold, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Project represents one project record placed on the map.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	Status    Status    `json:"status"`
	Value     float64   `json:"value"`
	Cost      float64   `json:"cost"`
	StartDate time.Time `json:"start_date"`
	Address   string    `json:"address"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	HasCoord  bool      `json:"has_coord"`
	// Margin is computed client-side and never persisted.
	Margin *float64 `json:"margin,omitempty"`
}

// ComputeMargin derives the margin percentage from value and cost.
// Returns false when the value is zero or the cost is unknown.
func (p Project) ComputeMargin() (float64, bool) {
	if p.Value <= 0 || p.Cost <= 0 {
		return 0, false
	}
	return (p.Value - p.Cost) / p.Value * 100, true
}

// Located reports whether the project can be plotted.
func (p Project) Located() bool {
	return p.HasCoord
}

// CoordKey is the canonical grouping key for a coordinate pair.
// Exact float equality, not proximity: two projects share a key only if
// both components are bit-for-bit round-trip identical.
func CoordKey(lng, lat float64) string {
	return strconv.FormatFloat(lng, 'f', -1, 64) + "," + strconv.FormatFloat(lat, 'f', -1, 64)
}

// Key returns the project's coordinate key. Only meaningful when Located.
func (p Project) Key() string {
	return CoordKey(p.Lng, p.Lat)
}

// Cluster is a non-empty group of projects sharing an exact coordinate.
type Cluster struct {
	Key      string
	Lat      float64
	Lng      float64
	Members  []Project // insertion order
	Dominant Status
}

// EventType identifies a change-feed event.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is a partial-payload notification from the project feed.
// ID is always set. Updates carry the replacement record in New; inserts
// do not, so consumers must fetch the full record by ID. Deletes carry
// only the id plus a best-effort Name.
type ChangeEvent struct {
	Type EventType
	Org  string
	ID   string
	Name string
	New  *Project
}
