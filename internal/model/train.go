package model

import "time"

// TrainStatus is the operational state of a scheduled service.
type TrainStatus string

const (
	StatusScheduled TrainStatus = "scheduled"
	StatusDelayed   TrainStatus = "delayed"
	StatusCancelled TrainStatus = "cancelled"
	StatusDeparted  TrainStatus = "departed"
	StatusArrived   TrainStatus = "arrived"
)

// Statuses lists all valid train statuses.
func Statuses() []TrainStatus {
	return []TrainStatus{StatusScheduled, StatusDelayed, StatusCancelled, StatusDeparted, StatusArrived}
}

// Valid reports whether s is a known status.
func (s TrainStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusDelayed, StatusCancelled, StatusDeparted, StatusArrived:
		return true
	}
	return false
}

// TrainType is the service category of a train.
type TrainType string

const (
	TypeExpress   TrainType = "express"
	TypePassenger TrainType = "passenger"
	TypeFreight   TrainType = "freight"
)

// Types lists all valid train types.
func Types() []TrainType {
	return []TrainType{TypeExpress, TypePassenger, TypeFreight}
}

// Valid reports whether t is a known type.
func (t TrainType) Valid() bool {
	switch t {
	case TypeExpress, TypePassenger, TypeFreight:
		return true
	}
	return false
}

// Train represents one scheduled service. The backend owns the persisted
// record; clients hold transient copies fetched per query.
type Train struct {
	ID               string      `json:"id"`
	TrainNumber      string      `json:"train_number"`
	DepartureStation string      `json:"departure_station"`
	ArrivalStation   string      `json:"arrival_station"`
	DepartureTime    time.Time   `json:"departure_time"`
	ArrivalTime      time.Time   `json:"arrival_time"`
	Status           TrainStatus `json:"status"`
	Type             TrainType   `json:"type"`
	Platform         string      `json:"platform,omitempty"`
}

// sortableFields are the record attributes the backend accepts in sort_by.
var sortableFields = map[string]bool{
	"train_number":      true,
	"departure_station": true,
	"arrival_station":   true,
	"departure_time":    true,
	"arrival_time":      true,
	"status":            true,
	"type":              true,
}

// Sortable reports whether field is a valid sort_by value.
func Sortable(field string) bool {
	return sortableFields[field]
}
