package models

import "time"

// FlightPoint represents one ADS-B telemetry sample for a flight
type FlightPoint struct {
	ID         int64     `json:"id" db:"id"`
	FlightID   string    `json:"flightId" db:"flight_id"`
	AircraftID string    `json:"aircraftId" db:"aircraft_id"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"` // stored as Unix seconds
	Latitude   float64   `json:"latitude" db:"latitude"`   // [-90, 90]
	Longitude  float64   `json:"longitude" db:"longitude"` // [-180, 180]
	Altitude   int       `json:"altitude" db:"altitude"`   // feet
	Speed      float64   `json:"speed" db:"speed"`         // knots
	Heading    float64   `json:"heading" db:"heading"`     // [0, 360)
}
