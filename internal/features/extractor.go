package features

import (
	"log"
	"math"
	"sort"

	"github.com/skywatch/flights-backend-go/internal/models"
	"github.com/skywatch/flights-backend-go/internal/spatial"
	"github.com/skywatch/flights-backend-go/internal/stats"
)

// Feature column names. Classifier rules and detail payloads refer to
// columns by these names.
const (
	ColLatitude            = "latitude"
	ColLongitude           = "longitude"
	ColAltitude            = "altitude"
	ColSpeed               = "speed"
	ColHeading             = "heading"
	ColAltitudeNormalized  = "altitude_normalized"
	ColSpeedNormalized     = "speed_normalized"
	ColDistanceFromPrev    = "distance_from_previous"
	ColSpeedChange         = "speed_change"
	ColAltitudeChange      = "altitude_change"
	ColHeadingChange       = "heading_change"
	ColHourOfDay           = "hour_of_day"
	ColDayOfWeek           = "day_of_week"
	ColTimeDelta           = "time_delta"
	ColAltitudeRollingStd  = "altitude_rolling_std"
	ColSpeedRollingStd     = "speed_rolling_std"
	ColDistanceRollingMean = "distance_rolling_mean"
)

// columnOrder is the stable column set fed to the model; train-time and
// predict-time extractions must produce the same list.
var columnOrder = []string{
	ColLatitude,
	ColLongitude,
	ColAltitude,
	ColSpeed,
	ColHeading,
	ColAltitudeNormalized,
	ColSpeedNormalized,
	ColDistanceFromPrev,
	ColSpeedChange,
	ColAltitudeChange,
	ColHeadingChange,
	ColHourOfDay,
	ColDayOfWeek,
	ColTimeDelta,
	ColAltitudeRollingStd,
	ColSpeedRollingStd,
	ColDistanceRollingMean,
}

const (
	cruiseAltitudeFt = 45000.0 // normalization ceiling for altitude
	cruiseSpeedKt    = 500.0   // normalization ceiling for speed
	rollingWindow    = 5
	minRollingPoints = 3
)

// Extractor turns an ordered flight point sequence into a feature table
type Extractor struct {
	featureNames []string
}

// NewExtractor creates a new feature extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// FeatureNames returns the ordered column list recorded by the last Extract call
func (e *Extractor) FeatureNames() []string {
	return e.featureNames
}

// Extract computes the feature table for the given flight points. Points are
// sorted by (flight_id, timestamp) before sequence features are computed, so
// distance/heading/rolling features follow each flight's own timeline.
// Sequence features reset at flight boundaries: the first point of every
// flight has zero distance, deltas and time delta.
func (e *Extractor) Extract(points []models.FlightPoint) *Table {
	sorted := make([]models.FlightPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].FlightID != sorted[j].FlightID {
			return sorted[i].FlightID < sorted[j].FlightID
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	rows := make([][]float64, len(sorted))

	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].FlightID == sorted[start].FlightID {
			end++
		}
		e.extractFlight(sorted[start:end], rows[start:end])
		start = end
	}

	sanitize(rows)

	e.featureNames = append([]string(nil), columnOrder...)
	log.Printf("[FeatureExtractor] Extracted %d features for %d points", len(columnOrder), len(rows))

	return NewTable(e.featureNames, rows)
}

// extractFlight fills feature rows for a single flight's ordered points
func (e *Extractor) extractFlight(points []models.FlightPoint, rows [][]float64) {
	n := len(points)

	altitude := make([]float64, n)
	speed := make([]float64, n)
	distance := make([]float64, n)

	for i, p := range points {
		altitude[i] = float64(p.Altitude)
		speed[i] = p.Speed
		if i > 0 {
			prev := points[i-1]
			distance[i] = spatial.HaversineKm(prev.Latitude, prev.Longitude, p.Latitude, p.Longitude)
		}
	}

	// Rolling statistics need at least 3 points; shorter flights keep zeros
	altitudeStd := make([]float64, n)
	speedStd := make([]float64, n)
	distanceMean := make([]float64, n)
	if n >= minRollingPoints {
		window := rollingWindow
		if n < window {
			window = n
		}
		altitudeStd = stats.RollingStd(altitude, window)
		speedStd = stats.RollingStd(speed, window)
		distanceMean = stats.RollingMean(distance, window)
	}

	for i, p := range points {
		var speedChange, altitudeChange, headingChange, timeDelta float64
		if i > 0 {
			prev := points[i-1]
			speedChange = p.Speed - prev.Speed
			altitudeChange = float64(p.Altitude - prev.Altitude)
			headingChange = spatial.HeadingDelta(prev.Heading, p.Heading)
			timeDelta = p.Timestamp.Sub(prev.Timestamp).Seconds()
		}

		ts := p.Timestamp.UTC()

		rows[i] = []float64{
			p.Latitude,
			p.Longitude,
			altitude[i],
			p.Speed,
			p.Heading,
			altitude[i] / cruiseAltitudeFt,
			p.Speed / cruiseSpeedKt,
			distance[i],
			speedChange,
			altitudeChange,
			headingChange,
			float64(ts.Hour()),
			float64((int(ts.Weekday()) + 6) % 7), // Monday = 0
			timeDelta,
			altitudeStd[i],
			speedStd[i],
			distanceMean[i],
		}
	}
}

// sanitize replaces non-finite values with 0 as a blanket post-processing step
func sanitize(rows [][]float64) {
	for _, row := range rows {
		for i, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row[i] = 0
			}
		}
	}
}
