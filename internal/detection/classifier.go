package detection

import (
	"math"

	"github.com/skywatch/flights-backend-go/internal/features"
	"github.com/skywatch/flights-backend-go/internal/models"
)

// Classification thresholds
const (
	altitudeChangeThresholdFt = 5000.0
	speedChangeThresholdKt    = 100.0
	distanceJumpThresholdKm   = 50.0
	combinedConfidenceFloor   = 0.9
)

// classifierRule is one (predicate, label) pair of the decision table
type classifierRule struct {
	label string
	match func(row features.Row, confidence float64) bool
}

// classifierRules is evaluated in order; the first matching rule wins. The
// ordering is deliberate: specific physical signatures take precedence over
// the generic confidence bucket.
var classifierRules = []classifierRule{
	{
		label: models.AnomalyAltitude,
		match: func(row features.Row, _ float64) bool {
			return math.Abs(row.Value(features.ColAltitudeChange)) > altitudeChangeThresholdFt
		},
	},
	{
		label: models.AnomalySpeed,
		match: func(row features.Row, _ float64) bool {
			return math.Abs(row.Value(features.ColSpeedChange)) > speedChangeThresholdKt
		},
	},
	{
		label: models.AnomalyRouteDeviation,
		match: func(row features.Row, _ float64) bool {
			return row.Value(features.ColDistanceFromPrev) > distanceJumpThresholdKm
		},
	},
	{
		label: models.AnomalyCombined,
		match: func(_ features.Row, confidence float64) bool {
			return confidence > combinedConfidenceFloor
		},
	},
}

// Classify maps an anomalous feature row to an anomaly type label. Only rows
// the model already flagged as anomalous should be classified.
func Classify(row features.Row, confidence float64) string {
	for _, rule := range classifierRules {
		if rule.match(row, confidence) {
			return rule.label
		}
	}
	return models.AnomalyTemporal
}
