package metrics

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sharma-sugurthi/HealthAI/internal/platform/validate"
)

var ErrMetricNotFound = errors.New("metric not found")

type MetricType string

const (
	HeartRate              MetricType = "heart_rate"
	BloodPressureSystolic  MetricType = "blood_pressure_systolic"
	BloodPressureDiastolic MetricType = "blood_pressure_diastolic"
	Glucose                MetricType = "glucose"
	Weight                 MetricType = "weight"
	Temperature            MetricType = "temperature"
	OxygenSaturation       MetricType = "oxygen_saturation"
)

// AllTypes lists metric types in display order.
var AllTypes = []MetricType{
	HeartRate, BloodPressureSystolic, BloodPressureDiastolic,
	Glucose, Weight, Temperature, OxygenSaturation,
}

type bound struct {
	unit     string
	min, max float64
	// toCanonical converts a value in this unit to the type's canonical unit.
	toCanonical func(float64) float64
}

func identity(v float64) float64 { return v }

// metricBounds holds plausible ranges per unit, canonical unit first.
var metricBounds = map[MetricType][]bound{
	HeartRate:              {{"bpm", 20, 300, identity}},
	BloodPressureSystolic:  {{"mmHg", 50, 300, identity}},
	BloodPressureDiastolic: {{"mmHg", 30, 200, identity}},
	Glucose: {
		{"mg/dL", 20, 600, identity},
		{"mmol/L", 1.1, 33.3, func(v float64) float64 { return v * 18.0 }},
	},
	Weight: {
		{"kg", 1, 500, identity},
		{"lb", 2, 1100, func(v float64) float64 { return v * 0.45359237 }},
	},
	Temperature: {
		{"°F", 90, 110, identity},
		{"°C", 32, 43.5, func(v float64) float64 { return v*9/5 + 32 }},
	},
	OxygenSaturation: {{"%", 0, 100, identity}},
}

// unitAliases maps lowercase spellings onto the table's unit names.
var unitAliases = map[string]string{
	"bpm": "bpm", "mmhg": "mmHg",
	"mg/dl": "mg/dL", "mmol/l": "mmol/L",
	"kg": "kg", "kgs": "kg", "lb": "lb", "lbs": "lb",
	"°f": "°F", "f": "°F", "fahrenheit": "°F",
	"°c": "°C", "c": "°C", "celsius": "°C",
	"%": "%", "percent": "%",
}

func (t MetricType) Valid() bool {
	_, ok := metricBounds[t]
	return ok
}

func (t MetricType) CanonicalUnit() string {
	if b, ok := metricBounds[t]; ok {
		return b[0].unit
	}
	return ""
}

// ParseType rejects anything outside the metric type enum.
func ParseType(s string) (MetricType, error) {
	t := MetricType(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return "", validate.Errorf("metric_type", "is required")
	}
	if !t.Valid() {
		return "", validate.Errorf("metric_type", "unknown metric type %q", s)
	}
	return t, nil
}

func (t MetricType) boundFor(unit string) (bound, error) {
	bounds := metricBounds[t]
	if strings.TrimSpace(unit) == "" {
		return bounds[0], nil
	}
	name, ok := unitAliases[strings.ToLower(strings.TrimSpace(unit))]
	if ok {
		for _, b := range bounds {
			if b.unit == name {
				return b, nil
			}
		}
	}
	allowed := make([]string, len(bounds))
	for i, b := range bounds {
		allowed[i] = b.unit
	}
	return bound{}, validate.Errorf("unit", "%s must be recorded in %s", t, strings.Join(allowed, " or "))
}

// checkValue validates value against the plausible range for unit and
// returns the normalized unit name.
func (t MetricType) checkValue(value float64, unit string) (string, error) {
	b, err := t.boundFor(unit)
	if err != nil {
		return "", err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", validate.Errorf("value", "must be a finite number")
	}
	if value < b.min || value > b.max {
		return "", validate.Errorf("value", "%s must be between %g and %g %s", t, b.min, b.max, b.unit)
	}
	return b.unit, nil
}

// canonicalValue converts a stored value to the type's canonical unit.
func (t MetricType) canonicalValue(value float64, unit string) float64 {
	for _, b := range metricBounds[t] {
		if b.unit == unit {
			return b.toCanonical(value)
		}
	}
	return value
}

// HealthMetric is one append-only measurement.
type HealthMetric struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	MetricType MetricType `json:"metric_type"`
	Value      float64    `json:"value"`
	Unit       string     `json:"unit"`
	Note       *string    `json:"note"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// TimeRange bounds recorded_at inclusively; nil ends are open.
type TimeRange struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

func (r TimeRange) validate() error {
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return validate.Errorf("from", "must not be after to")
	}
	return nil
}

// Summary aggregates the rows Query returns for the same type and range.
// With Count 0 the value pointers are nil.
type Summary struct {
	MetricType MetricType `json:"metric_type"`
	Count      int        `json:"count"`
	Latest     *float64   `json:"latest"`
	Average    *float64   `json:"average"`
	Min        *float64   `json:"min"`
	Max        *float64   `json:"max"`
	Unit       string     `json:"unit"`
	From       *time.Time `json:"from"`
	To         *time.Time `json:"to"`
}
