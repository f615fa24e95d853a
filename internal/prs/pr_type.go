package prs

import (
	"fmt"
	"math"
	"strconv"
)

// PRType is the metric a personal record was set on. Values double as the
// wire/storage representation.
type PRType string

const (
	PRTypeOneRepMax   PRType = "oneRepMax"
	PRTypeMaxWeight   PRType = "maxWeight"
	PRTypeMaxReps     PRType = "maxReps"
	PRTypeMaxVolume   PRType = "maxVolume"
	PRTypeMaxDuration PRType = "maxDuration"
	PRTypeMaxDistance PRType = "maxDistance"
)

// AllPRTypes in the order records are emitted for a single set.
var AllPRTypes = []PRType{
	PRTypeOneRepMax,
	PRTypeMaxWeight,
	PRTypeMaxReps,
	PRTypeMaxVolume,
	PRTypeMaxDuration,
	PRTypeMaxDistance,
}

func (t PRType) String() string {
	return string(t)
}

func (t PRType) IsValid() bool {
	switch t {
	case PRTypeOneRepMax,
		PRTypeMaxWeight,
		PRTypeMaxReps,
		PRTypeMaxVolume,
		PRTypeMaxDuration,
		PRTypeMaxDistance:
		return true
	default:
		return false
	}
}

func ParsePRType(s string) (PRType, error) {
	t := PRType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown pr type: %q", s)
	}
	return t, nil
}

func (t PRType) DisplayName() string {
	switch t {
	case PRTypeOneRepMax:
		return "1RM"
	case PRTypeMaxWeight:
		return "Max Weight"
	case PRTypeMaxReps:
		return "Max Reps"
	case PRTypeMaxVolume:
		return "Max Volume"
	case PRTypeMaxDuration:
		return "Max Duration"
	case PRTypeMaxDistance:
		return "Max Distance"
	default:
		return string(t)
	}
}

// Format renders a value of this metric for display.
// Weights and volume are kilos, duration is seconds, distance is meters.
func (t PRType) Format(value float64) string {
	switch t {
	case PRTypeOneRepMax, PRTypeMaxWeight:
		return formatDecimal(value, 1) + " kg"
	case PRTypeMaxVolume:
		return formatDecimal(value, 0) + " kg"
	case PRTypeMaxReps:
		reps := int(math.Round(value))
		if reps == 1 {
			return "1 rep"
		}
		return fmt.Sprintf("%d reps", reps)
	case PRTypeMaxDuration:
		return formatDuration(int(math.Round(value)))
	case PRTypeMaxDistance:
		if value >= 1000 {
			return formatDecimal(value/1000, 2) + " km"
		}
		return formatDecimal(value, 0) + " m"
	default:
		return formatDecimal(value, 2)
	}
}

func formatDecimal(v float64, precision int) string {
	p := math.Pow(10, float64(precision))
	return strconv.FormatFloat(math.Round(v*p)/p, 'f', -1, 64)
}

// 65 -> "1:05", 3723 -> "1:02:03"
func formatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
