package analytics

// HeatmapIntensity buckets a day's checked set count for display.
type HeatmapIntensity string

const (
	IntensityNone     HeatmapIntensity = "none"
	IntensityLow      HeatmapIntensity = "low"
	IntensityMedium   HeatmapIntensity = "medium"
	IntensityHigh     HeatmapIntensity = "high"
	IntensityVeryHigh HeatmapIntensity = "veryHigh"
)

// IntensityFromSetCount: 0 none, 1-5 low, 6-15 medium, 16-25 high, 26+ very high.
func IntensityFromSetCount(count int) HeatmapIntensity {
	switch {
	case count <= 0:
		return IntensityNone
	case count <= 5:
		return IntensityLow
	case count <= 15:
		return IntensityMedium
	case count <= 25:
		return IntensityHigh
	default:
		return IntensityVeryHigh
	}
}
