package analytics

import (
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/cache"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/workouts"
)

// Snapshots below are values. The engine builds a new one on every
// recomputation and never mutates one that is already cached.

type WorkoutAnalytics struct {
	UserID                        string                        `json:"userId"`
	StartDate                     time.Time                     `json:"startDate"`
	EndDate                       time.Time                     `json:"endDate"`
	TotalWorkouts                 int                           `json:"totalWorkouts"`
	TotalSets                     int                           `json:"totalSets"`
	CheckedSets                   int                           `json:"checkedSets"`
	TotalVolume                   float64                       `json:"totalVolume"`
	TotalDurationSeconds          int                           `json:"totalDurationSeconds"`
	ExerciseTypeBreakdown         map[workouts.ExerciseType]int `json:"exerciseTypeBreakdown"`
	CompletedWorkoutIDs           []string                      `json:"completedWorkoutIds"`
	AverageWorkoutDurationMinutes float64                       `json:"averageWorkoutDurationMinutes"`
	MostUsedExerciseType          workouts.ExerciseType         `json:"mostUsedExerciseType,omitempty"`
	AverageSetsPerWorkout         float64                       `json:"averageSetsPerWorkout"`
	MedianWorkoutDurationMinutes  float64                       `json:"medianWorkoutDurationMinutes"`
}

type ActivityHeatmapData struct {
	UserID string `json:"userId"`
	// Year is set for whole-year heatmaps only.
	Year          int               `json:"year,omitempty"`
	RangeStart    time.Time         `json:"rangeStart"`
	RangeEnd      time.Time         `json:"rangeEnd"`
	DailyCounts   map[time.Time]int `json:"dailyCounts"`
	CurrentStreak int               `json:"currentStreak"`
	LongestStreak int               `json:"longestStreak"`
	TotalSets     int               `json:"totalSets"`
	ProgramFilter string            `json:"programFilter,omitempty"`
}

// IntensityOn matches by calendar date. Keys decoded from a cache backend
// carry their own *time.Location, so map lookups by time.Time miss.
func (h ActivityHeatmapData) IntensityOn(day time.Time) HeatmapIntensity {
	want := day.Format(dateLayout)
	for d, count := range h.DailyCounts {
		if d.Format(dateLayout) == want {
			return IntensityFromSetCount(count)
		}
	}
	return IntensityNone
}

type MonthHeatmapData struct {
	UserID string     `json:"userId"`
	Year   int        `json:"year"`
	Month  time.Month `json:"month"`
	// DailyCounts is keyed by day of month, 1..31.
	DailyCounts map[int]int `json:"dailyCounts"`
	TotalSets   int         `json:"totalSets"`
	FetchedAt   time.Time   `json:"fetchedAt"`
}

// IsCacheValid uses the same window the cache defaults to.
func (m MonthHeatmapData) IsCacheValid(now time.Time) bool {
	return m.IsCacheValidFor(now, cache.DefaultValidity)
}

func (m MonthHeatmapData) IsCacheValidFor(now time.Time, validity time.Duration) bool {
	return now.Sub(m.FetchedAt) < validity
}

func (m MonthHeatmapData) Intensities() map[int]HeatmapIntensity {
	intensities := make(map[int]HeatmapIntensity, len(m.DailyCounts))
	for day, count := range m.DailyCounts {
		intensities[day] = IntensityFromSetCount(count)
	}
	return intensities
}

type KeyStatistics struct {
	UserID                        string                `json:"userId"`
	StartDate                     time.Time             `json:"startDate"`
	EndDate                       time.Time             `json:"endDate"`
	TotalWorkouts                 int                   `json:"totalWorkouts"`
	TotalSets                     int                   `json:"totalSets"`
	CheckedSets                   int                   `json:"checkedSets"`
	TotalVolume                   float64               `json:"totalVolume"`
	TotalDurationMinutes          float64               `json:"totalDurationMinutes"`
	AverageWorkoutDurationMinutes float64               `json:"averageWorkoutDurationMinutes"`
	CompletionPercentage          float64               `json:"completionPercentage"`
	WorkoutsPerWeek               float64               `json:"workoutsPerWeek"`
	CurrentStreak                 int                   `json:"currentStreak"`
	LongestStreak                 int                   `json:"longestStreak"`
	PersonalRecords               int                   `json:"personalRecords"`
	MostUsedExerciseType          workouts.ExerciseType `json:"mostUsedExerciseType,omitempty"`
}

// AsMap flattens the numeric statistics, keyed by their json names.
func (s KeyStatistics) AsMap() map[string]float64 {
	return map[string]float64{
		"totalWorkouts":                 float64(s.TotalWorkouts),
		"totalSets":                     float64(s.TotalSets),
		"checkedSets":                   float64(s.CheckedSets),
		"totalVolume":                   s.TotalVolume,
		"totalDurationMinutes":          s.TotalDurationMinutes,
		"averageWorkoutDurationMinutes": s.AverageWorkoutDurationMinutes,
		"completionPercentage":          s.CompletionPercentage,
		"workoutsPerWeek":               s.WorkoutsPerWeek,
		"currentStreak":                 float64(s.CurrentStreak),
		"longestStreak":                 float64(s.LongestStreak),
		"personalRecords":               float64(s.PersonalRecords),
	}
}
