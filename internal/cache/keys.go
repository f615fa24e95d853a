package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/daterange"
)

// Keys have the form {userId}_{kind}_{params...}. User ids and free form
// params are escaped so that "_" only ever separates segments, which keeps
// keys of different query shapes (and different users) from colliding.

const (
	KindWorkoutAnalytics = "analytics"
	KindYearHeatmap      = "heatmap"
	KindRangeHeatmap     = "setheatmap"
	KindMonthHeatmap     = "month"
	KindPersonalRecords  = "prs"
	KindKeyStatistics    = "stats"
)

var segmentEscaper = strings.NewReplacer(
	"%", "%25",
	"_", "%5F",
	"*", "%2A",
	"?", "%3F",
	"[", "%5B",
	"]", "%5D",
	"\\", "%5C",
)

func escape(s string) string {
	return segmentEscaper.Replace(s)
}

// UserPrefix matches every key of one user.
func UserPrefix(userID string) string {
	return escape(userID) + "_"
}

func WorkoutAnalyticsKey(userID string, r daterange.Range) string {
	return fmt.Sprintf("%s%s_%s", UserPrefix(userID), KindWorkoutAnalytics, rangeParams(r))
}

func YearHeatmapKey(userID string, year int) string {
	return fmt.Sprintf("%s%s_%d", UserPrefix(userID), KindYearHeatmap, year)
}

func RangeHeatmapKey(userID string, r daterange.Range, programID string) string {
	program := "all"
	if programID != "" {
		program = "p" + escape(programID)
	}
	return fmt.Sprintf("%s%s_%s_%s", UserPrefix(userID), KindRangeHeatmap, rangeParams(r), program)
}

func MonthHeatmapKey(userID string, year int, month time.Month) string {
	return fmt.Sprintf("%s%s_%d_%d", UserPrefix(userID), KindMonthHeatmap, year, int(month))
}

// PersonalRecordsKey takes limit <= 0 as unlimited and an empty type as all types.
func PersonalRecordsKey(userID string, limit int, exerciseType string) string {
	if limit < 0 {
		limit = 0
	}
	exType := "all"
	if exerciseType != "" {
		exType = "t" + escape(exerciseType)
	}
	return fmt.Sprintf("%s%s_%d_%s", UserPrefix(userID), KindPersonalRecords, limit, exType)
}

func KeyStatisticsKey(userID string, r daterange.Range) string {
	return fmt.Sprintf("%s%s_%s", UserPrefix(userID), KindKeyStatistics, rangeParams(r))
}

func rangeParams(r daterange.Range) string {
	return fmt.Sprintf("%d_%d", r.Start.UnixNano(), r.End.UnixNano())
}
