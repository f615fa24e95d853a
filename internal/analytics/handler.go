package analytics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/auth"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/daterange"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/prs"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/telemetry/tracing"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/workouts"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

type analyticsService interface {
	Location() *time.Location
	Now() time.Time
	ComputeWorkoutAnalytics(ctx context.Context, userID string, r daterange.Range) (WorkoutAnalytics, error)
	GenerateHeatmapData(ctx context.Context, userID string, year int) (ActivityHeatmapData, error)
	GenerateSetBasedHeatmapData(ctx context.Context, userID string, r daterange.Range, programID string) (ActivityHeatmapData, error)
	GetMonthHeatmapData(ctx context.Context, userID string, year int, month time.Month) (MonthHeatmapData, error)
	GetPersonalRecords(ctx context.Context, userID string, limit int, exerciseType workouts.ExerciseType) ([]prs.PersonalRecord, error)
	ComputeKeyStatistics(ctx context.Context, userID string, r daterange.Range) (KeyStatistics, error)
	InvalidateUser(ctx context.Context, userID string) error
}

var _ analyticsService = (*Engine)(nil)

type Handler struct {
	service analyticsService
}

func NewHandler(service analyticsService) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/analytics/workouts", handler.HandleWorkoutAnalytics).Methods("GET", "OPTIONS").Name("workout-analytics")
	r.HandleFunc("/analytics/heatmap", handler.HandleYearHeatmap).Methods("GET", "OPTIONS").Name("year-heatmap")
	r.HandleFunc("/analytics/heatmap/range", handler.HandleRangeHeatmap).Methods("GET", "OPTIONS").Name("range-heatmap")
	r.HandleFunc("/analytics/heatmap/month", handler.HandleMonthHeatmap).Methods("GET", "OPTIONS").Name("month-heatmap")
	r.HandleFunc("/analytics/prs", handler.HandlePersonalRecords).Methods("GET", "OPTIONS").Name("personal-records")
	r.HandleFunc("/analytics/stats", handler.HandleKeyStatistics).Methods("GET", "OPTIONS").Name("key-statistics")
	r.HandleFunc("/analytics/cache/clear", handler.HandleClearCache).Methods("POST", "OPTIONS").Name("clear-cache")
}

func (handler *Handler) HandleWorkoutAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analytics.workouts")
	defer span.End()

	userID, ok := requireUser(ctx, w)
	if !ok {
		return
	}

	dateRange, err := handler.rangeFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	analytics, err := handler.service.ComputeWorkoutAnalytics(ctx, userID, dateRange)
	if err != nil {
		writeServiceError(w, "compute workout analytics", err)
		return
	}

	writeJSON(w, analytics)
}

func (handler *Handler) HandleYearHeatmap(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analytics.heatmap")
	defer span.End()

	userID, ok := requireUser(ctx, w)
	if !ok {
		return
	}

	year := handler.service.Now().Year()
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		year, ok = parseYear(yearStr)
		if !ok {
			http.Error(w, "invalid year parameter", http.StatusBadRequest)
			return
		}
	}

	heatmap, err := handler.service.GenerateHeatmapData(ctx, userID, year)
	if err != nil {
		writeServiceError(w, "generate heatmap", err)
		return
	}

	writeJSON(w, heatmapResponse(heatmap))
}

func (handler *Handler) HandleRangeHeatmap(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analytics.heatmap_range")
	defer span.End()

	userID, ok := requireUser(ctx, w)
	if !ok {
		return
	}

	dateRange, err := handler.rangeFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	heatmap, err := handler.service.GenerateSetBasedHeatmapData(ctx, userID, dateRange, r.URL.Query().Get("program_id"))
	if err != nil {
		writeServiceError(w, "generate set based heatmap", err)
		return
	}

	writeJSON(w, heatmapResponse(heatmap))
}

func (handler *Handler) HandleMonthHeatmap(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analytics.heatmap_month")
	defer span.End()

	userID, ok := requireUser(ctx, w)
	if !ok {
		return
	}

	now := handler.service.Now()
	year, month := now.Year(), now.Month()
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		year, ok = parseYear(yearStr)
		if !ok {
			http.Error(w, "invalid year parameter", http.StatusBadRequest)
			return
		}
	}
	if monthStr := r.URL.Query().Get("month"); monthStr != "" {
		m, err := strconv.Atoi(monthStr)
		if err != nil || m < 1 || m > 12 {
			http.Error(w, "invalid month parameter (1-12)", http.StatusBadRequest)
			return
		}
		month = time.Month(m)
	}

	data, err := handler.service.GetMonthHeatmapData(ctx, userID, year, month)
	if err != nil {
		writeServiceError(w, "get month heatmap", err)
		return
	}

	writeJSON(w, struct {
		MonthHeatmapData
		Intensities map[int]HeatmapIntensity `json:"intensities"`
	}{
		MonthHeatmapData: data,
		Intensities:      data.Intensities(),
	})
}

func (handler *Handler) HandlePersonalRecords(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analytics.prs")
	defer span.End()

	userID, ok := requireUser(ctx, w)
	if !ok {
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			http.Error(w, "invalid limit parameter", http.StatusBadRequest)
			return
		}
	}

	var exerciseType workouts.ExerciseType
	if typeStr := r.URL.Query().Get("exercise_type"); typeStr != "" {
		var err error
		exerciseType, err = workouts.ParseExerciseType(typeStr)
		if err != nil {
			http.Error(w, "invalid exercise_type parameter", http.StatusBadRequest)
			return
		}
	}

	records, err := handler.service.GetPersonalRecords(ctx, userID, limit, exerciseType)
	if err != nil {
		writeServiceError(w, "get personal records", err)
		return
	}

	type recordResponse struct {
		prs.PersonalRecord
		Improvement    float64 `json:"improvement"`
		FormattedValue string  `json:"formattedValue"`
		DisplayName    string  `json:"displayName"`
	}
	resp := make([]recordResponse, 0, len(records))
	for _, pr := range records {
		resp = append(resp, recordResponse{
			PersonalRecord: pr,
			Improvement:    pr.Improvement(),
			FormattedValue: pr.FormattedValue(),
			DisplayName:    pr.Type.DisplayName(),
		})
	}

	writeJSON(w, map[string]interface{}{
		"records": resp,
	})
}

func (handler *Handler) HandleKeyStatistics(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analytics.stats")
	defer span.End()

	userID, ok := requireUser(ctx, w)
	if !ok {
		return
	}

	dateRange, err := handler.rangeFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	keyStats, err := handler.service.ComputeKeyStatistics(ctx, userID, dateRange)
	if err != nil {
		writeServiceError(w, "compute key statistics", err)
		return
	}

	writeJSON(w, keyStats)
}

func (handler *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analytics.cache_clear")
	defer span.End()

	userID, ok := requireUser(ctx, w)
	if !ok {
		return
	}

	// only the caller's own snapshots, the backend may be shared
	if err := handler.service.InvalidateUser(ctx, userID); err != nil {
		log.Errorf("failed to clear analytics cache of [%s]: %s", userID, err)
		http.Error(w, "failed to clear cache", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, `{"status": "ok"}`)
}

// rangeFromQuery reads either from/to (YYYY-MM-DD, to defaults to from) or a
// named period. Without either, the current month is used.
func (handler *Handler) rangeFromQuery(r *http.Request) (daterange.Range, error) {
	loc := handler.service.Location()
	now := handler.service.Now()

	fromStr := r.URL.Query().Get("from")
	if fromStr == "" {
		switch period := r.URL.Query().Get("period"); period {
		case "", "month":
			return daterange.ThisMonth(now), nil
		case "week":
			return daterange.ThisWeek(now), nil
		case "year":
			return daterange.ThisYear(now), nil
		case "30d":
			return daterange.Last30Days(now), nil
		default:
			return daterange.Range{}, fmt.Errorf("invalid period %q (week, month, year, 30d)", period)
		}
	}

	from, err := time.ParseInLocation(dateLayout, fromStr, loc)
	if err != nil {
		return daterange.Range{}, errors.New("invalid from format (expected YYYY-MM-DD)")
	}
	to := from
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		to, err = time.ParseInLocation(dateLayout, toStr, loc)
		if err != nil {
			return daterange.Range{}, errors.New("invalid to format (expected YYYY-MM-DD)")
		}
	}

	dateRange, err := daterange.Days(from, to)
	if err != nil {
		return daterange.Range{}, errors.New("from must not be after to")
	}
	return dateRange, nil
}

func heatmapResponse(h ActivityHeatmapData) interface{} {
	counts := make(map[string]int, len(h.DailyCounts))
	for day, count := range h.DailyCounts {
		counts[day.Format(dateLayout)] = count
	}
	return struct {
		ActivityHeatmapData
		DailyCounts map[string]int `json:"dailyCounts"`
	}{
		ActivityHeatmapData: h,
		DailyCounts:         counts,
	}
}

func requireUser(ctx context.Context, w http.ResponseWriter) (string, bool) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

func parseYear(s string) (int, bool) {
	year, err := strconv.Atoi(s)
	if err != nil || year < 1970 || year > 9999 {
		return 0, false
	}
	return year, true
}

func writeServiceError(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, auth.ErrNotAuthenticated) {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	log.Errorf("failed to %s: %s", what, err)
	http.Error(w, fmt.Sprintf("failed to %s", what), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	pkg.WriteJSON(w, v, http.StatusOK)
}
