package analytics_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/analytics"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/auth"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/cache"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/daterange"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(handler *analytics.Handler) *mux.Router {
	r := mux.NewRouter()
	handler.SetupRoutes(r)
	return r
}

func serve(router http.Handler, method, target, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if userID != "" {
		req = req.WithContext(auth.ContextWithUserID(req.Context(), userID))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandler_RequiresUser(t *testing.T) {
	f := newFixture(t, analytics.Config{})
	router := newTestRouter(analytics.NewHandler(f.engine))

	targets := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/analytics/workouts"},
		{http.MethodGet, "/analytics/heatmap"},
		{http.MethodGet, "/analytics/heatmap/range"},
		{http.MethodGet, "/analytics/heatmap/month"},
		{http.MethodGet, "/analytics/prs"},
		{http.MethodGet, "/analytics/stats"},
		{http.MethodPost, "/analytics/cache/clear"},
	}
	for _, tt := range targets {
		rr := serve(router, tt.method, tt.target, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, tt.target)
	}
}

func TestHandler_WorkoutAnalytics(t *testing.T) {
	f := newFixture(t, analytics.Config{})
	seedMarch(f)
	router := newTestRouter(analytics.NewHandler(f.engine))

	rr := serve(router, http.MethodGet, "/analytics/workouts?from=2025-03-01&to=2025-03-31", testUser)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var wa analytics.WorkoutAnalytics
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &wa))
	assert.Equal(t, 2, wa.TotalWorkouts)
	assert.Equal(t, []string{"wa"}, wa.CompletedWorkoutIDs)

	// period defaults to the current month
	rr = serve(router, http.MethodGet, "/analytics/workouts", testUser)
	require.Equal(t, http.StatusOK, rr.Code)
	var current analytics.WorkoutAnalytics
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &current))
	assert.True(t, current.StartDate.Equal(march().Start))
	assert.Equal(t, 2, current.TotalWorkouts)
}

func TestHandler_BadRange(t *testing.T) {
	f := newFixture(t, analytics.Config{})
	router := newTestRouter(analytics.NewHandler(f.engine))

	for _, target := range []string{
		"/analytics/workouts?from=03-01-2025",
		"/analytics/workouts?from=2025-03-01&to=tomorrow",
		"/analytics/workouts?from=2025-03-10&to=2025-03-01",
		"/analytics/stats?period=decade",
		"/analytics/heatmap/range?period=fortnight",
	} {
		rr := serve(router, http.MethodGet, target, testUser)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestHandler_RangeHeatmap(t *testing.T) {
	f := newFixture(t, analytics.Config{})
	seedMarch(f)
	seedStreak(f)
	router := newTestRouter(analytics.NewHandler(f.engine))

	rr := serve(router, http.MethodGet, "/analytics/heatmap/range?period=month", testUser)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		DailyCounts   map[string]int `json:"dailyCounts"`
		CurrentStreak int            `json:"currentStreak"`
		TotalSets     int            `json:"totalSets"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, map[string]int{
		"2025-03-03": 3,
		"2025-03-10": 1,
		"2025-03-13": 1,
		"2025-03-14": 1,
		"2025-03-15": 1,
	}, resp.DailyCounts)
	assert.Equal(t, 3, resp.CurrentStreak)
	assert.Equal(t, 7, resp.TotalSets)

	rr = serve(router, http.MethodGet, "/analytics/heatmap/range?period=month&program_id=p9", testUser)
	require.Equal(t, http.StatusOK, rr.Code)
	var filtered struct {
		DailyCounts map[string]int `json:"dailyCounts"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &filtered))
	assert.Empty(t, filtered.DailyCounts)
}

func TestHandler_YearHeatmap(t *testing.T) {
	f := newFixture(t, analytics.Config{})
	seedMarch(f)
	router := newTestRouter(analytics.NewHandler(f.engine))

	rr := serve(router, http.MethodGet, "/analytics/heatmap", testUser)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Year        int            `json:"year"`
		DailyCounts map[string]int `json:"dailyCounts"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2025, resp.Year)
	assert.Equal(t, 1, resp.DailyCounts["2025-02-20"])

	rr = serve(router, http.MethodGet, "/analytics/heatmap?year=20x5", testUser)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_MonthHeatmap(t *testing.T) {
	f := newFixture(t, analytics.Config{})
	seedMarch(f)
	router := newTestRouter(analytics.NewHandler(f.engine))

	rr := serve(router, http.MethodGet, "/analytics/heatmap/month?year=2025&month=3", testUser)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Year        int            `json:"year"`
		Month       int            `json:"month"`
		DailyCounts map[int]int    `json:"dailyCounts"`
		Intensities map[int]string `json:"intensities"`
		TotalSets   int            `json:"totalSets"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2025, resp.Year)
	assert.Equal(t, 3, resp.Month)
	assert.Equal(t, map[int]int{3: 3, 10: 1}, resp.DailyCounts)
	assert.Equal(t, map[int]string{3: "low", 10: "low"}, resp.Intensities)
	assert.Equal(t, 4, resp.TotalSets)

	for _, target := range []string{
		"/analytics/heatmap/month?month=0",
		"/analytics/heatmap/month?month=13",
		"/analytics/heatmap/month?month=march",
		"/analytics/heatmap/month?year=1800",
	} {
		rr := serve(router, http.MethodGet, target, testUser)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestHandler_PersonalRecords(t *testing.T) {
	f := newFixture(t, analytics.Config{})
	seedMarch(f)
	router := newTestRouter(analytics.NewHandler(f.engine))

	rr := serve(router, http.MethodGet, "/analytics/prs?limit=2", testUser)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Records []struct {
			SetID          string  `json:"setId"`
			PRType         string  `json:"prType"`
			Value          float64 `json:"value"`
			Improvement    float64 `json:"improvement"`
			FormattedValue string  `json:"formattedValue"`
			DisplayName    string  `json:"displayName"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "s5", resp.Records[0].SetID)
	assert.Equal(t, "maxVolume", resp.Records[0].PRType)
	assert.Equal(t, 50.0, resp.Records[0].Improvement)
	assert.Equal(t, "550 kg", resp.Records[0].FormattedValue)
	assert.Equal(t, "Max Volume", resp.Records[0].DisplayName)

	rr = serve(router, http.MethodGet, "/analytics/prs?exercise_type=timeBased", testUser)
	require.Equal(t, http.StatusOK, rr.Code)
	resp.Records = nil
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "1:00", resp.Records[0].FormattedValue)

	for _, target := range []string{
		"/analytics/prs?limit=-1",
		"/analytics/prs?limit=ten",
		"/analytics/prs?exercise_type=yoga",
	} {
		rr := serve(router, http.MethodGet, target, testUser)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestHandler_KeyStatistics(t *testing.T) {
	f := newFixture(t, analytics.Config{})
	seedMarch(f)
	router := newTestRouter(analytics.NewHandler(f.engine))

	rr := serve(router, http.MethodGet, "/analytics/stats?from=2025-03-01&to=2025-03-31", testUser)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var ks analytics.KeyStatistics
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ks))
	assert.Equal(t, 2, ks.TotalWorkouts)
	assert.InDelta(t, 80.0, ks.CompletionPercentage, 1e-9)
}

// failingStatsService fails key statistics and serves everything else.
type failingStatsService struct {
	*analytics.Engine
	err error
}

func (s failingStatsService) ComputeKeyStatistics(context.Context, string, daterange.Range) (analytics.KeyStatistics, error) {
	return analytics.KeyStatistics{}, s.err
}

func TestHandler_ServiceErrors(t *testing.T) {
	f := newFixture(t, analytics.Config{})

	router := newTestRouter(analytics.NewHandler(failingStatsService{Engine: f.engine, err: errors.New("store down")}))
	rr := serve(router, http.MethodGet, "/analytics/stats", testUser)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	router = newTestRouter(analytics.NewHandler(failingStatsService{Engine: f.engine, err: auth.ErrNotAuthenticated}))
	rr = serve(router, http.MethodGet, "/analytics/stats", testUser)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_ClearCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, analytics.Config{})
	router := newTestRouter(analytics.NewHandler(f.engine))

	userID := gofakeit.UUID()
	otherID := gofakeit.UUID()
	for _, id := range []string{userID, otherID} {
		_, err := f.engine.GetMonthHeatmapData(ctx, id, 2025, time.March)
		require.NoError(t, err)
	}

	rr := serve(router, http.MethodPost, "/analytics/cache/clear", userID)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rr.Body.String())

	_, ok := f.caches.MonthHeatmaps.Get(ctx, cache.MonthHeatmapKey(userID, 2025, time.March))
	assert.False(t, ok)
	// someone else's snapshots are not the caller's to drop
	_, ok = f.caches.MonthHeatmaps.Get(ctx, cache.MonthHeatmapKey(otherID, 2025, time.March))
	assert.True(t, ok)

	rr = serve(router, http.MethodGet, "/analytics/cache/clear", userID)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
