package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neilchentw7/alpha-beta-dashboard/internal/returns"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/risk"
	"github.com/neilchentw7/alpha-beta-dashboard/internal/services"
)

type memoryStore struct {
	series returns.Series
}

func (m *memoryStore) Load(ctx context.Context) (returns.Series, error) {
	out := make(returns.Series, len(m.series))
	copy(out, m.series)
	out.Sort()
	return out, nil
}

func (m *memoryStore) Append(ctx context.Context, row returns.DailyReturn) error {
	day := returns.Day(row.Date)
	for _, r := range m.series {
		if r.Date.Equal(day) {
			return fmt.Errorf("return for %s %w", day.Format(returns.DateFormat), returns.ErrDuplicateDate)
		}
	}
	m.series = append(m.series, returns.DailyReturn{Date: day, Value: row.Value})
	return nil
}

func (m *memoryStore) Overwrite(ctx context.Context, series returns.Series) error {
	m.series = append(returns.Series(nil), series...)
	return nil
}

type fixedProvider struct {
	series returns.Series
}

func (p *fixedProvider) FetchDailyReturns(ctx context.Context, start, end time.Time) (returns.Series, error) {
	var out returns.Series
	for _, r := range p.series {
		if !r.Date.Before(start) && r.Date.Before(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func day(s string) time.Time {
	t, err := time.Parse(returns.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

// flatSeries builds n consecutive days starting at base, all with the same
// return value.
func flatSeries(base time.Time, n int, value float64) returns.Series {
	series := make(returns.Series, n)
	for i := 0; i < n; i++ {
		series[i] = returns.DailyReturn{Date: base.AddDate(0, 0, i), Value: value}
	}
	return series
}

// trendSeries builds n consecutive days with distinct values so windows
// have nonzero variance.
func trendSeries(base time.Time, n int, scale float64) returns.Series {
	series := make(returns.Series, n)
	for i := 0; i < n; i++ {
		v := scale * float64(i%7-3) / 100
		series[i] = returns.DailyReturn{Date: base.AddDate(0, 0, i), Value: v}
	}
	return series
}

func newTestRouter(t *testing.T, store *memoryStore, provider *fixedProvider) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	riskSvc, err := services.NewRiskService(store, provider, risk.Config{}, logger)
	require.NoError(t, err)
	returnsSvc := services.NewReturnsService(store, logger)
	healthSvc := services.NewHealthService("test", logger)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		NewRiskHandler(riskSvc, logger).RegisterRoutes(r)
		NewReturnsHandler(returnsSvc, logger).RegisterRoutes(r)
		NewHealthHandler(healthSvc, logger).RegisterRoutes(r)
	})
	return r
}

func doJSON(t *testing.T, router chi.Router, method, path string, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 && strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestRiskReportEndpoint(t *testing.T) {
	base := day("2024-01-01")

	t.Run("identical series yields full correlation and alert", func(t *testing.T) {
		series := trendSeries(base, 70, 1)
		store := &memoryStore{series: series}
		provider := &fixedProvider{series: series}
		router := newTestRouter(t, store, provider)

		rec, body := doJSON(t, router, http.MethodGet, "/api/risk/report", "")
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, float64(60), body["window"])
		assert.Equal(t, true, body["alert"])

		rows, ok := body["rows"].([]interface{})
		require.True(t, ok)
		assert.Len(t, rows, 11)

		snap, ok := body["snapshot"].(map[string]interface{})
		require.True(t, ok)
		assert.InDelta(t, 1.0, snap["correlation"].(float64), 1e-9)
		assert.InDelta(t, 1.0, snap["beta"].(float64), 1e-9)
		assert.Equal(t, true, snap["has_prior"])
	})

	t.Run("flat benchmark renders metrics as null", func(t *testing.T) {
		strategy := trendSeries(base, 60, 1)
		benchmark := flatSeries(base, 60, 0.001)
		router := newTestRouter(t, &memoryStore{series: strategy}, &fixedProvider{series: benchmark})

		rec, body := doJSON(t, router, http.MethodGet, "/api/risk/report", "")
		require.Equal(t, http.StatusOK, rec.Code)

		snap := body["snapshot"].(map[string]interface{})
		assert.Nil(t, snap["correlation"])
		assert.Nil(t, snap["beta"])
		assert.Equal(t, false, body["alert"])
	})

	t.Run("window query parameter overrides the default", func(t *testing.T) {
		series := trendSeries(base, 30, 1)
		router := newTestRouter(t, &memoryStore{series: series}, &fixedProvider{series: series})

		rec, body := doJSON(t, router, http.MethodGet, "/api/risk/report?window=10", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(10), body["window"])
		assert.Len(t, body["rows"].([]interface{}), 21)
	})

	t.Run("invalid window parameter is rejected", func(t *testing.T) {
		series := trendSeries(base, 70, 1)
		router := newTestRouter(t, &memoryStore{series: series}, &fixedProvider{series: series})

		rec, body := doJSON(t, router, http.MethodGet, "/api/risk/report?window=1", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_PARAMETER", body["error_code"])
	})

	t.Run("empty log reports no history", func(t *testing.T) {
		router := newTestRouter(t, &memoryStore{}, &fixedProvider{})

		rec, body := doJSON(t, router, http.MethodGet, "/api/risk/report", "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "NO_HISTORY", body["error_code"])
	})

	t.Run("short history reports insufficient data", func(t *testing.T) {
		series := trendSeries(base, 30, 1)
		router := newTestRouter(t, &memoryStore{series: series}, &fixedProvider{series: series})

		rec, body := doJSON(t, router, http.MethodGet, "/api/risk/report", "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "INSUFFICIENT_DATA", body["error_code"])

		details := body["details"].(map[string]interface{})
		assert.Equal(t, float64(30), details["have"])
		assert.Equal(t, float64(60), details["need"])
	})
}

func TestRiskSnapshotEndpoint(t *testing.T) {
	base := day("2024-01-01")
	series := trendSeries(base, 70, 1)
	router := newTestRouter(t, &memoryStore{series: series}, &fixedProvider{series: series})

	rec, body := doJSON(t, router, http.MethodGet, "/api/risk/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)

	snap := body["snapshot"].(map[string]interface{})
	assert.Equal(t, "2024-03-10", snap["date"])
	assert.Equal(t, true, body["alert"])
	_, hasRows := body["rows"]
	assert.False(t, hasRows)
}

func TestRiskReportCSVEndpoint(t *testing.T) {
	base := day("2024-01-01")
	series := trendSeries(base, 70, 1)
	router := newTestRouter(t, &memoryStore{series: series}, &fixedProvider{series: series})

	req := httptest.NewRequest(http.MethodGet, "/api/risk/report/csv", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Equal(t, "date,ret,benchmark_ret,corr,beta", strings.TrimSpace(lines[0]))
	assert.Len(t, lines, 12)
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "2024-03-10,"))
}

func TestReturnsEndpoints(t *testing.T) {
	t.Run("list returns the stored rows", func(t *testing.T) {
		store := &memoryStore{series: trendSeries(day("2024-01-01"), 3, 1)}
		router := newTestRouter(t, store, &fixedProvider{})

		rec, body := doJSON(t, router, http.MethodGet, "/api/returns", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(3), body["count"])
	})

	t.Run("append records a new row", func(t *testing.T) {
		store := &memoryStore{}
		router := newTestRouter(t, store, &fixedProvider{})

		rec, body := doJSON(t, router, http.MethodPost, "/api/returns",
			`{"date":"2024-06-03","ret":0.0041}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "recorded", body["status"])
		require.Len(t, store.series, 1)
		assert.InDelta(t, 0.0041, store.series[0].Value, 1e-12)
	})

	t.Run("append accepts an explicit zero return", func(t *testing.T) {
		store := &memoryStore{}
		router := newTestRouter(t, store, &fixedProvider{})

		rec, _ := doJSON(t, router, http.MethodPost, "/api/returns",
			`{"date":"2024-06-03","ret":0}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("append without ret field fails validation", func(t *testing.T) {
		router := newTestRouter(t, &memoryStore{}, &fixedProvider{})

		rec, body := doJSON(t, router, http.MethodPost, "/api/returns",
			`{"date":"2024-06-03"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	})

	t.Run("append with malformed date fails validation", func(t *testing.T) {
		router := newTestRouter(t, &memoryStore{}, &fixedProvider{})

		rec, body := doJSON(t, router, http.MethodPost, "/api/returns",
			`{"date":"03/06/2024","ret":0.1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	})

	t.Run("duplicate date conflicts", func(t *testing.T) {
		store := &memoryStore{}
		router := newTestRouter(t, store, &fixedProvider{})

		rec, _ := doJSON(t, router, http.MethodPost, "/api/returns",
			`{"date":"2024-06-03","ret":0.0041}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec, body := doJSON(t, router, http.MethodPost, "/api/returns",
			`{"date":"2024-06-03","ret":0.0099}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "CONFLICT", body["error_code"])
	})

	t.Run("replace overwrites the log", func(t *testing.T) {
		store := &memoryStore{series: trendSeries(day("2024-01-01"), 5, 1)}
		router := newTestRouter(t, store, &fixedProvider{})

		rec, body := doJSON(t, router, http.MethodPut, "/api/returns",
			`{"returns":[{"date":"2025-01-02","ret":0.01},{"date":"2025-01-03","ret":-0.02}]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(2), body["count"])
		require.Len(t, store.series, 2)
	})

	t.Run("replace with duplicate dates is rejected", func(t *testing.T) {
		router := newTestRouter(t, &memoryStore{}, &fixedProvider{})

		rec, body := doJSON(t, router, http.MethodPut, "/api/returns",
			`{"returns":[{"date":"2025-01-02","ret":0.01},{"date":"2025-01-02","ret":0.02}]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	})
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, &memoryStore{}, &fixedProvider{})

	rec, body := doJSON(t, router, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])

	rec, body = doJSON(t, router, http.MethodGet, "/api/health/live", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", body["status"])
}
