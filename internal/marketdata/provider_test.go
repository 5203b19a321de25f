package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neilchentw7/alpha-beta-dashboard/internal/returns"
)

func day(s string) time.Time {
	d, err := time.Parse(returns.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestHTTPProviderFetchDailyReturns(t *testing.T) {
	t.Run("converts closes to simple returns", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/daily", r.URL.Path)
			assert.Equal(t, "TWII", r.URL.Query().Get("symbol"))
			assert.Equal(t, "2024-01-01", r.URL.Query().Get("start"))
			assert.Equal(t, "2024-01-08", r.URL.Query().Get("end"))

			payload := dailyBarsResponse{
				Symbol: "TWII",
				Bars: []dailyBar{
					{Date: "2024-01-02", AdjClose: 100.0},
					{Date: "2024-01-03", AdjClose: 102.0},
					{Date: "2024-01-04", AdjClose: 99.96},
				},
			}
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(payload))
		}))
		defer server.Close()

		provider := NewHTTPProvider(HTTPProviderConfig{
			BaseURL: server.URL,
			Symbol:  "TWII",
		}, nil)

		series, err := provider.FetchDailyReturns(context.Background(), day("2024-01-01"), day("2024-01-08"))
		require.NoError(t, err)
		require.Len(t, series, 2, "first bar only seeds the change")

		assert.Equal(t, day("2024-01-03"), series[0].Date)
		assert.InDelta(t, 0.02, series[0].Value, 1e-12)
		assert.Equal(t, day("2024-01-04"), series[1].Date)
		assert.InDelta(t, -0.02, series[1].Value, 1e-12)
	})

	t.Run("skips non-positive closes and pairs across the gap", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload := dailyBarsResponse{
				Symbol: "TWII",
				Bars: []dailyBar{
					{Date: "2024-01-02", AdjClose: 100.0},
					{Date: "2024-01-03", AdjClose: 0.0},
					{Date: "2024-01-04", AdjClose: 110.0},
				},
			}
			_ = json.NewEncoder(w).Encode(payload)
		}))
		defer server.Close()

		provider := NewHTTPProvider(HTTPProviderConfig{BaseURL: server.URL, Symbol: "TWII"}, nil)
		series, err := provider.FetchDailyReturns(context.Background(), day("2024-01-01"), day("2024-01-08"))
		require.NoError(t, err)
		require.Len(t, series, 1)
		assert.InDelta(t, 0.10, series[0].Value, 1e-12)
	})

	t.Run("upstream failure surfaces as ProviderError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer server.Close()

		provider := NewHTTPProvider(HTTPProviderConfig{BaseURL: server.URL, Symbol: "TWII"}, nil)
		_, err := provider.FetchDailyReturns(context.Background(), day("2024-01-01"), day("2024-01-08"))

		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "TWII", perr.Symbol)
		assert.Contains(t, perr.Error(), "429")
	})

	t.Run("malformed bar date is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload := dailyBarsResponse{
				Bars: []dailyBar{
					{Date: "2024-01-02", AdjClose: 100.0},
					{Date: "not-a-date", AdjClose: 101.0},
				},
			}
			_ = json.NewEncoder(w).Encode(payload)
		}))
		defer server.Close()

		provider := NewHTTPProvider(HTTPProviderConfig{BaseURL: server.URL, Symbol: "TWII"}, nil)
		_, err := provider.FetchDailyReturns(context.Background(), day("2024-01-01"), day("2024-01-08"))
		require.Error(t, err)
	})
}

// stubProvider counts fetches and returns a fixed series.
type stubProvider struct {
	calls  int
	series returns.Series
	err    error
}

func (s *stubProvider) FetchDailyReturns(ctx context.Context, start, end time.Time) (returns.Series, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.series, nil
}

func TestCachedProvider(t *testing.T) {
	fixed := returns.Series{{Date: day("2024-01-03"), Value: 0.01}}

	t.Run("second fetch within TTL hits the cache", func(t *testing.T) {
		stub := &stubProvider{series: fixed}
		cached := NewCachedProvider(stub, time.Hour)

		for i := 0; i < 3; i++ {
			series, err := cached.FetchDailyReturns(context.Background(), day("2024-01-01"), day("2024-01-08"))
			require.NoError(t, err)
			assert.Equal(t, fixed, series)
		}

		assert.Equal(t, 1, stub.calls)
		hits, misses := cached.Stats()
		assert.Equal(t, int64(2), hits)
		assert.Equal(t, int64(1), misses)
	})

	t.Run("different spans are cached independently", func(t *testing.T) {
		stub := &stubProvider{series: fixed}
		cached := NewCachedProvider(stub, time.Hour)

		_, err := cached.FetchDailyReturns(context.Background(), day("2024-01-01"), day("2024-01-08"))
		require.NoError(t, err)
		_, err = cached.FetchDailyReturns(context.Background(), day("2024-01-01"), day("2024-01-09"))
		require.NoError(t, err)

		assert.Equal(t, 2, stub.calls)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		stub := &stubProvider{err: context.DeadlineExceeded}
		cached := NewCachedProvider(stub, time.Hour)

		_, err := cached.FetchDailyReturns(context.Background(), day("2024-01-01"), day("2024-01-08"))
		require.Error(t, err)

		stub.err = nil
		stub.series = fixed
		series, err := cached.FetchDailyReturns(context.Background(), day("2024-01-01"), day("2024-01-08"))
		require.NoError(t, err)
		assert.Equal(t, fixed, series)
		assert.Equal(t, 2, stub.calls)
	})

	t.Run("non-positive TTL disables caching", func(t *testing.T) {
		stub := &stubProvider{series: fixed}
		cached := NewCachedProvider(stub, 0)

		_, _ = cached.FetchDailyReturns(context.Background(), day("2024-01-01"), day("2024-01-08"))
		_, _ = cached.FetchDailyReturns(context.Background(), day("2024-01-01"), day("2024-01-08"))
		assert.Equal(t, 2, stub.calls)
	})

	t.Run("invalidate clears cached spans", func(t *testing.T) {
		stub := &stubProvider{series: fixed}
		cached := NewCachedProvider(stub, time.Hour)

		_, _ = cached.FetchDailyReturns(context.Background(), day("2024-01-01"), day("2024-01-08"))
		cached.Invalidate()
		_, _ = cached.FetchDailyReturns(context.Background(), day("2024-01-01"), day("2024-01-08"))
		assert.Equal(t, 2, stub.calls)
	})
}
