package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/neilchentw7/alpha-beta-dashboard/internal/returns"
)

// Provider supplies the benchmark's daily simple returns for a date span.
// Implementations may omit non-trading days. The end date is exclusive.
type Provider interface {
	FetchDailyReturns(ctx context.Context, start, end time.Time) (returns.Series, error)
}

// ProviderError wraps upstream failures so transport code can map them to
// a 502 rather than a generic 500.
type ProviderError struct {
	Symbol string
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("market data provider (%s): %v", e.Symbol, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// dailyBar is one day of the quote service's response.
type dailyBar struct {
	Date     string  `json:"date"`
	AdjClose float64 `json:"adj_close"`
}

// dailyBarsResponse is the quote service payload for a symbol and range.
type dailyBarsResponse struct {
	Symbol string     `json:"symbol"`
	Bars   []dailyBar `json:"bars"`
}

// HTTPProviderConfig configures the quote service client.
type HTTPProviderConfig struct {
	BaseURL string
	Symbol  string
	Timeout time.Duration
	// RPS bounds outgoing request rate; zero disables limiting.
	RPS   float64
	Burst int
}

// HTTPProvider fetches adjusted daily closes from a JSON quote service and
// derives simple percentage-change returns from them.
type HTTPProvider struct {
	httpClient *http.Client
	baseURL    string
	symbol     string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewHTTPProvider creates a provider for the configured benchmark symbol.
func NewHTTPProvider(cfg HTTPProviderConfig, logger *slog.Logger) *HTTPProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &HTTPProvider{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		symbol:     cfg.Symbol,
		limiter:    limiter,
		logger:     logger,
	}
}

// Symbol returns the benchmark identifier this provider serves.
func (p *HTTPProvider) Symbol() string {
	return p.symbol
}

// FetchDailyReturns downloads closes for [start, end) and converts them to
// day-over-day simple returns. The first close only seeds the change and
// produces no return row, matching how adjusted-close series are consumed.
func (p *HTTPProvider) FetchDailyReturns(ctx context.Context, start, end time.Time) (returns.Series, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, &ProviderError{Symbol: p.symbol, Err: err}
		}
	}

	query := url.Values{}
	query.Set("symbol", p.symbol)
	query.Set("start", start.Format(returns.DateFormat))
	query.Set("end", end.Format(returns.DateFormat))
	endpoint := fmt.Sprintf("%s/v1/daily?%s", p.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ProviderError{Symbol: p.symbol, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	p.logger.DebugContext(ctx, "fetching benchmark bars",
		slog.String("symbol", p.symbol),
		slog.String("start", start.Format(returns.DateFormat)),
		slog.String("end", end.Format(returns.DateFormat)))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Symbol: p.symbol, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &ProviderError{
			Symbol: p.symbol,
			Err:    fmt.Errorf("quote service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var payload dailyBarsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ProviderError{Symbol: p.symbol, Err: fmt.Errorf("decode response: %w", err)}
	}

	series, err := barsToReturns(payload.Bars)
	if err != nil {
		return nil, &ProviderError{Symbol: p.symbol, Err: err}
	}

	p.logger.DebugContext(ctx, "benchmark returns fetched",
		slog.String("symbol", p.symbol),
		slog.Int("bars", len(payload.Bars)),
		slog.Int("returns", len(series)))
	return series, nil
}

// barsToReturns converts a close series into simple returns. Bars with a
// non-positive close are skipped as bad data; their neighbors pair across
// the gap.
func barsToReturns(bars []dailyBar) (returns.Series, error) {
	var series returns.Series
	var prevClose float64

	for _, bar := range bars {
		if bar.AdjClose <= 0 {
			continue
		}
		date, err := time.Parse(returns.DateFormat, bar.Date)
		if err != nil {
			return nil, fmt.Errorf("parse bar date %q: %w", bar.Date, err)
		}
		if prevClose > 0 {
			series = append(series, returns.DailyReturn{
				Date:  returns.Day(date),
				Value: (bar.AdjClose - prevClose) / prevClose,
			})
		}
		prevClose = bar.AdjClose
	}

	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series, nil
}
