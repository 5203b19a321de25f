package risk

import (
	"fmt"
	"sort"
	"time"

	"github.com/neilchentw7/alpha-beta-dashboard/internal/returns"
)

// Align inner-joins the strategy and benchmark series on calendar date.
// Dates present in only one series are dropped: partial-data days are
// excluded rather than imputed. The result is strictly ascending by date,
// regardless of input ordering. Zero overlap yields an empty series.
//
// A duplicate date in either input returns a *ValidationError.
func Align(strategy, benchmark returns.Series) (AlignedSeries, error) {
	benchByDate, err := indexByDate(benchmark, "benchmark")
	if err != nil {
		return nil, err
	}
	if err := checkUniqueDates(strategy, "strategy"); err != nil {
		return nil, err
	}

	aligned := make(AlignedSeries, 0, min(len(strategy), len(benchmark)))
	for _, s := range strategy {
		day := returns.Day(s.Date)
		b, ok := benchByDate[day]
		if !ok {
			continue
		}
		aligned = append(aligned, AlignedPoint{
			Date:      day,
			Strategy:  s.Value,
			Benchmark: b,
		})
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Date.Before(aligned[j].Date)
	})
	return aligned, nil
}

func indexByDate(series returns.Series, name string) (map[time.Time]float64, error) {
	index := make(map[time.Time]float64, len(series))
	for _, r := range series {
		day := returns.Day(r.Date)
		if _, dup := index[day]; dup {
			return nil, &ValidationError{
				Msg: fmt.Sprintf("%s series has duplicate date %s", name, day.Format(returns.DateFormat)),
			}
		}
		index[day] = r.Value
	}
	return index, nil
}

func checkUniqueDates(series returns.Series, name string) error {
	seen := make(map[time.Time]struct{}, len(series))
	for _, r := range series {
		day := returns.Day(r.Date)
		if _, dup := seen[day]; dup {
			return &ValidationError{
				Msg: fmt.Sprintf("%s series has duplicate date %s", name, day.Format(returns.DateFormat)),
			}
		}
		seen[day] = struct{}{}
	}
	return nil
}
