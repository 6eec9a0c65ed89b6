package weather

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
)

// CitySeries is one city's historical result within a comparison.
type CitySeries struct {
	City  string          `json:"city"`
	Days  []HistoricalDay `json:"days,omitempty"`
	Err   error           `json:"-"`
	Error string          `json:"error,omitempty"`
}

// ComparisonRow holds one date's temperature per city. Missing values are nil.
type ComparisonRow struct {
	Date   time.Time           `json:"date"`
	Values map[string]*float64 `json:"values"`
}

// Comparison is a multi-city temperature comparison over one date range.
type Comparison struct {
	Primary string       `json:"primary"`
	Cities  []CitySeries `json:"cities"`
	// Table pivots temperatures by date (rows) and city (columns).
	Table []ComparisonRow `json:"table"`
	// Differences holds, per date, each other city's temperature minus the primary city's.
	Differences []ComparisonRow `json:"differences,omitempty"`
}

// ComparisonCities returns the ordered city list for a comparison: the primary
// city first, then the others, with blanks dropped and duplicates collapsed.
func ComparisonCities(primary string, others []string) []string {
	seen := make(map[string]struct{})
	var cities []string
	for _, c := range append([]string{primary}, others...) {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		cities = append(cities, c)
	}
	return cities
}

// Compare fetches history for every city concurrently and pivots their daily
// temperatures. Result ordering follows the requested city order. Cities whose
// fetch fails are reported in Cities and left out of the tables; an error is
// returned only when no city succeeded.
func (s *Service) Compare(ctx context.Context, primary string, others []string, start, end time.Time) (Comparison, error) {
	cities := ComparisonCities(primary, others)
	if len(cities) == 0 {
		return Comparison{}, NewFetchError(KindNotFound, "compare", 0, nil)
	}

	series := make([]CitySeries, len(cities))
	var wg sync.WaitGroup
	for i, city := range cities {
		i, city := i, city
		wg.Add(1)
		go func() {
			defer wg.Done()

			days, err := s.FetchHistorical(ctx, city, start, end)
			series[i] = CitySeries{City: city, Days: days, Err: err}
			if err != nil {
				log.Printf("compare: history failed for %q: %v", city, err)
				series[i].Error = messageOf(err)
				series[i].Days = nil
			}
		}()
	}
	wg.Wait()

	cmp := Comparison{Primary: cities[0], Cities: series}

	var firstErr error
	ok := 0
	for _, cs := range series {
		if cs.Err != nil {
			if firstErr == nil {
				firstErr = cs.Err
			}
			continue
		}
		ok++
	}
	if ok == 0 {
		return cmp, firstErr
	}

	cmp.Table = pivotTemperatures(series)
	if series[0].Err == nil {
		cmp.Differences = differencesFrom(cmp.Primary, cmp.Table)
	}
	return cmp, nil
}

func pivotTemperatures(series []CitySeries) []ComparisonRow {
	rows := make(map[string]*ComparisonRow)
	for _, cs := range series {
		if cs.Err != nil {
			continue
		}
		for _, d := range cs.Days {
			k := d.Date.Format(DateLayout)
			row, ok := rows[k]
			if !ok {
				row = &ComparisonRow{Date: d.Date, Values: make(map[string]*float64)}
				rows[k] = row
			}
			row.Values[cs.City] = d.Temperature
		}
	}

	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := make([]ComparisonRow, 0, len(keys))
	for _, k := range keys {
		table = append(table, *rows[k])
	}
	return table
}

func differencesFrom(primary string, table []ComparisonRow) []ComparisonRow {
	diffs := make([]ComparisonRow, 0, len(table))
	for _, row := range table {
		base := row.Values[primary]
		values := make(map[string]*float64, len(row.Values))
		for city, v := range row.Values {
			if city == primary {
				continue
			}
			if v == nil || base == nil {
				values[city] = nil
				continue
			}
			d := round2(*v - *base)
			values[city] = &d
		}
		diffs = append(diffs, ComparisonRow{Date: row.Date, Values: values})
	}
	return diffs
}

func messageOf(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Message()
	}
	return err.Error()
}
