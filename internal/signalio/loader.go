// Package signalio reads externally produced signal series, currently from
// CSV exports, into signal point rows for the regime classifier.
package signalio

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"eventhorizon/internal/apperrors"
	"eventhorizon/internal/models"
)

// column names accepted in the CSV header, lowercased.
const (
	colDate          = "date"
	colP             = "p"
	colLow           = "low"
	colHigh          = "high"
	colLiquidity     = "liquidity"
	colSentiment     = "sentiment"
	colRefValue      = "ref_value"
	colConcentration = "concentration"
	colCostToMove    = "cost_to_move"
)

// LoadCSV parses one signal series from r. The first row must be a header
// naming at least date and p; all other columns are optional and come back
// as nil when absent or blank. Rows are returned sorted by date ascending.
func LoadCSV(r io.Reader, seriesSlug string) ([]models.SignalPoint, error) {
	if strings.TrimSpace(seriesSlug) == "" {
		return nil, apperrors.Validation("series slug is required")
	}
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Hand-edited exports drop trailing empty columns; field() treats a short
	// record as blank optionals.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols[colDate]; !ok {
		return nil, apperrors.Validation("csv is missing the date column")
	}
	if _, ok := cols[colP]; !ok {
		return nil, apperrors.Validation("csv is missing the p column")
	}

	points := make([]models.SignalPoint, 0)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		dateStr := field(record, cols, colDate)
		date, err := parseDate(dateStr)
		if err != nil {
			return nil, apperrors.Validation("line %d: bad date %q", line, dateStr)
		}
		p, err := strconv.ParseFloat(field(record, cols, colP), 64)
		if err != nil {
			return nil, apperrors.Validation("line %d: bad probability %q", line, field(record, cols, colP))
		}

		point := models.SignalPoint{
			SeriesSlug:    seriesSlug,
			Date:          date,
			P:             clamp01(p),
			Liquidity:     models.DefaultLiquidity,
			Low:           optFloat(record, cols, colLow),
			High:          optFloat(record, cols, colHigh),
			RefValue:      optFloat(record, cols, colRefValue),
			Concentration: optFloat(record, cols, colConcentration),
			CostToMove:    optFloat(record, cols, colCostToMove),
		}
		if liq := optFloat(record, cols, colLiquidity); liq != nil && *liq > 0 {
			point.Liquidity = *liq
		}
		if s := field(record, cols, colSentiment); s != "" {
			point.Sentiment = &s
		}
		if point.Low != nil {
			v := clamp01(*point.Low)
			point.Low = &v
		}
		if point.High != nil {
			v := clamp01(*point.High)
			point.High = &v
		}
		points = append(points, point)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(24 * time.Hour), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %s", s)
}

func field(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func optFloat(record []string, cols map[string]int, name string) *float64 {
	s := field(record, cols, name)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
