// Package aggregate computes derived metrics over already-fetched record
// sequences. All functions are pure; they never touch storage.
//
// Sequences are expected newest-first, matching the ordering contract of the
// storage layer.
package aggregate

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vitaltrack/healthd/internal/app/domain/vitals"
)

// Sentinels returned instead of computed values.
const (
	ZeroValue = "0.0"
	NoData    = "No data"
)

// Severity orders classification outcomes for presentation.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityNormal
	SeverityElevated
	SeverityHigh
	SeverityCritical
)

// Status is a classification outcome.
type Status struct {
	Label    string
	Severity Severity
}

// Average returns the arithmetic mean rounded to one decimal. An empty input
// yields ZeroValue rather than dividing by zero.
func Average(values []float64) string {
	if len(values) == 0 {
		return ZeroValue
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return fmt.Sprintf("%.1f", sum/float64(len(values)))
}

// Delta returns first minus last, rounded to one decimal and prefixed with
// "+" when non-negative. Fewer than two values yields ZeroValue.
func Delta(values []float64) string {
	if len(values) < 2 {
		return ZeroValue
	}
	d := values[0] - values[len(values)-1]
	if d >= 0 {
		return fmt.Sprintf("+%.1f", d)
	}
	return fmt.Sprintf("%.1f", d)
}

// FieldValues extracts the named field from each entry as a float. Entries
// whose value does not parse are skipped.
func FieldValues(entries []vitals.Entry, field string) []float64 {
	values := make([]float64, 0, len(entries))
	for _, e := range entries {
		v, err := strconv.ParseFloat(e.Value(field), 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	return values
}

// RangeAverage filters entries whose date falls within [now-windowDays, now]
// and averages each schema field of the kind independently over that window.
// Every field maps to NoData when the window is empty.
func RangeAverage(entries []vitals.Entry, windowDays int, kind vitals.Kind, now time.Time) map[string]string {
	sch, ok := vitals.SchemaFor(kind)
	if !ok {
		return nil
	}

	today := now.UTC().Truncate(24 * time.Hour)
	cutoff := today.AddDate(0, 0, -windowDays)

	var window []vitals.Entry
	for _, e := range entries {
		d, err := time.Parse(vitals.DateLayout, e.EntryDate)
		if err != nil {
			continue
		}
		if d.Before(cutoff) || d.After(today) {
			continue
		}
		window = append(window, e)
	}

	result := make(map[string]string, len(sch.Fields))
	for _, f := range sch.Fields {
		if len(window) == 0 {
			result[f.Name] = NoData
			continue
		}
		result[f.Name] = Average(FieldValues(window, f.Name))
	}
	return result
}

// ClassifyBloodPressure buckets a reading into four tiers, evaluated in fixed
// priority order. A nil entry reports no data.
func ClassifyBloodPressure(entry *vitals.Entry) Status {
	if entry == nil {
		return Status{Label: NoData, Severity: SeverityNone}
	}
	systolic, err1 := strconv.ParseFloat(entry.Value("systolic"), 64)
	diastolic, err2 := strconv.ParseFloat(entry.Value("diastolic"), 64)
	if err1 != nil || err2 != nil {
		return Status{Label: NoData, Severity: SeverityNone}
	}

	switch {
	case systolic < 120 && diastolic < 80:
		return Status{Label: "Normal", Severity: SeverityNormal}
	case systolic < 130 && diastolic < 80:
		return Status{Label: "Elevated", Severity: SeverityElevated}
	case systolic < 140 || diastolic < 90:
		return Status{Label: "High", Severity: SeverityHigh}
	default:
		return Status{Label: "Very high", Severity: SeverityCritical}
	}
}

// ClassifyTemperature buckets a reading. The 37.2 boundary belongs to Normal;
// the comparison order below is deliberate and must not be rearranged.
func ClassifyTemperature(entry *vitals.Entry) Status {
	if entry == nil {
		return Status{Label: NoData, Severity: SeverityNone}
	}
	temp, err := strconv.ParseFloat(entry.Value("temperature"), 64)
	if err != nil {
		return Status{Label: NoData, Severity: SeverityNone}
	}

	switch {
	case temp < 36.1:
		return Status{Label: "Low", Severity: SeverityLow}
	case temp <= 37.2:
		return Status{Label: "Normal", Severity: SeverityNormal}
	case temp <= 38.0:
		return Status{Label: "Elevated", Severity: SeverityElevated}
	default:
		return Status{Label: "Fever", Severity: SeverityHigh}
	}
}
