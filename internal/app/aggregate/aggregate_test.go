package aggregate

import (
	"testing"
	"time"

	"github.com/vitaltrack/healthd/internal/app/domain/vitals"
)

func TestAverage(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		want   string
	}{
		{"empty returns zero sentinel", nil, "0.0"},
		{"single value", []float64{72.5}, "72.5"},
		{"mean rounded to one decimal", []float64{120, 118, 135}, "124.3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Average(tc.values); got != tc.want {
				t.Fatalf("Average(%v) = %q, want %q", tc.values, got, tc.want)
			}
		})
	}
}

func TestDelta(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		want   string
	}{
		{"empty returns zero sentinel", nil, "0.0"},
		{"single value returns zero sentinel", []float64{80}, "0.0"},
		{"positive delta gets plus prefix", []float64{75.0, 73.2}, "+1.8"},
		{"zero delta still gets plus prefix", []float64{80, 80}, "+0.0"},
		{"negative delta", []float64{71.4, 73.2}, "-1.8"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Delta(tc.values); got != tc.want {
				t.Fatalf("Delta(%v) = %q, want %q", tc.values, got, tc.want)
			}
		})
	}
}

func TestFieldValuesSkipsUnparsable(t *testing.T) {
	entries := []vitals.Entry{
		{Values: map[string]string{"weight": "72.50"}},
		{Values: map[string]string{"weight": ""}},
		{Values: map[string]string{"weight": "71.80"}},
	}
	got := FieldValues(entries, "weight")
	if len(got) != 2 || got[0] != 72.5 || got[1] != 71.8 {
		t.Fatalf("unexpected values %v", got)
	}
}

func TestRangeAverageFiltersWindow(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	entries := []vitals.Entry{
		{EntryDate: "2024-03-09", Values: map[string]string{"systolic": "120", "diastolic": "80"}},
		{EntryDate: "2024-03-04", Values: map[string]string{"systolic": "130", "diastolic": "86"}},
		{EntryDate: "2024-01-01", Values: map[string]string{"systolic": "180", "diastolic": "110"}},
	}

	got := RangeAverage(entries, 7, vitals.KindBloodPressure, now)
	if got["systolic"] != "125.0" || got["diastolic"] != "83.0" {
		t.Fatalf("unexpected window averages %v", got)
	}
}

func TestRangeAverageEmptyWindowReportsNoData(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	entries := []vitals.Entry{
		{EntryDate: "2023-12-01", Values: map[string]string{"weight": "72.50"}},
	}

	got := RangeAverage(entries, 30, vitals.KindWeight, now)
	if got["weight"] != NoData {
		t.Fatalf("expected %q, got %v", NoData, got)
	}
}

func bpEntry(systolic, diastolic string) *vitals.Entry {
	return &vitals.Entry{Values: map[string]string{"systolic": systolic, "diastolic": diastolic}}
}

func TestClassifyBloodPressure(t *testing.T) {
	cases := []struct {
		name  string
		entry *vitals.Entry
		want  string
	}{
		{"nil entry", nil, "No data"},
		{"normal", bpEntry("119", "79"), "Normal"},
		{"elevated on systolic boundary", bpEntry("120", "79"), "Elevated"},
		{"high", bpEntry("135", "85"), "High"},
		{"very high", bpEntry("145", "95"), "Very high"},
		{"diastolic alone can push to high", bpEntry("118", "92"), "High"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyBloodPressure(tc.entry); got.Label != tc.want {
				t.Fatalf("got %q, want %q", got.Label, tc.want)
			}
		})
	}
}

func tempEntry(v string) *vitals.Entry {
	return &vitals.Entry{Values: map[string]string{"temperature": v}}
}

func TestClassifyTemperature(t *testing.T) {
	cases := []struct {
		name  string
		entry *vitals.Entry
		want  string
	}{
		{"nil entry", nil, "No data"},
		{"low", tempEntry("36.0"), "Low"},
		{"boundary 37.2 is normal", tempEntry("37.2"), "Normal"},
		{"elevated", tempEntry("37.3"), "Elevated"},
		{"fever", tempEntry("38.1"), "Fever"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyTemperature(tc.entry); got.Label != tc.want {
				t.Fatalf("got %q, want %q", got.Label, tc.want)
			}
		})
	}
}
