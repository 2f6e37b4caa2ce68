// Package vitals holds the domain model for numeric health measurements.
// The three record families (blood pressure, weight, temperature) share one
// Entry shape; a per-kind Schema describes the numeric fields so storage and
// services stay generic instead of being copied per type.
package vitals

import "time"

// Kind identifies a vital-sign record family.
type Kind string

const (
	KindBloodPressure Kind = "blood_pressure"
	KindWeight        Kind = "weight"
	KindTemperature   Kind = "temperature"
)

// DateLayout is the calendar-date wire and storage format for entry dates.
const DateLayout = "2006-01-02"

// Entry is a single measurement owned by one caller. Values carries the
// kind-specific numeric fields keyed by schema field name, in decimal text
// form so integer and fixed-precision fields share one representation.
type Entry struct {
	ID        string
	OwnerKey  string
	EntryDate string
	Values    map[string]string
	Notes     string
	CreatedAt time.Time
}

// Value returns the named numeric field, empty when absent.
func (e Entry) Value(field string) string {
	if e.Values == nil {
		return ""
	}
	return e.Values[field]
}
