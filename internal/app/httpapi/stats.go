package httpapi

import (
	"context"
	"time"

	"github.com/vitaltrack/healthd/internal/app/aggregate"
	"github.com/vitaltrack/healthd/internal/app/domain/vitals"
	"github.com/vitaltrack/healthd/internal/app/identity"
)

// buildStats derives presentation metrics from the ordered listings: the
// latest reading's classification, overall averages and deltas, and windowed
// range averages.
func (h *handler) buildStats(ctx context.Context, caller identity.Caller, windowDays int) (map[string]interface{}, error) {
	now := time.Now().UTC()
	stats := make(map[string]interface{}, len(recordSlugs))

	for slug, kind := range recordSlugs {
		entries, err := h.app.Records.List(ctx, caller, kind)
		if err != nil {
			return nil, err
		}

		var latest *vitals.Entry
		if len(entries) > 0 {
			latest = &entries[0]
		}

		sch, _ := vitals.SchemaFor(kind)
		fields := make(map[string]interface{}, len(sch.Fields))
		for _, f := range sch.Fields {
			values := aggregate.FieldValues(entries, f.Name)
			fields[f.Name] = map[string]string{
				"average": aggregate.Average(values),
				"delta":   aggregate.Delta(values),
			}
		}

		entry := map[string]interface{}{
			"count":         len(entries),
			"fields":        fields,
			"range_average": aggregate.RangeAverage(entries, windowDays, kind, now),
		}
		if latest != nil {
			entry["latest"] = renderEntry(kind, *latest)
		} else {
			entry["latest"] = nil
		}

		switch kind {
		case vitals.KindBloodPressure:
			entry["status"] = aggregate.ClassifyBloodPressure(latest).Label
		case vitals.KindTemperature:
			entry["status"] = aggregate.ClassifyTemperature(latest).Label
		}

		stats[slug] = entry
	}

	return stats, nil
}
