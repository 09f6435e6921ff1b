package history

import (
	"fmt"
	"sort"
	"time"

	"finsim/internal/domain"
)

// Finalize sorts bars ascending by timestamp, collapses duplicate timestamps
// (last one wins), fills the derived display fields, and builds the month
// groups. The returned groups partition the returned series in order.
func Finalize(bars []domain.PriceBar) ([]domain.PriceBar, []domain.MonthGroup) {
	sorted := make([]domain.PriceBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	// Collapse exact duplicate timestamps so the series is strictly
	// ascending. SliceStable keeps input order among equals, so the last
	// occurrence survives.
	series := sorted[:0]
	for _, b := range sorted {
		b.FormattedDate = formatDate(b.Timestamp)
		b.MonthKey = monthKey(b.Timestamp)
		if n := len(series); n > 0 && series[n-1].Timestamp.Equal(b.Timestamp) {
			series[n-1] = b
			continue
		}
		series = append(series, b)
	}

	// One pass over the sorted series: append each bar to its month group,
	// creating the group on first encounter.
	var months []domain.MonthGroup
	byKey := make(map[string]int)
	for _, b := range series {
		idx, ok := byKey[b.MonthKey]
		if !ok {
			idx = len(months)
			byKey[b.MonthKey] = idx
			months = append(months, domain.MonthGroup{
				Key:   b.MonthKey,
				Label: monthLabel(b.Timestamp),
			})
		}
		months[idx].Bars = append(months[idx].Bars, b)
	}

	return series, months
}

// monthKey matches the original frontend's grouping key: year and 1-based
// month with no zero padding.
func monthKey(t time.Time) string {
	return fmt.Sprintf("%d-%d", t.Year(), int(t.Month()))
}

func monthLabel(t time.Time) string {
	return t.Format("Jan '06")
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2")
}
