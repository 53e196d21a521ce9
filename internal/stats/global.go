package stats

import (
	"sort"
	"time"
)

// GlobalSummary reduces the merged series into global monthly totals and
// run-level summary numbers. Months come out ascending; an empty input
// yields startFallback as the start date rather than an error.
func GlobalSummary(merged MergedSeries, now time.Time, startFallback string) GlobalStats {
	totals := make(map[string]Count)
	for _, months := range merged {
		for month, c := range months {
			t := totals[month]
			t.Visits += c.Visits
			t.Downloads += c.Downloads
			totals[month] = t
		}
	}

	keys := make([]string, 0, len(totals))
	for month := range totals {
		keys = append(keys, month)
	}
	// Month keys are zero-padded YYYY-MM, so string order is chronological.
	sort.Strings(keys)

	g := GlobalStats{
		TotalDatasets: len(merged),
		StartDate:     startFallback,
		LastUpdate:    now.Format(time.RFC3339),
		MonthlyStats:  make([]MonthCount, 0, len(keys)),
	}
	for _, month := range keys {
		t := totals[month]
		g.TotalVisits += t.Visits
		g.TotalDownloads += t.Downloads
		g.MonthlyStats = append(g.MonthlyStats, MonthCount{Month: month, Visits: t.Visits, Downloads: t.Downloads})
	}
	if len(keys) > 0 {
		g.StartDate = keys[0]
	}
	return g
}
