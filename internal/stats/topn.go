package stats

import (
	"sort"
	"time"
)

// Window names, also the JSON keys of top-datasets.json.
const (
	WindowWeek    = "week"
	WindowMonth   = "month"
	WindowYear    = "year"
	WindowAllTime = "allTime"
)

// window is one ranking period with its trend-reference previous period.
// Bounds are inclusive month keys.
type window struct {
	name      string
	start     string
	end       string
	prevStart string
	prevEnd   string
}

// windows returns the four ranking periods anchored at now.
//
// The year window's previous period is the preceding non-overlapping
// 12-month block, hence the 24..13 bounds; this is intentionally not the
// adjacent-month offset the week and month windows use. The allTime
// previous period is degenerate (a single fixed month) and is never
// evaluated: its baseline is always empty, so allTime trends are always 0.
func windows(now time.Time, allTimeStart string) []window {
	cur := CurrentMonth(now)
	return []window{
		{WindowWeek, cur, cur, MonthsAgo(now, 1), MonthsAgo(now, 1)},
		{WindowMonth, MonthsAgo(now, 1), MonthsAgo(now, 1), MonthsAgo(now, 2), MonthsAgo(now, 2)},
		{WindowYear, MonthsAgo(now, 12), cur, MonthsAgo(now, 24), MonthsAgo(now, 13)},
		{WindowAllTime, allTimeStart, cur, allTimeStart, allTimeStart},
	}
}

// periodTotals sums each dataset's counts over [start, end]. Datasets with
// zero on both metrics for the period are left out entirely.
func periodTotals(merged MergedSeries, start, end string) map[string]Count {
	totals := make(map[string]Count)
	for datasetID, months := range merged {
		var t Count
		for month, c := range months {
			if start <= month && month <= end {
				t.Visits += c.Visits
				t.Downloads += c.Downloads
			}
		}
		if t.Visits > 0 || t.Downloads > 0 {
			totals[datasetID] = t
		}
	}
	return totals
}

// RankedEntry is a provisional top-N entry before metadata resolution.
type RankedEntry struct {
	ID       string
	Value    int64
	Previous int64
}

// WindowRanks holds one window's provisional lists for both metrics.
type WindowRanks struct {
	Visits    []RankedEntry
	Downloads []RankedEntry
}

// Tops is the Window Ranker output: provisional per-window rankings plus
// the union of every dataset id that made any list. Only ids in that set
// get a metadata lookup and a detail report.
type Tops struct {
	Windows map[string]WindowRanks
	IDs     map[string]struct{}
}

// Trend returns the period-over-period change in percent. A zero previous
// value yields exactly 0, whatever the current value: new arrivals have no
// meaningful baseline and dividing by zero is not an option.
func Trend(current, previous int64) float64 {
	if previous <= 0 {
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

// TopN ranks every window by both metrics, keeping the n highest datasets
// per list. Sort is descending by value with dataset id ascending as the
// tie-break, so equal values always come out in the same order.
func TopN(merged MergedSeries, now time.Time, allTimeStart string, n int) *Tops {
	tops := &Tops{
		Windows: make(map[string]WindowRanks, 4),
		IDs:     make(map[string]struct{}),
	}

	for _, w := range windows(now, allTimeStart) {
		current := periodTotals(merged, w.start, w.end)

		// The allTime baseline is deliberately empty: every allTime
		// trend is 0 by construction.
		var previous map[string]Count
		if w.name != WindowAllTime {
			previous = periodTotals(merged, w.prevStart, w.prevEnd)
		}

		wr := WindowRanks{
			Visits:    rank(current, previous, n, func(c Count) int64 { return c.Visits }),
			Downloads: rank(current, previous, n, func(c Count) int64 { return c.Downloads }),
		}
		tops.Windows[w.name] = wr

		for _, e := range wr.Visits {
			tops.IDs[e.ID] = struct{}{}
		}
		for _, e := range wr.Downloads {
			tops.IDs[e.ID] = struct{}{}
		}
	}

	return tops
}

func rank(current, previous map[string]Count, n int, metric func(Count) int64) []RankedEntry {
	entries := make([]RankedEntry, 0, len(current))
	for datasetID, c := range current {
		entries = append(entries, RankedEntry{
			ID:       datasetID,
			Value:    metric(c),
			Previous: metric(previous[datasetID]),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].ID < entries[j].ID
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Finalize attaches resolved metadata, trend and 1-based ranks to the
// provisional rankings, producing the top-datasets.json artifact.
func Finalize(tops *Tops, metadata map[string]Metadata, now time.Time) TopDatasets {
	td := TopDatasets{LastUpdate: now.Format(time.RFC3339)}
	td.Week = finalizeWindow(tops.Windows[WindowWeek], metadata)
	td.Month = finalizeWindow(tops.Windows[WindowMonth], metadata)
	td.Year = finalizeWindow(tops.Windows[WindowYear], metadata)
	td.AllTime = finalizeWindow(tops.Windows[WindowAllTime], metadata)
	return td
}

func finalizeWindow(wr WindowRanks, metadata map[string]Metadata) MetricLists {
	return MetricLists{
		Visits:    finalizeList(wr.Visits, metadata),
		Downloads: finalizeList(wr.Downloads, metadata),
	}
}

func finalizeList(entries []RankedEntry, metadata map[string]Metadata) []Ranking {
	rankings := make([]Ranking, 0, len(entries))
	for i, e := range entries {
		meta, ok := metadata[e.ID]
		if !ok {
			meta = PlaceholderMetadata(e.ID)
		}
		rankings = append(rankings, Ranking{
			ID:             e.ID,
			Title:          meta.Title,
			Slug:           meta.Slug,
			Organization:   meta.Organization,
			OrganizationID: meta.OrganizationID,
			Value:          e.Value,
			PreviousValue:  e.Previous,
			Trend:          Trend(e.Value, e.Previous),
			Rank:           i + 1,
		})
	}
	return rankings
}
