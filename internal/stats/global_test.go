package stats

import (
	"reflect"
	"testing"
	"time"
)

var testNow = time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)

func TestGlobalSummaryTotalsAndOrder(t *testing.T) {
	merged := MergedSeries{
		"ds1": {
			"2024-02": {Visits: 10, Downloads: 1},
			"2024-01": {Visits: 5, Downloads: 2},
		},
		"ds2": {
			"2024-01": {Visits: 3, Downloads: 4},
		},
	}

	g := GlobalSummary(merged, testNow, "2022-07")

	if g.TotalVisits != 18 || g.TotalDownloads != 7 {
		t.Errorf("totals = %d/%d, want 18/7", g.TotalVisits, g.TotalDownloads)
	}
	if g.TotalDatasets != 2 {
		t.Errorf("totalDatasets = %d, want 2", g.TotalDatasets)
	}
	if g.StartDate != "2024-01" {
		t.Errorf("startDate = %q, want 2024-01", g.StartDate)
	}

	want := []MonthCount{
		{Month: "2024-01", Visits: 8, Downloads: 6},
		{Month: "2024-02", Visits: 10, Downloads: 1},
	}
	if !reflect.DeepEqual(g.MonthlyStats, want) {
		t.Errorf("monthlyStats = %+v, want %+v", g.MonthlyStats, want)
	}
}

func TestGlobalSummaryEmptyInput(t *testing.T) {
	g := GlobalSummary(MergedSeries{}, testNow, "2022-07")

	if g.StartDate != "2022-07" {
		t.Errorf("startDate = %q, want fallback 2022-07", g.StartDate)
	}
	if g.TotalVisits != 0 || g.TotalDownloads != 0 || g.TotalDatasets != 0 {
		t.Errorf("expected zero totals, got %+v", g)
	}
	if len(g.MonthlyStats) != 0 {
		t.Errorf("expected no monthly stats, got %d", len(g.MonthlyStats))
	}
}

func TestGlobalSummaryIdempotent(t *testing.T) {
	merged := MergedSeries{
		"ds1": {"2024-01": {Visits: 5, Downloads: 2}},
	}

	first := GlobalSummary(merged, testNow, "2022-07")
	second := GlobalSummary(merged, testNow, "2022-07")

	if !reflect.DeepEqual(first, second) {
		t.Error("re-aggregating the same series must give identical results")
	}
}

func TestGlobalSummaryMatchesPerMonthSums(t *testing.T) {
	merged := MergedSeries{
		"ds1": {"2024-01": {Visits: 1, Downloads: 2}, "2024-02": {Visits: 3}},
		"ds2": {"2024-01": {Visits: 4, Downloads: 5}},
		"ds3": {"2024-02": {Downloads: 6}},
	}

	g := GlobalSummary(merged, testNow, "2022-07")

	for _, mc := range g.MonthlyStats {
		var visits, downloads int64
		for _, months := range merged {
			c := months[mc.Month]
			visits += c.Visits
			downloads += c.Downloads
		}
		if mc.Visits != visits || mc.Downloads != downloads {
			t.Errorf("%s: got %d/%d, want %d/%d", mc.Month, mc.Visits, mc.Downloads, visits, downloads)
		}
	}
}
