package stats

import (
	"testing"
)

func TestDetailRoundTrip(t *testing.T) {
	months := map[string]Count{
		"2024-03": {Visits: 7, Downloads: 1},
		"2024-01": {Visits: 5, Downloads: 2},
		"2024-02": {Visits: 3, Downloads: 4},
	}
	meta := Metadata{ID: "ds1", Title: "Titre", Slug: "titre", Organization: "Org", URL: "https://example.org/ds1"}

	d := Detail("ds1", months, meta)

	if d.FirstMonth != "2024-01" || d.LastMonth != "2024-03" {
		t.Errorf("first/last = %s/%s, want 2024-01/2024-03", d.FirstMonth, d.LastMonth)
	}
	if d.TotalVisits != 15 || d.TotalDownloads != 7 {
		t.Errorf("totals = %d/%d, want 15/7", d.TotalVisits, d.TotalDownloads)
	}

	// The monthly series must be ascending and sum back to the totals.
	var visits int64
	for i, mc := range d.MonthlyStats {
		visits += mc.Visits
		if i > 0 && mc.Month <= d.MonthlyStats[i-1].Month {
			t.Errorf("monthlyStats not ascending at %d: %s", i, mc.Month)
		}
	}
	if visits != d.TotalVisits {
		t.Errorf("sum of monthly visits = %d, want totalVisits %d", visits, d.TotalVisits)
	}
}

func TestDetailEmptySeries(t *testing.T) {
	d := Detail("ds1", map[string]Count{}, PlaceholderMetadata("ds1"))

	if d.FirstMonth != "" || d.LastMonth != "" {
		t.Errorf("empty series must yield empty first/last, got %q/%q", d.FirstMonth, d.LastMonth)
	}
	if d.TotalVisits != 0 || d.TotalDownloads != 0 {
		t.Errorf("expected zero totals, got %d/%d", d.TotalVisits, d.TotalDownloads)
	}
}

func TestPlaceholderMetadata(t *testing.T) {
	m := PlaceholderMetadata("abc123")

	if m.Title != "Dataset abc123" {
		t.Errorf("title = %q", m.Title)
	}
	if m.Slug != "abc123" || m.Organization != "Inconnu" || m.OrganizationID != "" {
		t.Errorf("placeholder = %+v", m)
	}
}

func TestBuildIndexSortsByTitleCaseInsensitive(t *testing.T) {
	metadata := map[string]Metadata{
		"ds1": {ID: "ds1", Title: "zebra"},
		"ds2": {ID: "ds2", Title: "Apple"},
		"ds3": {ID: "ds3", Title: "mango"},
	}

	idx := BuildIndex(metadata, testNow)

	want := []string{"Apple", "mango", "zebra"}
	if len(idx.Datasets) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(idx.Datasets))
	}
	for i, title := range want {
		if idx.Datasets[i].Title != title {
			t.Errorf("position %d = %q, want %q", i, idx.Datasets[i].Title, title)
		}
	}
}

func TestLimitKeepsTopByVisits(t *testing.T) {
	merged := MergedSeries{
		"big":    {"2024-01": {Visits: 100}},
		"medium": {"2024-01": {Visits: 50}, "2024-02": {Visits: 10}},
		"small":  {"2024-01": {Visits: 1, Downloads: 999}},
	}

	limited := Limit(merged, 2)

	if len(limited) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(limited))
	}
	if _, ok := limited["big"]; !ok {
		t.Error("big must survive the limit")
	}
	if _, ok := limited["medium"]; !ok {
		t.Error("medium must survive the limit (60 visits)")
	}
	if _, ok := limited["small"]; ok {
		t.Error("limit ranks by visits, downloads do not count")
	}
}

func TestLimitNoopWhenSmall(t *testing.T) {
	merged := MergedSeries{"ds1": {"2024-01": {Visits: 1}}}
	if got := Limit(merged, 100); len(got) != 1 {
		t.Errorf("expected untouched series, got %d datasets", len(got))
	}
}
