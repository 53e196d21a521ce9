package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mgaultier/dumpstats/internal/stats"
)

func aggregate(t *testing.T, layout Layout, rows ...string) (stats.Series, RowStats) {
	t.Helper()
	a := New("test", layout, false)
	series, rs, err := a.Aggregate(context.Background(), strings.NewReader(strings.Join(rows, "\n")))
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	return series, rs
}

func TestAggregateVisitsSumsPerMonth(t *testing.T) {
	series, rs := aggregate(t, VisitsLayout,
		"1\t2024-01-05\tds1\torg1\t10",
		"2\t2024-01-20\tds1\torg1\t5",
		"3\t2024-02-01\tds1\torg1\t7",
		"4\t2024-01-05\tds2\torg2\t3",
	)

	if rs.Rows != 4 || rs.Errors != 0 {
		t.Errorf("expected 4 rows / 0 errors, got %d/%d", rs.Rows, rs.Errors)
	}
	if got := series["ds1"]["2024-01"]; got != 15 {
		t.Errorf("ds1 2024-01 = %d, want 15", got)
	}
	if got := series["ds1"]["2024-02"]; got != 7 {
		t.Errorf("ds1 2024-02 = %d, want 7", got)
	}
	if got := series["ds2"]["2024-01"]; got != 3 {
		t.Errorf("ds2 2024-01 = %d, want 3", got)
	}
}

func TestAggregateDownloadsLayout(t *testing.T) {
	// Resource rows aggregate by dataset id (col 3), not resource id.
	series, _ := aggregate(t, DownloadsLayout,
		"1\t2024-03-01\tres-a\tds1\torg1\t4",
		"2\t2024-03-02\tres-b\tds1\torg1\t6",
	)

	if got := series["ds1"]["2024-03"]; got != 10 {
		t.Errorf("ds1 2024-03 = %d, want 10", got)
	}
	if _, ok := series["res-a"]; ok {
		t.Error("resource id must not appear as a dataset key")
	}
}

func TestAggregateShortRowCountedAsError(t *testing.T) {
	series, rs := aggregate(t, VisitsLayout,
		"1\t2024-01-05\tds1\torg1", // 4 fields, needs 5
		"2\t2024-01-05\tds1\torg1\t10",
	)

	if rs.Errors != 1 {
		t.Errorf("expected 1 error, got %d", rs.Errors)
	}
	if got := series["ds1"]["2024-01"]; got != 10 {
		t.Errorf("short row must not contribute; ds1 = %d, want 10", got)
	}
}

func TestAggregateBadValueCountedAsError(t *testing.T) {
	series, rs := aggregate(t, VisitsLayout,
		"1\t2024-01-05\tds1\torg1\tnotanumber",
		"2\t2024-01-05\tds1\torg1\t2",
	)

	if rs.Errors != 1 {
		t.Errorf("expected 1 error, got %d", rs.Errors)
	}
	if got := series["ds1"]["2024-01"]; got != 2 {
		t.Errorf("ds1 2024-01 = %d, want 2", got)
	}
}

func TestAggregateSilentSkips(t *testing.T) {
	// Empty dataset id and underivable month are data-quality drops,
	// not format errors: skipped without touching the error counter.
	series, rs := aggregate(t, VisitsLayout,
		"1\t2024-01-05\t\torg1\t10",
		"2\t2024\tds1\torg1\t10",
		"3\t\tds1\torg1\t10",
	)

	if rs.Rows != 3 {
		t.Errorf("expected 3 rows read, got %d", rs.Rows)
	}
	if rs.Errors != 0 {
		t.Errorf("silent skips must not count as errors, got %d", rs.Errors)
	}
	if len(series) != 0 {
		t.Errorf("expected empty series, got %d datasets", len(series))
	}
}

func TestAggregateNoDoubleCounting(t *testing.T) {
	rows := []string{
		"1\t2024-01-05\tds1\torg1\t1",
		"2\t2024-01-06\tds1\torg1\t1",
		"3\t2024-02-01\tds1\torg1\t1",
		"4\tbad", // error row
		"5\t2024-02-02\tds1\torg1\t1",
	}
	series, rs := aggregate(t, VisitsLayout, rows...)

	var total int64
	for _, n := range series["ds1"] {
		total += n
	}
	validRows := rs.Rows - rs.Errors
	if total != validRows {
		t.Errorf("sum over series = %d, want %d valid rows", total, validRows)
	}
}

func TestAggregateFileMissing(t *testing.T) {
	a := New("visits", VisitsLayout, false)
	_, _, err := a.AggregateFile(context.Background(), filepath.Join(t.TempDir(), "nope.tsv"))
	if err == nil {
		t.Fatal("expected error for missing source file")
	}
}

func TestAggregateFileReadsWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visits.tsv")
	content := "1\t2024-01-05\tds1\torg1\t10\n2\t2024-01-20\tds1\torg1\t5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	a := New("visits", VisitsLayout, false)
	series, rs, err := a.AggregateFile(context.Background(), path)
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if rs.Rows != 2 {
		t.Errorf("expected 2 rows, got %d", rs.Rows)
	}
	if got := series["ds1"]["2024-01"]; got != 15 {
		t.Errorf("ds1 2024-01 = %d, want 15", got)
	}
}

func TestAggregateFeedsMerge(t *testing.T) {
	// Raw visit rows with no downloads source end up as (15, 0) in the
	// merged series.
	series, _ := aggregate(t, VisitsLayout,
		"1\t2024-01-05\tds1\torg1\t10",
		"2\t2024-01-20\tds1\torg1\t5",
	)

	merged := stats.Merge(series, stats.Series{})

	if got := merged["ds1"]["2024-01"]; got != (stats.Count{Visits: 15}) {
		t.Errorf("merged ds1 2024-01 = %+v, want (15, 0)", got)
	}
}
