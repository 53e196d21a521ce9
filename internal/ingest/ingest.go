// Package ingest streams the raw TSV traffic dumps into per-dataset
// monthly totals. Each source is read exactly once, row by row; only the
// accumulating (dataset, month) counters are kept in memory.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mgaultier/dumpstats/internal/stats"
)

// progressEvery is the row interval between progress log lines.
const progressEvery = 1_000_000

// maxLineBytes bounds a single TSV row. Rows in the dumps are short, but
// bufio.Scanner aborts the whole pass on an oversized token, so leave slack.
const maxLineBytes = 1 << 20

// Layout describes where a source keeps its columns. Columns are 0-based.
type Layout struct {
	DateCol    int
	DatasetCol int
	ValueCol   int
	MinFields  int
}

// Column layouts of the two dump files. Neither file has a header row.
//
// visits_datasets.tsv:  __id, date_metric, dataset_id, organization_id, nb_visit
// visits_resources.tsv: __id, date_metric, resource_id, dataset_id, organization_id, nb_visit
//
// Resource rows are aggregated by dataset_id, not resource_id.
var (
	VisitsLayout    = Layout{DateCol: 1, DatasetCol: 2, ValueCol: 4, MinFields: 5}
	DownloadsLayout = Layout{DateCol: 1, DatasetCol: 3, ValueCol: 5, MinFields: 6}
)

// RowStats counts what happened during one aggregation pass.
type RowStats struct {
	Rows   int64
	Errors int64
}

// Aggregator streams one delimited source into a stats.Series.
type Aggregator struct {
	name    string
	layout  Layout
	verbose bool
}

// New creates an aggregator for one source. The name only labels log lines.
func New(name string, layout Layout, verbose bool) *Aggregator {
	return &Aggregator{name: name, layout: layout, verbose: verbose}
}

// AggregateFile opens and aggregates a dump file. A file that cannot be
// opened is a fatal error for the whole run.
func (a *Aggregator) AggregateFile(ctx context.Context, path string) (stats.Series, RowStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, RowStats{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	log.Printf("reading %s (%s)...", a.name, path)
	return a.Aggregate(ctx, f)
}

// Aggregate reads rows from r one at a time and accumulates per-dataset
// monthly totals. Malformed rows (too few fields, non-numeric value) are
// counted as errors and skipped. Rows with an empty dataset id or an
// underivable month are dropped silently: the row is well-formed, the data
// is just unusable. The run never aborts on a bad row.
func (a *Aggregator) Aggregate(ctx context.Context, r io.Reader) (stats.Series, RowStats, error) {
	series := make(stats.Series)
	var rs RowStats
	start := time.Now()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		rs.Rows++
		if rs.Rows%progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, rs, err
			}
			log.Printf("  %s rows processed (%.1fs)", humanize.Comma(rs.Rows), time.Since(start).Seconds())
		}

		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < a.layout.MinFields {
			rs.Errors++
			a.logRowError(rs, "row has %d fields, want at least %d", len(fields), a.layout.MinFields)
			continue
		}

		value, err := strconv.ParseInt(strings.TrimSpace(fields[a.layout.ValueCol]), 10, 64)
		if err != nil {
			rs.Errors++
			a.logRowError(rs, "bad value %q", fields[a.layout.ValueCol])
			continue
		}

		// An empty dataset id or an underivable month is a data-quality
		// gap, not a format violation: dropped without touching the
		// error counter, unlike the two cases above.
		datasetID := strings.TrimSpace(fields[a.layout.DatasetCol])
		month := stats.MonthOf(strings.TrimSpace(fields[a.layout.DateCol]))
		if datasetID == "" || month == "" {
			continue
		}

		series.Add(datasetID, month, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, rs, fmt.Errorf("reading %s: %w", a.name, err)
	}

	log.Printf("  %s rows read in %.1fs, %s unique datasets",
		humanize.Comma(rs.Rows), time.Since(start).Seconds(), humanize.Comma(int64(len(series))))
	if rs.Errors > 0 {
		log.Printf("  %s malformed rows skipped", humanize.Comma(rs.Errors))
	}

	return series, rs, nil
}

func (a *Aggregator) logRowError(rs RowStats, format string, args ...any) {
	if a.verbose && rs.Errors <= 10 {
		log.Printf("  %s row %d: %s", a.name, rs.Rows, fmt.Sprintf(format, args...))
	}
}
