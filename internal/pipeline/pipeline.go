// Package pipeline orchestrates a full dump-processing run.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mgaultier/dumpstats/internal/catalog"
	"github.com/mgaultier/dumpstats/internal/config"
	"github.com/mgaultier/dumpstats/internal/ingest"
	"github.com/mgaultier/dumpstats/internal/output"
	"github.com/mgaultier/dumpstats/internal/stats"
)

// Options are the run modes.
type Options struct {
	// DryRun executes the whole pipeline but writes no files.
	DryRun bool
	// Limit restricts processing to the top datasets by total visits
	// after merging. Same algorithm, smaller working set.
	Limit bool
	// SkipMetadata uses placeholder metadata everywhere instead of
	// querying the catalog API.
	SkipMetadata bool
	// Verbose surfaces per-row error diagnostics.
	Verbose bool
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full run.
type Result struct {
	Steps  []StepResult
	Report catalog.RunReport
}

// Pipeline runs the steps: aggregate both sources, merge, global stats,
// top-N, metadata, artifacts, detail reports.
type Pipeline struct {
	cfg   *config.Config
	cache *catalog.Cache
	now   func() time.Time
}

// New creates a pipeline. cache may be nil (no metadata caching, no run
// reports).
func New(cfg *config.Config, cache *catalog.Cache) *Pipeline {
	return &Pipeline{cfg: cfg, cache: cache, now: time.Now}
}

func (r *Result) step(name, summary string) {
	r.Steps = append(r.Steps, StepResult{Name: name, Summary: summary})
}

func (r *Result) fail(name string, err error) *Result {
	r.Steps = append(r.Steps, StepResult{Name: name, Err: err})
	return r
}

// Run executes the full pipeline. It returns early with the failing step
// on fatal errors (unreadable source, failed write); row-level problems
// are counted, never fatal.
func (p *Pipeline) Run(ctx context.Context, opts Options) *Result {
	r := &Result{}
	start := p.now()
	now := start

	// Step 1+2: stream both dumps into per-dataset monthly series.
	visitsAgg := ingest.New("visits", ingest.VisitsLayout, opts.Verbose)
	visits, visitStats, err := visitsAgg.AggregateFile(ctx, p.cfg.Sources.VisitsTSV)
	if err != nil {
		return r.fail("Aggregate visits", err)
	}
	r.step("Aggregate visits", fmt.Sprintf("%s rows, %s errors, %s datasets",
		humanize.Comma(visitStats.Rows), humanize.Comma(visitStats.Errors), humanize.Comma(int64(len(visits)))))

	downloadsAgg := ingest.New("downloads", ingest.DownloadsLayout, opts.Verbose)
	downloads, downloadStats, err := downloadsAgg.AggregateFile(ctx, p.cfg.Sources.DownloadsTSV)
	if err != nil {
		return r.fail("Aggregate downloads", err)
	}
	r.step("Aggregate downloads", fmt.Sprintf("%s rows, %s errors, %s datasets",
		humanize.Comma(downloadStats.Rows), humanize.Comma(downloadStats.Errors), humanize.Comma(int64(len(downloads)))))

	// Step 3: merge.
	log.Println("merging series...")
	merged := stats.Merge(visits, downloads)
	r.step("Merge", fmt.Sprintf("%s datasets total", humanize.Comma(int64(len(merged)))))

	if opts.Limit {
		merged = stats.Limit(merged, p.cfg.Ranking.TopN)
		r.step("Limit", fmt.Sprintf("working set reduced to %d datasets", len(merged)))
		log.Printf("limit mode: processing %d datasets", len(merged))
	}

	// Step 4: global stats.
	log.Println("computing global stats...")
	global := stats.GlobalSummary(merged, now, p.cfg.Ranking.AllTimeStart)
	r.step("Global stats", fmt.Sprintf("%s visits, %s downloads since %s",
		humanize.Comma(global.TotalVisits), humanize.Comma(global.TotalDownloads), global.StartDate))

	// Step 5: top-N per window.
	log.Println("computing top datasets per window...")
	tops := stats.TopN(merged, now, p.cfg.Ranking.AllTimeStart, p.cfg.Ranking.TopN)
	r.step("Top-N", fmt.Sprintf("%d datasets across all leaderboards", len(tops.IDs)))

	// Step 6: metadata.
	var metadata map[string]stats.Metadata
	if opts.SkipMetadata {
		metadata = catalog.ResolvePlaceholders(tops.IDs)
		r.step("Metadata", fmt.Sprintf("skipped, %d placeholders", len(metadata)))
	} else {
		client := catalog.NewClient(p.cfg.Catalog.BaseURL, p.cfg.RequestTimeout(), p.cfg.RateLimitDelay(), p.cache)
		metadata, err = client.Resolve(ctx, tops.IDs)
		if err != nil {
			return r.fail("Metadata", err)
		}
		r.step("Metadata", fmt.Sprintf("%d datasets resolved", len(metadata)))
	}

	// Step 7: write the three main artifacts.
	sink := output.NewSink(p.cfg.Output.DataDir, opts.DryRun)
	top := stats.Finalize(tops, metadata, now)
	index := stats.BuildIndex(metadata, now)

	for _, artifact := range []struct {
		path string
		data any
	}{
		{"global-stats.json", global},
		{"top-datasets.json", top},
		{"datasets-index.json", index},
	} {
		if err := sink.WriteJSON(artifact.path, artifact.data); err != nil {
			return r.fail("Write artifacts", err)
		}
	}
	r.step("Write artifacts", "global-stats.json, top-datasets.json, datasets-index.json")

	// Step 8: one detail report per ranked dataset. Ids missing from the
	// merged series are tolerated and skipped.
	written := 0
	for id, meta := range metadata {
		months, ok := merged[id]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return r.fail("Detail reports", err)
		}
		detail := stats.Detail(id, months, meta)
		if err := sink.WriteJSON(filepath.Join("datasets", id+".json"), detail); err != nil {
			return r.fail("Detail reports", err)
		}
		written++
	}
	r.step("Detail reports", fmt.Sprintf("%d dataset files", written))

	r.Report = catalog.RunReport{
		VisitRows:      visitStats.Rows,
		VisitErrors:    visitStats.Errors,
		DownloadRows:   downloadStats.Rows,
		DownloadErrors: downloadStats.Errors,
		Datasets:       len(merged),
		RankedDatasets: len(tops.IDs),
		DurationSecs:   time.Since(start).Seconds(),
		DryRun:         opts.DryRun,
	}
	if p.cache != nil {
		if err := p.cache.RecordRun(r.Report); err != nil {
			log.Printf("recording run report: %v", err)
		}
	}

	return r
}
