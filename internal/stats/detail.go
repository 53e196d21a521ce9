package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// PlaceholderMetadata is the record used for a dataset whose catalog lookup
// failed or was skipped. "Inconnu" matches the catalog's own label for
// datasets without an organization.
func PlaceholderMetadata(id string) Metadata {
	return Metadata{
		ID:           id,
		Title:        "Dataset " + id,
		Slug:         id,
		Organization: "Inconnu",
		URL:          fmt.Sprintf("https://www.data.gouv.fr/fr/datasets/%s/", id),
	}
}

// Detail builds the full-history report for one dataset: totals over every
// month it ever appeared in, the series sorted ascending, and its first and
// last months (empty strings when the series is empty).
func Detail(id string, months map[string]Count, meta Metadata) DatasetDetail {
	keys := make([]string, 0, len(months))
	for month := range months {
		keys = append(keys, month)
	}
	sort.Strings(keys)

	d := DatasetDetail{
		ID:             id,
		Title:          meta.Title,
		Slug:           meta.Slug,
		Organization:   meta.Organization,
		OrganizationID: meta.OrganizationID,
		URL:            meta.URL,
		MonthlyStats:   make([]MonthCount, 0, len(keys)),
	}
	for _, month := range keys {
		c := months[month]
		d.TotalVisits += c.Visits
		d.TotalDownloads += c.Downloads
		d.MonthlyStats = append(d.MonthlyStats, MonthCount{Month: month, Visits: c.Visits, Downloads: c.Downloads})
	}
	if len(keys) > 0 {
		d.FirstMonth = keys[0]
		d.LastMonth = keys[len(keys)-1]
	}
	return d
}

// BuildIndex assembles the searchable index of every resolved dataset,
// sorted case-insensitively by title with dataset id as the tie-break.
func BuildIndex(metadata map[string]Metadata, now time.Time) Index {
	entries := make([]IndexEntry, 0, len(metadata))
	for id, meta := range metadata {
		entries = append(entries, IndexEntry{
			ID:             id,
			Title:          meta.Title,
			Slug:           meta.Slug,
			Organization:   meta.Organization,
			OrganizationID: meta.OrganizationID,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := strings.ToLower(entries[i].Title), strings.ToLower(entries[j].Title)
		if a != b {
			return a < b
		}
		return entries[i].ID < entries[j].ID
	})
	return Index{LastUpdate: now.Format(time.RFC3339), Datasets: entries}
}

// Limit keeps only the n datasets with the highest all-history visit
// totals. It changes the working set, never the aggregation itself; used
// for fast iteration on full dumps.
func Limit(merged MergedSeries, n int) MergedSeries {
	if len(merged) <= n {
		return merged
	}

	type datasetTotal struct {
		id     string
		visits int64
	}
	totals := make([]datasetTotal, 0, len(merged))
	for datasetID, months := range merged {
		var visits int64
		for _, c := range months {
			visits += c.Visits
		}
		totals = append(totals, datasetTotal{datasetID, visits})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].visits != totals[j].visits {
			return totals[i].visits > totals[j].visits
		}
		return totals[i].id < totals[j].id
	})

	kept := make(MergedSeries, n)
	for _, t := range totals[:n] {
		kept[t.id] = merged[t.id]
	}
	return kept
}
