package stats

// Series maps dataset id -> month key -> accumulated value for one source.
type Series map[string]map[string]int64

// Add accumulates n for a (dataset, month) pair, creating the inner map on
// first sight. A missing pair reads as zero; it is never materialized.
func (s Series) Add(datasetID, month string, n int64) {
	months, ok := s[datasetID]
	if !ok {
		months = make(map[string]int64)
		s[datasetID] = months
	}
	months[month] += n
}

// Count holds the two traffic metrics tracked for every (dataset, month) pair.
type Count struct {
	Visits    int64 `json:"visits"`
	Downloads int64 `json:"downloads"`
}

// MergedSeries maps dataset id -> month key -> combined counts.
// A month absent from a dataset's inner map means zero on both metrics;
// zero-valued entries are never materialized.
type MergedSeries map[string]map[string]Count

// MonthCount is one point of a monthly time series.
type MonthCount struct {
	Month     string `json:"month"`
	Visits    int64  `json:"visits"`
	Downloads int64  `json:"downloads"`
}

// GlobalStats is the run-level summary artifact (global-stats.json).
type GlobalStats struct {
	TotalVisits    int64        `json:"totalVisits"`
	TotalDownloads int64        `json:"totalDownloads"`
	TotalDatasets  int          `json:"totalDatasets"`
	StartDate      string       `json:"startDate"`
	LastUpdate     string       `json:"lastUpdate"`
	MonthlyStats   []MonthCount `json:"monthlyStats"`
}

// Metadata is the catalog record resolved for a dataset. Lookups that fail
// yield placeholder values, never an error.
type Metadata struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Slug           string `json:"slug"`
	Organization   string `json:"organization"`
	OrganizationID string `json:"organizationId"`
	URL            string `json:"url"`
}

// Ranking is one entry of a top-N list.
type Ranking struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Slug           string  `json:"slug"`
	Organization   string  `json:"organization"`
	OrganizationID string  `json:"organizationId"`
	Value          int64   `json:"value"`
	PreviousValue  int64   `json:"previousValue"`
	Trend          float64 `json:"trend"`
	Rank           int     `json:"rank"`
}

// MetricLists holds the two ranked lists of one window.
type MetricLists struct {
	Visits    []Ranking `json:"visits"`
	Downloads []Ranking `json:"downloads"`
}

// TopDatasets is the leaderboard artifact (top-datasets.json).
type TopDatasets struct {
	LastUpdate string      `json:"lastUpdate"`
	Week       MetricLists `json:"week"`
	Month      MetricLists `json:"month"`
	Year       MetricLists `json:"year"`
	AllTime    MetricLists `json:"allTime"`
}

// IndexEntry is one row of the searchable dataset index.
type IndexEntry struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Slug           string `json:"slug"`
	Organization   string `json:"organization"`
	OrganizationID string `json:"organizationId"`
}

// Index is the search index artifact (datasets-index.json).
type Index struct {
	LastUpdate string       `json:"lastUpdate"`
	Datasets   []IndexEntry `json:"datasets"`
}

// DatasetDetail is the per-dataset report artifact (datasets/{id}.json).
type DatasetDetail struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Slug           string       `json:"slug"`
	Organization   string       `json:"organization"`
	OrganizationID string       `json:"organizationId"`
	URL            string       `json:"url"`
	TotalVisits    int64        `json:"totalVisits"`
	TotalDownloads int64        `json:"totalDownloads"`
	MonthlyStats   []MonthCount `json:"monthlyStats"`
	FirstMonth     string       `json:"firstMonth"`
	LastMonth      string       `json:"lastMonth"`
}
