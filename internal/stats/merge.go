package stats

// Merge combines the visits and downloads series into one structure keyed
// by dataset id. The dataset set is the union of both inputs; per dataset,
// the month set is the union of months seen on either side, with the
// missing side reading as zero. Pure, no I/O.
func Merge(visits, downloads Series) MergedSeries {
	merged := make(MergedSeries, len(visits)+len(downloads))

	for datasetID, months := range visits {
		dst := make(map[string]Count, len(months))
		for month, n := range months {
			dst[month] = Count{Visits: n}
		}
		merged[datasetID] = dst
	}

	for datasetID, months := range downloads {
		dst, ok := merged[datasetID]
		if !ok {
			dst = make(map[string]Count, len(months))
			merged[datasetID] = dst
		}
		for month, n := range months {
			c := dst[month]
			c.Downloads = n
			dst[month] = c
		}
	}

	return merged
}
