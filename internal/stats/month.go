package stats

import (
	"fmt"
	"time"
)

// MonthOf derives the YYYY-MM month key from a raw date_metric value.
// The dumps carry dates as either YYYY-MM-DD or already YYYY-MM; anything
// shorter than 7 characters yields "" and the row is dropped by the caller.
func MonthOf(dateMetric string) string {
	if len(dateMetric) >= 7 {
		return dateMetric[:7]
	}
	return ""
}

// CurrentMonth returns the month key for the given time.
func CurrentMonth(now time.Time) string {
	return now.Format("2006-01")
}

// MonthsAgo returns the month key n months before the given time.
// Explicit year/month arithmetic rather than AddDate: AddDate normalizes
// day-of-month overflow (Jan 31 minus one month is Mar 3), which would
// shift the month key.
func MonthsAgo(now time.Time, n int) string {
	year, month := now.Year(), int(now.Month())-n
	for month <= 0 {
		month += 12
		year--
	}
	return fmt.Sprintf("%04d-%02d", year, month)
}
