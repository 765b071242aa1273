package search

import (
	"time"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
)

// DateBucket is a relative add-date filter. Buckets are rolling windows
// measured back from the moment of the query, not calendar boundaries:
// "today" means the last 24 hours, "this_week" the last 7 days, and so on.
type DateBucket string

const (
	BucketToday     DateBucket = "today"
	BucketThisWeek  DateBucket = "this_week"
	BucketThisMonth DateBucket = "this_month"
	BucketThisYear  DateBucket = "this_year"
)

// ParseDateBucket validates a date bucket value. The empty string means no
// date filter.
func ParseDateBucket(s string) (DateBucket, error) {
	switch DateBucket(s) {
	case "", BucketToday, BucketThisWeek, BucketThisMonth, BucketThisYear:
		return DateBucket(s), nil
	}
	return "", apperr.InvalidArgumentf("invalid date bucket %q", s)
}

// Since returns the inclusive lower bound the bucket selects, relative to
// now.
func (b DateBucket) Since(now time.Time) time.Time {
	switch b {
	case BucketToday:
		return now.AddDate(0, 0, -1)
	case BucketThisWeek:
		return now.AddDate(0, 0, -7)
	case BucketThisMonth:
		return now.AddDate(0, -1, 0)
	case BucketThisYear:
		return now.AddDate(-1, 0, 0)
	}
	return time.Time{}
}

// Facets are the structured filters of a search request. Zero values mean
// "no filter" for each field.
type Facets struct {
	Category   string     // substring match on category title
	Tag        string     // exact tag match
	MediaType  string     // exact media type
	AuthorID   int64      // exact owner match
	DateBucket DateBucket // relative add-date lower bound
}

// Empty reports whether no facet filter is set.
func (f Facets) Empty() bool {
	return f.Category == "" && f.Tag == "" && f.MediaType == "" &&
		f.AuthorID == 0 && f.DateBucket == ""
}
