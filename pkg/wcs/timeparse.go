package wcs

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// wcsTimeLayout is the naive ISO-8601 form the service expects, before the
// literal Z is appended.
const wcsTimeLayout = "2006-01-02T15:04:05"

var errUnparseableTime = errors.New("unrecognised date/time")

// ordinal day suffixes: "21st", "2nd", "3rd", "4th".
var ordinalSuffix = regexp.MustCompile(`\b(\d{1,2})(?i:st|nd|rd|th)\b`)

// Day-first layouts are tried before the generic parser so that "1/2/2015"
// means 1 February. Month names match case-insensitively.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2/1/2006",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2 January 2006",
	"2 January 2006 15:04",
	"2 January 2006 15:04:05",
	"2 Jan 2006",
	"2 Jan 2006 15:04",
	"January 2 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"Jan 2, 2006",
}

// parseFreeformTime parses a loosely written date or date-time. The result
// keeps the wall-clock fields exactly as written; any zone is discarded.
func parseFreeformTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errUnparseableTime
	}
	// "2015-04-21T" carries a date and an empty time part.
	s = strings.TrimSuffix(s, "T")
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s = strings.Join(strings.Fields(s), " ")

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return naive(t), nil
		}
	}

	t, err := dateparse.ParseIn(s, time.UTC, dateparse.RetryAmbiguousDateWithSwap(true))
	if err != nil {
		return time.Time{}, errUnparseableTime
	}
	return naive(t), nil
}

func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
