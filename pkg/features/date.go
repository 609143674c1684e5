package features

import (
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
)

// timestampLayouts are tried in order. Fractional seconds are accepted by
// every layout that ends in seconds.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 style timestamp. Zoned timestamps keep
// their offset so calendar fields are read in that zone; unzoned ones are UTC.
func ParseTimestamp(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DayOfWeek numbers weekdays Monday=0 through Sunday=6.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ExtractDateFeatures returns a copy of df with year, month, day, hour and
// day-of-week columns derived from TransactionStartTime. Rows whose
// timestamp is missing or unparseable get nulls in all five columns. The
// timestamp column itself is kept.
func ExtractDateFeatures(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := RequireColumns(df, ColStartTime); err != nil {
		return df, err
	}

	raw, present := Strings(df, ColStartTime)
	n := len(raw)
	years := make([]int, n)
	months := make([]int, n)
	days := make([]int, n)
	hours := make([]int, n)
	weekdays := make([]int, n)
	ok := make([]bool, n)

	for i, v := range raw {
		if !present[i] {
			continue
		}
		t, parsed := ParseTimestamp(v)
		if !parsed {
			continue
		}
		years[i] = t.Year()
		months[i] = int(t.Month())
		days[i] = t.Day()
		hours[i] = t.Hour()
		weekdays[i] = DayOfWeek(t)
		ok[i] = true
	}

	return mutate(df,
		intSeries(ColYear, years, ok),
		intSeries(ColMonth, months, ok),
		intSeries(ColDay, days, ok),
		intSeries(ColHour, hours, ok),
		intSeries(ColDayOfWeek, weekdays, ok),
	)
}
