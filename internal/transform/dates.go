package transform

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jittakal/sentimentetl/pkg/table"
)

// dateLayouts are tried in order; the first layout that parses wins.
// Day-first numeric forms are not accepted.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006.01.02",
	"20060102",
	"1/2/2006",
	"01/02/2006",
	"1-2-2006",
	"01-02-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// parseDate parses s with dateLayouts and returns the date at midnight UTC.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return table.DateOf(t), true
		}
	}
	return time.Time{}, false
}

// toDate converts a raw cell to a date cell. Unparseable values become nil.
func toDate(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return table.DateOf(x)
	case string:
		if t, ok := parseDate(x); ok {
			return t
		}
	case int64:
		if t, ok := parseDate(strconv.FormatInt(x, 10)); ok {
			return t
		}
	}
	return nil
}

// toLabel converts a raw cell to a 0/1 label. Anything else becomes nil.
func toLabel(v any) any {
	var n int64
	switch x := v.(type) {
	case int64:
		n = x
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return nil
		}
		n = int64(x)
	case string:
		s := strings.TrimSpace(x)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			n = i
		} else if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
			n = int64(f)
		} else {
			return nil
		}
	default:
		return nil
	}
	if n != 0 && n != 1 {
		return nil
	}
	return n
}

// toText converts a raw cell to a string cell.
func toText(v any) any {
	if v == nil {
		return nil
	}
	return table.FormatValue(v)
}
