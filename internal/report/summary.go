// Package report computes dataset statistics for a clean table and writes
// them as an XLSX workbook.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/internal/validator"
	"github.com/jittakal/sentimentetl/pkg/table"
)

// WeekdayNames are indexed by day_of_week (0 is Monday).
var WeekdayNames = [7]string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado", "Domingo"}

const (
	topWordsLimit  = 20
	minWordLength  = 4
	summarizeStage = "summarize"
)

// Breakdown counts positive and negative rows for one group.
type Breakdown struct {
	Key      string `json:"key"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
}

// Total returns Positive + Negative.
func (b Breakdown) Total() int {
	return b.Positive + b.Negative
}

// WordCount is a headline word and its frequency.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Stats summarizes a clean table.
type Stats struct {
	PeriodStart   time.Time   `json:"period_start"`
	PeriodEnd     time.Time   `json:"period_end"`
	TotalRows     int         `json:"total_rows"`
	Positive      int         `json:"positive"`
	Negative      int         `json:"negative"`
	PositiveShare float64     `json:"positive_share"`
	NegativeShare float64     `json:"negative_share"`
	Nulls         int         `json:"nulls"`
	Completeness  float64     `json:"completeness"`
	ByWeekday     []Breakdown `json:"by_weekday"`
	ByYear        []Breakdown `json:"by_year"`
	ByQuarter     []Breakdown `json:"by_quarter"`
	TopWords      []WordCount `json:"top_words"`
}

// Summarize computes Stats. Shares and completeness are percentages.
// Headline cells equal to sentinel are left out of the top words.
func Summarize(t *table.Table, sentinel string) (*Stats, error) {
	cols := make(map[string]*table.Column, 5)
	for _, req := range []struct {
		name string
		dt   table.DType
	}{
		{"date", table.Date},
		{"sentiment", table.String},
		{"day_of_week", table.Int64},
		{"year", table.Int64},
		{"quarter", table.Int64},
	} {
		c, ok := t.Column(req.name)
		if !ok || c.Type != req.dt {
			return nil, &errors.SchemaError{
				Step:   summarizeStage,
				Column: req.name,
				Reason: fmt.Sprintf("%s column required", req.dt),
			}
		}
		cols[req.name] = c
	}

	s := &Stats{
		TotalRows: t.NumRows(),
		Nulls:     t.NullCount(),
		ByWeekday: make([]Breakdown, len(WeekdayNames)),
		ByQuarter: make([]Breakdown, 4),
	}
	for i, name := range WeekdayNames {
		s.ByWeekday[i].Key = name
	}
	for q := range s.ByQuarter {
		s.ByQuarter[q].Key = "Q" + strconv.Itoa(q+1)
	}
	byYear := make(map[int64]*Breakdown)

	for i := 0; i < t.NumRows(); i++ {
		if d, ok := cols["date"].Values[i].(time.Time); ok {
			if s.PeriodStart.IsZero() || d.Before(s.PeriodStart) {
				s.PeriodStart = d
			}
			if d.After(s.PeriodEnd) {
				s.PeriodEnd = d
			}
		}

		positive := cols["sentiment"].Values[i] == validator.Positive
		count := func(b *Breakdown) {
			if positive {
				b.Positive++
			} else {
				b.Negative++
			}
		}
		if positive {
			s.Positive++
		} else {
			s.Negative++
		}

		if dow, ok := cols["day_of_week"].Values[i].(int64); ok && dow >= 0 && dow < 7 {
			count(&s.ByWeekday[dow])
		}
		if q, ok := cols["quarter"].Values[i].(int64); ok && q >= 1 && q <= 4 {
			count(&s.ByQuarter[q-1])
		}
		if y, ok := cols["year"].Values[i].(int64); ok {
			b, exists := byYear[y]
			if !exists {
				b = &Breakdown{Key: strconv.FormatInt(y, 10)}
				byYear[y] = b
			}
			count(b)
		}
	}

	years := make([]int64, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Slice(years, func(i, j int) bool { return years[i] < years[j] })
	for _, y := range years {
		s.ByYear = append(s.ByYear, *byYear[y])
	}

	if s.TotalRows > 0 {
		s.PositiveShare = float64(s.Positive) / float64(s.TotalRows) * 100
		s.NegativeShare = float64(s.Negative) / float64(s.TotalRows) * 100
	}
	if cells := t.Size(); cells > 0 {
		s.Completeness = float64(cells-s.Nulls) / float64(cells) * 100
	}
	s.TopWords = topWords(t, sentinel, topWordsLimit)

	return s, nil
}

// topWords counts lower-cased words longer than three characters across the
// headline columns, skipping sentinel cells. Ties are ordered alphabetically.
func topWords(t *table.Table, sentinel string, limit int) []WordCount {
	counts := make(map[string]int)
	for _, c := range t.Columns() {
		if !strings.HasPrefix(c.Name, "top") || c.Type != table.String {
			continue
		}
		for _, v := range c.Values {
			s, ok := v.(string)
			if !ok || (sentinel != "" && s == sentinel) {
				continue
			}
			for _, w := range strings.Fields(strings.ToLower(s)) {
				if len([]rune(w)) >= minWordLength {
					counts[w]++
				}
			}
		}
	}

	words := make([]WordCount, 0, len(counts))
	for w, n := range counts {
		words = append(words, WordCount{Word: w, Count: n})
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Word < words[j].Word
	})
	if len(words) > limit {
		words = words[:limit]
	}
	return words
}
