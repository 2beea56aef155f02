package transform

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/internal/validator"
	"github.com/jittakal/sentimentetl/pkg/table"
)

// Step names, in execution order.
const (
	StepNormalizeColumnNames = "normalize_column_names"
	StepCoerceTypes          = "coerce_types"
	StepHandleMissing        = "handle_missing"
	StepRemoveDuplicates     = "remove_duplicates"
	StepValidateDates        = "validate_dates"
	StepNormalizeText        = "normalize_text"
	StepDeriveFeatures       = "derive_features"
)

// DefaultSentinel replaces missing headline text.
const DefaultSentinel = "Unknown"

// StepResult records what one step did to the table.
type StepResult struct {
	Step        string `json:"step"`
	Description string `json:"description"`
	RowsBefore  int    `json:"rows_before"`
	RowsAfter   int    `json:"rows_after"`
	NullsBefore int    `json:"nulls_before"`
	NullsAfter  int    `json:"nulls_after"`
	Changed     bool   `json:"changed"`
}

// RowsRemoved returns how many rows the step dropped.
func (r StepResult) RowsRemoved() int {
	return r.RowsBefore - r.RowsAfter
}

// StepFunc is one cleaning step. It never mutates its input.
type StepFunc func(t *table.Table) (*table.Table, StepResult, error)

// Step pairs a step name with its function.
type Step struct {
	Name string
	Fn   StepFunc
}

// Steps returns the cleaning sequence using sentinel for missing text.
func Steps(sentinel string) []Step {
	return []Step{
		{StepNormalizeColumnNames, NormalizeColumnNames},
		{StepCoerceTypes, CoerceTypes},
		{StepHandleMissing, HandleMissingWith(sentinel)},
		{StepRemoveDuplicates, RemoveDuplicates},
		{StepValidateDates, ValidateDates},
		{StepNormalizeText, NormalizeTextWith(sentinel)},
		{StepDeriveFeatures, DeriveFeatures},
	}
}

func newResult(step string, in, out *table.Table, description string) StepResult {
	return StepResult{
		Step:        step,
		Description: description,
		RowsBefore:  in.NumRows(),
		RowsAfter:   out.NumRows(),
		NullsBefore: in.NullCount(),
		NullsAfter:  out.NullCount(),
		Changed:     !in.Equal(out),
	}
}

func isTextColumn(name string) bool {
	return strings.HasPrefix(name, "top")
}

var nonWordRunes = regexp.MustCompile(`[^\p{L}\p{N}_]`)

// NormalizeColumnName trims and lower-cases name and replaces every rune
// other than a letter, digit or underscore with an underscore.
func NormalizeColumnName(name string) string {
	return nonWordRunes.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
}

// NormalizeColumnNames renames every column with NormalizeColumnName.
func NormalizeColumnNames(t *table.Table) (*table.Table, StepResult, error) {
	out, err := t.Rename(NormalizeColumnName)
	if err != nil {
		return nil, StepResult{}, &errors.SchemaError{
			Step:   StepNormalizeColumnNames,
			Column: "*",
			Reason: err.Error(),
		}
	}

	renamed := 0
	before := t.ColumnNames()
	for i, name := range out.ColumnNames() {
		if name != before[i] {
			renamed++
		}
	}
	return out, newResult(StepNormalizeColumnNames, t, out,
		fmt.Sprintf("normalized %d of %d column names", renamed, len(before))), nil
}

// CoerceTypes converts date to the date dtype, label to int64 and every
// top* column to string. Values that do not convert become null.
func CoerceTypes(t *table.Table) (*table.Table, StepResult, error) {
	for _, name := range []string{"date", "label"} {
		if _, ok := t.Column(name); !ok {
			return nil, StepResult{}, &errors.SchemaError{
				Step:   StepCoerceTypes,
				Column: name,
				Reason: "column not found",
			}
		}
	}

	out := t.Clone()
	coerced := 0
	for _, c := range out.Columns() {
		var convert func(any) any
		switch {
		case c.Name == "date":
			convert, c.Type = toDate, table.Date
		case c.Name == "label":
			convert, c.Type = toLabel, table.Int64
		case isTextColumn(c.Name):
			convert, c.Type = toText, table.String
		default:
			continue
		}
		for i, v := range c.Values {
			c.Values[i] = convert(v)
		}
		coerced++
	}

	return out, newResult(StepCoerceTypes, t, out,
		fmt.Sprintf("coerced %d columns; %d values became null", coerced, max(0, out.NullCount()-t.NullCount()))), nil
}

// HandleMissing fills nulls with DefaultSentinel for text columns.
func HandleMissing(t *table.Table) (*table.Table, StepResult, error) {
	return HandleMissingWith(DefaultSentinel)(t)
}

// HandleMissingWith returns a step that fills top* nulls with sentinel and
// other nulls with the column mode. Null dates are left for ValidateDates.
func HandleMissingWith(sentinel string) StepFunc {
	return func(t *table.Table) (*table.Table, StepResult, error) {
		out := t.Clone()
		filled := 0
		for _, c := range out.Columns() {
			if c.Name == "date" || c.NullCount() == 0 {
				continue
			}

			var fill any
			if isTextColumn(c.Name) {
				fill = sentinel
			} else if m, ok := mode(c.Values); ok {
				fill = m
			} else {
				fill = zeroFor(c.Type, sentinel)
			}
			if fill == nil {
				continue
			}

			for i, v := range c.Values {
				if v == nil {
					c.Values[i] = fill
					filled++
				}
			}
		}
		return out, newResult(StepHandleMissing, t, out, fmt.Sprintf("filled %d null values", filled)), nil
	}
}

// mode returns the most frequent non-null value; ties go to the smallest.
func mode(values []any) (any, bool) {
	counts := make(map[any]int)
	var distinct []any
	for _, v := range values {
		if v == nil {
			continue
		}
		if _, seen := counts[v]; !seen {
			distinct = append(distinct, v)
		}
		counts[v]++
	}
	if len(distinct) == 0 {
		return nil, false
	}

	sort.SliceStable(distinct, func(i, j int) bool { return less(distinct[i], distinct[j]) })
	best := distinct[0]
	for _, v := range distinct[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best, true
}

func less(a, b any) bool {
	switch x := a.(type) {
	case int64:
		if y, ok := b.(int64); ok {
			return x < y
		}
	case float64:
		if y, ok := b.(float64); ok {
			return x < y
		}
	case string:
		if y, ok := b.(string); ok {
			return x < y
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Before(y)
		}
	}
	return false
}

func zeroFor(dt table.DType, sentinel string) any {
	switch dt {
	case table.Int64:
		return int64(0)
	case table.Float64:
		return float64(0)
	case table.String:
		return sentinel
	default:
		return nil
	}
}

// RemoveDuplicates drops exact full-row duplicates, keeping the first
// occurrence and the original order.
func RemoveDuplicates(t *table.Table) (*table.Table, StepResult, error) {
	seen := make(map[string]struct{}, t.NumRows())
	out := t.Filter(func(i int) bool {
		key := t.RowKey(i)
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		return true
	})
	return out, newResult(StepRemoveDuplicates, t, out,
		fmt.Sprintf("removed %d duplicate rows", t.NumRows()-out.NumRows())), nil
}

// ValidateDates drops rows with a null date and sorts the rest by date.
// The sort is stable. It requires date to already have the date dtype.
func ValidateDates(t *table.Table) (*table.Table, StepResult, error) {
	c, ok := t.Column("date")
	if !ok {
		return nil, StepResult{}, &errors.SchemaError{Step: StepValidateDates, Column: "date", Reason: "column not found"}
	}
	if c.Type != table.Date {
		return nil, StepResult{}, &errors.SchemaError{
			Step:   StepValidateDates,
			Column: "date",
			Reason: fmt.Sprintf("dtype is %s, run %s first", c.Type, StepCoerceTypes),
		}
	}

	indices := make([]int, 0, c.Len())
	for i, v := range c.Values {
		if v != nil {
			indices = append(indices, i)
		}
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return c.Values[indices[a]].(time.Time).Before(c.Values[indices[b]].(time.Time))
	})

	out := t.Take(indices)
	return out, newResult(StepValidateDates, t, out,
		fmt.Sprintf("dropped %d rows with invalid dates", t.NumRows()-out.NumRows())), nil
}

// NormalizeText normalizes top* columns keeping DefaultSentinel verbatim.
func NormalizeText(t *table.Table) (*table.Table, StepResult, error) {
	return NormalizeTextWith(DefaultSentinel)(t)
}

// NormalizeTextWith returns a step that trims, collapses whitespace runs and
// lower-cases every top* string. Cells equal to sentinel and nulls are kept.
func NormalizeTextWith(sentinel string) StepFunc {
	return func(t *table.Table) (*table.Table, StepResult, error) {
		out := t.Clone()
		changed := 0
		for _, c := range out.Columns() {
			if !isTextColumn(c.Name) || c.Type != table.String {
				continue
			}
			for i, v := range c.Values {
				s, ok := v.(string)
				if !ok || s == sentinel {
					continue
				}
				if n := strings.ToLower(strings.Join(strings.Fields(s), " ")); n != s {
					c.Values[i] = n
					changed++
				}
			}
		}
		return out, newResult(StepNormalizeText, t, out, fmt.Sprintf("normalized %d text values", changed)), nil
	}
}

// DeriveFeatures adds year, month, day, day_of_week (0 is Monday), quarter
// and sentiment. Existing columns with those names are replaced.
func DeriveFeatures(t *table.Table) (*table.Table, StepResult, error) {
	date, ok := t.Column("date")
	if !ok || date.Type != table.Date {
		return nil, StepResult{}, &errors.SchemaError{Step: StepDeriveFeatures, Column: "date", Reason: "date column of date dtype required"}
	}
	label, ok := t.Column("label")
	if !ok || label.Type != table.Int64 {
		return nil, StepResult{}, &errors.SchemaError{Step: StepDeriveFeatures, Column: "label", Reason: "label column of int64 dtype required"}
	}

	n := t.NumRows()
	derived := []*table.Column{
		{Name: "year", Type: table.Int64, Values: make([]any, n)},
		{Name: "month", Type: table.Int64, Values: make([]any, n)},
		{Name: "day", Type: table.Int64, Values: make([]any, n)},
		{Name: "day_of_week", Type: table.Int64, Values: make([]any, n)},
		{Name: "quarter", Type: table.Int64, Values: make([]any, n)},
		{Name: "sentiment", Type: table.String, Values: make([]any, n)},
	}

	for i := 0; i < n; i++ {
		if d, ok := date.Values[i].(time.Time); ok {
			m := int64(d.Month())
			derived[0].Values[i] = int64(d.Year())
			derived[1].Values[i] = m
			derived[2].Values[i] = int64(d.Day())
			derived[3].Values[i] = int64((int(d.Weekday()) + 6) % 7)
			derived[4].Values[i] = (m-1)/3 + 1
		}
		if l, ok := label.Values[i].(int64); ok {
			derived[5].Values[i] = sentimentOf(l)
		}
	}

	out := t.Clone()
	for _, c := range derived {
		if err := out.SetColumn(c); err != nil {
			return nil, StepResult{}, fmt.Errorf("failed to add %s: %w", c.Name, err)
		}
	}
	return out, newResult(StepDeriveFeatures, t, out, fmt.Sprintf("derived %d columns", len(derived))), nil
}

func sentimentOf(label int64) string {
	if label == 1 {
		return validator.Positive
	}
	return validator.Negative
}
