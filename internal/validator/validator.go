// Package validator checks cleaned tables against the clean-record invariants.
package validator

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/pkg/table"
)

// Sentiment values derived from label.
const (
	Positive = "Positivo"
	Negative = "Negativo"
)

// CleanRecord is the typed view of one clean row used for validation.
type CleanRecord struct {
	Date      time.Time `col:"date"`
	Label     int64     `col:"label" validate:"oneof=0 1"`
	Year      int64     `col:"year" validate:"min=1"`
	Month     int64     `col:"month" validate:"min=1,max=12"`
	Day       int64     `col:"day" validate:"min=1,max=31"`
	DayOfWeek int64     `col:"day_of_week" validate:"min=0,max=6"`
	Quarter   int64     `col:"quarter" validate:"min=1,max=4"`
	Sentiment string    `col:"sentiment" validate:"oneof=Positivo Negativo"`
}

// RecordValidator validates clean records.
type RecordValidator struct {
	v *validator.Validate
}

// New creates a record validator.
func New() *RecordValidator {
	v := validator.New()

	// Use column names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("col"); name != "" {
			return name
		}
		return fld.Name
	})
	v.RegisterStructValidation(cleanRecordStructLevel, CleanRecord{})

	return &RecordValidator{v: v}
}

func cleanRecordStructLevel(sl validator.StructLevel) {
	r := sl.Current().Interface().(CleanRecord)

	if r.Date.IsZero() {
		sl.ReportError(r.Date, "date", "Date", "required", "")
		return
	}
	if r.Quarter != (r.Month-1)/3+1 {
		sl.ReportError(r.Quarter, "quarter", "Quarter", "quarter_of_month", fmt.Sprint(r.Month))
	}
	if (r.Sentiment == Positive) != (r.Label == 1) {
		sl.ReportError(r.Sentiment, "sentiment", "Sentiment", "sentiment_of_label", fmt.Sprint(r.Label))
	}
	if int64(r.Date.Year()) != r.Year || int64(r.Date.Month()) != r.Month || int64(r.Date.Day()) != r.Day {
		sl.ReportError(r.Year, "year", "Year", "matches_date", r.Date.Format(table.DateLayout))
	}
	if int64((int(r.Date.Weekday())+6)%7) != r.DayOfWeek {
		sl.ReportError(r.DayOfWeek, "day_of_week", "DayOfWeek", "matches_date", r.Date.Format(table.DateLayout))
	}
}

// ValidateRecord validates one record. row is used in the returned error.
func (rv *RecordValidator) ValidateRecord(row int, r CleanRecord) error {
	err := rv.v.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := fmt.Sprintf("failed %q check", fe.Tag())
		if fe.Param() != "" {
			reason = fmt.Sprintf("failed %q check (%s)", fe.Tag(), fe.Param())
		}
		return &errors.ValidationError{
			Row:    row,
			Field:  fe.Field(),
			Reason: fmt.Sprintf("%s: got %v", reason, fe.Value()),
		}
	}
	return fmt.Errorf("failed to validate row %d: %w", row, err)
}

// ValidateTable checks the clean-record invariants: required columns with
// the expected types, no null cells, no exact-duplicate rows, and every row
// valid as a CleanRecord. The first violation is returned.
func (rv *RecordValidator) ValidateTable(t *table.Table) error {
	cols, err := requiredColumns(t)
	if err != nil {
		return err
	}

	for _, c := range t.Columns() {
		for i, v := range c.Values {
			if v == nil {
				return &errors.ValidationError{Row: i, Field: c.Name, Reason: "null value"}
			}
		}
	}

	seen := make(map[string]int, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		key := t.RowKey(i)
		if first, dup := seen[key]; dup {
			return &errors.ValidationError{Row: i, Field: "*", Reason: fmt.Sprintf("duplicate of row %d", first)}
		}
		seen[key] = i
	}

	for i := 0; i < t.NumRows(); i++ {
		r := CleanRecord{
			Date:      cols.date.Values[i].(time.Time),
			Label:     cols.label.Values[i].(int64),
			Year:      cols.year.Values[i].(int64),
			Month:     cols.month.Values[i].(int64),
			Day:       cols.day.Values[i].(int64),
			DayOfWeek: cols.dayOfWeek.Values[i].(int64),
			Quarter:   cols.quarter.Values[i].(int64),
			Sentiment: cols.sentiment.Values[i].(string),
		}
		if err := rv.ValidateRecord(i, r); err != nil {
			return err
		}
	}
	return nil
}

var defaultValidator = New()

// ValidateTable validates t with a shared RecordValidator.
func ValidateTable(t *table.Table) error {
	return defaultValidator.ValidateTable(t)
}

type cleanColumns struct {
	date, label, year, month, day, dayOfWeek, quarter, sentiment *table.Column
}

func requiredColumns(t *table.Table) (*cleanColumns, error) {
	lookup := func(name string, dt table.DType) (*table.Column, error) {
		c, ok := t.Column(name)
		if !ok {
			return nil, &errors.ValidationError{Row: -1, Field: name, Reason: "missing column"}
		}
		if c.Type != dt {
			return nil, &errors.ValidationError{Row: -1, Field: name, Reason: fmt.Sprintf("dtype %s, want %s", c.Type, dt)}
		}
		if err := c.Check(); err != nil {
			return nil, &errors.ValidationError{Row: -1, Field: name, Reason: err.Error()}
		}
		return c, nil
	}

	var cols cleanColumns
	var err error
	specs := []struct {
		dst  **table.Column
		name string
		dt   table.DType
	}{
		{&cols.date, "date", table.Date},
		{&cols.label, "label", table.Int64},
		{&cols.year, "year", table.Int64},
		{&cols.month, "month", table.Int64},
		{&cols.day, "day", table.Int64},
		{&cols.dayOfWeek, "day_of_week", table.Int64},
		{&cols.quarter, "quarter", table.Int64},
		{&cols.sentiment, "sentiment", table.String},
	}
	for _, s := range specs {
		if *s.dst, err = lookup(s.name, s.dt); err != nil {
			return nil, err
		}
	}
	return &cols, nil
}
