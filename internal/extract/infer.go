package extract

import (
	"strconv"
	"strings"

	"github.com/jittakal/sentimentetl/pkg/table"
)

// naTokens are the cell values read as null, matching the pandas defaults.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsNA reports whether a raw cell is read as null.
func IsNA(s string) bool {
	_, ok := naTokens[s]
	return ok
}

// inferColumn builds a typed column from raw cells. A column whose non-null
// cells all parse as integers is Int64, else as floats Float64, else String.
func inferColumn(name string, cells []string) *table.Column {
	values := make([]any, len(cells))
	isInt, isFloat, nonNull := true, true, 0

	for i, s := range cells {
		if IsNA(s) {
			continue
		}
		nonNull++
		values[i] = s
		t := strings.TrimSpace(s)
		if isInt {
			if _, err := strconv.ParseInt(t, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat && !isInt {
			if _, err := strconv.ParseFloat(t, 64); err != nil {
				isFloat = false
			}
		}
	}

	switch {
	case nonNull == 0:
		return &table.Column{Name: name, Type: table.String, Values: values}
	case isInt:
		for i, v := range values {
			if v != nil {
				n, _ := strconv.ParseInt(strings.TrimSpace(v.(string)), 10, 64)
				values[i] = n
			}
		}
		return &table.Column{Name: name, Type: table.Int64, Values: values}
	case isFloat:
		for i, v := range values {
			if v != nil {
				f, _ := strconv.ParseFloat(strings.TrimSpace(v.(string)), 64)
				values[i] = f
			}
		}
		return &table.Column{Name: name, Type: table.Float64, Values: values}
	default:
		return &table.Column{Name: name, Type: table.String, Values: values}
	}
}

// dedupeHeader renames repeated header names to name.1, name.2, ...
func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	taken := make(map[string]bool, len(header))
	for _, h := range header {
		taken[h] = true
	}
	for i, h := range header {
		n, dup := seen[h]
		seen[h] = n + 1
		if !dup {
			out[i] = h
			continue
		}
		name := h
		for k := n; ; k++ {
			name = h + "." + strconv.Itoa(k)
			if !taken[name] {
				break
			}
		}
		taken[name] = true
		out[i] = name
	}
	return out
}
