package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/pkg/table"
)

// DefaultQuery returns the query that selects every row of tableName.
func DefaultQuery(tableName string) string {
	return "SELECT * FROM " + quoteIdent(tableName)
}

// Query runs query against the database at dbPath and returns the result as
// a table. An empty query selects the whole of tableName. The query is run
// as given.
func Query(ctx context.Context, dbPath, tableName, query string) (*table.Table, error) {
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.FileNotFoundError{Path: dbPath, Err: err}
		}
		return nil, fmt.Errorf("failed to stat database: %w", err)
	}
	if strings.TrimSpace(query) == "" {
		query = DefaultQuery(tableName)
	}

	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, &errors.QueryError{Query: query, Err: err}
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, &errors.QueryError{Query: query, Err: err}
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, &errors.QueryError{Query: query, Err: err}
	}

	columns := make([]*table.Column, len(names))
	for i, name := range names {
		columns[i] = &table.Column{Name: name, Type: declaredType(colTypes[i].DatabaseTypeName())}
	}

	dest := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &errors.QueryError{Query: query, Err: err}
		}
		for i, v := range dest {
			columns[i].Values = append(columns[i].Values, normalizeCell(v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &errors.QueryError{Query: query, Err: err}
	}

	for _, c := range columns {
		settleType(c)
	}

	result, err := table.FromColumns(uniqueNames(columns)...)
	if err != nil {
		return nil, &errors.QueryError{Query: query, Err: err}
	}
	return result, nil
}

// declaredType maps a declared column type to a dtype. Expressions have no
// declared type and are resolved from their values by settleType.
func declaredType(decl string) table.DType {
	switch strings.ToUpper(decl) {
	case "INTEGER", "INT", "BIGINT":
		return table.Int64
	case "REAL", "DOUBLE", "FLOAT":
		return table.Float64
	case "DATE":
		return table.Date
	case "TEXT":
		return table.String
	default:
		return ""
	}
}

func normalizeCell(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return table.DateOf(x)
	case int:
		return int64(x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	default:
		return x
	}
}

// settleType fixes the column dtype and converts cells so every non-null
// cell matches it.
func settleType(c *table.Column) {
	if c.Type == "" {
		c.Type = table.String
		for _, v := range c.Values {
			switch v.(type) {
			case int64:
				c.Type = table.Int64
			case float64:
				c.Type = table.Float64
			case time.Time:
				c.Type = table.Date
			}
			if v != nil {
				break
			}
		}
	}

	for i, v := range c.Values {
		if v == nil {
			continue
		}
		switch c.Type {
		case table.Date:
			if s, ok := v.(string); ok {
				if d, err := time.Parse(table.DateLayout, s); err == nil {
					c.Values[i] = d
					continue
				}
				c.Type = table.String
			}
		case table.Int64:
			if f, ok := v.(float64); ok {
				c.Values[i] = int64(f)
			}
		case table.Float64:
			if n, ok := v.(int64); ok {
				c.Values[i] = float64(n)
			}
		}
	}

	if c.Check() != nil {
		for i, v := range c.Values {
			if v != nil {
				c.Values[i] = table.FormatValue(v)
			}
		}
		c.Type = table.String
	}
}

// uniqueNames suffixes repeated result column names with .1, .2 and so on,
// skipping suffixed names that another result column already uses.
func uniqueNames(columns []*table.Column) []*table.Column {
	taken := make(map[string]bool, len(columns))
	for _, c := range columns {
		taken[c.Name] = true
	}
	seen := make(map[string]int, len(columns))
	for _, c := range columns {
		n, dup := seen[c.Name]
		seen[c.Name] = n + 1
		if !dup {
			continue
		}
		base := c.Name
		name := base
		for k := n; ; k++ {
			name = fmt.Sprintf("%s.%d", base, k)
			if !taken[name] {
				break
			}
		}
		taken[name] = true
		c.Name = name
	}
	return columns
}
