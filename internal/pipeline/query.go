package pipeline

import (
	"context"
	"fmt"

	"github.com/jittakal/sentimentetl/internal/config/dto"
	"github.com/jittakal/sentimentetl/internal/sqlstore"
	"github.com/jittakal/sentimentetl/pkg/table"
)

const queryPreviewWidth = 40

// RunQuery runs query against the SQLite database written by a previous run
// and prints the result. An empty query selects the whole table.
func RunQuery(ctx context.Context, cfg *dto.ApplicationConfig, query string, pr *Printer) (*table.Table, error) {
	dbPath := cfg.Load.Path(".db")
	if query == "" {
		query = sqlstore.DefaultQuery(cfg.Load.TableName)
	}

	result, err := sqlstore.Query(ctx, dbPath, cfg.Load.TableName, query)
	if err != nil {
		return nil, err
	}

	rows, cols := result.Shape()
	pr.Header("SQL QUERY")
	pr.Bullet("database", dbPath)
	pr.Bullet("query", query)
	pr.Bullet("result", fmt.Sprintf("%d rows x %d columns", rows, cols))
	pr.Linef("")
	pr.Table(result, 0, queryPreviewWidth)
	return result, nil
}
