package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresProvider reads the catalog from a table with one row per record,
// in id order.
type PostgresProvider struct {
	db    *sql.DB
	query string
}

func NewPostgresProvider(db *sql.DB, table string) *PostgresProvider {
	return &PostgresProvider{
		db: db,
		query: fmt.Sprintf(
			"SELECT make, model, year_range, trans_type, engine_size, trans_model FROM %s ORDER BY id",
			pq.QuoteIdentifier(table),
		),
	}
}

func (p *PostgresProvider) Name() string { return "postgres" }

func (p *PostgresProvider) Fetch(ctx context.Context) ([]Record, error) {
	rows, err := p.db.QueryContext(ctx, p.query)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var mk, model, years, transType, engine, transModel sql.NullString
		if err := rows.Scan(&mk, &model, &years, &transType, &engine, &transModel); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		records = append(records, Record{
			Make:       mk.String,
			Model:      model.String,
			YearRange:  years.String,
			TransType:  transType.String,
			EngineSize: engine.String,
			TransModel: transModel.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog rows: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyCatalog
	}
	return records, nil
}
