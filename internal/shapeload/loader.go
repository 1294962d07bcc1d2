package shapeload

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Copier is the subset of pgxpool.Pool the loader needs. pgxmock satisfies it.
type Copier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Migrate creates the geostore schema and tables.
func Migrate(ctx context.Context, pool Copier) error {
	for _, stmt := range splitStatements(Schema) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "shapeload: migrate")
		}
	}
	return nil
}

// Load COPYs parsed shapefile rows into the product's table. The geometry
// column is always last.
func Load(ctx context.Context, pool Copier, product Product, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	schema, table, ok := strings.Cut(product.Table, ".")
	if !ok {
		return 0, eris.Errorf("shapeload: table %q is not schema-qualified", product.Table)
	}
	columns := append(append([]string{}, product.Columns...), "geom")
	n, err := pool.CopyFrom(ctx, pgx.Identifier{schema, table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "shapeload: COPY INTO %s", product.Table)
	}
	zap.L().Info("loaded shapefile rows",
		zap.String("product", product.Name),
		zap.Int64("rows", n))
	return n, nil
}

func splitStatements(sql string) []string {
	var out []string
	for _, stmt := range strings.Split(sql, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}
