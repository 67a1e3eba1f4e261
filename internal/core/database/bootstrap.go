package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const tableExistsSQL = `
		SELECT EXISTS (
		  SELECT 1 FROM information_schema.tables
		  WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema())
		    AND table_name = $2
		)`

// EnsureStoreTable fails when the store table is missing, so a scan never
// reports an empty inventory for a typo.
func EnsureStoreTable(ctx context.Context, q Querier, name string) error {
	ctxCheck, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	schema, table := SplitTableName(name)
	var exists bool
	if err := q.QueryRow(ctxCheck, tableExistsSQL, schema, table).Scan(&exists); err != nil {
		return fmt.Errorf("table check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("table %q does not exist", name)
	}
	return nil
}

// VectorDimension reads one stored embedding and returns its length, or 0 when
// the table holds no vectors yet.
func VectorDimension(ctx context.Context, q Querier, table, column string) (int, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL LIMIT 1",
		pgx.Identifier{column}.Sanitize(), QuoteTable(table), pgx.Identifier{column}.Sanitize())

	var vec pgvector.Vector
	if err := q.QueryRow(ctx, sql).Scan(&vec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("vector dimension: %w", err)
	}
	return len(vec.Slice()), nil
}
