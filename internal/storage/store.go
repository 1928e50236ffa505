// Package storage provides row-oriented access to the profile keyspace.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an update targets a row that does not exist.
var ErrNotFound = errors.New("record not found")

// Record is a single row keyed by column name.
type Record = map[string]any

// Store abstracts the wide-column database so services can be tested against
// an in-memory implementation.
type Store interface {
	// Query returns rows matching all filter columns. A nil or empty fields
	// slice selects every column.
	Query(ctx context.Context, keyspace, table string, filters Record, fields []string) ([]Record, error)

	// Insert writes a full row. Matching primary keys overwrite the existing
	// row, per Cassandra upsert semantics.
	Insert(ctx context.Context, keyspace, table string, record Record) error

	// UpdateByCompositeKey sets the given columns on the row identified by
	// the key columns.
	UpdateByCompositeKey(ctx context.Context, keyspace, table string, set Record, key Record) error

	// UpdateByID sets the non-id columns of record on the row whose "id"
	// column matches record["id"].
	UpdateByID(ctx context.Context, keyspace, table string, record Record) error
}
