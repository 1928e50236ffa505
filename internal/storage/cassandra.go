package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/gocql/gocql"
)

// CassandraStore executes CQL against a live gocql session.
type CassandraStore struct {
	session *gocql.Session
	logger  *slog.Logger
}

// NewCassandraStore wraps a session. The logger is used for slow-path
// diagnostics only; queries surface their errors to callers.
func NewCassandraStore(session *gocql.Session, logger *slog.Logger) *CassandraStore {
	return &CassandraStore{session: session, logger: logger}
}

func (s *CassandraStore) Query(ctx context.Context, keyspace, table string, filters Record, fields []string) ([]Record, error) {
	projection := "*"
	if len(fields) > 0 {
		projection = strings.Join(fields, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s.%s", projection, keyspace, table)

	keys := sortedKeys(filters)
	values := make([]any, 0, len(keys))
	for i, k := range keys {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(k)
		sb.WriteString(" = ?")
		values = append(values, filters[k])
	}
	if len(keys) > 0 {
		sb.WriteString(" ALLOW FILTERING")
	}

	iter := s.session.Query(sb.String(), values...).WithContext(ctx).Iter()

	var rows []Record
	for {
		row := make(Record)
		if !iter.MapScan(row) {
			break
		}
		rows = append(rows, row)
	}
	if err := iter.Close(); err != nil {
		s.logger.ErrorContext(ctx, "cassandra query failed", "table", table, "error", err)
		return nil, fmt.Errorf("query %s.%s: %w", keyspace, table, err)
	}
	return rows, nil
}

func (s *CassandraStore) Insert(ctx context.Context, keyspace, table string, record Record) error {
	keys := sortedKeys(record)
	placeholders := make([]string, len(keys))
	values := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = "?"
		values[i] = record[k]
	}

	stmt := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES (%s)",
		keyspace, table, strings.Join(keys, ", "), strings.Join(placeholders, ", "))

	if err := s.session.Query(stmt, values...).WithContext(ctx).Exec(); err != nil {
		s.logger.ErrorContext(ctx, "cassandra insert failed", "table", table, "error", err)
		return fmt.Errorf("insert %s.%s: %w", keyspace, table, err)
	}
	return nil
}

func (s *CassandraStore) UpdateByCompositeKey(ctx context.Context, keyspace, table string, set Record, key Record) error {
	setKeys := sortedKeys(set)
	keyKeys := sortedKeys(key)

	assignments := make([]string, len(setKeys))
	values := make([]any, 0, len(setKeys)+len(keyKeys))
	for i, k := range setKeys {
		assignments[i] = k + " = ?"
		values = append(values, set[k])
	}
	conditions := make([]string, len(keyKeys))
	for i, k := range keyKeys {
		conditions[i] = k + " = ?"
		values = append(values, key[k])
	}

	stmt := fmt.Sprintf("UPDATE %s.%s SET %s WHERE %s",
		keyspace, table, strings.Join(assignments, ", "), strings.Join(conditions, " AND "))

	if err := s.session.Query(stmt, values...).WithContext(ctx).Exec(); err != nil {
		s.logger.ErrorContext(ctx, "cassandra update failed", "table", table, "error", err)
		return fmt.Errorf("update %s.%s: %w", keyspace, table, err)
	}
	return nil
}

func (s *CassandraStore) UpdateByID(ctx context.Context, keyspace, table string, record Record) error {
	id, ok := record["id"]
	if !ok {
		return fmt.Errorf("update %s.%s: record has no id column", keyspace, table)
	}
	set := make(Record, len(record)-1)
	for k, v := range record {
		if k != "id" {
			set[k] = v
		}
	}
	return s.UpdateByCompositeKey(ctx, keyspace, table, set, Record{"id": id})
}

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
