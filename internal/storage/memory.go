package storage

import (
	"context"
	"sync"

	dErrors "userprofile/pkg/domain-errors"
)

// MemoryStore is an in-memory Store for tests. Tables are keyed by the
// columns registered via SetTableKey; Insert upserts on those columns like
// Cassandra does on a primary key.
type MemoryStore struct {
	mu         sync.Mutex
	tables     map[string][]Record
	tableKeys  map[string][]string
	writeCount int

	failWrites  error
	failQueries error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables:    make(map[string][]Record),
		tableKeys: make(map[string][]string),
	}
}

// SetTableKey registers the primary key columns for a table so Insert can
// upsert instead of appending duplicates.
func (s *MemoryStore) SetTableKey(table string, cols ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tableKeys[table] = cols
}

// Seed adds a row without counting it as a write.
func (s *MemoryStore) Seed(table string, record Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], copyRecord(record))
}

// FailWrites makes all subsequent write operations return err.
func (s *MemoryStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = err
}

// FailQueries makes all subsequent Query calls return err.
func (s *MemoryStore) FailQueries(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failQueries = err
}

// WriteCount reports how many write operations succeeded since creation.
func (s *MemoryStore) WriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeCount
}

func (s *MemoryStore) Query(_ context.Context, _, table string, filters Record, fields []string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failQueries != nil {
		return nil, s.failQueries
	}

	var out []Record
	for _, row := range s.tables[table] {
		if matches(row, filters) {
			out = append(out, project(row, fields))
		}
	}
	return out, nil
}

func (s *MemoryStore) Insert(_ context.Context, _, table string, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites != nil {
		return s.failWrites
	}

	if keyCols := s.tableKeys[table]; len(keyCols) > 0 {
		key := make(Record, len(keyCols))
		for _, col := range keyCols {
			key[col] = record[col]
		}
		for i, row := range s.tables[table] {
			if matches(row, key) {
				s.tables[table][i] = copyRecord(record)
				s.writeCount++
				return nil
			}
		}
	}

	s.tables[table] = append(s.tables[table], copyRecord(record))
	s.writeCount++
	return nil
}

func (s *MemoryStore) UpdateByCompositeKey(_ context.Context, _, table string, set Record, key Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites != nil {
		return s.failWrites
	}

	updated := false
	for _, row := range s.tables[table] {
		if matches(row, key) {
			for k, v := range set {
				row[k] = v
			}
			updated = true
		}
	}
	if !updated {
		return dErrors.Wrap(ErrNotFound, dErrors.CodeNotFound, "no row matches the given key")
	}
	s.writeCount++
	return nil
}

func (s *MemoryStore) UpdateByID(ctx context.Context, keyspace, table string, record Record) error {
	set := make(Record, len(record)-1)
	for k, v := range record {
		if k != "id" {
			set[k] = v
		}
	}
	return s.UpdateByCompositeKey(ctx, keyspace, table, set, Record{"id": record["id"]})
}

func matches(row Record, filters Record) bool {
	for k, want := range filters {
		if got, ok := row[k]; !ok || got != want {
			return false
		}
	}
	return true
}

// project returns a copy so callers can mutate results without corrupting
// the stored rows.
func project(row Record, fields []string) Record {
	if len(fields) == 0 {
		return copyRecord(row)
	}
	out := make(Record, len(fields))
	for _, f := range fields {
		if v, ok := row[f]; ok {
			out[f] = v
		}
	}
	return out
}

func copyRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
