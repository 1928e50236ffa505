// Package service implements the reference master-data operations:
// institution and degree singleton collections plus state and district
// lookups. Collections live in single system_settings rows holding a JSON
// map; reads are cache-aside, updates write the store then overwrite the
// cache.
package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"strings"

	"userprofile/internal/cache"
	"userprofile/internal/identity"
	"userprofile/internal/masterdata/metrics"
	"userprofile/internal/storage"
	dErrors "userprofile/pkg/domain-errors"
)

const (
	tableSystemSettings = "system_settings"
	tableMasterData     = "master_data"

	contextTypeState    = "state"
	contextTypeDistrict = "district"
)

// collection describes one singleton reference list: where it lives in the
// store and cache, and which key of the JSON map holds the list.
type collection struct {
	kind      string
	storeID   string
	cacheKey  string
	listField string
}

var (
	institutions = collection{
		kind:      "Institution",
		storeID:   "institutionsConfig",
		cacheKey:  "institutionList",
		listField: "institutions",
	}
	degrees = collection{
		kind:      "Degree",
		storeID:   "degreesConfig",
		cacheKey:  "degreeList",
		listField: "degrees",
	}
)

type Option func(*Service)

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// Service owns master-data reads and writes.
type Service struct {
	store    storage.Store
	cache    cache.Cache
	resolver identity.Resolver
	logger   *slog.Logger
	metrics  *metrics.Metrics
	keyspace string
}

// NewService builds the master-data service.
func NewService(store storage.Store, c cache.Cache, resolver identity.Resolver, keyspace string, opts ...Option) *Service {
	svc := &Service{
		store:    store,
		cache:    c,
		resolver: resolver,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		keyspace: keyspace,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ListInstitutions returns the institutions collection map.
func (s *Service) ListInstitutions(ctx context.Context, token string) (map[string]any, error) {
	return s.list(ctx, token, institutions)
}

// ListDegrees returns the degrees collection map.
func (s *Service) ListDegrees(ctx context.Context, token string) (map[string]any, error) {
	return s.list(ctx, token, degrees)
}

// AddInstitution appends a name to the institutions collection. created
// reports whether a write happened; an exact duplicate is a successful no-op.
func (s *Service) AddInstitution(ctx context.Context, token, name string) (string, bool, error) {
	return s.add(ctx, token, institutions, name)
}

// AddDegree appends a name to the degrees collection.
func (s *Service) AddDegree(ctx context.Context, token, name string) (string, bool, error) {
	return s.add(ctx, token, degrees, name)
}
// list reads the collection cache-aside. Absence anywhere yields an empty
// list, never an error.
func (s *Service) list(ctx context.Context, token string, col collection) (map[string]any, error) {
	if _, err := s.resolver.Resolve(ctx, token); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "User Id doesn't exist")
	}

	if cached, err := cache.GetJSONMap(ctx, s.cache, col.cacheKey); err == nil {
		s.metrics.IncListCacheHit(col.listField)
		return cached, nil
	}
	s.metrics.IncListCacheMiss(col.listField)

	data, found, err := s.fetchCollection(ctx, col)
	if err != nil {
		return nil, err
	}
	if !found {
		return map[string]any{col.listField: []any{}}, nil
	}

	if err := cache.PutJSON(ctx, s.cache, col.cacheKey, data); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "key", col.cacheKey, "error", err)
	}
	return data, nil
}

// add appends name to the collection, keeping the list sorted ascending and
// deduplicated case-sensitively. Store write first, then cache overwrite; a
// cache failure after a committed store write is logged, not returned.
func (s *Service) add(ctx context.Context, token string, col collection, name string) (string, bool, error) {
	if _, err := s.resolver.Resolve(ctx, token); err != nil {
		return "", false, dErrors.New(dErrors.CodeBadRequest, "User Id doesn't exist")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", false, dErrors.New(dErrors.CodeValidation, col.kind+" name is required")
	}

	data, found, err := s.fetchCollection(ctx, col)
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, dErrors.New(dErrors.CodeNotFound, "No "+col.listField+" data found")
	}

	rawList, ok := data[col.listField].([]any)
	if !ok {
		return "", false, dErrors.New(dErrors.CodeDataFormat, "Invalid "+col.listField+" data format")
	}

	names := make([]string, 0, len(rawList)+1)
	for _, item := range rawList {
		if str, ok := item.(string); ok {
			names = append(names, str)
		}
	}
	for _, existing := range names {
		if existing == name {
			s.metrics.IncDuplicateAdds(col.listField)
			return col.kind + " already exists", false, nil
		}
	}

	names = append(names, name)
	sort.Strings(names)
	data[col.listField] = names

	value, err := json.Marshal(data)
	if err != nil {
		return "", false, dErrors.Wrap(err, dErrors.CodeInternal,
			"Failed to update "+col.listField+" data")
	}
	err = s.store.UpdateByID(ctx, s.keyspace, tableSystemSettings,
		storage.Record{"id": col.storeID, "value": string(value)})
	if err != nil {
		return "", false, dErrors.Wrap(err, dErrors.CodeInternal,
			"Failed to update "+col.listField+" data")
	}

	if err := cache.PutJSON(ctx, s.cache, col.cacheKey, data); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "key", col.cacheKey, "error", err)
	}

	s.metrics.IncItemsAdded(col.listField)
	return col.kind + " added successfully : " + name, true, nil
}

// fetchCollection reads the singleton system_settings row and parses its
// value column. found is false when the row or its value is absent.
func (s *Service) fetchCollection(ctx context.Context, col collection) (map[string]any, bool, error) {
	rows, err := s.store.Query(ctx, s.keyspace, tableSystemSettings,
		storage.Record{"id": col.storeID}, []string{"value"})
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal,
			"Failed to fetch "+col.listField+" data")
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	raw, _ := rows[0]["value"].(string)
	if strings.TrimSpace(raw) == "" {
		return nil, false, nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeDataFormat,
			"Invalid "+col.listField+" data format")
	}
	return data, true, nil
}

// States lists all states as {stateName, stateId} pairs, preserving store
// order. The caller's token must resolve to a user id.
func (s *Service) States(ctx context.Context, token string) ([]map[string]any, error) {
	if _, err := s.resolver.Resolve(ctx, token); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "User Id doesn't exist")
	}

	rows, err := s.store.Query(ctx, s.keyspace, tableMasterData,
		storage.Record{"contexttype": contextTypeState},
		[]string{"contextname", "id"})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal,
			"Internal server error while fetching states list")
	}

	states := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		states = append(states, map[string]any{
			"stateName": row["contextname"],
			"stateId":   row["id"],
		})
	}
	return states, nil
}

// Districts lists the districts of one state. A district row whose
// contextdata fails to parse contributes an empty list instead of aborting.
func (s *Service) Districts(ctx context.Context, token, stateName string) ([]map[string]any, error) {
	if _, err := s.resolver.Resolve(ctx, token); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "User Id doesn't exist")
	}

	rows, err := s.store.Query(ctx, s.keyspace, tableMasterData,
		storage.Record{"contexttype": contextTypeDistrict, "contextname": stateName},
		[]string{"contextname", "contextdata"})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal,
			"Internal server error while fetching districts list")
	}

	result := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		districts := []any{}
		raw, _ := row["contextdata"].(string)
		if err := json.Unmarshal([]byte(raw), &districts); err != nil {
			s.logger.WarnContext(ctx, "unparseable district data",
				"state", row["contextname"], "error", err)
			districts = []any{}
		}
		result = append(result, map[string]any{
			"stateName": row["contextname"],
			"districts": districts,
		})
	}
	return result, nil
}
