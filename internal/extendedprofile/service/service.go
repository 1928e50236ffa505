// Package service implements the extended-profile section lifecycle: create
// with merge, full and summary reads through the cache, merge-by-uuid update,
// and remove-by-uuid delete. Section arrays stay sorted descending by the
// category comparator after every mutation.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"userprofile/internal/cache"
	"userprofile/internal/extendedprofile/metrics"
	"userprofile/internal/extendedprofile/models"
	"userprofile/internal/identity"
	"userprofile/internal/platform/config"
	"userprofile/internal/storage"
	dErrors "userprofile/pkg/domain-errors"
)

const (
	tableExtended = "user_extended_profile"

	columnUserID  = "userid"
	columnContext = "contexttype"
	columnData    = "contextdata"

	cacheKeyPrefix = "user:extendedProfile:"

	// summaryEntryLimit caps how many entries the aggregate read returns per
	// section.
	summaryEntryLimit = 2
)

func categoryCacheKey(contextType, userID string) string {
	return cacheKeyPrefix + contextType + ":" + userID
}

func allCacheKey(userID string) string {
	return cacheKeyPrefix + "all:" + userID
}

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

// Service owns extended-profile reads and writes. Writes go to the store
// only; the per-section read caches are refreshed lazily on the next read
// and may serve stale data in between.
type Service struct {
	store    storage.Store
	cache    cache.Cache
	resolver identity.Resolver
	logger   *slog.Logger
	metrics  *metrics.Metrics

	keyspace     string
	contextTypes []string
	mandatory    map[string][]string
}

// NewService builds the service from the profile configuration. Mandatory
// field lists are parsed once from their CSV form.
func NewService(store storage.Store, c cache.Cache, resolver identity.Resolver, keyspace string, profile config.Profile, opts ...Option) *Service {
	mandatory := make(map[string][]string, len(profile.MandatoryFields))
	for contextType, csv := range profile.MandatoryFields {
		var fields []string
		for _, f := range strings.Split(csv, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
		mandatory[contextType] = fields
	}

	svc := &Service{
		store:        store,
		cache:        c,
		resolver:     resolver,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		keyspace:     keyspace,
		contextTypes: profile.ContextTypes,
		mandatory:    mandatory,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) recognized(contextType string) bool {
	for _, ct := range s.contextTypes {
		if ct == contextType {
			return true
		}
	}
	return false
}

// Save appends the request's entries to their sections and returns the newly
// created entries as one flat list. Each entry gets a fresh uuid regardless
// of what the caller sent. Sections are committed one at a time; a failure
// leaves earlier sections written.
func (s *Service) Save(ctx context.Context, token string, req models.MutationRequest) ([]models.Entry, error) {
	caller, err := s.resolver.Resolve(ctx, token)
	if err != nil || !strings.EqualFold(caller, req.UserID) || req.UserID == "" {
		return nil, dErrors.New(dErrors.CodeAuthMismatch, "Invalid UserId in the request")
	}

	for key := range req.Sections {
		if !s.recognized(key) {
			return nil, dErrors.New(dErrors.CodeInvalidContextType, "Invalid context type in request: "+key)
		}
	}

	if err := s.validateMandatoryFields(req.Sections); err != nil {
		return nil, err
	}

	saved := make([]models.Entry, 0)
	for _, contextType := range s.contextTypes {
		entries := req.Sections[contextType]
		if len(entries) == 0 {
			continue
		}

		for _, entry := range entries {
			entry["uuid"] = uuid.New().String()
		}

		merged, err := s.mergeWithExisting(ctx, req.UserID, contextType, entries)
		if err != nil {
			return nil, err
		}

		sortEntries(contextType, merged)

		if err := s.persist(ctx, req.UserID, contextType, merged); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal,
				"Failed to insert or update context data for contextType: "+contextType)
		}

		saved = append(saved, entries...)
		s.metrics.IncEntriesSaved(contextType, len(entries))
	}

	if len(saved) == 0 {
		return nil, dErrors.New(dErrors.CodeNoContent, "No data was saved.")
	}
	return saved, nil
}

// mergeWithExisting prepends the incoming entries to whatever the store
// already holds for the section. An existing blob that fails to parse resets
// the merged list to empty, matching the store-side recovery behavior.
func (s *Service) mergeWithExisting(ctx context.Context, userID, contextType string, incoming []models.Entry) ([]models.Entry, error) {
	raw, found, err := s.readRaw(ctx, userID, contextType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal,
			"Failed to insert or update context data for contextType: "+contextType)
	}

	merged := make([]models.Entry, 0, len(incoming))
	merged = append(merged, incoming...)

	if found && strings.TrimSpace(raw) != "" {
		var existing []models.Entry
		if err := json.Unmarshal([]byte(raw), &existing); err != nil {
			s.logger.WarnContext(ctx, "resetting unparseable context data",
				"context_type", contextType, "user_id", userID, "error", err)
			return []models.Entry{}, nil
		}
		merged = append(merged, existing...)
	}
	return merged, nil
}

// readRaw fetches the section blob for (userID, contextType). found reports
// whether a row exists at all.
func (s *Service) readRaw(ctx context.Context, userID, contextType string) (string, bool, error) {
	rows, err := s.store.Query(ctx, s.keyspace, tableExtended,
		storage.Record{columnUserID: userID, columnContext: contextType},
		[]string{columnData})
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	raw, _ := rows[0][columnData].(string)
	return raw, true, nil
}

// persist serializes and upserts the section row keyed by (userid,
// contexttype).
func (s *Service) persist(ctx context.Context, userID, contextType string, entries []models.Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.store.Insert(ctx, s.keyspace, tableExtended, storage.Record{
		columnUserID:  userID,
		columnContext: contextType,
		columnData:    string(data),
	})
}

// ReadFull returns every entry of one section, cache-aside on the per-section
// key. The result carries the section array, the user id, and the count.
func (s *Service) ReadFull(ctx context.Context, token, userID, contextType string) (map[string]any, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveReadLatency(time.Since(start).Seconds()) }()

	if _, err := s.resolver.Resolve(ctx, token); err != nil {
		return nil, err
	}
	if !s.recognized(contextType) {
		return nil, dErrors.New(dErrors.CodeInvalidContextType, "Invalid context type in request: "+contextType)
	}

	key := categoryCacheKey(contextType, userID)
	if cached, err := cache.GetJSONMap(ctx, s.cache, key); err == nil {
		if arr, ok := cached[contextType].([]any); ok {
			s.metrics.IncCacheHit(contextType)
			return readResult(contextType, userID, arr), nil
		}
	}
	s.metrics.IncCacheMiss(contextType)

	raw, found, err := s.readRaw(ctx, userID, contextType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Failed to read context data for contextType: "+contextType)
	}
	if !found || strings.TrimSpace(raw) == "" {
		return nil, dErrors.New(dErrors.CodeNoContent, "No records found for the given user.")
	}

	var entries []any
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.logger.WarnContext(ctx, "unparseable context data on read",
			"context_type", contextType, "user_id", userID, "error", err)
		return nil, dErrors.New(dErrors.CodeNoContent, "No records found for the given user.")
	}

	if err := cache.PutJSON(ctx, s.cache, key, map[string]any{contextType: entries}); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}

	return readResult(contextType, userID, entries), nil
}

func readResult(contextType, userID string, entries []any) map[string]any {
	return map[string]any{
		contextType: entries,
		"userId":    userID,
		"count":     len(entries),
	}
}

// Summary returns a per-section digest: entry count plus the first two
// entries of each populated section, cache-aside on the aggregate key.
func (s *Service) Summary(ctx context.Context, token, userID string) (map[string]any, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveReadLatency(time.Since(start).Seconds()) }()

	if _, err := s.resolver.Resolve(ctx, token); err != nil {
		return nil, err
	}

	key := allCacheKey(userID)
	if cached, err := cache.GetJSONMap(ctx, s.cache, key); err == nil {
		for _, contextType := range s.contextTypes {
			if _, ok := cached[contextType]; ok {
				s.metrics.IncCacheHit("all")
				return cached, nil
			}
		}
	}
	s.metrics.IncCacheMiss("all")

	aggregate := make(map[string]any)
	for _, contextType := range s.contextTypes {
		raw, found, err := s.readRaw(ctx, userID, contextType)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal,
				"Failed to read context data for contextType: "+contextType)
		}
		if !found || strings.TrimSpace(raw) == "" {
			continue
		}

		var entries []any
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal,
				"Failed to parse context data for contextType: "+contextType)
		}

		head := entries
		if len(head) > summaryEntryLimit {
			head = head[:summaryEntryLimit]
		}
		aggregate[contextType] = map[string]any{
			"count": len(entries),
			"data":  head,
		}
	}

	if len(aggregate) == 0 {
		return nil, dErrors.New(dErrors.CodeNoContent, "No extended profile data found.")
	}
	aggregate["userId"] = userID

	if err := cache.PutJSON(ctx, s.cache, key, aggregate); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return aggregate, nil
}

// Update merges incoming fields onto existing entries matched by uuid. Every
// incoming entry must name an existing uuid; the uuid itself is never
// overwritten. The first failing section aborts, leaving earlier sections
// written. Read caches are not touched and may serve stale data until the
// next cache-miss read.
func (s *Service) Update(ctx context.Context, token string, req models.MutationRequest) error {
	if _, err := s.resolver.Resolve(ctx, token); err != nil {
		return err
	}

	for _, contextType := range s.contextTypes {
		incoming := req.Sections[contextType]
		if len(incoming) == 0 {
			continue
		}

		raw, found, err := s.readRaw(ctx, req.UserID, contextType)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal,
				"No existing records found for the given contextType: "+contextType)
		}
		if !found {
			return dErrors.New(dErrors.CodeInternal,
				"No existing records found for the given contextType: "+contextType)
		}
		if strings.TrimSpace(raw) == "" {
			return dErrors.New(dErrors.CodeInternal, "No context data found for the given contextType.")
		}

		var existing []models.Entry
		if err := json.Unmarshal([]byte(raw), &existing); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "Error parsing existing context data.")
		}

		byUUID := make(map[string]models.Entry, len(existing))
		for _, entry := range existing {
			if id, ok := entry["uuid"].(string); ok {
				byUUID[strings.TrimSpace(id)] = entry
			}
		}

		for _, entry := range incoming {
			id, _ := entry["uuid"].(string)
			target, ok := byUUID[strings.TrimSpace(id)]
			if !ok {
				return dErrors.New(dErrors.CodeInternal, "Invalid or missing UUID in incoming data.")
			}
			for field, value := range entry {
				if field != "uuid" {
					target[field] = value
				}
			}
		}

		sortEntries(contextType, existing)

		if err := s.persistUpdate(ctx, req.UserID, contextType, existing); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) persistUpdate(ctx context.Context, userID, contextType string, entries []models.Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "Failed to serialize updated data.")
	}
	err = s.store.UpdateByCompositeKey(ctx, s.keyspace, tableExtended,
		storage.Record{columnData: string(data)},
		storage.Record{columnUserID: userID, columnContext: contextType})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal,
			"Failed to update data for contextType: "+contextType)
	}
	return nil
}

// Delete removes the entries named by uuid from their sections. Absent rows
// and unknown uuids are silent no-ops, making the call idempotent. The row is
// kept with an emptied array rather than dropped.
func (s *Service) Delete(ctx context.Context, token string, req models.MutationRequest) error {
	if _, err := s.resolver.Resolve(ctx, token); err != nil {
		return err
	}

	for _, contextType := range s.contextTypes {
		incoming := req.Sections[contextType]
		if len(incoming) == 0 {
			continue
		}

		raw, found, err := s.readRaw(ctx, req.UserID, contextType)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal,
				"Failed to delete context data for contextType: "+contextType)
		}
		if !found || strings.TrimSpace(raw) == "" {
			continue
		}

		var existing []models.Entry
		if err := json.Unmarshal([]byte(raw), &existing); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "Failed to parse existing context data.")
		}

		doomed := make(map[string]struct{}, len(incoming))
		for _, entry := range incoming {
			if id, ok := entry["uuid"].(string); ok {
				if id = strings.TrimSpace(id); id != "" {
					doomed[id] = struct{}{}
				}
			}
		}

		remaining := existing[:0]
		for _, entry := range existing {
			id, _ := entry["uuid"].(string)
			if _, gone := doomed[strings.TrimSpace(id)]; !gone {
				remaining = append(remaining, entry)
			}
		}
		removed := len(existing) - len(remaining)

		sortEntries(contextType, remaining)

		data, err := json.Marshal(remaining)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "Failed to serialize remaining context data.")
		}
		err = s.store.UpdateByCompositeKey(ctx, s.keyspace, tableExtended,
			storage.Record{columnData: string(data)},
			storage.Record{columnUserID: req.UserID, columnContext: contextType})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal,
				"Failed to delete context data for contextType: "+contextType)
		}
		s.metrics.IncEntriesDeleted(contextType, removed)
	}
	return nil
}

// validateMandatoryFields checks every entry of every section against the
// section's configured mandatory fields, aggregating all problems into one
// validation error.
func (s *Service) validateMandatoryFields(sections map[string][]models.Entry) error {
	var missing []string
	for _, contextType := range s.contextTypes {
		for _, entry := range sections[contextType] {
			for _, field := range s.mandatory[contextType] {
				if isBlank(entry[field]) {
					missing = append(missing, fmt.Sprintf("%s.%s", contextType, field))
				}
			}
		}
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeValidation,
			"Failed Due To Missing or Invalid Params - "+strings.Join(missing, ", ")+" .")
	}
	return nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
