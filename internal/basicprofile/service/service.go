// Package service implements the basic-profile read: a cache-aside fetch of
// the user row, profile-completion scoring, and personalDetails redaction for
// non-owner viewers.
package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"userprofile/internal/cache"
	"userprofile/internal/identity"
	"userprofile/internal/platform/config"
	"userprofile/internal/storage"
	dErrors "userprofile/pkg/domain-errors"
)

const (
	tableUser = "user"

	columnProfileDetails = "profiledetails"

	cacheKeyPrefix = "user:basicProfile:"
)

// ExtendedReader reads one extended-profile section; the completion score
// delegates extended-field checks to it.
type ExtendedReader interface {
	ReadFull(ctx context.Context, token, userID, contextType string) (map[string]any, error)
}

type Option func(*Service)

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service owns the basic-profile read path.
type Service struct {
	store    storage.Store
	cache    cache.Cache
	resolver identity.Resolver
	extended ExtendedReader
	logger   *slog.Logger

	keyspace       string
	fields         []string
	requiredFields []string
	extendedFields map[string]struct{}
	fieldWeight    float64
}

// NewService builds the service from the profile configuration.
func NewService(store storage.Store, c cache.Cache, resolver identity.Resolver, extended ExtendedReader, keyspace string, profile config.Profile, opts ...Option) *Service {
	extendedFields := make(map[string]struct{}, len(profile.CompletionExtendedFields))
	for _, f := range profile.CompletionExtendedFields {
		extendedFields[f] = struct{}{}
	}

	svc := &Service{
		store:          store,
		cache:          c,
		resolver:       resolver,
		extended:       extended,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		keyspace:       keyspace,
		fields:         profile.BasicProfileFields,
		requiredFields: profile.CompletionRequiredFields,
		extendedFields: extendedFields,
		fieldWeight:    profile.CompletionFieldWeight,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Get returns the basic profile of userID with a profileCompletion score.
// found is false when no user row exists; the caller renders that as an
// empty 404 payload rather than an error. Viewers other than the owner get
// profiledetails.personalDetails removed.
func (s *Service) Get(ctx context.Context, token, userID string) (map[string]any, bool, error) {
	caller, err := s.resolver.Resolve(ctx, token)
	if err != nil {
		return nil, false, dErrors.New(dErrors.CodeInternal, "Invalid or missing access token")
	}

	profile, found, err := s.load(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	profile["profileCompletion"] = s.completion(ctx, token, userID, profile)

	if !strings.EqualFold(caller, userID) {
		if details, ok := profile[columnProfileDetails].(map[string]any); ok {
			delete(details, "personalDetails")
		}
	}
	return profile, true, nil
}

// load reads the profile cache-aside. The cached value is the raw profile
// before scoring and redaction; both are applied per request.
func (s *Service) load(ctx context.Context, userID string) (map[string]any, bool, error) {
	key := cacheKeyPrefix + userID
	if cached, err := cache.GetJSONMap(ctx, s.cache, key); err == nil {
		return cached, true, nil
	}

	rows, err := s.store.Query(ctx, s.keyspace, tableUser,
		storage.Record{"id": userID}, s.fields)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "Failed to fetch user profile")
	}
	if len(rows) == 0 {
		return nil, false, nil
	}

	profile := rows[0]
	if raw, ok := profile[columnProfileDetails].(string); ok {
		var details map[string]any
		if err := json.Unmarshal([]byte(raw), &details); err != nil {
			s.logger.WarnContext(ctx, "dropping unparseable profile details",
				"user_id", userID, "error", err)
			delete(profile, columnProfileDetails)
		} else {
			profile[columnProfileDetails] = details
		}
	}

	if err := cache.PutJSON(ctx, s.cache, key, profile); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return profile, true, nil
}
