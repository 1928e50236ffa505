package service

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// completion scores the profile: every configured required field that is
// filled contributes the configured weight. Fields in the extended list are
// checked against the extended-profile store; the rest against the profile
// row and its profiledetails sub-document. Capped at 100, rounded to one
// decimal.
func (s *Service) completion(ctx context.Context, token, userID string, profile map[string]any) float64 {
	total := 0.0
	for _, field := range s.requiredFields {
		var filled bool
		if _, ok := s.extendedFields[field]; ok {
			filled = s.extendedFilled(ctx, token, userID, field)
		} else {
			filled = profileFieldFilled(profile, field)
		}
		if filled {
			total += s.fieldWeight
		}
	}
	if total > 100 {
		total = 100
	}
	return math.Round(total*10) / 10
}

// extendedFilled reports whether the user has at least one entry in the
// section. Read failures count as unfilled.
func (s *Service) extendedFilled(ctx context.Context, token, userID, contextType string) bool {
	result, err := s.extended.ReadFull(ctx, token, userID, contextType)
	if err != nil {
		s.logger.DebugContext(ctx, "extended section unavailable for completion",
			"context_type", contextType, "user_id", userID, "error", err)
		return false
	}
	switch entries := result[contextType].(type) {
	case []any:
		return len(entries) > 0
	default:
		return false
	}
}

// profileFieldFilled checks the top-level column first, then the
// profiledetails sub-document.
func profileFieldFilled(profile map[string]any, field string) bool {
	if valueFilled(profile[field]) {
		return true
	}
	if details, ok := profile[columnProfileDetails].(map[string]any); ok {
		return valueFilled(details[field])
	}
	return false
}

func valueFilled(v any) bool {
	if v == nil {
		return false
	}
	return strings.TrimSpace(fmt.Sprint(v)) != ""
}
