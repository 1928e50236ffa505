package service

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"userprofile/internal/extendedprofile/models"
	"userprofile/internal/platform/config"
)

const sortDateLayout = "2006-01-02"

// sortEntries orders a section's entries descending by the category
// comparator: serviceHistory by startDate, educationalQualifications by
// startYear, achievements by issuedDate. Unknown categories keep their order.
// Unparseable keys sort last so broken entries sink to the bottom.
func sortEntries(contextType string, entries []models.Entry) {
	var key func(models.Entry) int64
	switch contextType {
	case config.ContextServiceHistory:
		key = dateKey("startDate")
	case config.ContextEducation:
		key = yearKey("startYear")
	case config.ContextAchievements:
		key = dateKey("issuedDate")
	default:
		return
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return key(entries[i]) > key(entries[j])
	})
}

func dateKey(field string) func(models.Entry) int64 {
	return func(e models.Entry) int64 {
		s, _ := e[field].(string)
		t, err := time.Parse(sortDateLayout, strings.TrimSpace(s))
		if err != nil {
			return math.MinInt64
		}
		return t.Unix()
	}
}

func yearKey(field string) func(models.Entry) int64 {
	return func(e models.Entry) int64 {
		switch v := e[field].(type) {
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return int64(n)
			}
		case float64:
			return int64(v)
		case int:
			return int64(v)
		}
		return math.MinInt64
	}
}
