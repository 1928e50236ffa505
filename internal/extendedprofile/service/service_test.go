package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"userprofile/internal/cache"
	"userprofile/internal/extendedprofile/models"
	"userprofile/internal/identity"
	"userprofile/internal/platform/config"
	"userprofile/internal/storage"
	dErrors "userprofile/pkg/domain-errors"
)

const (
	testKeyspace = "sunbird"
	testUserID   = "user-1"
	testToken    = "tok-1"
)

type ServiceSuite struct {
	suite.Suite

	ctx   context.Context
	store *storage.MemoryStore
	cache *cache.MemoryCache
	svc   *Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = storage.NewMemoryStore()
	s.store.SetTableKey(tableExtended, columnUserID, columnContext)
	s.cache = cache.NewMemoryCache()

	resolver := identity.Static{testToken: testUserID, "tok-2": "user-2"}
	s.svc = NewService(s.store, s.cache, resolver, testKeyspace, config.FromEnv().Profile)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) seedSection(userID, contextType string, entries []models.Entry) {
	data, err := json.Marshal(entries)
	s.Require().NoError(err)
	s.store.Seed(tableExtended, storage.Record{
		columnUserID:  userID,
		columnContext: contextType,
		columnData:    string(data),
	})
}

func (s *ServiceSuite) storedSection(userID, contextType string) []models.Entry {
	rows, err := s.store.Query(s.ctx, testKeyspace, tableExtended,
		storage.Record{columnUserID: userID, columnContext: contextType}, nil)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)

	raw, _ := rows[0][columnData].(string)
	var entries []models.Entry
	s.Require().NoError(json.Unmarshal([]byte(raw), &entries))
	return entries
}

func achievement(uuid, title, issuedDate string) models.Entry {
	return models.Entry{"uuid": uuid, "title": title, "issuedBy": "board", "issuedDate": issuedDate}
}

// --- Save ---

func (s *ServiceSuite) TestSaveRejectsMismatchedUser() {
	_, err := s.svc.Save(s.ctx, "tok-2", models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextAchievements: {achievement("", "Gold Medal", "2020-01-01")},
		},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeAuthMismatch))
	s.EqualError(err, "Invalid UserId in the request")
	s.Zero(s.store.WriteCount())
}

func (s *ServiceSuite) TestSaveMatchesUserCaseInsensitively() {
	resolver := identity.Static{testToken: "USER-1"}
	svc := NewService(s.store, s.cache, resolver, testKeyspace, config.FromEnv().Profile)

	saved, err := svc.Save(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextAchievements: {achievement("", "Gold Medal", "2020-01-01")},
		},
	})
	s.Require().NoError(err)
	s.Len(saved, 1)
}

func (s *ServiceSuite) TestSaveRejectsUnknownSection() {
	_, err := s.svc.Save(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			"hobbies": {{"name": "chess"}},
		},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidContextType))
	s.EqualError(err, "Invalid context type in request: hobbies")
}

func (s *ServiceSuite) TestSaveAggregatesMandatoryFieldErrors() {
	_, err := s.svc.Save(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextEducation:      {{"degree": "B.Sc"}},
			config.ContextAchievements:   {{"title": "  "}},
			config.ContextServiceHistory: {{"organisation": "Dept", "designation": "Clerk", "startDate": "2019-04-01"}},
		},
	})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "Failed Due To Missing or Invalid Params")
	s.Contains(err.Error(), "educationalQualifications.institutionName")
	s.Contains(err.Error(), "achievements.title")
	s.Contains(err.Error(), "achievements.issuedBy")
	s.Zero(s.store.WriteCount())
}

func (s *ServiceSuite) TestSaveAssignsFreshUUIDs() {
	saved, err := s.svc.Save(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextAchievements: {
				achievement("caller-supplied", "Gold Medal", "2020-01-01"),
				achievement("", "Silver Medal", "2019-01-01"),
			},
		},
	})
	s.Require().NoError(err)

	entries := saved
	s.Require().Len(entries, 2)
	s.NotEqual("caller-supplied", entries[0]["uuid"])
	s.NotEmpty(entries[0]["uuid"])
	s.NotEmpty(entries[1]["uuid"])
	s.NotEqual(entries[0]["uuid"], entries[1]["uuid"])
}

func (s *ServiceSuite) TestSaveReturnsFlatListAcrossSections() {
	saved, err := s.svc.Save(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextEducation: {
				{"degree": "B.Sc", "institutionName": "State College", "startYear": "2015", "endYear": "2018"},
			},
			config.ContextAchievements: {achievement("", "Gold Medal", "2020-01-01")},
		},
	})
	s.Require().NoError(err)

	s.Require().Len(saved, 2)
	for _, entry := range saved {
		s.NotEmpty(entry["uuid"])
	}
}

func (s *ServiceSuite) TestSaveMergesAndSortsDescending() {
	s.seedSection(testUserID, config.ContextAchievements, []models.Entry{
		achievement("old-1", "Bronze Medal", "2018-06-01"),
	})

	_, err := s.svc.Save(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextAchievements: {
				achievement("", "Silver Medal", "2019-01-01"),
				achievement("", "Gold Medal", "2021-03-15"),
			},
		},
	})
	s.Require().NoError(err)

	stored := s.storedSection(testUserID, config.ContextAchievements)
	s.Require().Len(stored, 3)
	s.Equal("Gold Medal", stored[0]["title"])
	s.Equal("Silver Medal", stored[1]["title"])
	s.Equal("Bronze Medal", stored[2]["title"])
}

func (s *ServiceSuite) TestSaveResetsUnparseableExistingData() {
	s.store.Seed(tableExtended, storage.Record{
		columnUserID:  testUserID,
		columnContext: config.ContextAchievements,
		columnData:    "{corrupt",
	})

	_, err := s.svc.Save(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextAchievements: {achievement("", "Gold Medal", "2020-01-01")},
		},
	})
	s.Require().NoError(err)

	stored := s.storedSection(testUserID, config.ContextAchievements)
	s.Empty(stored)
}

func (s *ServiceSuite) TestSaveWithNoSectionsIsNoContent() {
	_, err := s.svc.Save(s.ctx, testToken, models.MutationRequest{
		UserID:   testUserID,
		Sections: map[string][]models.Entry{},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNoContent))
	s.EqualError(err, "No data was saved.")
}

func (s *ServiceSuite) TestSaveStoreFailure() {
	s.store.FailWrites(errors.New("no hosts available"))

	_, err := s.svc.Save(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextAchievements: {achievement("", "Gold Medal", "2020-01-01")},
		},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Contains(err.Error(), "Failed to insert or update context data for contextType: achievements")
}

// --- ReadFull ---

func (s *ServiceSuite) TestReadFullFromStorePopulatesCache() {
	s.seedSection(testUserID, config.ContextAchievements, []models.Entry{
		achievement("a1", "Gold Medal", "2020-01-01"),
	})

	result, err := s.svc.ReadFull(s.ctx, testToken, testUserID, config.ContextAchievements)
	s.Require().NoError(err)
	s.Equal(testUserID, result["userId"])
	s.Equal(1, result["count"])
	s.True(s.cache.Contains("user:extendedProfile:achievements:" + testUserID))
}

func (s *ServiceSuite) TestReadFullServesFromCache() {
	s.Require().NoError(cache.PutJSON(s.ctx, s.cache,
		"user:extendedProfile:achievements:"+testUserID,
		map[string]any{config.ContextAchievements: []any{
			map[string]any{"uuid": "a1", "title": "Gold Medal"},
		}}))
	s.store.FailQueries(errors.New("store must not be hit"))

	result, err := s.svc.ReadFull(s.ctx, testToken, testUserID, config.ContextAchievements)
	s.Require().NoError(err)
	s.Equal(1, result["count"])
}

func (s *ServiceSuite) TestReadFullIgnoresCacheEntryWithoutSectionKey() {
	s.Require().NoError(cache.PutJSON(s.ctx, s.cache,
		"user:extendedProfile:achievements:"+testUserID,
		map[string]any{"unrelated": []any{}}))
	s.seedSection(testUserID, config.ContextAchievements, []models.Entry{
		achievement("a1", "Gold Medal", "2020-01-01"),
	})

	result, err := s.svc.ReadFull(s.ctx, testToken, testUserID, config.ContextAchievements)
	s.Require().NoError(err)
	s.Equal(1, result["count"])
}

func (s *ServiceSuite) TestReadFullNoDataIsNoContent() {
	_, err := s.svc.ReadFull(s.ctx, testToken, testUserID, config.ContextAchievements)
	s.True(dErrors.HasCode(err, dErrors.CodeNoContent))
}

func (s *ServiceSuite) TestReadFullUnknownSection() {
	_, err := s.svc.ReadFull(s.ctx, testToken, testUserID, "hobbies")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidContextType))
}

func (s *ServiceSuite) TestReadFullRejectsBadToken() {
	_, err := s.svc.ReadFull(s.ctx, "bad-token", testUserID, config.ContextAchievements)
	s.True(dErrors.HasCode(err, dErrors.CodeAuthMismatch))
}

// --- Summary ---

func (s *ServiceSuite) TestSummaryBuildsDigestAndCaches() {
	s.seedSection(testUserID, config.ContextAchievements, []models.Entry{
		achievement("a1", "Gold Medal", "2021-01-01"),
		achievement("a2", "Silver Medal", "2020-01-01"),
		achievement("a3", "Bronze Medal", "2019-01-01"),
	})
	s.seedSection(testUserID, config.ContextServiceHistory, []models.Entry{
		{"uuid": "s1", "organisation": "Dept", "designation": "Clerk", "startDate": "2019-04-01"},
	})

	result, err := s.svc.Summary(s.ctx, testToken, testUserID)
	s.Require().NoError(err)
	s.Equal(testUserID, result["userId"])

	ach := result[config.ContextAchievements].(map[string]any)
	s.Equal(3, ach["count"])
	s.Len(ach["data"], 2)

	svcHist := result[config.ContextServiceHistory].(map[string]any)
	s.Equal(1, svcHist["count"])

	s.NotContains(result, config.ContextEducation)
	s.True(s.cache.Contains("user:extendedProfile:all:" + testUserID))
}

func (s *ServiceSuite) TestSummaryEmptyIsNoContent() {
	_, err := s.svc.Summary(s.ctx, testToken, testUserID)
	s.True(dErrors.HasCode(err, dErrors.CodeNoContent))
}

func (s *ServiceSuite) TestSummaryParseFailureIsInternal() {
	s.store.Seed(tableExtended, storage.Record{
		columnUserID:  testUserID,
		columnContext: config.ContextAchievements,
		columnData:    "{corrupt",
	})

	_, err := s.svc.Summary(s.ctx, testToken, testUserID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestSummaryCacheWriteFailureIsSoft() {
	s.seedSection(testUserID, config.ContextAchievements, []models.Entry{
		achievement("a1", "Gold Medal", "2021-01-01"),
	})
	s.cache.FailPuts(errors.New("redis down"))

	result, err := s.svc.Summary(s.ctx, testToken, testUserID)
	s.Require().NoError(err)
	s.Equal(testUserID, result["userId"])
}

// --- Update ---

func (s *ServiceSuite) TestUpdateOverlaysFieldsByUUID() {
	s.seedSection(testUserID, config.ContextAchievements, []models.Entry{
		achievement("a1", "Gold Medal", "2020-01-01"),
		achievement("a2", "Silver Medal", "2019-01-01"),
	})

	err := s.svc.Update(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextAchievements: {
				{"uuid": "a2", "title": "Platinum Medal", "issuedDate": "2022-05-05"},
			},
		},
	})
	s.Require().NoError(err)

	stored := s.storedSection(testUserID, config.ContextAchievements)
	s.Require().Len(stored, 2)
	// a2 moved to the top after its issuedDate changed
	s.Equal("a2", stored[0]["uuid"])
	s.Equal("Platinum Medal", stored[0]["title"])
	s.Equal("board", stored[0]["issuedBy"])
	s.Equal("a1", stored[1]["uuid"])
	s.Equal("Gold Medal", stored[1]["title"])
}

func (s *ServiceSuite) TestUpdateUnknownUUIDFailsWithoutWrite() {
	s.seedSection(testUserID, config.ContextAchievements, []models.Entry{
		achievement("a1", "Gold Medal", "2020-01-01"),
	})

	err := s.svc.Update(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextAchievements: {{"uuid": "missing", "title": "X"}},
		},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.EqualError(err, "Invalid or missing UUID in incoming data.")
	s.Zero(s.store.WriteCount())
}

func (s *ServiceSuite) TestUpdateMissingRowIsInternal() {
	err := s.svc.Update(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextAchievements: {{"uuid": "a1", "title": "X"}},
		},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Contains(err.Error(), "No existing records found for the given contextType: achievements")
}

func (s *ServiceSuite) TestUpdateNeverOverwritesUUID() {
	s.seedSection(testUserID, config.ContextAchievements, []models.Entry{
		achievement("a1", "Gold Medal", "2020-01-01"),
	})

	err := s.svc.Update(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextAchievements: {{"uuid": "a1", "title": "Renamed"}},
		},
	})
	s.Require().NoError(err)

	stored := s.storedSection(testUserID, config.ContextAchievements)
	s.Equal("a1", stored[0]["uuid"])
	s.Equal("Renamed", stored[0]["title"])
}

// --- Delete ---

func (s *ServiceSuite) TestDeleteRemovesMatchingUUIDs() {
	s.seedSection(testUserID, config.ContextAchievements, []models.Entry{
		achievement("a1", "Gold Medal", "2021-01-01"),
		achievement("a2", "Silver Medal", "2020-01-01"),
		achievement("a3", "Bronze Medal", "2019-01-01"),
	})

	err := s.svc.Delete(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextAchievements: {{"uuid": " a2 "}},
		},
	})
	s.Require().NoError(err)

	stored := s.storedSection(testUserID, config.ContextAchievements)
	s.Require().Len(stored, 2)
	s.Equal("a1", stored[0]["uuid"])
	s.Equal("a3", stored[1]["uuid"])
}

func (s *ServiceSuite) TestDeleteEmptiesRowWithoutDroppingIt() {
	s.seedSection(testUserID, config.ContextAchievements, []models.Entry{
		achievement("a1", "Gold Medal", "2021-01-01"),
	})

	err := s.svc.Delete(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextAchievements: {{"uuid": "a1"}},
		},
	})
	s.Require().NoError(err)

	stored := s.storedSection(testUserID, config.ContextAchievements)
	s.Empty(stored)
}

func (s *ServiceSuite) TestDeleteIsIdempotent() {
	s.seedSection(testUserID, config.ContextAchievements, []models.Entry{
		achievement("a1", "Gold Medal", "2021-01-01"),
	})

	req := models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextAchievements: {{"uuid": "a1"}},
		},
	}
	s.Require().NoError(s.svc.Delete(s.ctx, testToken, req))
	s.Require().NoError(s.svc.Delete(s.ctx, testToken, req))

	stored := s.storedSection(testUserID, config.ContextAchievements)
	s.Empty(stored)
}

func (s *ServiceSuite) TestDeleteSkipsMissingRowSilently() {
	err := s.svc.Delete(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextAchievements: {{"uuid": "a1"}},
		},
	})
	s.NoError(err)
	s.Zero(s.store.WriteCount())
}

func (s *ServiceSuite) TestDeleteUnparseableDataIsInternal() {
	s.store.Seed(tableExtended, storage.Record{
		columnUserID:  testUserID,
		columnContext: config.ContextAchievements,
		columnData:    "{corrupt",
	})

	err := s.svc.Delete(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextAchievements: {{"uuid": "a1"}},
		},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.EqualError(err, "Failed to parse existing context data.")
}

// --- Round trip ---

func (s *ServiceSuite) TestCreateReadUpdateReadRoundTrip() {
	saved, err := s.svc.Save(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextEducation: {
				{"degree": "B.Sc", "institutionName": "State College", "startYear": "2015", "endYear": "2018"},
			},
		},
	})
	s.Require().NoError(err)
	s.Require().Len(saved, 1)
	id := saved[0]["uuid"].(string)

	err = s.svc.Update(s.ctx, testToken, models.MutationRequest{
		UserID: testUserID,
		Sections: map[string][]models.Entry{
			config.ContextEducation: {{"uuid": id, "degree": "B.Tech"}},
		},
	})
	s.Require().NoError(err)

	result, err := s.svc.ReadFull(s.ctx, testToken, testUserID, config.ContextEducation)
	s.Require().NoError(err)

	entries := result[config.ContextEducation].([]any)
	s.Require().Len(entries, 1)
	entry := entries[0].(map[string]any)
	s.Equal(id, entry["uuid"])
	s.Equal("B.Tech", entry["degree"])
	s.Equal("State College", entry["institutionName"])
}
