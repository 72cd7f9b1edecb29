package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/finbrief/finbrief/internal/profile"
	"github.com/finbrief/finbrief/plugin/ai/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Analysis narratives are produced by a separate pipeline and change
	// rarely; a short TTL bounds staleness on the write path, and restores
	// invalidate explicitly before recomputing alignment.
	analysisCache *cache.LRUCache
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:        driver,
		profile:       profile,
		analysisCache: cache.NewLRUCache(500, 2*time.Minute),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// GetEarningsEvent gets an earnings event by id. Returns nil when absent.
func (s *Store) GetEarningsEvent(ctx context.Context, id int32) (*EarningsEvent, error) {
	return s.driver.GetEarningsEvent(ctx, id)
}

// GetEarningsAnalysis gets the AI analysis for an earnings event.
// Returns nil when no analysis exists yet.
func (s *Store) GetEarningsAnalysis(ctx context.Context, eventID int32) (*EarningsAnalysis, error) {
	return s.driver.GetEarningsAnalysis(ctx, eventID)
}

// GetAnalysisNarrative returns the flattened analysis narrative for an
// event, or "" when none exists. Results are cached briefly.
func (s *Store) GetAnalysisNarrative(ctx context.Context, eventID int32) (string, error) {
	key := analysisCacheKey(eventID)
	if cached, ok := s.analysisCache.Get(key); ok {
		var narrative string
		if err := json.Unmarshal(cached, &narrative); err == nil {
			return narrative, nil
		}
	}

	analysis, err := s.driver.GetEarningsAnalysis(ctx, eventID)
	if err != nil {
		return "", err
	}

	narrative := ""
	if analysis != nil {
		narrative = analysis.Narrative()
	}
	if encoded, err := json.Marshal(narrative); err == nil {
		s.analysisCache.Set(key, encoded, 0)
	}
	return narrative, nil
}

// InvalidateAnalysisNarrative drops the cached narrative for an event so
// the next GetAnalysisNarrative reads through to the datastore.
func (s *Store) InvalidateAnalysisNarrative(eventID int32) {
	s.analysisCache.Invalidate(analysisCacheKey(eventID))
}

func analysisCacheKey(eventID int32) string {
	return "analysis:" + strconv.FormatInt(int64(eventID), 10)
}
