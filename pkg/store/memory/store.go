package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/models/store"
)

// Store keeps analysis results in process memory. It backs CLI runs and
// server deployments without a result database; the write-once contract
// matches the Postgres store.
type Store struct {
	mu      sync.RWMutex
	results map[string]domain.AnalysisResult
}

func NewStore() *Store {
	return &Store{
		results: make(map[string]domain.AnalysisResult),
	}
}

func (s *Store) Store(_ context.Context, result domain.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.results[result.ID]; exists {
		return fmt.Errorf("analysis %s: %w", result.ID, domain.ErrDuplicateAnalysis)
	}
	s.results[result.ID] = result
	return nil
}

func (s *Store) Get(_ context.Context, id string) (domain.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, exists := s.results[id]
	if !exists {
		return domain.AnalysisResult{}, fmt.Errorf("analysis %q: %w", id, domain.ErrAnalysisNotFound)
	}
	return result, nil
}

func (s *Store) List(_ context.Context, limit int) ([]store.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]store.AnalysisRecord, 0, len(s.results))
	for _, result := range s.results {
		records = append(records, store.AnalysisRecord{
			ID:        result.ID,
			Status:    string(result.Status),
			CreatedAt: result.CompletedAt,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
