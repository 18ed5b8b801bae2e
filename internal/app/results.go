package app

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"asaa-quiz-service/internal/domain"
)

// ResultsArchive is an optional secondary sink for completed attempts
// (Postgres in production). Archiving is best-effort; the store slot remains
// the source of truth for reads.
type ResultsArchive interface {
	Archive(ctx context.Context, result domain.QuizResult) error
}

// ResultsService owns the append-only ledger of completed attempts and its
// read-side aggregations.
type ResultsService struct {
	store   Store
	archive ResultsArchive

	// The store offers plain get/set, so the append is a read-modify-write;
	// the mutex keeps concurrent completions from losing records.
	mu sync.Mutex
}

func NewResultsService(store Store, archive ResultsArchive) *ResultsService {
	return &ResultsService{store: store, archive: archive}
}

// Append adds one record to the ledger. No dedup: every completed attempt
// produces exactly one entry.
func (s *ResultsService) Append(ctx context.Context, result domain.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []domain.QuizResult
	if _, err := s.store.Get(ctx, KeyResults, &results); err != nil {
		return err
	}
	results = append(results, result)
	if err := s.store.Set(ctx, KeyResults, results); err != nil {
		return err
	}

	if s.archive != nil {
		if err := s.archive.Archive(ctx, result); err != nil {
			log.Printf("results archive failed for %s: %v", result.ID, err)
		}
	}
	return nil
}

// All returns every ledger entry. Order carries no meaning for consumers.
func (s *ResultsService) All(ctx context.Context) ([]domain.QuizResult, error) {
	var results []domain.QuizResult
	if _, err := s.store.Get(ctx, KeyResults, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Leaderboard groups the ledger by username, summing scores and counting
// attempts, sorted by total score descending. Equal totals keep a stable
// name order so repeated reads render identically.
func (s *ResultsService) Leaderboard(ctx context.Context) ([]domain.LeaderboardRow, error) {
	results, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]*domain.LeaderboardRow)
	for _, r := range results {
		row, ok := byUser[r.Username]
		if !ok {
			row = &domain.LeaderboardRow{Username: r.Username}
			byUser[r.Username] = row
		}
		row.TotalScore += r.Score
		row.GamesPlayed++
		if r.Date.After(row.LastPlayed) {
			row.LastPlayed = r.Date
		}
	}

	rows := make([]domain.LeaderboardRow, 0, len(byUser))
	for _, row := range byUser {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalScore != rows[j].TotalScore {
			return rows[i].TotalScore > rows[j].TotalScore
		}
		return rows[i].Username < rows[j].Username
	})
	return rows, nil
}

// History returns a user's results, most recent first, truncated to limit
// (0 means all). Matching is case-insensitive like the directory.
func (s *ResultsService) History(ctx context.Context, username string, limit int) ([]domain.QuizResult, error) {
	results, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	var history []domain.QuizResult
	for _, r := range results {
		if strings.EqualFold(r.Username, username) {
			history = append(history, r)
		}
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].Date.After(history[j].Date)
	})
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}
