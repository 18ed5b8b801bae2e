package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"asaa-quiz-service/internal/domain"
)

type countingSource struct {
	calls int32
}

func (s *countingSource) Fetch(_ context.Context, count int) ([]domain.Question, error) {
	atomic.AddInt32(&s.calls, 1)
	qs := make([]domain.Question, count)
	for i := range qs {
		qs[i] = domain.Question{
			QuestionText:       fmt.Sprintf("Q%d", i+1),
			Options:            []string{"A", "B", "C", "D"},
			CorrectAnswerIndex: 0,
		}
	}
	return qs, nil
}

func TestQuestionCacheServesOneBatchPerDay(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{}
	cache := NewQuestionCache(source)
	cache.clock = func() time.Time { return time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC) }

	first, err := cache.Fetch(ctx, 6)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	second, err := cache.Fetch(ctx, 6)
	if err != nil {
		t.Fatalf("fetch again: %v", err)
	}
	if atomic.LoadInt32(&source.calls) != 1 {
		t.Fatalf("expected one generator run, got %d", source.calls)
	}
	if len(first) != 6 || len(second) != 6 || first[0].QuestionText != second[0].QuestionText {
		t.Fatalf("expected the same batch on both fetches")
	}
}

func TestQuestionCacheRefreshesNextDay(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{}
	cache := NewQuestionCache(source)

	now := time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }

	if _, err := cache.Fetch(ctx, 6); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	now = now.Add(24 * time.Hour)
	if _, err := cache.Fetch(ctx, 6); err != nil {
		t.Fatalf("fetch next day: %v", err)
	}
	if atomic.LoadInt32(&source.calls) != 2 {
		t.Fatalf("expected a refresh on the new day, got %d runs", source.calls)
	}
}

func TestQuestionCacheCollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{}
	cache := NewQuestionCache(source)
	cache.clock = func() time.Time { return time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC) }

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Fetch(ctx, 6); err != nil {
				t.Errorf("fetch: %v", err)
			}
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&source.calls) != 1 {
		t.Fatalf("expected concurrent misses collapsed to one run, got %d", source.calls)
	}
}

func TestQuestionCacheTrimsToCount(t *testing.T) {
	ctx := context.Background()
	cache := NewQuestionCache(&countingSource{})
	cache.clock = func() time.Time { return time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC) }

	if _, err := cache.Fetch(ctx, 6); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	qs, err := cache.Fetch(ctx, 3)
	if err != nil {
		t.Fatalf("fetch trimmed: %v", err)
	}
	if len(qs) != 3 {
		t.Fatalf("expected 3 questions from the cached batch, got %d", len(qs))
	}
}
