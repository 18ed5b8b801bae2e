package redis

import (
	"context"
	"fmt"
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

func TestQuestionCacheWritesDayKey(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	source := &countingSource{}
	cache := NewQuestionCache(client, source, time.Hour)
	cache.clock = func() time.Time { return time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC) }

	qs, err := cache.Fetch(ctx, 6)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(qs) != 6 {
		t.Fatalf("expected 6 questions, got %d", len(qs))
	}
	if !mr.Exists("quiz:questions:2026-03-14") {
		t.Fatalf("expected the day key written")
	}

	if _, err := cache.Fetch(ctx, 6); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if atomic.LoadInt32(&source.calls) != 1 {
		t.Fatalf("expected the second fetch served from redis, got %d runs", source.calls)
	}
}

func TestQuestionCacheRefreshesNextDay(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	source := &countingSource{}
	cache := NewQuestionCache(client, source, time.Hour)

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
		t.Fatalf("expected a refresh for the new day key, got %d runs", source.calls)
	}
}

func TestQuestionCacheSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	clock := func() time.Time { return time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC) }

	first := &countingSource{}
	cacheA := NewQuestionCache(client, first, time.Hour)
	cacheA.clock = clock
	if _, err := cacheA.Fetch(ctx, 6); err != nil {
		t.Fatalf("fetch A: %v", err)
	}

	second := &countingSource{}
	cacheB := NewQuestionCache(client, second, time.Hour)
	cacheB.clock = clock
	if _, err := cacheB.Fetch(ctx, 6); err != nil {
		t.Fatalf("fetch B: %v", err)
	}
	if atomic.LoadInt32(&second.calls) != 0 {
		t.Fatalf("second instance should reuse the stored batch, got %d runs", second.calls)
	}
}
