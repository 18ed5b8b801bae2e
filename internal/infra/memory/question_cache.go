package memory

import (
	"context"
	"sync"
	"time"

	"asaa-quiz-service/internal/app"
	"asaa-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionCache memoizes the generated question set per calendar day so every
// attempt on the same day shares one batch. Concurrent misses are collapsed
// with singleflight so the generator runs at most once per day.
type QuestionCache struct {
	source app.QuestionSource
	clock  func() time.Time
	sf     singleflight.Group

	mu        sync.RWMutex
	day       string
	questions []domain.Question
}

func NewQuestionCache(source app.QuestionSource) *QuestionCache {
	return &QuestionCache{source: source, clock: time.Now}
}

func (c *QuestionCache) Fetch(ctx context.Context, count int) ([]domain.Question, error) {
	day := domain.DateOf(c.clock())

	c.mu.RLock()
	if c.day == day && c.questions != nil {
		qs := c.sliceLocked(count)
		c.mu.RUnlock()
		return qs, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(day, func() (interface{}, error) {
		c.mu.RLock()
		if c.day == day && c.questions != nil {
			qs := c.questions
			c.mu.RUnlock()
			return qs, nil
		}
		c.mu.RUnlock()

		qs, err := c.source.Fetch(ctx, count)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.day = day
		c.questions = qs
		c.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}

	qs := result.([]domain.Question)
	return copyQuestions(qs, count), nil
}

// sliceLocked copies under the read lock held by the caller.
func (c *QuestionCache) sliceLocked(count int) []domain.Question {
	return copyQuestions(c.questions, count)
}

func copyQuestions(qs []domain.Question, count int) []domain.Question {
	n := len(qs)
	if count > 0 && count < n {
		n = count
	}
	out := make([]domain.Question, n)
	copy(out, qs[:n])
	return out
}
