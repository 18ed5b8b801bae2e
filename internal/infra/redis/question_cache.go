package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"asaa-quiz-service/internal/app"
	"asaa-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionCache shares one generated question set per calendar day across
// instances, stored as quiz:questions:{YYYY-MM-DD}. Cache misses collapse
// through singleflight and the stored batch expires with jitter so restarts
// don't stampede the generator.
type QuestionCache struct {
	client *redis.Client
	source app.QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, source app.QuestionSource, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) Fetch(ctx context.Context, count int) ([]domain.Question, error) {
	day := domain.DateOf(c.clock())
	key := c.key(day)

	if qs, ok := c.load(ctx, key); ok {
		return trim(qs, count), nil
	}

	result, err, _ := c.sf.Do(day, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key meanwhile.
		if qs, ok := c.load(ctx, key); ok {
			return qs, nil
		}

		qs, err := c.source.Fetch(ctx, count)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(qs)
		if err != nil {
			return nil, err
		}
		// Best-effort write: a cache failure must not block the attempt.
		_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return trim(result.([]domain.Question), count), nil
}

func (c *QuestionCache) load(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) || err != nil {
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(raw, &qs); err != nil || len(qs) == 0 {
		return nil, false
	}
	return qs, true
}

func (c *QuestionCache) key(day string) string {
	return "quiz:questions:" + day
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func trim(qs []domain.Question, count int) []domain.Question {
	n := len(qs)
	if count > 0 && count < n {
		n = count
	}
	out := make([]domain.Question, n)
	copy(out, qs[:n])
	return out
}
