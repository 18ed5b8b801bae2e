package app

import (
	"context"
	"log"

	"asaa-quiz-service/internal/domain"
)

// QuestionSource supplies a batch of question records for one attempt.
// Implementations may fail for any reason; the engine only ever sees a source
// wrapped by FallbackSource.
type QuestionSource interface {
	Fetch(ctx context.Context, count int) ([]domain.Question, error)
}

// FallbackSource wraps a live question source and substitutes static content
// on any failure. Error classification stays here: the session engine never
// learns whether the live provider worked.
//
// A live batch that parses but is shorter than requested is accepted as-is
// and simply yields a shorter attempt; batches are never mixed from both
// sources mid-attempt.
type FallbackSource struct {
	live   QuestionSource
	static []domain.Question
}

// NewFallbackSource builds the wrapper. live may be nil, in which case the
// static set is always served.
func NewFallbackSource(live QuestionSource, static []domain.Question) *FallbackSource {
	return &FallbackSource{live: live, static: static}
}

func (s *FallbackSource) Fetch(ctx context.Context, count int) ([]domain.Question, error) {
	if s.live != nil {
		qs, err := s.live.Fetch(ctx, count)
		if err == nil && len(qs) > 0 {
			if len(qs) > count {
				qs = qs[:count]
			}
			return qs, nil
		}
		if err != nil {
			log.Printf("question source failed, using fallback set: %v", err)
		}
	}

	n := count
	if n > len(s.static) {
		n = len(s.static)
	}
	out := make([]domain.Question, n)
	copy(out, s.static[:n])
	return out, nil
}
