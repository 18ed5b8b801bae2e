package app

import (
	"context"
	"errors"
	"testing"
)

func TestFallbackOnLiveFailure(t *testing.T) {
	static := questionsFixture(6)
	src := NewFallbackSource(failingSource{err: errors.New("api down")}, static)

	qs, err := src.Fetch(context.Background(), 6)
	if err != nil {
		t.Fatalf("fallback must swallow the failure: %v", err)
	}
	if len(qs) != 6 || qs[0].QuestionText != static[0].QuestionText {
		t.Fatalf("expected the static set, got %d questions", len(qs))
	}
}

func TestFallbackOnEmptyLiveBatch(t *testing.T) {
	src := NewFallbackSource(staticSource{qs: nil}, questionsFixture(6))

	qs, err := src.Fetch(context.Background(), 6)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(qs) != 6 {
		t.Fatalf("empty live batch should fall back, got %d", len(qs))
	}
}

func TestNilLiveServesStatic(t *testing.T) {
	src := NewFallbackSource(nil, questionsFixture(6))

	qs, err := src.Fetch(context.Background(), 4)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(qs) != 4 {
		t.Fatalf("expected the static set trimmed to 4, got %d", len(qs))
	}
}

func TestLiveBatchTruncatedToCount(t *testing.T) {
	src := NewFallbackSource(staticSource{qs: questionsFixture(10)}, nil)

	qs, err := src.Fetch(context.Background(), 6)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(qs) != 6 {
		t.Fatalf("expected 6 questions, got %d", len(qs))
	}
}

func TestShortLiveBatchAccepted(t *testing.T) {
	live := questionsFixture(3)
	src := NewFallbackSource(staticSource{qs: live}, questionsFixture(6))

	qs, err := src.Fetch(context.Background(), 6)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	// Never padded from the static set.
	if len(qs) != 3 {
		t.Fatalf("short live batch must be kept as-is, got %d", len(qs))
	}
	for _, q := range qs {
		if q.QuestionText != live[0].QuestionText && q.QuestionText != live[1].QuestionText && q.QuestionText != live[2].QuestionText {
			t.Fatalf("batch mixed sources: %+v", q)
		}
	}
}

func TestStaticShorterThanCount(t *testing.T) {
	src := NewFallbackSource(nil, questionsFixture(2))

	qs, err := src.Fetch(context.Background(), 6)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected everything the static set has, got %d", len(qs))
	}
}
