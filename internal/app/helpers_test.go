package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"asaa-quiz-service/internal/domain"
)

// fakeStore is a minimal in-package Store so tests can reach unexported
// service fields without importing the infra packages.
type fakeStore struct {
	mu   sync.Mutex
	data map[string]json.RawMessage
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]json.RawMessage)}
}

func (s *fakeStore) Get(_ context.Context, key string, out any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (s *fakeStore) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// openEvening is inside the 20:00-24:00 window.
var openEvening = time.Date(2026, 3, 14, 21, 30, 0, 0, time.UTC)

func questionsFixture(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			QuestionText:       fmt.Sprintf("Question %d", i+1),
			Options:            []string{"A", "B", "C", "D"},
			CorrectAnswerIndex: 1,
			Explanation:        fmt.Sprintf("B is right for question %d", i+1),
		}
	}
	return qs
}

type staticSource struct {
	qs []domain.Question
}

func (s staticSource) Fetch(_ context.Context, count int) ([]domain.Question, error) {
	if count > 0 && count < len(s.qs) {
		return s.qs[:count], nil
	}
	return s.qs, nil
}

type failingSource struct {
	err error
}

func (s failingSource) Fetch(context.Context, int) ([]domain.Question, error) {
	return nil, s.err
}
