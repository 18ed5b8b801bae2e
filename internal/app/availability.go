package app

import (
	"context"
	"time"

	"asaa-quiz-service/internal/domain"
)

// The quiz opens at 20:00 local and closes at midnight.
const (
	quizOpenHour  = 20
	quizCloseHour = 24
)

// Evaluator reason messages, also surfaced verbatim by the transport layer.
const (
	ReasonManualOpen    = "The quiz has been opened manually."
	ReasonManualClosed  = "The quiz has been closed by the administrator."
	ReasonOutsideWindow = "The quiz is only open between 20:00 and midnight."
	ReasonAlreadyPlayed = "You have already played today. Come back tomorrow."
	ReasonOpen          = "The quiz is open!"
)

// Evaluate decides whether a user may start a quiz at the given instant.
// Pure function; first matching rule wins: manual override, then the
// time-of-day window, then the one-attempt-per-day rule. A nil user is a
// visitor who has not signed in yet.
func Evaluate(now time.Time, global domain.GlobalAvailability, user *domain.User) domain.Availability {
	if global.IsManualOverride {
		if global.IsQuizOpen {
			return domain.Availability{Open: true, Reason: ReasonManualOpen}
		}
		return domain.Availability{Open: false, Reason: ReasonManualClosed}
	}

	hour := now.Hour()
	if hour < quizOpenHour || hour >= quizCloseHour {
		return domain.Availability{Open: false, Reason: ReasonOutsideWindow}
	}

	if user != nil && user.LastPlayedDate == domain.DateOf(now) {
		return domain.Availability{Open: false, Reason: ReasonAlreadyPlayed}
	}

	return domain.Availability{Open: true, Reason: ReasonOpen}
}

// AvailabilityService owns the global availability flag and periodic
// re-evaluation.
type AvailabilityService struct {
	store Store
	clock func() time.Time
}

func NewAvailabilityService(store Store) *AvailabilityService {
	return &AvailabilityService{store: store, clock: time.Now}
}

// GlobalState reads the override record, defaulting to automatic mode when
// the slot has never been written.
func (s *AvailabilityService) GlobalState(ctx context.Context) (domain.GlobalAvailability, error) {
	var state domain.GlobalAvailability
	if _, err := s.store.Get(ctx, KeyGlobalState, &state); err != nil {
		return domain.GlobalAvailability{}, err
	}
	return state, nil
}

// SetGlobalState replaces the override record. Only an admin actor may write.
func (s *AvailabilityService) SetGlobalState(ctx context.Context, actor domain.User, state domain.GlobalAvailability) error {
	if actor.Role != domain.RoleAdmin {
		return domain.ErrAccessDenied
	}
	return s.store.Set(ctx, KeyGlobalState, state)
}

// Evaluate loads the override record and runs the pure evaluator against the
// service clock.
func (s *AvailabilityService) Evaluate(ctx context.Context, user *domain.User) (domain.Availability, error) {
	state, err := s.GlobalState(ctx)
	if err != nil {
		return domain.Availability{}, err
	}
	return Evaluate(s.clock(), state, user), nil
}

// WatchInterval is how often a mounted view re-evaluates availability; the
// window boundary moves with the wall clock even when nothing else changes.
const WatchInterval = time.Minute

// Watch emits an immediate evaluation and then one per interval until the
// returned cancel function is called (or ctx ends). Exactly one ticker runs
// per call; callers must cancel on teardown.
func (s *AvailabilityService) Watch(ctx context.Context, user *domain.User) (<-chan domain.Availability, func()) {
	ch := make(chan domain.Availability, 1)
	watchCtx, cancel := context.WithCancel(ctx)

	emit := func() {
		av, err := s.Evaluate(watchCtx, user)
		if err != nil {
			return
		}
		select {
		case ch <- av:
		case <-watchCtx.Done():
		}
	}

	go func() {
		defer close(ch)
		emit()
		ticker := time.NewTicker(WatchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
				emit()
			}
		}
	}()

	return ch, cancel
}
