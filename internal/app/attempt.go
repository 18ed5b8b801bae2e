package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"asaa-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// AttemptState names the engine's states.
type AttemptState string

const (
	StateLoading  AttemptState = "LOADING"
	StateActive   AttemptState = "ACTIVE"
	StateFinished AttemptState = "FINISHED"
)

// noSelection encodes "timed out without answering".
const noSelection = -1

// AttemptConfig tunes one attempt. Zero values fall back to the product
// defaults: six questions, 20 seconds each, 5 points per correct answer.
type AttemptConfig struct {
	QuestionCount     int
	QuestionTimer     time.Duration
	PointsPerQuestion int
}

func (c AttemptConfig) withDefaults() AttemptConfig {
	if c.QuestionCount <= 0 {
		c.QuestionCount = 6
	}
	if c.QuestionTimer <= 0 {
		c.QuestionTimer = 20 * time.Second
	}
	if c.PointsPerQuestion <= 0 {
		c.PointsPerQuestion = 5
	}
	return c
}

// AttemptService gates and runs quiz attempts.
type AttemptService struct {
	identity     *IdentityService
	availability *AvailabilityService
	results      *ResultsService
	source       QuestionSource
	cfg          AttemptConfig
	clock        func() time.Time
}

func NewAttemptService(identity *IdentityService, availability *AvailabilityService, results *ResultsService, source QuestionSource, cfg AttemptConfig) *AttemptService {
	return &AttemptService{
		identity:     identity,
		availability: availability,
		results:      results,
		source:       source,
		cfg:          cfg.withDefaults(),
		clock:        time.Now,
	}
}

// Start re-checks the availability gate, fetches the question batch and
// returns a running attempt on its first question. The question source is
// already fallback-wrapped, so a fetch problem here means even the static set
// was unusable.
func (s *AttemptService) Start(ctx context.Context, user domain.User) (*Attempt, error) {
	availability, err := s.availability.Evaluate(ctx, &user)
	if err != nil {
		return nil, err
	}
	if !availability.Open {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuizClosed, availability.Reason)
	}

	attempt := newAttempt(user, s.cfg, s.results, s.identity, s.clock)

	qs, err := s.source.Fetch(ctx, s.cfg.QuestionCount)
	if err != nil || len(qs) == 0 {
		attempt.Close()
		return nil, domain.ErrQuestionSourceUnavailable
	}

	attempt.begin(qs)
	return attempt, nil
}

// Attempt drives a single quiz run: Loading -> Active(i) -> Finished.
// All transitions happen under one mutex; the answered flag is the single
// gate deciding the race between a selection and the countdown hitting zero.
type Attempt struct {
	id       string
	user     domain.User
	cfg      AttemptConfig
	results  *ResultsService
	identity *IdentityService
	now      func() time.Time

	// tickEvery is one second in production; tests stretch it and call
	// tick directly.
	tickEvery time.Duration

	mu          sync.Mutex
	state       AttemptState
	questions   []domain.Question
	index       int
	score       int
	answered    bool
	selected    int
	remaining   int
	closed      bool
	done        chan struct{}
	subscribers map[chan AttemptSnapshot]struct{}
}

func newAttempt(user domain.User, cfg AttemptConfig, results *ResultsService, identity *IdentityService, clock func() time.Time) *Attempt {
	return &Attempt{
		id:          uuid.NewString(),
		user:        user,
		cfg:         cfg,
		results:     results,
		identity:    identity,
		now:         clock,
		tickEvery:   time.Second,
		state:       StateLoading,
		selected:    noSelection,
		done:        make(chan struct{}),
		subscribers: make(map[chan AttemptSnapshot]struct{}),
	}
}

// ID identifies the attempt in logs.
func (a *Attempt) ID() string { return a.id }

// begin installs the fetched batch and enters Active(0, unanswered) with a
// full countdown.
func (a *Attempt) begin(qs []domain.Question) {
	a.mu.Lock()
	a.questions = qs
	a.state = StateActive
	a.index = 0
	a.answered = false
	a.selected = noSelection
	a.remaining = int(a.cfg.QuestionTimer / time.Second)
	a.broadcastLocked()
	a.mu.Unlock()

	go a.runCountdown()
}

func (a *Attempt) runCountdown() {
	ticker := time.NewTicker(a.tickEvery)
	defer ticker.Stop()
	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			a.tick()
		}
	}
}

// tick advances the per-question countdown by one second. Reaching zero locks
// the question exactly once with no selection and no points; later ticks are
// no-ops until the user advances.
func (a *Attempt) tick() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateActive || a.answered {
		return
	}
	if a.remaining > 0 {
		a.remaining--
	}
	if a.remaining == 0 {
		a.answered = true
		a.selected = noSelection
	}
	a.broadcastLocked()
}

// Select records the user's choice for the current question. The first event
// to observe answered=false wins; a repeat selection (or one racing a
// timeout) is a no-op returning the current snapshot.
func (a *Attempt) Select(option int) (AttemptSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateActive {
		return AttemptSnapshot{}, domain.ErrAttemptFinished
	}
	if option < 0 || option >= len(a.questions[a.index].Options) {
		return a.snapshotLocked(), fmt.Errorf("option %d out of range", option)
	}
	if a.answered {
		return a.snapshotLocked(), nil
	}

	a.answered = true
	a.selected = option
	if option == a.questions[a.index].CorrectAnswerIndex {
		a.score += a.cfg.PointsPerQuestion
	}
	return a.broadcastLocked(), nil
}

// Advance moves to the next question, or finishes the attempt from the last
// one. It is only legal once the current question is answered or timed out.
// The Finished transition appends exactly one result record and stamps the
// user's last-played date.
func (a *Attempt) Advance(ctx context.Context) (AttemptSnapshot, error) {
	a.mu.Lock()

	if a.state != StateActive {
		a.mu.Unlock()
		return AttemptSnapshot{}, domain.ErrAttemptFinished
	}
	if !a.answered {
		a.mu.Unlock()
		return AttemptSnapshot{}, domain.ErrQuestionNotAnswered
	}

	if a.index < len(a.questions)-1 {
		a.index++
		a.answered = false
		a.selected = noSelection
		a.remaining = int(a.cfg.QuestionTimer / time.Second)
		snapshot := a.broadcastLocked()
		a.mu.Unlock()
		return snapshot, nil
	}

	a.state = StateFinished
	playedAt := a.now()
	result := domain.QuizResult{
		ID:             a.id,
		Username:       a.user.Username,
		Score:          a.score,
		TotalQuestions: len(a.questions),
		Date:           playedAt,
	}
	snapshot := a.broadcastLocked()
	a.closeLocked()
	a.mu.Unlock()

	if err := a.results.Append(ctx, result); err != nil {
		return snapshot, err
	}
	if err := a.identity.MarkPlayed(ctx, a.user.Username, domain.DateOf(playedAt)); err != nil {
		return snapshot, err
	}
	log.Printf("attempt %s finished: user=%s score=%d/%d", a.id, a.user.Username, a.score, len(a.questions)*a.cfg.PointsPerQuestion)
	return snapshot, nil
}

// Close tears the attempt down: the countdown stops and subscribers are
// released. An unfinished attempt records nothing. Idempotent.
func (a *Attempt) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeLocked()
}

func (a *Attempt) closeLocked() {
	if a.closed {
		return
	}
	a.closed = true
	close(a.done)
	for ch := range a.subscribers {
		delete(a.subscribers, ch)
		close(ch)
	}
}

// Subscribe returns a snapshot feed plus a cancel function. The current
// snapshot is delivered immediately.
func (a *Attempt) Subscribe() (<-chan AttemptSnapshot, func()) {
	ch := make(chan AttemptSnapshot, 8)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	a.subscribers[ch] = struct{}{}
	initial := a.snapshotLocked()
	a.mu.Unlock()

	ch <- initial

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

func (a *Attempt) broadcastLocked() AttemptSnapshot {
	snapshot := a.snapshotLocked()
	for ch := range a.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Drop the oldest update rather than block the engine on a slow
			// reader; the latest snapshot is the only one that matters.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
	return snapshot
}

// AttemptSnapshot is the render-ready view of the attempt. Selected is nil
// until the question is answered, and stays nil on a timeout. The correct
// answer and explanation are only revealed once the question is locked.
type AttemptSnapshot struct {
	State          AttemptState  `json:"state"`
	QuestionIndex  int           `json:"questionIndex"`
	TotalQuestions int           `json:"totalQuestions"`
	Score          int           `json:"score"`
	Remaining      int           `json:"remaining"`
	Answered       bool          `json:"answered"`
	Selected       *int          `json:"selected"`
	Question       *QuestionView `json:"question,omitempty"`
}

// QuestionView mirrors domain.Question but withholds the answer key until the
// question is locked.
type QuestionView struct {
	QuestionText       string   `json:"questionText"`
	Options            []string `json:"options"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex,omitempty"`
	Explanation        string   `json:"explanation,omitempty"`
}

func (a *Attempt) snapshotLocked() AttemptSnapshot {
	snapshot := AttemptSnapshot{
		State:          a.state,
		QuestionIndex:  a.index,
		TotalQuestions: len(a.questions),
		Score:          a.score,
		Remaining:      a.remaining,
		Answered:       a.answered,
	}
	if a.answered && a.selected != noSelection {
		selected := a.selected
		snapshot.Selected = &selected
	}
	if a.state == StateActive {
		q := a.questions[a.index]
		view := &QuestionView{
			QuestionText: q.QuestionText,
			Options:      append([]string(nil), q.Options...),
		}
		if a.answered {
			correct := q.CorrectAnswerIndex
			view.CorrectAnswerIndex = &correct
			view.Explanation = q.Explanation
		}
		snapshot.Question = view
	}
	return snapshot
}
