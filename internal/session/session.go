// Package session owns the quiz-taking attempt: the loaded quiz, its
// questions, the countdown, the in-progress answer map and the one-way
// submission latch. All transitions are driven by discrete events (user
// input, a once-per-second tick, a network response); the latch guarantees
// at most one submission ever reaches the wire per attempt.
package session

import (
	"context"
	"errors"
	"sync"

	"quizdeck/internal/answer"
	"quizdeck/internal/auth"
	"quizdeck/internal/domain"
)

// State enumerates the attempt lifecycle.
type State int

const (
	StateIdle State = iota
	StateSelecting
	StateLoading
	StateInProgress
	StateSubmitting
	StateReviewing
	StateFinished
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateSelecting:  "selecting",
	StateLoading:    "loading",
	StateInProgress: "in_progress",
	StateSubmitting: "submitting",
	StateReviewing:  "reviewing",
	StateFinished:   "finished",
}

func (s State) String() string { return stateNames[s] }

// defaultReviewDelay is how many ticks the review view stays up before the
// session moves to the final result on its own.
const defaultReviewDelay = 8

// Directory lists quizzes and loads a quiz's question set.
type Directory interface {
	ListQuizzes(ctx context.Context, id auth.Identity) ([]domain.Quiz, error)
	QuizQuestions(ctx context.Context, id auth.Identity, quizID string) ([]domain.Question, error)
}

// Submitter sends a completed answer payload and returns the authoritative result.
type Submitter interface {
	SubmitQuiz(ctx context.Context, id auth.Identity, quizID string, answers map[string]string) (domain.QuizResult, error)
}

// Session is one user's quiz attempt. Safe for use from the event loop plus
// a concurrent ticker; every handler runs to completion under the mutex, and
// network calls happen outside it with an epoch check on re-entry.
type Session struct {
	id        string
	identity  auth.Identity
	directory Directory
	submitter Submitter

	reviewDelay int

	mu          sync.Mutex
	state       State
	epoch       uint64
	quizzes     []domain.Quiz
	quiz        domain.Quiz
	questions   []domain.Question
	answers     map[string]string
	remaining   int
	submitted   bool
	reviewTicks int
	result      *domain.QuizResult
}

// Option tweaks session construction.
type Option func(*Session)

// WithReviewDelay overrides the Reviewing→Finished delay, in ticks.
func WithReviewDelay(ticks int) Option {
	return func(s *Session) {
		if ticks > 0 {
			s.reviewDelay = ticks
		}
	}
}

func New(id string, identity auth.Identity, directory Directory, submitter Submitter, opts ...Option) *Session {
	s := &Session{
		id:          id,
		identity:    identity,
		directory:   directory,
		submitter:   submitter,
		reviewDelay: defaultReviewDelay,
		answers:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identity used for registry bookkeeping.
func (s *Session) ID() string { return s.id }

// Identity returns the credential context the session was opened with.
func (s *Session) Identity() auth.Identity { return s.identity }

// LoadQuizzes fetches the selectable quiz list and moves to Selecting.
func (s *Session) LoadQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	if err := s.identity.Require(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	quizzes, err := s.directory.ListQuizzes(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return quizzes, nil
	}
	s.quizzes = quizzes
	switch s.state {
	case StateIdle, StateSelecting, StateFinished:
		s.state = StateSelecting
	}
	return quizzes, nil
}

// FindQuiz returns the quiz with the given id from the loaded list.
func (s *Session) FindQuiz(quizID string) (domain.Quiz, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.quizzes {
		if q.ID == quizID {
			return q, true
		}
	}
	return domain.Quiz{}, false
}

// Start begins an attempt at the given quiz: clears any prior answers,
// result and latch, arms the countdown and fetches the question set. A fetch
// failure returns the session to Selecting so the quiz list stays usable.
func (s *Session) Start(ctx context.Context, quiz domain.Quiz) error {
	if err := s.identity.Require(); err != nil {
		return err
	}

	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.state = StateLoading
	s.quiz = quiz
	s.questions = nil
	s.answers = make(map[string]string)
	s.result = nil
	s.submitted = false
	s.reviewTicks = 0
	s.remaining = quiz.DurationSeconds()
	s.mu.Unlock()

	questions, err := s.directory.QuizQuestions(ctx, s.identity, quiz.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		// The attempt was abandoned while the fetch was in flight.
		return nil
	}
	if err != nil {
		s.state = StateSelecting
		return err
	}
	s.questions = questions
	s.state = StateInProgress
	return nil
}

// SelectAnswer upserts the user's selection for one loaded question.
func (s *Session) SelectAnswer(questionID, optionKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return domain.ErrNotAnswerable
	}
	q, ok := s.findQuestionLocked(questionID)
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if _, ok := q.Options[optionKey]; !ok {
		return domain.ErrOptionNotFound
	}
	s.answers[questionID] = optionKey
	return nil
}

// Tick advances the countdown by one second. The tick that lands on zero
// fires the auto-submit through the same latch as manual submission; ticks
// during Reviewing advance the fixed delay toward Finished.
func (s *Session) Tick(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateInProgress:
		if s.remaining > 0 {
			s.remaining--
			if s.remaining == 0 && !s.submitted {
				s.mu.Unlock()
				err := s.submit(ctx, true)
				if errors.Is(err, domain.ErrAlreadySubmitted) {
					return nil
				}
				return err
			}
		}
	case StateReviewing:
		s.reviewTicks++
		if s.reviewTicks >= s.reviewDelay {
			s.state = StateFinished
		}
	}
	s.mu.Unlock()
	return nil
}

// Submit sends the attempt manually. It is rejected while any question
// remains unanswered; the timeout path bypasses that check.
func (s *Session) Submit(ctx context.Context) error {
	return s.submit(ctx, false)
}

func (s *Session) submit(ctx context.Context, timeout bool) error {
	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return domain.ErrAlreadySubmitted
	}
	if s.state != StateInProgress {
		s.mu.Unlock()
		return domain.ErrNotAnswerable
	}
	if !timeout && !s.allAnsweredLocked() {
		s.mu.Unlock()
		return domain.ErrIncomplete
	}

	// The latch is set before the network call begins so a timer tick racing
	// a manual click can never produce two wire submissions.
	s.submitted = true
	s.state = StateSubmitting
	epoch := s.epoch
	identity := s.identity
	quizID := s.quiz.ID
	payload := answer.BuildSubmissionPayload(s.questions, s.answers)
	s.mu.Unlock()

	result, err := s.submitter.SubmitQuiz(ctx, identity, quizID, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		// Stale response for an abandoned attempt; discard it.
		return nil
	}
	if err != nil {
		// Release the latch so the user can retry; answers and remaining
		// time are untouched.
		s.submitted = false
		s.state = StateInProgress
		return err
	}
	s.result = &result
	s.state = StateReviewing
	s.reviewTicks = 0
	return nil
}

// Reset abandons the current attempt and returns to Idle. Any in-flight
// response for the abandoned attempt is discarded by the epoch guard.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.state = StateIdle
	s.quiz = domain.Quiz{}
	s.questions = nil
	s.answers = make(map[string]string)
	s.result = nil
	s.submitted = false
	s.reviewTicks = 0
	s.remaining = 0
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RemainingTime reports the countdown in seconds.
func (s *Session) RemainingTime() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// AllAnswered reports whether every loaded question has a selection. It
// gates manual submission only, never the timeout path.
func (s *Session) AllAnswered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allAnsweredLocked()
}

// Result returns the stored submission outcome, if any.
func (s *Session) Result() *domain.QuizResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	out := *s.result
	return &out
}

// ReviewRow compares one question's selection against the server-declared
// correct answer.
type ReviewRow struct {
	Question    domain.Question `json:"question"`
	UserKey     string          `json:"user_key,omitempty"`
	UserText    string          `json:"user_text,omitempty"`
	CorrectText string          `json:"correct_text"`
	Correct     bool            `json:"correct"`
}

// Review renders the per-question comparison for the review and result
// views. Empty before a successful submission.
func (s *Session) Review() []ReviewRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}

	rows := make([]ReviewRow, 0, len(s.questions))
	for _, q := range s.questions {
		key := s.answers[q.ID]
		correct := s.result.CorrectAnswers[q.ID]
		rows = append(rows, ReviewRow{
			Question:    q,
			UserKey:     key,
			UserText:    q.Options[key],
			CorrectText: correct,
			Correct:     answer.IsCorrect(key, q, correct),
		})
	}
	return rows
}

// Snapshot is the transport-facing projection of the session.
type Snapshot struct {
	State       string             `json:"state"`
	Quiz        *domain.Quiz       `json:"quiz,omitempty"`
	Quizzes     []domain.Quiz      `json:"quizzes,omitempty"`
	Questions   []domain.Question  `json:"questions,omitempty"`
	Answers     map[string]string  `json:"answers,omitempty"`
	Remaining   int                `json:"remaining_time"`
	AllAnswered bool               `json:"all_answered"`
	Result      *domain.QuizResult `json:"result,omitempty"`
	Review      []ReviewRow        `json:"review,omitempty"`
}

// Snapshot captures the current state for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		State:       s.state.String(),
		Quizzes:     s.quizzes,
		Remaining:   s.remaining,
		AllAnswered: s.allAnsweredLocked(),
	}
	if s.quiz.ID != "" {
		quiz := s.quiz
		snap.Quiz = &quiz
	}
	if s.state == StateInProgress || s.state == StateSubmitting {
		snap.Questions = s.questions
		snap.Answers = copyAnswers(s.answers)
	}
	if s.result != nil {
		result := *s.result
		snap.Result = &result
	}
	reviewing := s.state == StateReviewing || s.state == StateFinished
	s.mu.Unlock()

	if reviewing {
		snap.Review = s.Review()
	}
	return snap
}

func (s *Session) allAnsweredLocked() bool {
	if len(s.questions) == 0 {
		return false
	}
	for _, q := range s.questions {
		if _, ok := s.answers[q.ID]; !ok {
			return false
		}
	}
	return true
}

func (s *Session) findQuestionLocked(questionID string) (domain.Question, bool) {
	for _, q := range s.questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return domain.Question{}, false
}

func copyAnswers(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
