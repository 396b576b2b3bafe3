// Package admin implements the question-bank and quiz authoring flows:
// form validation, option indexing, bulk import/export and the normalized
// user/score listings.
package admin

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizdeck/internal/answer"
	"quizdeck/internal/auth"
	"quizdeck/internal/domain"
	"quizdeck/internal/logging"
	"quizdeck/internal/normalize"
)

// API is the slice of the remote client the authoring flows depend on.
type API interface {
	ListQuestions(ctx context.Context, id auth.Identity) ([]domain.Question, error)
	AddQuestion(ctx context.Context, id auth.Identity, q domain.Question) error
	UpdateQuestion(ctx context.Context, id auth.Identity, q domain.Question) error
	DeleteQuestion(ctx context.Context, id auth.Identity, questionID string) error
	CreateQuiz(ctx context.Context, id auth.Identity, quiz domain.Quiz) error
	ListQuizzes(ctx context.Context, id auth.Identity) ([]domain.Quiz, error)
	ListUsers(ctx context.Context, id auth.Identity) (json.RawMessage, error)
	ListScores(ctx context.Context, id auth.Identity) (json.RawMessage, error)
}

type Flows struct {
	api  API
	keys answer.KeySet
	log  *logging.Logger
	now  func() time.Time
}

func New(api API, keys answer.KeySet, log *logging.Logger) *Flows {
	if len(keys) == 0 {
		keys = answer.DefaultKeys()
	}
	return &Flows{api: api, keys: keys, log: log.With("component", "admin"), now: time.Now}
}

// QuestionDraft is the four-slot authoring form for a single question.
type QuestionDraft struct {
	ID      string   `json:"question_id"`
	Text    string   `json:"question_text"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}

// AddQuestion validates a draft and creates the bank entry. Validation
// failures never reach the network.
func (f *Flows) AddQuestion(ctx context.Context, id auth.Identity, draft QuestionDraft) error {
	if err := id.Require(); err != nil {
		return err
	}
	q, err := f.buildQuestion(draft)
	if err != nil {
		return err
	}
	if err := f.api.AddQuestion(ctx, id, q); err != nil {
		return err
	}
	f.log.Info("question added", "question_id", q.ID)
	return nil
}

func (f *Flows) buildQuestion(draft QuestionDraft) (domain.Question, error) {
	options, err := f.keys.IndexOptions(draft.Options)
	if err != nil {
		return domain.Question{}, err
	}
	if !optionsContain(options, draft.Answer) {
		return domain.Question{}, domain.Validationf("correct answer must be one of the options")
	}
	return domain.Question{
		ID:      strings.TrimSpace(draft.ID),
		Text:    strings.TrimSpace(draft.Text),
		Options: options,
		Answer:  draft.Answer,
	}, nil
}

// UpdateQuestion replaces an existing entry. The answer must still match one
// of the provided option texts.
func (f *Flows) UpdateQuestion(ctx context.Context, id auth.Identity, q domain.Question) error {
	if err := id.Require(); err != nil {
		return err
	}
	if err := validateOptionMap(q.Options, q.Answer); err != nil {
		return err
	}
	return f.api.UpdateQuestion(ctx, id, q)
}

// DeleteQuestion removes a bank entry.
func (f *Flows) DeleteQuestion(ctx context.Context, id auth.Identity, questionID string) error {
	if err := id.Require(); err != nil {
		return err
	}
	return f.api.DeleteQuestion(ctx, id, questionID)
}

// QuizForm carries the raw quiz-creation form; duration and marks arrive as
// the user typed them.
type QuizForm struct {
	ID          string   `json:"quiz_id"`
	Title       string   `json:"title"`
	Topic       string   `json:"topic"`
	Duration    string   `json:"duration"`
	TotalMarks  string   `json:"total_marks"`
	QuestionIDs []string `json:"question_ids"`
}

// CreateQuiz validates the form and stores the quiz. Non-numeric duration or
// marks is a validation error, never coerced to zero or sent as-is.
func (f *Flows) CreateQuiz(ctx context.Context, id auth.Identity, form QuizForm) (domain.Quiz, error) {
	if err := id.Require(); err != nil {
		return domain.Quiz{}, err
	}
	if len(form.QuestionIDs) == 0 {
		return domain.Quiz{}, domain.Validationf("select at least one question")
	}
	duration, err := strconv.Atoi(strings.TrimSpace(form.Duration))
	if err != nil {
		return domain.Quiz{}, domain.Validationf("duration must be a whole number of minutes")
	}
	marks, err := strconv.Atoi(strings.TrimSpace(form.TotalMarks))
	if err != nil {
		return domain.Quiz{}, domain.Validationf("total marks must be a whole number")
	}

	quizID := strings.TrimSpace(form.ID)
	if quizID == "" {
		quizID = "quiz-" + uuid.NewString()[:8]
	}
	quiz := domain.Quiz{
		ID:          quizID,
		Title:       strings.TrimSpace(form.Title),
		Topic:       strings.TrimSpace(form.Topic),
		Duration:    duration,
		Marks:       marks,
		QuestionIDs: form.QuestionIDs,
		CreatedAt:   createdAt(f.now()),
	}
	if err := f.api.CreateQuiz(ctx, id, quiz); err != nil {
		return domain.Quiz{}, err
	}
	f.log.Info("quiz created", "quiz_id", quiz.ID, "questions", len(quiz.QuestionIDs))
	return quiz, nil
}

// Questions returns the full bank in numeric question-id order.
func (f *Flows) Questions(ctx context.Context, id auth.Identity) ([]domain.Question, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}
	questions, err := f.api.ListQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	SortQuestions(questions)
	return questions, nil
}

// Users fetches and normalizes the identity-pool listing.
func (f *Flows) Users(ctx context.Context, id auth.Identity) ([]domain.UserRecord, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}
	raw, err := f.api.ListUsers(ctx, id)
	if err != nil {
		return nil, err
	}
	return normalize.Users(raw), nil
}

// Scores fetches and normalizes the stored results, attaching quiz titles
// when the quiz list is reachable.
func (f *Flows) Scores(ctx context.Context, id auth.Identity) ([]domain.ScoreRecord, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}
	raw, err := f.api.ListScores(ctx, id)
	if err != nil {
		return nil, err
	}
	scores := normalize.Scores(raw)

	quizzes, err := f.api.ListQuizzes(ctx, id)
	if err != nil {
		// Titles are cosmetic; the listing itself is still useful.
		f.log.Warn("quiz titles unavailable", "err", err)
		return scores, nil
	}
	return normalize.WithQuizTitles(scores, quizzes), nil
}

// ExportQuestions serializes the loaded bank as one JSON document.
func (f *Flows) ExportQuestions(questions []domain.Question) ([]byte, error) {
	return json.MarshalIndent(questions, "", "  ")
}

// ImportReport accounts for every record of a bulk import.
type ImportReport struct {
	Attempted int                    `json:"attempted"`
	Imported  int                    `json:"imported"`
	Failures  []domain.ImportFailure `json:"-"`
}

// ImportQuestions parses a JSON array of question records and creates each
// through the same contract as AddQuestion. The run is best-effort: a failed
// record is recorded and the remaining records are still attempted, and any
// failure surfaces as an ImportError so partial success is never mistaken
// for total success. A missing credential aborts before the first record.
func (f *Flows) ImportQuestions(ctx context.Context, id auth.Identity, doc []byte) (ImportReport, error) {
	if err := id.Require(); err != nil {
		return ImportReport{}, err
	}

	var records []domain.Question
	if err := json.Unmarshal(doc, &records); err != nil {
		return ImportReport{}, domain.Validationf("import document is not a question list: %v", err)
	}

	report := ImportReport{Attempted: len(records)}
	for i, record := range records {
		if err := f.importOne(ctx, id, record); err != nil {
			report.Failures = append(report.Failures, domain.ImportFailure{
				Index:      i,
				QuestionID: record.ID,
				Err:        err,
			})
			continue
		}
		report.Imported++
	}

	f.log.Info("bulk import finished",
		"attempted", report.Attempted, "imported", report.Imported, "failed", len(report.Failures))
	if len(report.Failures) > 0 {
		return report, &domain.ImportError{
			Attempted: report.Attempted,
			Imported:  report.Imported,
			Failures:  report.Failures,
		}
	}
	return report, nil
}

func (f *Flows) importOne(ctx context.Context, id auth.Identity, record domain.Question) error {
	if err := validateOptionMap(record.Options, record.Answer); err != nil {
		return err
	}
	return f.api.AddQuestion(ctx, id, record)
}

// FilterQuestions returns the entries whose id, text or any option text
// contains the query, case-insensitively. The input list is never mutated.
func FilterQuestions(questions []domain.Question, query string) []domain.Question {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return questions
	}

	matched := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if questionMatches(q, query) {
			matched = append(matched, q)
		}
	}
	return matched
}

func questionMatches(q domain.Question, query string) bool {
	if strings.Contains(strings.ToLower(q.ID), query) ||
		strings.Contains(strings.ToLower(q.Text), query) {
		return true
	}
	for _, text := range q.Options {
		if strings.Contains(strings.ToLower(text), query) {
			return true
		}
	}
	return false
}

// SortQuestions orders entries by the numeric part of their id, so "q10"
// sorts after "q9". Non-numeric ids sort as zero.
func SortQuestions(questions []domain.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		return numericSuffix(questions[i].ID) < numericSuffix(questions[j].ID)
	})
}

func numericSuffix(id string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, id)
	n, _ := strconv.Atoi(digits)
	return n
}

func validateOptionMap(options map[string]string, answerText string) error {
	usable := 0
	for _, text := range options {
		if strings.TrimSpace(text) != "" {
			usable++
		}
	}
	if usable < 2 {
		return domain.Validationf("at least two options required, got %d", usable)
	}
	if !optionsContain(options, answerText) {
		return domain.Validationf("correct answer must be one of the options")
	}
	return nil
}

func optionsContain(options map[string]string, answerText string) bool {
	for _, text := range options {
		if text == answerText {
			return true
		}
	}
	return false
}

// createdAt renders the UTC creation timestamp in the store's
// milliseconds-plus-padding format.
func createdAt(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000") + "000"
}
