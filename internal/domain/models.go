package domain

import "encoding/json"

// Question is a single bank entry. Options maps a short stable key ("A".."D")
// to the option's display text; Answer holds the text of the correct option.
// The API withholds the answer field on quiz-taking reads.
type Question struct {
	ID      string            `json:"question_id"`
	Text    string            `json:"question_text"`
	Options map[string]string `json:"options"`
	Answer  string            `json:"answer,omitempty"`
}

// Quiz references a set of bank questions by id. Duration is stored in minutes.
type Quiz struct {
	ID          string   `json:"quiz_id"`
	Title       string   `json:"title"`
	Topic       string   `json:"topic,omitempty"`
	Duration    int      `json:"duration"`
	Marks       int      `json:"marks"`
	QuestionIDs []string `json:"question_ids,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// DurationSeconds converts the stored minutes to the countdown's seconds.
func (q Quiz) DurationSeconds() int {
	return q.Duration * 60
}

// QuizResult is the authoritative outcome returned by the API on submission.
type QuizResult struct {
	Score          float64           `json:"score"`
	CorrectAnswers map[string]string `json:"correct_answers"`
}

// ScoreValue distinguishes a real (possibly zero) score from an absent one.
type ScoreValue struct {
	Known bool
	Value float64
}

func (v ScoreValue) String() string {
	if !v.Known {
		return "N/A"
	}
	b, _ := json.Marshal(v.Value)
	return string(b)
}

// MarshalJSON renders the score as a number, or "N/A" when unknown.
func (v ScoreValue) MarshalJSON() ([]byte, error) {
	if !v.Known {
		return json.Marshal("N/A")
	}
	return json.Marshal(v.Value)
}

// ScoreRecord is the canonical read-only view of one stored quiz result.
// Produced only by the normalizer; never mutated afterwards.
type ScoreRecord struct {
	ResponseID string          `json:"response_id"`
	QuizID     string          `json:"quiz_id"`
	QuizTitle  string          `json:"quiz_title,omitempty"`
	UserName   string          `json:"user_name"`
	UserEmail  string          `json:"user_email,omitempty"`
	Score      ScoreValue      `json:"score"`
	Answers    json.RawMessage `json:"answers,omitempty"`
}

// UserRecord is the canonical read-only view of one identity-pool user.
type UserRecord struct {
	Email    string `json:"email,omitempty"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Group    string `json:"group"`
}
