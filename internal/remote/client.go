// Package remote talks to the quiz API collaborator: a JSON-over-HTTP
// service fronting the question bank, quiz and score stores. Every call
// carries the caller's bearer credential; a missing credential short-circuits
// locally before any network I/O.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quizdeck/internal/auth"
	"quizdeck/internal/domain"
	"quizdeck/internal/logging"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	log  *logging.Logger
	base string
	http *http.Client
}

func New(log *logging.Logger, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("remote: base url required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		log:  log.With("client", "quiz-api"),
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type questionsEnvelope struct {
	Questions []domain.Question `json:"questions"`
}

type quizzesEnvelope struct {
	Quizzes []domain.Quiz `json:"quizzes"`
}

// ListQuestions returns the full question bank, answers included.
func (c *Client) ListQuestions(ctx context.Context, id auth.Identity) ([]domain.Question, error) {
	var env questionsEnvelope
	if err := c.do(ctx, id, http.MethodGet, "/questions", nil, &env); err != nil {
		return nil, err
	}
	return env.Questions, nil
}

// AddQuestion creates a bank entry.
func (c *Client) AddQuestion(ctx context.Context, id auth.Identity, q domain.Question) error {
	return c.do(ctx, id, http.MethodPost, "/questions", q, nil)
}

// UpdateQuestion replaces the text, options and answer of an existing entry.
func (c *Client) UpdateQuestion(ctx context.Context, id auth.Identity, q domain.Question) error {
	return c.do(ctx, id, http.MethodPut, "/questions/"+url.PathEscape(q.ID), q, nil)
}

// DeleteQuestion removes a bank entry.
func (c *Client) DeleteQuestion(ctx context.Context, id auth.Identity, questionID string) error {
	return c.do(ctx, id, http.MethodDelete, "/questions/"+url.PathEscape(questionID), nil, nil)
}

// CreateQuiz stores a new quiz definition.
func (c *Client) CreateQuiz(ctx context.Context, id auth.Identity, quiz domain.Quiz) error {
	return c.do(ctx, id, http.MethodPost, "/quizzes", quiz, nil)
}

// ListQuizzes returns the quizzes available to take.
func (c *Client) ListQuizzes(ctx context.Context, id auth.Identity) ([]domain.Quiz, error) {
	var env quizzesEnvelope
	if err := c.do(ctx, id, http.MethodGet, "/quizzes", nil, &env); err != nil {
		return nil, err
	}
	return env.Quizzes, nil
}

// QuizQuestions returns a quiz's questions with the answer key withheld.
func (c *Client) QuizQuestions(ctx context.Context, id auth.Identity, quizID string) ([]domain.Question, error) {
	var env questionsEnvelope
	if err := c.do(ctx, id, http.MethodGet, "/quizzes/"+url.PathEscape(quizID)+"/questions", nil, &env); err != nil {
		return nil, err
	}
	return env.Questions, nil
}

// SubmitQuiz sends the answer payload and returns the authoritative result.
func (c *Client) SubmitQuiz(ctx context.Context, id auth.Identity, quizID string, answers map[string]string) (domain.QuizResult, error) {
	body := struct {
		QuizID  string            `json:"quiz_id"`
		Answers map[string]string `json:"answers"`
	}{QuizID: quizID, Answers: answers}

	var result domain.QuizResult
	if err := c.do(ctx, id, http.MethodPost, "/quizzes/"+url.PathEscape(quizID)+"/submit", body, &result); err != nil {
		return domain.QuizResult{}, err
	}
	return result, nil
}

// ListUsers returns the raw user listing; its shape is underspecified and
// must pass through the normalizer before use.
func (c *Client) ListUsers(ctx context.Context, id auth.Identity) (json.RawMessage, error) {
	return c.raw(ctx, id, "/users")
}

// ListScores returns the raw score listing for the normalizer.
func (c *Client) ListScores(ctx context.Context, id auth.Identity) (json.RawMessage, error) {
	return c.raw(ctx, id, "/scores")
}

func (c *Client) raw(ctx context.Context, id auth.Identity, path string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, id, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, id auth.Identity, method, path string, in, out any) error {
	if err := id.Require(); err != nil {
		return err
	}

	op := method + " " + path

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return &domain.RemoteError{Op: op, Err: err}
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return &domain.RemoteError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+id.Token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", "op", op, "err", err)
		return &domain.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrQuizNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("request rejected", "op", op, "status", resp.StatusCode)
		return &domain.RemoteError{Op: op, Status: resp.StatusCode}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &domain.RemoteError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}
