package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"quizdeck/internal/auth"
	"quizdeck/internal/domain"
	"quizdeck/internal/infra/memory"
	"quizdeck/internal/logging"
)

type fakeDirectory struct {
	quizzes   []domain.Quiz
	questions map[string][]domain.Question
}

func (d *fakeDirectory) ListQuizzes(ctx context.Context, id auth.Identity) ([]domain.Quiz, error) {
	return d.quizzes, nil
}

func (d *fakeDirectory) QuizQuestions(ctx context.Context, id auth.Identity, quizID string) ([]domain.Question, error) {
	return d.questions[quizID], nil
}

type fakeSubmitter struct {
	mu      sync.Mutex
	calls   int
	answers map[string]string
}

func (s *fakeSubmitter) SubmitQuiz(ctx context.Context, id auth.Identity, quizID string, answers map[string]string) (domain.QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.answers = answers
	return domain.QuizResult{
		Score:          10,
		CorrectAnswers: map[string]string{"q1": "4"},
	}, nil
}

func signedToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":          "alice@example.com",
		"cognito:groups": []string{"User"},
	})
	raw, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func TestWebSocketQuizFlow(t *testing.T) {
	directory := &fakeDirectory{
		quizzes: []domain.Quiz{{ID: "quiz-1", Title: "Basics", Duration: 1, QuestionIDs: []string{"q1"}}},
		questions: map[string][]domain.Question{
			"quiz-1": {{
				ID:      "q1",
				Text:    "What is 2 + 2?",
				Options: map[string]string{"A": "3", "B": "4"},
				Answer:  "4",
			}},
		},
	}
	submitter := &fakeSubmitter{}
	handler := NewWSHandler(memory.NewSessionStore(), directory, submitter, 8, logging.NewNop())

	server := httptest.NewServer(newTestRouter(handler))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?token=" + signedToken(t)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial snapshot arrives before any command.
	snap := readSnapshot(conn, t)
	if snap.State != "idle" {
		t.Fatalf("expected idle, got %s", snap.State)
	}

	writeMessage(conn, t, "listQuizzes", nil)
	snap = awaitState(conn, t, "selecting")
	if len(snap.Quizzes) != 1 || snap.Quizzes[0].ID != "quiz-1" {
		t.Fatalf("expected one quiz in snapshot, got %+v", snap.Quizzes)
	}

	writeMessage(conn, t, "start", map[string]any{"quiz_id": "quiz-1"})
	snap = awaitState(conn, t, "in_progress")
	if snap.Remaining <= 0 || snap.Remaining > 60 {
		t.Fatalf("expected a running 60s countdown, got %d", snap.Remaining)
	}

	writeMessage(conn, t, "answer", map[string]any{"question_id": "q1", "option_key": "B"})
	snap = awaitState(conn, t, "in_progress")
	if !snap.AllAnswered {
		t.Fatalf("expected all answered after selecting the only question")
	}

	writeMessage(conn, t, "submit", nil)
	snap = awaitState(conn, t, "reviewing")
	if snap.Result == nil || snap.Result.Score != 10 {
		t.Fatalf("expected score 10 in snapshot, got %+v", snap.Result)
	}
	if len(snap.Review) != 1 || !snap.Review[0].Correct {
		t.Fatalf("expected one correct review row, got %+v", snap.Review)
	}

	submitter.mu.Lock()
	calls, answers := submitter.calls, submitter.answers
	submitter.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected one submission, got %d", calls)
	}
	if answers["q1"] != "4" {
		t.Fatalf("expected submitted text %q, got %q", "4", answers["q1"])
	}
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	handler := NewWSHandler(memory.NewSessionStore(), &fakeDirectory{}, &fakeSubmitter{}, 8, logging.NewNop())
	server := httptest.NewServer(newTestRouter(handler))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail without a token")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestWebSocketErrorOnUnknownQuiz(t *testing.T) {
	handler := NewWSHandler(memory.NewSessionStore(), &fakeDirectory{}, &fakeSubmitter{}, 8, logging.NewNop())
	server := httptest.NewServer(newTestRouter(handler))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?token=" + signedToken(t)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readSnapshot(conn, t)
	writeMessage(conn, t, "start", map[string]any{"quiz_id": "nope"})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		typ, raw := readRaw(conn, t)
		if typ != "error" {
			continue
		}
		var payload errorPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("decode error payload: %v", err)
		}
		if payload.Message == "" {
			t.Fatalf("expected an error message")
		}
		return
	}
	t.Fatalf("no error message received")
}

func newTestRouter(handler *WSHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", handler.ServeWS)
	return r
}

func writeMessage(conn *websocket.Conn, t *testing.T, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readRaw(conn *websocket.Conn, t *testing.T) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

func readSnapshot(conn *websocket.Conn, t *testing.T) snapshotView {
	t.Helper()
	for {
		typ, raw := readRaw(conn, t)
		if typ != "state" {
			continue
		}
		var snap snapshotView
		if err := json.Unmarshal(raw, &snap); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		return snap
	}
}

// awaitState skips snapshots until one reports the wanted state. Ticker
// pushes interleave with command responses, so intermediate states are
// expected on the wire.
func awaitState(conn *websocket.Conn, t *testing.T, state string) snapshotView {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var last snapshotView
	for time.Now().Before(deadline) {
		last = readSnapshot(conn, t)
		if last.State == state {
			return last
		}
	}
	t.Fatalf("never reached state %s, last was %s", state, last.State)
	return last
}

type snapshotView struct {
	State       string       `json:"state"`
	Quizzes     []quizView   `json:"quizzes"`
	Remaining   int          `json:"remaining_time"`
	AllAnswered bool         `json:"all_answered"`
	Result      *resultView  `json:"result"`
	Review      []reviewView `json:"review"`
}

type quizView struct {
	ID string `json:"quiz_id"`
}

type resultView struct {
	Score float64 `json:"score"`
}

type reviewView struct {
	Correct bool `json:"correct"`
}
