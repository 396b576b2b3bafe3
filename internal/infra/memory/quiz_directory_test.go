package memory

import (
	"context"
	"testing"
	"time"

	"quizdeck/internal/auth"
	"quizdeck/internal/domain"
)

type countingSource struct {
	listCalls     int
	questionCalls int
}

func (s *countingSource) ListQuizzes(context.Context, auth.Identity) ([]domain.Quiz, error) {
	s.listCalls++
	return []domain.Quiz{{ID: "quiz-1", Title: "Cloud Basics", Duration: 1}}, nil
}

func (s *countingSource) QuizQuestions(_ context.Context, _ auth.Identity, quizID string) ([]domain.Question, error) {
	s.questionCalls++
	return []domain.Question{{ID: "q1", Options: map[string]string{"A": "Compute", "B": "Storage"}}}, nil
}

func TestQuizDirectoryCaches(t *testing.T) {
	source := &countingSource{}
	dir := NewQuizDirectory(source, time.Minute)
	ctx := context.Background()
	id := auth.Identity{Token: "tok"}

	for i := 0; i < 3; i++ {
		quizzes, err := dir.ListQuizzes(ctx, id)
		if err != nil {
			t.Fatalf("list quizzes: %v", err)
		}
		if len(quizzes) != 1 || quizzes[0].ID != "quiz-1" {
			t.Fatalf("unexpected quizzes: %+v", quizzes)
		}
	}
	if source.listCalls != 1 {
		t.Fatalf("expected one upstream call, got %d", source.listCalls)
	}

	if _, err := dir.QuizQuestions(ctx, id, "quiz-1"); err != nil {
		t.Fatalf("quiz questions: %v", err)
	}
	if _, err := dir.QuizQuestions(ctx, id, "quiz-1"); err != nil {
		t.Fatalf("quiz questions: %v", err)
	}
	if source.questionCalls != 1 {
		t.Fatalf("expected cache hit for questions, got %d calls", source.questionCalls)
	}
}

func TestQuizDirectoryExpiry(t *testing.T) {
	source := &countingSource{}
	dir := NewQuizDirectory(source, time.Minute)
	now := time.Now()
	dir.clock = func() time.Time { return now }

	ctx := context.Background()
	id := auth.Identity{Token: "tok"}

	if _, err := dir.ListQuizzes(ctx, id); err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := dir.ListQuizzes(ctx, id); err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	if source.listCalls != 2 {
		t.Fatalf("expected reload after expiry, got %d calls", source.listCalls)
	}
}
