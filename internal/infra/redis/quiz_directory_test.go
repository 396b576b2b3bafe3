package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

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

func (s *countingSource) QuizQuestions(context.Context, auth.Identity, string) ([]domain.Question, error) {
	s.questionCalls++
	return []domain.Question{{ID: "q1", Options: map[string]string{"A": "Compute", "B": "Storage"}}}, nil
}

func newTestDirectory(t *testing.T) (*QuizDirectory, *countingSource, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &countingSource{}
	return NewQuizDirectory(client, source, time.Minute), source, mr
}

func TestQuizDirectoryFillsAndHitsRedis(t *testing.T) {
	dir, source, mr := newTestDirectory(t)
	ctx := context.Background()
	id := auth.Identity{Token: "tok"}

	quizzes, err := dir.ListQuizzes(ctx, id)
	if err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	if len(quizzes) != 1 || quizzes[0].ID != "quiz-1" {
		t.Fatalf("unexpected quizzes: %+v", quizzes)
	}
	if !mr.Exists("quiz:catalog") {
		t.Fatalf("expected catalog cached in redis")
	}

	if _, err := dir.ListQuizzes(ctx, id); err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	if source.listCalls != 1 {
		t.Fatalf("expected redis hit on second call, got %d upstream calls", source.listCalls)
	}

	questions, err := dir.QuizQuestions(ctx, id, "quiz-1")
	if err != nil {
		t.Fatalf("quiz questions: %v", err)
	}
	if len(questions) != 1 || questions[0].Options["B"] != "Storage" {
		t.Fatalf("unexpected questions: %+v", questions)
	}
	if !mr.Exists("quiz:quiz-1:questions") {
		t.Fatalf("expected questions cached in redis")
	}
}

func TestQuizDirectoryReloadsAfterExpiry(t *testing.T) {
	dir, source, mr := newTestDirectory(t)
	ctx := context.Background()
	id := auth.Identity{Token: "tok"}

	if _, err := dir.ListQuizzes(ctx, id); err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	mr.FastForward(3 * time.Minute)
	if _, err := dir.ListQuizzes(ctx, id); err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	if source.listCalls != 2 {
		t.Fatalf("expected reload after ttl expiry, got %d calls", source.listCalls)
	}
}
