package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizdeck/internal/auth"
	"quizdeck/internal/domain"
	"quizdeck/internal/infra/memory"
)

// QuizDirectory caches the quiz catalog in Redis as marshaled JSON values
// and falls back to the remote API on a miss, so multiple gateway instances
// share one catalog cache.
type QuizDirectory struct {
	client *redis.Client
	source memory.Source
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuizDirectory(client *redis.Client, source memory.Source, ttl time.Duration) *QuizDirectory {
	return &QuizDirectory{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (d *QuizDirectory) ListQuizzes(ctx context.Context, id auth.Identity) ([]domain.Quiz, error) {
	var quizzes []domain.Quiz
	err := d.get(ctx, d.listKey(), &quizzes, func() (any, error) {
		return d.source.ListQuizzes(ctx, id)
	})
	return quizzes, err
}

func (d *QuizDirectory) QuizQuestions(ctx context.Context, id auth.Identity, quizID string) ([]domain.Question, error) {
	var questions []domain.Question
	err := d.get(ctx, d.questionsKey(quizID), &questions, func() (any, error) {
		return d.source.QuizQuestions(ctx, id, quizID)
	})
	return questions, err
}

func (d *QuizDirectory) get(ctx context.Context, key string, out any, load func() (any, error)) error {
	if raw, err := d.client.Get(ctx, key).Bytes(); err == nil {
		return json.Unmarshal(raw, out)
	}

	value, err, _ := d.sf.Do(key, func() (any, error) {
		// Re-check in case another goroutine filled the key.
		if raw, err := d.client.Get(ctx, key).Bytes(); err == nil {
			return json.RawMessage(raw), nil
		}

		loaded, err := load()
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(loaded)
		if err != nil {
			return nil, err
		}
		// best-effort write; a failed cache fill is not a request failure
		_ = d.client.Set(ctx, key, encoded, d.ttlWithJitter()).Err()
		return json.RawMessage(encoded), nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(value.(json.RawMessage), out)
}

func (d *QuizDirectory) listKey() string {
	return "quiz:catalog"
}

func (d *QuizDirectory) questionsKey(quizID string) string {
	return "quiz:" + quizID + ":questions"
}

func (d *QuizDirectory) ttlWithJitter() time.Duration {
	if d.ttl <= 0 {
		return 0
	}
	jitterMax := int64(d.ttl) / 10
	return d.ttl + time.Duration(d.rnd.Int63n(jitterMax+1))
}
