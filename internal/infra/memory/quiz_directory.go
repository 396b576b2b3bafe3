package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizdeck/internal/auth"
	"quizdeck/internal/domain"
)

// Source is the upstream the directory caches: the remote quiz API.
type Source interface {
	ListQuizzes(ctx context.Context, id auth.Identity) ([]domain.Quiz, error)
	QuizQuestions(ctx context.Context, id auth.Identity, quizID string) ([]domain.Question, error)
}

// QuizDirectory caches the quiz list and per-quiz question sets with TTL to
// avoid hammering the remote API on every session. Entries are shared across
// users (the API returns the same catalog to everyone); the requesting
// identity is only used to authorize the fill on a miss.
type QuizDirectory struct {
	source Source
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedEntry
}

type cachedEntry struct {
	value     any
	expiresAt time.Time
}

func NewQuizDirectory(source Source, ttl time.Duration) *QuizDirectory {
	return &QuizDirectory{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedEntry),
	}
}

func (d *QuizDirectory) ListQuizzes(ctx context.Context, id auth.Identity) ([]domain.Quiz, error) {
	value, err := d.get(ctx, "quizzes", func() (any, error) {
		return d.source.ListQuizzes(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return value.([]domain.Quiz), nil
}

func (d *QuizDirectory) QuizQuestions(ctx context.Context, id auth.Identity, quizID string) ([]domain.Question, error) {
	value, err := d.get(ctx, "questions:"+quizID, func() (any, error) {
		return d.source.QuizQuestions(ctx, id, quizID)
	})
	if err != nil {
		return nil, err
	}
	return value.([]domain.Question), nil
}

func (d *QuizDirectory) get(_ context.Context, key string, load func() (any, error)) (any, error) {
	now := d.clock()

	d.mu.RLock()
	if entry, ok := d.cache[key]; ok && entry.expiresAt.After(now) {
		d.mu.RUnlock()
		return entry.value, nil
	}
	d.mu.RUnlock()

	value, err, _ := d.sf.Do(key, func() (any, error) {
		now := d.clock()
		d.mu.RLock()
		if entry, ok := d.cache[key]; ok && entry.expiresAt.After(now) {
			d.mu.RUnlock()
			return entry.value, nil
		}
		d.mu.RUnlock()

		loaded, err := load()
		if err != nil {
			return nil, err
		}

		d.mu.Lock()
		d.cache[key] = cachedEntry{value: loaded, expiresAt: now.Add(d.ttlWithJitter())}
		d.mu.Unlock()
		return loaded, nil
	})
	return value, err
}

func (d *QuizDirectory) ttlWithJitter() time.Duration {
	if d.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(d.ttl) / 10
	return d.ttl + time.Duration(d.rnd.Int63n(jitterMax+1))
}
