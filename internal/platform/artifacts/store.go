// Package artifacts hands rendered documents from a render request to a
// later download request without keeping large payloads in session state.
// Every document lives under an unpredictable token and is redeemable at
// most once.
package artifacts

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultTTL bounds how long an unconsumed artifact stays retrievable.
const DefaultTTL = 30 * time.Minute

// ErrNotFound is returned when a token is unknown, expired, or was already
// consumed. Consumption deletes the record, so a second Take with the same
// token always fails with this error.
var ErrNotFound = errors.New("artifacts: not found")

// Store persists rendered documents under opaque one-time tokens.
type Store interface {
	// Put stores the payload and returns a fresh token for it.
	Put(ctx context.Context, payload []byte) (string, error)
	// Take returns the payload for the token and deletes the record
	// atomically with the read.
	Take(ctx context.Context, token string) ([]byte, error)
}

type record struct {
	payload   []byte
	createdAt time.Time
	expiresAt time.Time
}

// MemoryStore keeps artifacts in process memory. Suited to the one-shot
// handoff pattern: a render response lists tokens and the follow-up download
// requests consume them within minutes.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]record
	ttl     time.Duration
	clock   func() time.Time
}

// MemoryOption customises MemoryStore construction.
type MemoryOption func(*MemoryStore)

// WithTTL overrides the artifact retention period.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock substitutes the time source, letting tests drive expiry.
func WithClock(clock func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemoryStore constructs an empty memory-backed artifact store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]record),
		ttl:     DefaultTTL,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put implements the Store interface.
func (s *MemoryStore) Put(_ context.Context, payload []byte) (string, error) {
	now := s.clock().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	var token string
	for {
		generated, err := newToken(now)
		if err != nil {
			return "", err
		}
		if _, exists := s.records[generated]; !exists {
			token = generated
			break
		}
	}

	s.records[token] = record{
		payload:   append([]byte(nil), payload...),
		createdAt: now,
		expiresAt: now.Add(s.ttl),
	}
	return token, nil
}

// Take implements the Store interface.
func (s *MemoryStore) Take(_ context.Context, token string) ([]byte, error) {
	now := s.clock().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[token]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.records, token)

	if !rec.expiresAt.IsZero() && !now.Before(rec.expiresAt) {
		return nil, ErrNotFound
	}
	return rec.payload, nil
}

// CleanupExpired removes up to limit expired records and reports how many
// were deleted.
func (s *MemoryStore) CleanupExpired(_ context.Context, now time.Time, limit int) (int, error) {
	now = now.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}

	removed := 0
	for token, rec := range s.records {
		if rec.expiresAt.IsZero() || now.Before(rec.expiresAt) {
			continue
		}
		delete(s.records, token)
		removed++
		if removed >= limit {
			break
		}
	}

	return removed, nil
}

// Len reports the number of live records, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func newToken(now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("artifacts: generate token: %w", err)
	}
	return id.String(), nil
}
