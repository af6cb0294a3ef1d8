package api

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/models"
)

// RecordService is the record store the handlers serve.
type RecordService interface {
	List(ctx context.Context, page, perPage int, filter string) (models.RawListResult, error)
	Get(ctx context.Context, id string) (models.RawRecord, error)
	UpdateFrontmatter(ctx context.Context, id string, data map[string]any, ifMatch string) (models.RawRecord, error)
	UpdateContent(ctx context.Context, id, content, ifMatch string) (models.RawRecord, error)
}

// Session is an issued bearer token.
type Session struct {
	Token   string
	Email   string
	Expires time.Time
}

// Sessions issues and checks bearer tokens for the configured superuser.
// With an empty email every credential is accepted and tokens are not
// enforced.
type Sessions struct {
	email    string
	password string
	ttl      time.Duration
	now      func() time.Time

	mu     sync.Mutex
	tokens map[string]Session
}

// NewSessions creates a session store. A non-positive ttl means 24h.
func NewSessions(email, password string, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{
		email:    email,
		password: password,
		ttl:      ttl,
		now:      time.Now,
		tokens:   make(map[string]Session),
	}
}

// Enabled reports whether tokens are enforced.
func (s *Sessions) Enabled() bool {
	return s != nil && s.email != ""
}

// Login checks the credentials and issues a new session.
func (s *Sessions) Login(email, password string) (Session, error) {
	if s.Enabled() {
		emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.email)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
		if !emailOK || !passOK {
			return Session{}, apperr.ErrUnauthorized
		}
	}

	sess := Session{
		Token:   uuid.NewString(),
		Email:   email,
		Expires: s.now().Add(s.ttl).UTC().Truncate(time.Second),
	}
	s.mu.Lock()
	s.prune()
	s.tokens[sess.Token] = sess
	s.mu.Unlock()
	return sess, nil
}

// Valid reports whether token names a live session.
func (s *Sessions) Valid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.tokens[token]
	if !ok {
		return false
	}
	if !s.now().Before(sess.Expires) {
		delete(s.tokens, token)
		return false
	}
	return true
}

func (s *Sessions) prune() {
	now := s.now()
	for tok, sess := range s.tokens {
		if !now.Before(sess.Expires) {
			delete(s.tokens, tok)
		}
	}
}
