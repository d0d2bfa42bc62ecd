package auth

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/eloquentai/finchat/internal/log"
)

// DefaultTimeout is the inactivity window after which a session expires.
const DefaultTimeout = 24 * time.Hour

// secretLength is the size of a generated session secret in bytes.
const secretLength = 32

// Store manages sessions and the tokens bound to them. All methods are
// safe for concurrent use.
type Store struct {
	repo    Repository
	users   map[string]*User
	secret  []byte
	timeout time.Duration
	now     func() time.Time
	logger  log.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithTimeout sets the session inactivity window.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRepository substitutes the session repository.
func WithRepository(r Repository) Option {
	return func(s *Store) {
		if r != nil {
			s.repo = r
		}
	}
}

// WithClock substitutes the time source. Used by tests to drive expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Store. When secret is empty an ephemeral random secret
// is generated; tokens signed with it will not survive a restart.
func New(secret []byte, opts ...Option) (*Store, error) {
	users, err := defaultUsers()
	if err != nil {
		return nil, err
	}

	s := &Store{
		repo:    NewMemoryRepository(),
		users:   users,
		secret:  secret,
		timeout: DefaultTimeout,
		now:     time.Now,
		logger:  log.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.secret) == 0 {
		buf := make([]byte, secretLength)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		s.secret = buf
		s.logger.Warn("no session secret configured, using an ephemeral one; tokens will not survive restarts")
	}
	return s, nil
}

// Timeout returns the configured inactivity window.
func (s *Store) Timeout() time.Duration {
	return s.timeout
}

// reservedAttr reports whether the key is managed by the store itself
// and must not be overwritten by caller-supplied attributes.
func reservedAttr(key string) bool {
	switch key {
	case "session_id", "user_id", "created_at":
		return true
	}
	return false
}

// Create starts a session for userID. An empty userID creates an
// anonymous session. Attributes are merged into the session, with
// "is_authenticated" and "user_type" promoted to their typed fields.
func (s *Store) Create(userID string, attrs map[string]any) *Session {
	if userID == "" {
		userID = AnonymousUserID
	}

	now := s.now()
	sess := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		UserType:     UserTypeAnonymous,
		CreatedAt:    now,
		LastActivity: now,
	}
	if userID != AnonymousUserID {
		sess.Authenticated = true
		sess.UserType = UserTypeAuthenticated
	}

	for k, v := range attrs {
		if reservedAttr(k) {
			continue
		}
		switch k {
		case "is_authenticated":
			if b, ok := v.(bool); ok {
				sess.Authenticated = b
				continue
			}
		case "user_type":
			if t, ok := v.(string); ok {
				sess.UserType = t
				continue
			}
		}
		if sess.Attrs == nil {
			sess.Attrs = make(map[string]any, len(attrs))
		}
		sess.Attrs[k] = v
	}

	s.repo.Put(sess)
	s.logger.Debug("session created", "session_id", sess.ID, "user_type", sess.UserType)
	return sess
}

// Authenticate verifies email and password against the user set and, on
// success, creates an authenticated session carrying the user's identity
// attributes. All failure modes yield ErrInvalidCredentials.
func (s *Store) Authenticate(email, password string) (*Session, error) {
	user, ok := s.users[email]
	if !ok || !user.Authenticated || len(user.PasswordHash) == 0 {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sess := s.Create(user.ID, map[string]any{
		"email":          user.Email,
		"username":       user.Username,
		"account_status": user.AccountStatus,
	})
	s.logger.Info("user authenticated", "user_id", user.ID, "session_id", sess.ID)
	return sess, nil
}

// Get returns a snapshot of the session, touching its last-activity
// timestamp. An expired session is evicted and nil returned; once
// evicted it can never be observed again.
func (s *Store) Get(id string) *Session {
	sess, ok := s.repo.Get(id)
	if !ok {
		return nil
	}

	now := s.now()
	if s.expired(sess, now) {
		s.repo.Delete(id)
		s.logger.Debug("expired session evicted", "session_id", id)
		return nil
	}

	var out *Session
	if !s.repo.Update(id, func(cur *Session) {
		cur.LastActivity = now
		out = cur.Clone()
	}) {
		// Deleted concurrently between the read and the touch.
		return nil
	}
	return out
}

// IssueToken signs a token for the session. The lookup counts as
// activity, so issuing refreshes the session's expiry window.
func (s *Store) IssueToken(id string) (string, error) {
	sess := s.Get(id)
	if sess == nil {
		return "", ErrSessionNotFound
	}
	return s.signToken(sess)
}

// VerifyToken validates the token and resolves its session. A valid
// token whose session has been deleted or expired yields
// ErrSessionNotFound.
func (s *Store) VerifyToken(token string) (*Session, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}
	sess := s.Get(claims.SessionID)
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Touch records activity on the session: refreshes last-activity,
// increments the conversation counter when activity carries a true
// "new_conversation", and merges the remaining non-reserved keys.
// It reports whether the session existed. Touch never evicts.
func (s *Store) Touch(id string, activity map[string]any) bool {
	now := s.now()
	return s.repo.Update(id, func(sess *Session) {
		sess.LastActivity = now
		if b, ok := activity["new_conversation"].(bool); ok && b {
			sess.ConversationCount++
		}
		for k, v := range activity {
			if reservedAttr(k) {
				continue
			}
			if sess.Attrs == nil {
				sess.Attrs = make(map[string]any, len(activity))
			}
			sess.Attrs[k] = v
		}
	})
}

// Delete removes the session and reports whether it existed.
func (s *Store) Delete(id string) bool {
	return s.repo.Delete(id)
}

// SweepExpired evicts every expired session and returns the count.
func (s *Store) SweepExpired() int {
	now := s.now()
	var n int
	for _, sess := range s.repo.All() {
		if s.expired(sess, now) && s.repo.Delete(sess.ID) {
			n++
		}
	}
	return n
}

// StartSweeper launches a background goroutine that sweeps expired
// sessions every interval until ctx is canceled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	go s.sweepLoop(ctx, interval)
}

func (s *Store) sweepLoop(ctx context.Context, interval time.Duration) {
	s.logger.Info("session sweeper started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			if n := s.SweepExpired(); n > 0 {
				s.logger.Info("expired sessions evicted", "count", n)
			}
		}
	}
}

// Stats reports on a single live session. The lookup touches the
// session, so last_activity reflects the stats call itself.
func (s *Store) Stats(id string) (SessionStats, bool) {
	sess := s.Get(id)
	if sess == nil {
		return SessionStats{}, false
	}
	return SessionStats{
		SessionID:         sess.ID,
		UserType:          sess.UserType,
		ConversationCount: sess.ConversationCount,
		SessionDuration:   s.now().Sub(sess.CreatedAt).String(),
		LastActivity:      sess.LastActivity.UTC().Format(time.RFC3339),
		Authenticated:     sess.Authenticated,
	}, true
}

// AllStats summarizes the current session population without evicting.
func (s *Store) AllStats() AggregateStats {
	all := s.repo.All()
	stats := AggregateStats{
		TotalActiveSessions: len(all),
		TotalUsers:          len(s.users),
	}
	for _, sess := range all {
		if sess.Authenticated {
			stats.AuthenticatedSessions++
		} else {
			stats.AnonymousSessions++
		}
	}
	return stats
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return now.Sub(sess.LastActivity) > s.timeout
}
