package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// fakeClock is a mutable time source shared between test and store.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testStore(t *testing.T, opts ...Option) (*Store, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clk.Now)}, opts...)
	s, err := New([]byte("0123456789abcdef0123456789abcdef"), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, clk
}

func TestCreateAnonymous(t *testing.T) {
	s, clk := testStore(t)

	sess := s.Create("", nil)
	if sess == nil {
		t.Fatal("Create() = nil")
	}
	if _, err := uuid.Parse(sess.ID); err != nil {
		t.Errorf("session ID %q is not a UUID: %v", sess.ID, err)
	}
	if sess.UserID != AnonymousUserID {
		t.Errorf("UserID = %q, want %q", sess.UserID, AnonymousUserID)
	}
	if sess.UserType != UserTypeAnonymous {
		t.Errorf("UserType = %q, want %q", sess.UserType, UserTypeAnonymous)
	}
	if sess.Authenticated {
		t.Error("anonymous session reports Authenticated = true")
	}
	if sess.ConversationCount != 0 {
		t.Errorf("ConversationCount = %d, want 0", sess.ConversationCount)
	}
	if !sess.CreatedAt.Equal(clk.Now()) || !sess.LastActivity.Equal(clk.Now()) {
		t.Errorf("timestamps = %v/%v, want %v", sess.CreatedAt, sess.LastActivity, clk.Now())
	}
}

func TestCreateMergesAttrs(t *testing.T) {
	s, _ := testStore(t)

	sess := s.Create("demo_user", map[string]any{
		"device":           "ios",
		"session_id":       "spoofed",
		"user_id":          "spoofed",
		"created_at":       "spoofed",
		"is_authenticated": false,
		"user_type":        "service",
	})

	if sess.Authenticated {
		t.Error("is_authenticated override not applied")
	}
	if sess.UserType != "service" {
		t.Errorf("UserType = %q, want %q", sess.UserType, "service")
	}
	if got := sess.Attrs["device"]; got != "ios" {
		t.Errorf(`Attrs["device"] = %v, want "ios"`, got)
	}
	for _, k := range []string{"session_id", "user_id", "created_at", "is_authenticated", "user_type"} {
		if _, ok := sess.Attrs[k]; ok {
			t.Errorf("reserved or promoted key %q leaked into Attrs", k)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid demo credentials", email: DemoEmail, password: DemoPassword},
		{name: "wrong password", email: DemoEmail, password: "nope", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "ghost@fintech.com", password: DemoPassword, wantErr: ErrInvalidCredentials},
		{name: "anonymous record cannot log in", email: AnonymousUserID, password: "", wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := testStore(t)
			sess, err := s.Authenticate(tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
				}
				if sess != nil {
					t.Errorf("Authenticate() session = %+v, want nil", sess)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if !sess.Authenticated || sess.UserType != UserTypeAuthenticated {
				t.Errorf("session = %+v, want authenticated", sess)
			}
			if got := sess.Attrs["email"]; got != DemoEmail {
				t.Errorf(`Attrs["email"] = %v, want %q`, got, DemoEmail)
			}
			if got := sess.Attrs["username"]; got != "Demo User" {
				t.Errorf(`Attrs["username"] = %v, want "Demo User"`, got)
			}
			if got := sess.Attrs["account_status"]; got != "active" {
				t.Errorf(`Attrs["account_status"] = %v, want "active"`, got)
			}
		})
	}
}

func TestGetTouchesLastActivity(t *testing.T) {
	s, clk := testStore(t)
	created := s.Create("", nil)

	clk.Advance(time.Hour)
	got := s.Get(created.ID)
	if got == nil {
		t.Fatal("Get() = nil for live session")
	}
	if !got.LastActivity.Equal(clk.Now()) {
		t.Errorf("LastActivity = %v, want %v", got.LastActivity, clk.Now())
	}

	// The touch must be persisted, not only reflected in the snapshot.
	again := s.Get(created.ID)
	if !again.LastActivity.Equal(clk.Now()) {
		t.Errorf("persisted LastActivity = %v, want %v", again.LastActivity, clk.Now())
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	s, _ := testStore(t)
	sess := s.Create("", map[string]any{"channel": "web"})

	snap := s.Get(sess.ID)
	snap.ConversationCount = 99
	snap.Attrs["channel"] = "mutated"

	fresh := s.Get(sess.ID)
	if fresh.ConversationCount != 0 {
		t.Errorf("ConversationCount = %d after mutating a snapshot, want 0", fresh.ConversationCount)
	}
	if fresh.Attrs["channel"] != "web" {
		t.Errorf(`Attrs["channel"] = %v after mutating a snapshot, want "web"`, fresh.Attrs["channel"])
	}
}

func TestGetExpiry(t *testing.T) {
	t.Run("exactly at the window is still live", func(t *testing.T) {
		s, clk := testStore(t, WithTimeout(time.Hour))
		sess := s.Create("", nil)

		clk.Advance(time.Hour)
		if got := s.Get(sess.ID); got == nil {
			t.Error("Get() = nil at exactly the inactivity window, want live session")
		}
	})

	t.Run("past the window evicts and never resurrects", func(t *testing.T) {
		s, clk := testStore(t, WithTimeout(time.Hour))
		sess := s.Create("", nil)

		clk.Advance(time.Hour + time.Second)
		if got := s.Get(sess.ID); got != nil {
			t.Fatalf("Get() = %+v past the inactivity window, want nil", got)
		}
		// Second lookup must not observe the evicted session either.
		if got := s.Get(sess.ID); got != nil {
			t.Errorf("Get() resurrected an evicted session: %+v", got)
		}
	})
}

func TestTouch(t *testing.T) {
	tests := []struct {
		name      string
		activity  map[string]any
		wantCount int
	}{
		{name: "new conversation increments", activity: map[string]any{"new_conversation": true}, wantCount: 1},
		{name: "false does not increment", activity: map[string]any{"new_conversation": false}, wantCount: 0},
		{name: "absent does not increment", activity: map[string]any{"channel": "web"}, wantCount: 0},
		{name: "non-bool does not increment", activity: map[string]any{"new_conversation": "yes"}, wantCount: 0},
		{name: "nil activity", activity: nil, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, clk := testStore(t)
			sess := s.Create("", nil)

			clk.Advance(time.Minute)
			if !s.Touch(sess.ID, tt.activity) {
				t.Fatal("Touch() = false for live session")
			}

			got := s.Get(sess.ID)
			if got.ConversationCount != tt.wantCount {
				t.Errorf("ConversationCount = %d, want %d", got.ConversationCount, tt.wantCount)
			}
			if got.LastActivity.Before(clk.Now().Add(-time.Second)) {
				t.Errorf("LastActivity = %v, want refreshed to %v", got.LastActivity, clk.Now())
			}
		})
	}

	t.Run("missing session", func(t *testing.T) {
		s, _ := testStore(t)
		if s.Touch("no-such-session", map[string]any{"new_conversation": true}) {
			t.Error("Touch() = true for missing session")
		}
	})

	t.Run("merges non-reserved keys", func(t *testing.T) {
		s, _ := testStore(t)
		sess := s.Create("", nil)

		s.Touch(sess.ID, map[string]any{
			"new_conversation": true,
			"last_topic":       "payments",
			"session_id":       "spoofed",
		})

		got := s.Get(sess.ID)
		if got.Attrs["last_topic"] != "payments" {
			t.Errorf(`Attrs["last_topic"] = %v, want "payments"`, got.Attrs["last_topic"])
		}
		if got.Attrs["new_conversation"] != true {
			t.Errorf(`Attrs["new_conversation"] = %v, want true`, got.Attrs["new_conversation"])
		}
		if _, ok := got.Attrs["session_id"]; ok {
			t.Error(`reserved key "session_id" leaked into Attrs`)
		}
		if got.ID != sess.ID {
			t.Errorf("session ID changed to %q", got.ID)
		}
	})
}

func TestTouchCountExact(t *testing.T) {
	s, _ := testStore(t)
	sess := s.Create("", nil)

	for range 5 {
		s.Touch(sess.ID, map[string]any{"new_conversation": true})
	}
	s.Touch(sess.ID, map[string]any{"new_conversation": false})
	s.Touch(sess.ID, nil)

	if got := s.Get(sess.ID).ConversationCount; got != 5 {
		t.Errorf("ConversationCount = %d, want 5", got)
	}
}

func TestTouchConcurrent(t *testing.T) {
	s, _ := testStore(t)
	sess := s.Create("", nil)

	const workers = 50
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Touch(sess.ID, map[string]any{"new_conversation": true})
		}()
	}
	wg.Wait()

	if got := s.Get(sess.ID).ConversationCount; got != workers {
		t.Errorf("ConversationCount = %d after %d concurrent touches, want %d", got, workers, workers)
	}
}

func TestDelete(t *testing.T) {
	s, _ := testStore(t)
	sess := s.Create("", nil)

	if !s.Delete(sess.ID) {
		t.Error("Delete() = false for existing session")
	}
	if s.Delete(sess.ID) {
		t.Error("Delete() = true for already-deleted session")
	}
	if got := s.Get(sess.ID); got != nil {
		t.Errorf("Get() = %+v after delete, want nil", got)
	}
}

func TestSweepExpired(t *testing.T) {
	s, clk := testStore(t, WithTimeout(time.Hour))

	for range 3 {
		s.Create("", nil)
	}
	clk.Advance(2 * time.Hour)
	fresh := s.Create("", nil)

	if n := s.SweepExpired(); n != 3 {
		t.Errorf("SweepExpired() = %d, want 3", n)
	}
	if n := s.SweepExpired(); n != 0 {
		t.Errorf("second SweepExpired() = %d, want 0", n)
	}
	if got := s.Get(fresh.ID); got == nil {
		t.Error("sweep evicted a live session")
	}
}

func TestStartSweeper(t *testing.T) {
	s, clk := testStore(t, WithTimeout(time.Hour))
	s.Create("", nil)
	clk.Advance(2 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartSweeper(ctx, 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for s.AllStats().TotalActiveSessions != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("sweeper did not evict expired session, %d still active", s.AllStats().TotalActiveSessions)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStats(t *testing.T) {
	s, clk := testStore(t)
	sess, err := s.Authenticate(DemoEmail, DemoPassword)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	s.Touch(sess.ID, map[string]any{"new_conversation": true})
	s.Touch(sess.ID, map[string]any{"new_conversation": true})
	clk.Advance(30 * time.Minute)

	stats, ok := s.Stats(sess.ID)
	if !ok {
		t.Fatal("Stats() ok = false for live session")
	}
	if stats.SessionID != sess.ID {
		t.Errorf("SessionID = %q, want %q", stats.SessionID, sess.ID)
	}
	if stats.UserType != UserTypeAuthenticated {
		t.Errorf("UserType = %q, want %q", stats.UserType, UserTypeAuthenticated)
	}
	if stats.ConversationCount != 2 {
		t.Errorf("ConversationCount = %d, want 2", stats.ConversationCount)
	}
	if stats.SessionDuration != "30m0s" {
		t.Errorf("SessionDuration = %q, want %q", stats.SessionDuration, "30m0s")
	}
	if want := clk.Now().UTC().Format(time.RFC3339); stats.LastActivity != want {
		t.Errorf("LastActivity = %q, want %q", stats.LastActivity, want)
	}
	if !stats.Authenticated {
		t.Error("Authenticated = false for logged-in session")
	}

	if _, ok := s.Stats("no-such-session"); ok {
		t.Error("Stats() ok = true for missing session")
	}
}

func TestAllStats(t *testing.T) {
	s, _ := testStore(t)
	s.Create("", nil)
	s.Create("", nil)
	if _, err := s.Authenticate(DemoEmail, DemoPassword); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	stats := s.AllStats()
	if stats.TotalActiveSessions != 3 {
		t.Errorf("TotalActiveSessions = %d, want 3", stats.TotalActiveSessions)
	}
	if stats.AuthenticatedSessions != 1 {
		t.Errorf("AuthenticatedSessions = %d, want 1", stats.AuthenticatedSessions)
	}
	if stats.AnonymousSessions != 2 {
		t.Errorf("AnonymousSessions = %d, want 2", stats.AnonymousSessions)
	}
	if stats.TotalUsers != 2 {
		t.Errorf("TotalUsers = %d, want 2", stats.TotalUsers)
	}
}

func TestNewGeneratesSecret(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) error = %v", err)
	}

	sess := s.Create("", nil)
	token, err := s.IssueToken(sess.ID)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	got, err := s.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if got.ID != sess.ID {
		t.Errorf("verified session = %q, want %q", got.ID, sess.ID)
	}
}
