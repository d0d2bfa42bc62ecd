package auth

import "sync"

// Repository stores session records. Implementations must be safe for
// concurrent use; Update must apply its mutation atomically with respect
// to other calls.
type Repository interface {
	// Get returns the session with the given id, or false if absent.
	Get(id string) (*Session, bool)

	// Put stores the session, replacing any existing record.
	Put(s *Session)

	// Update applies fn to the stored session under the repository's
	// lock. It reports whether the session existed.
	Update(id string, fn func(*Session)) bool

	// Delete removes the session and reports whether it existed.
	Delete(id string) bool

	// All returns a snapshot of every stored session.
	All() []*Session
}

// MemoryRepository is an in-process Repository backed by a map. The
// zero value is not usable; call NewMemoryRepository.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*Session)}
}

// Get returns a copy of the stored session.
func (r *MemoryRepository) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Put stores a copy of the session.
func (r *MemoryRepository) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s.Clone()
}

// Update applies fn to the stored session while holding the write lock.
func (r *MemoryRepository) Update(id string, fn func(*Session)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	fn(s)
	return true
}

// Delete removes the session if present.
func (r *MemoryRepository) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return ok
}

// All returns copies of every stored session.
func (r *MemoryRepository) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Clone())
	}
	return out
}
