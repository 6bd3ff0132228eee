package application

import "sync"

// Session holds the identity of the logged in user. It is created by the
// caller that owns the interaction loop and passed to services explicitly.
type Session struct {
	mu   sync.RWMutex
	user *User
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}

// Current returns the logged in user, if any.
func (s *Session) Current() (User, bool) {
	if s == nil {
		return User{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// IsAdmin reports whether the logged in user is an administrator.
func (s *Session) IsAdmin() bool {
	user, ok := s.Current()
	return ok && user.IsAdmin()
}

// Principal describes the session for authorization checks.
func (s *Session) Principal() Principal {
	user, ok := s.Current()
	if !ok {
		return Principal{}
	}
	return Principal{UserID: user.UID, IsAdmin: user.IsAdmin()}
}

// Clear forgets the logged in user.
func (s *Session) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}

func (s *Session) set(user User) {
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
}

// refresh replaces the stored user when it is the same account.
func (s *Session) refresh(user User) {
	s.mu.Lock()
	if s.user != nil && s.user.UID == user.UID {
		s.user = &user
	}
	s.mu.Unlock()
}
