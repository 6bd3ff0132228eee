package application

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
)

// UserDirectory is the user lookup needed by AuthService.
type UserDirectory interface {
	Find(ctx context.Context, match func(User) bool) (User, bool)
}

// LoginObserver is notified of every login attempt.
type LoginObserver interface {
	LoginAttempted(success bool)
}

// AuthService validates credentials and manages the session identity.
type AuthService struct {
	users    UserDirectory
	observer LoginObserver
	logger   *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(users UserDirectory, observer LoginObserver) *AuthService {
	return NewAuthServiceWithLogger(users, observer, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(users UserDirectory, observer LoginObserver, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, observer: observer, logger: defaultLogger(logger)}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Login looks up nickname exactly (case sensitive) and compares the credential
// for equality. On success the session holds the user; on failure it is left
// untouched.
func (s *AuthService) Login(ctx context.Context, session *Session, nickname, credential string) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if session == nil {
		err = fmt.Errorf("session is nil")
		return
	}

	logger := s.loggerWith(ctx, "Login", "nickname", nickname)
	defer func() {
		if s.observer != nil {
			s.observer.LoginAttempted(err == nil)
		}
		if err != nil {
			logger.WarnContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.UID, "role", user.Role).InfoContext(ctx, "login succeeded")
	}()

	if nickname == "" {
		err = ErrInvalidCredentials
		return
	}

	found, ok := s.users.Find(ctx, func(u User) bool { return u.Nickname == nickname })
	if !ok || subtle.ConstantTimeCompare([]byte(found.Credential), []byte(credential)) != 1 {
		err = ErrInvalidCredentials
		return
	}

	session.set(found)
	user = found
	return
}

// Logout clears the session unconditionally.
func (s *AuthService) Logout(ctx context.Context, session *Session) {
	previous, ok := session.Current()
	session.Clear()
	if ok && s != nil {
		s.loggerWith(ctx, "Logout", "user_id", previous.UID).InfoContext(ctx, "logged out")
	}
}
