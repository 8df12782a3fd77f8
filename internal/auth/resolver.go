package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"volterra/admin-service/internal/models"
	"volterra/admin-service/internal/store"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCookieName = "volterra_session"
	DefaultSessionTTL = 8 * time.Hour
)

type ResolverOptions struct {
	CookieName string
	TTL        time.Duration
	// HashKey signs the cookie. A random key is generated when empty, which
	// invalidates cookies on every restart.
	HashKey []byte
	// BlockKey optionally encrypts the cookie (16, 24 or 32 bytes).
	BlockKey []byte
	Secure   bool
	Logger   *zap.Logger
	Now      func() time.Time
}

// Resolver maps a request credential to the signed-in user. It never fails
// for missing or bad credentials; those resolve to an anonymous request.
type Resolver struct {
	users      store.Users
	codec      *securecookie.SecureCookie
	cookieName string
	ttl        time.Duration
	secure     bool
	logger     *zap.Logger
	now        func() time.Time
}

// NewResolver fails when the cookie keys cannot sign and decode a session.
func NewResolver(users store.Users, opts ResolverOptions) (*Resolver, error) {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	if len(opts.HashKey) == 0 {
		opts.HashKey = securecookie.GenerateRandomKey(32)
	}
	if len(opts.BlockKey) == 0 {
		opts.BlockKey = nil
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	codec := securecookie.New(opts.HashKey, opts.BlockKey)
	codec.MaxAge(int(opts.TTL / time.Second))
	encoded, err := codec.Encode(opts.CookieName, "check")
	if err != nil {
		return nil, fmt.Errorf("session cookie keys: %w", err)
	}
	var decoded string
	if err := codec.Decode(opts.CookieName, encoded, &decoded); err != nil {
		return nil, fmt.Errorf("session cookie keys: %w", err)
	}
	return &Resolver{
		users:      users,
		codec:      codec,
		cookieName: opts.CookieName,
		ttl:        opts.TTL,
		secure:     opts.Secure,
		logger:     opts.Logger,
		now:        opts.Now,
	}, nil
}

// CurrentUser returns the user behind the request credential, or nil when
// the request is anonymous. Only persistence failures produce an error.
func (s *Resolver) CurrentUser(ctx context.Context, r *http.Request) (*models.User, error) {
	sessionID := s.sessionID(r)
	if sessionID == "" {
		return nil, nil
	}
	session, err := s.users.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session.Expired(s.now()) {
		return nil, nil
	}
	user, ok, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// Middleware resolves the user once per request and stores it in the
// request context.
func (s *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.CurrentUser(r.Context(), r)
		if err != nil {
			s.logger.Error("resolve session",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Login checks the password against the stored bcrypt hash and opens a new
// session. Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Resolver) Login(ctx context.Context, email, password string) (models.User, models.Session, error) {
	user, ok, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	if !ok || user.PasswordHash == "" {
		return models.User{}, models.Session{}, store.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, models.Session{}, store.ErrInvalidCredentials
	}
	session, err := s.users.CreateSession(ctx, user.ID, s.now().Add(s.ttl))
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	return user, session, nil
}

// Logout deletes the session named by the request credential, if any.
func (s *Resolver) Logout(ctx context.Context, r *http.Request) error {
	sessionID := s.sessionID(r)
	if sessionID == "" {
		return nil
	}
	if err := s.users.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		return err
	}
	return nil
}

func (s *Resolver) IssueCookie(w http.ResponseWriter, session models.Session) error {
	encoded, err := s.codec.Encode(s.cookieName, session.SessionID)
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	maxAge := int(session.ExpiresAt.Sub(s.now()) / time.Second)
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    encoded,
		Path:     "/",
		Expires:  session.ExpiresAt.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Resolver) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionID prefers the signed cookie and falls back to a bearer token.
func (s *Resolver) sessionID(r *http.Request) string {
	if cookie, err := r.Cookie(s.cookieName); err == nil && cookie.Value != "" {
		var sessionID string
		if err := s.codec.Decode(s.cookieName, cookie.Value, &sessionID); err == nil {
			return sessionID
		}
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

// HashPassword returns the bcrypt hash stored in users.password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
