package auth

import (
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nexuscrm/forcemapper/internal/domain/security"
)

// CookieSession holds the signed session token
const CookieSession = "force_session"

// Claims represents JWT claims
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SecretFromEnv returns the signing secret configured for sessions
func SecretFromEnv() string {
	secret := os.Getenv("FORCE_SESSION_SECRET")
	if secret == "" {
		secret = "default-secret-change-in-production"
	}
	return secret
}

// SessionStore keeps security contexts server side. The browser only holds a
// signed token naming the session.
type SessionStore struct {
	secret []byte
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*security.SecurityContext
}

// NewSessionStore creates an in-memory session store
func NewSessionStore(secret string, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{
		secret:   []byte(secret),
		ttl:      ttl,
		sessions: make(map[string]*security.SecurityContext),
	}
}

// GenerateToken creates a signed token for a session id
func (s *SessionStore) GenerateToken(sessionID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates and parses a session token
func (s *SessionStore) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// Retrieve implements security.Store
func (s *SessionStore) Retrieve(r *http.Request) (*security.SecurityContext, error) {
	cookie, err := r.Cookie(CookieSession)
	if errors.Is(err, http.ErrNoCookie) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	claims, err := s.ValidateToken(cookie.Value)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[claims.SessionID], nil
}

// Save implements security.Store
func (s *SessionStore) Save(w http.ResponseWriter, r *http.Request, sc *security.SecurityContext) error {
	sessionID := uuid.NewString()
	token, err := s.GenerateToken(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions[sessionID] = sc
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieSession,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(s.ttl),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear implements security.Store
func (s *SessionStore) Clear(w http.ResponseWriter, r *http.Request) error {
	if cookie, err := r.Cookie(CookieSession); err == nil {
		if claims, err := s.ValidateToken(cookie.Value); err == nil {
			s.mu.Lock()
			delete(s.sessions, claims.SessionID)
			s.mu.Unlock()
		}
	}
	http.SetCookie(w, &http.Cookie{Name: CookieSession, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	return nil
}
