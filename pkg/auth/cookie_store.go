package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/nexuscrm/forcemapper/internal/domain/security"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// CookieSecurityContext holds the encrypted security context
	CookieSecurityContext = "force_sc"
	maxCookieSize         = 4096
	nonceSize             = 24
)

var errCookieTooLarge = errors.New("security context does not fit in a cookie")

// CookieStore keeps the whole security context in an encrypted cookie
type CookieStore struct {
	key    [32]byte
	name   string
	secure bool
}

// NewCookieStore derives the encryption key from secret
func NewCookieStore(secret string, secure bool) (*CookieStore, error) {
	s := &CookieStore{name: CookieSecurityContext, secure: secure}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("forcemapper security context"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, err
	}
	return s, nil
}

// Retrieve implements security.Store
func (s *CookieStore) Retrieve(r *http.Request) (*security.SecurityContext, error) {
	cookie, err := r.Cookie(s.name)
	if errors.Is(err, http.ErrNoCookie) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sealed, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil || len(sealed) < nonceSize {
		return nil, errors.New("malformed security context cookie")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, errors.New("security context cookie failed authentication")
	}

	var sc security.SecurityContext
	if err := json.Unmarshal(plain, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Save implements security.Store
func (s *CookieStore) Save(w http.ResponseWriter, r *http.Request, sc *security.SecurityContext) error {
	plain, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return err
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &s.key)
	value := base64.RawURLEncoding.EncodeToString(sealed)
	if len(value) > maxCookieSize {
		return errCookieTooLarge
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear implements security.Store
func (s *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{Name: s.name, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	return nil
}
