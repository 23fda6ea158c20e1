package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nexuscrm/forcemapper/internal/domain/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() *security.SecurityContext {
	return &security.SecurityContext{
		Endpoint:  "https://na1.example.com",
		SessionID: "00D!SESSION",
		OrgID:     "00Dxx",
		UserName:  "admin@example.com",
	}
}

// roundTrip saves sc with store and returns a request that carries the
// resulting cookies
func roundTrip(t *testing.T, store security.Store, sc *security.SecurityContext) *http.Request {
	w := httptest.NewRecorder()
	require.NoError(t, store.Save(w, httptest.NewRequest(http.MethodGet, "/", nil), sc))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestCookieStore(t *testing.T) {
	store, err := NewCookieStore("cookie-secret", true)
	require.NoError(t, err)

	t.Run("RoundTrip", func(t *testing.T) {
		got, err := store.Retrieve(roundTrip(t, store, testContext()))
		require.NoError(t, err)
		assert.Equal(t, testContext(), got)
	})

	t.Run("NoCookie", func(t *testing.T) {
		got, err := store.Retrieve(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("CookieIsEncrypted", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, store.Save(w, httptest.NewRequest(http.MethodGet, "/", nil), testContext()))
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, CookieSecurityContext, cookies[0].Name)
		assert.NotContains(t, cookies[0].Value, "SESSION")
		assert.True(t, cookies[0].HttpOnly)
		assert.True(t, cookies[0].Secure)
	})

	t.Run("WrongKey", func(t *testing.T) {
		other, err := NewCookieStore("another-secret", false)
		require.NoError(t, err)
		_, err = other.Retrieve(roundTrip(t, store, testContext()))
		assert.Error(t, err)
	})

	t.Run("Tampered", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieSecurityContext, Value: "bm90LWEtcmVhbC1zZWFsZWQtYm94LXZhbHVlLWF0LWFsbA"})
		_, err := store.Retrieve(req)
		assert.Error(t, err)
	})

	t.Run("Clear", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, store.Clear(w, httptest.NewRequest(http.MethodGet, "/", nil)))
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore("session-secret", time.Hour)

	t.Run("RoundTrip", func(t *testing.T) {
		sc := testContext()
		got, err := store.Retrieve(roundTrip(t, store, sc))
		require.NoError(t, err)
		assert.Same(t, sc, got)
	})

	t.Run("TokenCarriesOnlySessionID", func(t *testing.T) {
		req := roundTrip(t, store, testContext())
		cookie, err := req.Cookie(CookieSession)
		require.NoError(t, err)
		assert.NotContains(t, cookie.Value, "00D!SESSION")

		claims, err := store.ValidateToken(cookie.Value)
		require.NoError(t, err)
		assert.NotEmpty(t, claims.SessionID)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("ForeignSecret", func(t *testing.T) {
		other := NewSessionStore("other-secret", time.Hour)
		_, err := store.Retrieve(roundTrip(t, other, testContext()))
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		claims := &Claims{SessionID: "gone", RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("session-secret"))
		require.NoError(t, err)
		_, err = store.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("UnknownSession", func(t *testing.T) {
		token, err := store.GenerateToken("never-saved")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieSession, Value: token})
		got, err := store.Retrieve(req)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearForgetsSession", func(t *testing.T) {
		req := roundTrip(t, store, testContext())
		require.NoError(t, store.Clear(httptest.NewRecorder(), req))
		got, err := store.Retrieve(req)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestSecretFromEnv(t *testing.T) {
	t.Setenv("FORCE_SESSION_SECRET", "")
	assert.Equal(t, "default-secret-change-in-production", SecretFromEnv())
	t.Setenv("FORCE_SESSION_SECRET", "s3cret")
	assert.Equal(t, "s3cret", SecretFromEnv())
}
