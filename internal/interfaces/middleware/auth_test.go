package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nexuscrm/forcemapper/internal/domain/security"
	"github.com/nexuscrm/forcemapper/internal/interfaces/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of security.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Retrieve(r *http.Request) (*security.SecurityContext, error) {
	args := m.Called(r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*security.SecurityContext), args.Error(1)
}

func (m *MockStore) Save(w http.ResponseWriter, r *http.Request, sc *security.SecurityContext) error {
	return m.Called(w, r, sc).Error(0)
}

func (m *MockStore) Clear(w http.ResponseWriter, r *http.Request) error {
	return m.Called(w, r).Error(0)
}

func newRouter(store security.Store, loginURL string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", middleware.RequireSecurityContext(store, loginURL), func(c *gin.Context) {
		fromGin, _ := middleware.SecurityContext(c)
		fromCtx, _ := security.FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"gin": fromGin.UserName, "ctx": fromCtx.UserName})
	})
	return r
}

func TestRequireSecurityContext(t *testing.T) {
	valid := &security.SecurityContext{Endpoint: "https://na1.example.com", SessionID: "s", UserName: "admin@example.com"}

	t.Run("Continues", func(t *testing.T) {
		store := new(MockStore)
		store.On("Retrieve", mock.Anything).Return(valid, nil)

		w := httptest.NewRecorder()
		newRouter(store, "/login").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"gin":"admin@example.com","ctx":"admin@example.com"}`, w.Body.String())
		store.AssertExpectations(t)
	})

	t.Run("RedirectsWithoutContext", func(t *testing.T) {
		store := new(MockStore)
		store.On("Retrieve", mock.Anything).Return(nil, nil)

		w := httptest.NewRecorder()
		newRouter(store, "/login").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
	})

	t.Run("RedirectsOnIncompleteContext", func(t *testing.T) {
		store := new(MockStore)
		store.On("Retrieve", mock.Anything).Return(&security.SecurityContext{Endpoint: "https://na1.example.com"}, nil)

		w := httptest.NewRecorder()
		newRouter(store, "/login").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

		assert.Equal(t, http.StatusFound, w.Code)
	})

	t.Run("UnauthorizedWithoutLoginURL", func(t *testing.T) {
		store := new(MockStore)
		store.On("Retrieve", mock.Anything).Return(nil, assert.AnError)

		w := httptest.NewRecorder()
		newRouter(store, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
	})
}
