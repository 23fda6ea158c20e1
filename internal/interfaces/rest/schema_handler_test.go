package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexuscrm/forcemapper/internal/application/services"
	"github.com/nexuscrm/forcemapper/internal/config"
	"github.com/nexuscrm/forcemapper/internal/domain/ports"
	"github.com/nexuscrm/forcemapper/internal/domain/schema"
	"github.com/nexuscrm/forcemapper/internal/domain/security"
	"github.com/nexuscrm/forcemapper/internal/infrastructure/memstore"
	"github.com/nexuscrm/forcemapper/internal/interfaces/rest"
	"github.com/nexuscrm/forcemapper/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newInspector(t *testing.T, opts rest.RouterOptions) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)

	unit := config.Default()
	unit.AutoCreateColumns = true
	unit.PollInitial = time.Millisecond
	unit.PollMax = 5 * time.Millisecond

	org := memstore.New(logger)
	org.PutObject("Category__c")
	org.PutObject("Widget__c", ports.DescribeField{Name: "sku__c", Type: "string", Custom: true, ExternalID: true})

	h := services.NewSchemaHandler(logger, unit, org)
	category := schema.NewEntity("Category").ID("id").String("name").OneToMany("widgets", "Widget", "category").Build()
	widget := schema.NewEntity("Widget").ID("id").String("sku").ManyToOne("category", "Category").Build()
	require.NoError(t, h.Register(category, widget))
	_, err := h.CreateSchema(context.Background())
	require.NoError(t, err)

	return rest.NewRouter(logger, h, services.NewQueryBuilder(h), opts)
}

func get(t *testing.T, router http.Handler, path string) (int, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestInspector_Health(t *testing.T) {
	code, body := get(t, newInspector(t, rest.RouterOptions{}), "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(2), body["tables"])
}

func TestInspector_ListTables(t *testing.T) {
	code, body := get(t, newInspector(t, rest.RouterOptions{}), "/api/schema/tables")
	require.Equal(t, http.StatusOK, code)

	tables := body["tables"].([]interface{})
	require.Len(t, tables, 2)
	first := tables[0].(map[string]interface{})
	assert.Equal(t, "Category__c", first["name"])
	assert.Equal(t, true, first["valid"])
	assert.Equal(t, true, first["exists"])
	assert.NotContains(t, first, "columns")
}

func TestInspector_GetTable(t *testing.T) {
	router := newInspector(t, rest.RouterOptions{})

	t.Run("ByEntityName", func(t *testing.T) {
		code, body := get(t, router, "/api/schema/tables/Widget")
		require.Equal(t, http.StatusOK, code)
		table := body["table"].(map[string]interface{})
		assert.Equal(t, "Widget__c", table["name"])
		assert.Equal(t, "sku__c", table["externalId"])

		names := map[string]bool{}
		for _, c := range table["columns"].([]interface{}) {
			names[c.(map[string]interface{})["name"].(string)] = true
		}
		assert.True(t, names["sku__c"])
		assert.True(t, names["category__c"])
	})

	t.Run("ByWireName", func(t *testing.T) {
		code, body := get(t, router, "/api/schema/tables/Category__c")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Category__c", body["table"].(map[string]interface{})["name"])
	})

	t.Run("Unknown", func(t *testing.T) {
		code, body := get(t, router, "/api/schema/tables/Gadget")
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "NOT_FOUND", body["code"])
	})
}

func TestInspector_GetQuery(t *testing.T) {
	router := newInspector(t, rest.RouterOptions{})

	code, body := get(t, router, "/api/schema/tables/Widget/query")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "SELECT Id, sku__c, category__c FROM Widget__c", body["query"])

	code, body = get(t, router, "/api/schema/tables/Widget/query?id=a01")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "SELECT Id, sku__c, category__c FROM Widget__c WHERE Id = 'a01'", body["query"])

	code, body = get(t, router, "/api/schema/tables/Widget/query?externalId=W-1")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "SELECT Id, sku__c, category__c FROM Widget__c WHERE sku__c = 'W-1'", body["query"])

	code, _ = get(t, router, "/api/schema/tables/Category/query?externalId=x")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = get(t, router, "/api/schema/tables/Gadget/query")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInspector_RequiresSecurityContext(t *testing.T) {
	store := auth.NewSessionStore("test-secret", time.Hour)
	authenticate := func(ctx context.Context, username, password string) (*security.SecurityContext, error) {
		if password != "secret" {
			return nil, assert.AnError
		}
		return &security.SecurityContext{Endpoint: "https://na1.example.com", SessionID: "s", UserName: username}, nil
	}
	router := newInspector(t, rest.RouterOptions{Store: store, Authenticator: authenticate, LoginURL: "/login"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/schema/tables", nil))
	assert.Equal(t, http.StatusFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		bytes.NewBufferString(`{"username":"admin@example.com","password":"wrong"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		bytes.NewBufferString(`{"username":"admin@example.com","password":"secret"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/schema/tables", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	code, _ := get(t, router, "/health")
	assert.Equal(t, http.StatusOK, code)
}
