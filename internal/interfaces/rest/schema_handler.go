package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/nexuscrm/forcemapper/internal/application/services"
	"github.com/nexuscrm/forcemapper/pkg/errors"
	"go.uber.org/zap"
)

// ColumnView is the JSON form of a column
type ColumnView struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Relationship bool     `json:"relationship"`
	Custom       bool     `json:"custom,omitempty"`
	ExternalID   bool     `json:"externalId,omitempty"`
	Nillable     bool     `json:"nillable,omitempty"`
	ReferenceTo  []string `json:"referenceTo,omitempty"`
}

// TableView is the JSON form of a registered table
type TableView struct {
	Name       string       `json:"name"`
	Namespace  string       `json:"namespace,omitempty"`
	Custom     bool         `json:"custom"`
	Valid      bool         `json:"valid"`
	Exists     bool         `json:"exists"`
	Virtual    bool         `json:"virtual"`
	ExternalID string       `json:"externalId,omitempty"`
	Columns    []ColumnView `json:"columns,omitempty"`
}

func newTableView(t *services.Table, withColumns bool) TableView {
	view := TableView{
		Name:      t.ForceAPIName(),
		Namespace: t.Name().Namespace,
		Custom:    t.Name().IsCustom(),
		Valid:     t.IsValid(),
		Exists:    t.Exists(),
		Virtual:   t.IsVirtual(),
	}
	if ext := t.ExternalIDColumn(); ext != nil {
		view.ExternalID = ext.Name
	}
	if !withColumns {
		return view
	}
	view.Columns = []ColumnView{}
	for _, col := range t.Columns() {
		cv := ColumnView{
			Name:         col.ForceAPIName(),
			Type:         string(col.FieldType()),
			Relationship: col.IsRelationship(),
		}
		if impl, ok := col.(*services.ColumnImpl); ok {
			cv.Custom = impl.Custom
			cv.ExternalID = impl.ExternalID
			cv.Nillable = impl.Nillable
			cv.ReferenceTo = impl.ReferenceTo
		}
		view.Columns = append(view.Columns, cv)
	}
	return view
}

// SchemaHandler exposes the table registry read-only
type SchemaHandler struct {
	logger  *zap.Logger
	schema  *services.SchemaHandler
	queries *services.QueryBuilder
}

// NewSchemaHandler creates the inspector handlers
func NewSchemaHandler(logger *zap.Logger, schema *services.SchemaHandler, queries *services.QueryBuilder) *SchemaHandler {
	return &SchemaHandler{logger: logger, schema: schema, queries: queries}
}

// table resolves :name as an entity name first, then as a wire name
func (h *SchemaHandler) table(name string) (*services.Table, error) {
	if _, ok := h.schema.LookupEntity(name); ok {
		return h.schema.GetTable(name)
	}
	if t, ok := h.schema.TableByForceAPIName(name); ok {
		return t, nil
	}
	return nil, errors.NewNotFoundError("table", name)
}

// ListTables handles GET /api/schema/tables
func (h *SchemaHandler) ListTables(c *gin.Context) {
	HandleGetEnvelope(c, h.logger, "tables", func() (interface{}, error) {
		tables := h.schema.Tables()
		views := make([]TableView, 0, len(tables))
		for _, t := range tables {
			views = append(views, newTableView(t, false))
		}
		return views, nil
	})
}

// GetTable handles GET /api/schema/tables/:name
func (h *SchemaHandler) GetTable(c *gin.Context) {
	HandleGetEnvelope(c, h.logger, "table", func() (interface{}, error) {
		t, err := h.table(c.Param("name"))
		if err != nil {
			return nil, err
		}
		return newTableView(t, true), nil
	})
}

// GetQuery handles GET /api/schema/tables/:name/query
// Optional query parameters: id, externalId
func (h *SchemaHandler) GetQuery(c *gin.Context) {
	name := c.Param("name")
	HandleGetEnvelope(c, h.logger, "query", func() (interface{}, error) {
		if _, ok := h.schema.LookupEntity(name); !ok {
			return nil, errors.NewNotFoundError("entity", name)
		}
		if id := c.Query("id"); id != "" {
			return h.queries.SelectByID(name, id)
		}
		if ext := c.Query("externalId"); ext != "" {
			return h.queries.SelectByExternalID(name, ext)
		}
		return h.queries.Select(name)
	})
}
