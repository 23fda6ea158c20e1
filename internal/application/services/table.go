package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nexuscrm/forcemapper/internal/domain/ports"
	"github.com/nexuscrm/forcemapper/internal/domain/schema"
	"github.com/nexuscrm/forcemapper/pkg/constants"
	"github.com/nexuscrm/forcemapper/pkg/errors"
)

// Column is a remote field (or reverse relationship) known to a table
type Column interface {
	ForceAPIName() string
	FieldType() constants.FieldType
	IsRelationship() bool
}

// ColumnImpl is a field reported by describe, or declared on a virtual table
type ColumnImpl struct {
	Name             string
	Type             constants.FieldType
	Custom           bool
	ExternalID       bool
	Nillable         bool
	Length           int
	Precision        int
	Scale            int
	ReferenceTo      []string
	RelationshipName string
	PicklistValues   []string
}

func (c *ColumnImpl) ForceAPIName() string           { return c.Name }
func (c *ColumnImpl) FieldType() constants.FieldType { return c.Type }
func (c *ColumnImpl) IsRelationship() bool           { return c.Type.IsRelationship() }

func newColumnImpl(f ports.DescribeField) *ColumnImpl {
	return &ColumnImpl{
		Name:             f.Name,
		Type:             constants.FieldTypeFromDescribe(f.Type),
		Custom:           f.Custom,
		ExternalID:       f.ExternalID,
		Nillable:         f.Nillable,
		Length:           f.Length,
		Precision:        f.Precision,
		Scale:            f.Scale,
		ReferenceTo:      f.ReferenceTo,
		RelationshipName: f.RelationshipName,
		PicklistValues:   f.PicklistValues,
	}
}

// RelationshipImpl is the parent-side view of a lookup declared on a child object
type RelationshipImpl struct {
	Name          string
	ChildSObject  string
	Field         string
	CascadeDelete bool
}

func (r *RelationshipImpl) ForceAPIName() string           { return r.Name }
func (r *RelationshipImpl) FieldType() constants.FieldType { return constants.FieldTypeReference }
func (r *RelationshipImpl) IsRelationship() bool           { return true }

// Table is the cached view of one remote object.
// Lookups are safe for concurrent use once the table has been refreshed.
type Table struct {
	mu               sync.RWMutex
	name             schema.TableName
	defaultNamespace string

	columns    []Column
	byAPIName  map[string]Column
	byJavaName map[string]Column
	externalID *ColumnImpl

	valid   bool
	exists  bool
	virtual bool
}

// NewTable creates an unresolved table; call Refresh before use
func NewTable(name schema.TableName, defaultNamespace string) *Table {
	return &Table{
		name:             name,
		defaultNamespace: defaultNamespace,
		byAPIName:        make(map[string]Column),
		byJavaName:       make(map[string]Column),
	}
}

// NewVirtualTable builds a table that has no remote object behind it.
// Every member must name its remote field explicitly.
func NewVirtualTable(name schema.TableName, entity *schema.Entity) (*Table, error) {
	t := NewTable(name, name.Namespace)
	t.virtual = true

	for _, m := range entity.AllMembers() {
		explicit := m.ExplicitName()
		if explicit == "" {
			return nil, errors.NewConfigurationError(entity.Name, m.Name,
				"members of virtual tables must declare an explicit field name").WithTable(name.ForceAPIName())
		}
		fieldType := constants.FieldTypeText
		if m.Custom != nil && m.Custom.Type != "" {
			fieldType = m.Custom.Type
		}
		col := &ColumnImpl{Name: explicit, Type: fieldType, Custom: true}
		t.addColumn(col)
		t.byJavaName[m.Name] = col
	}
	t.valid = true
	t.exists = true
	return t, nil
}

func (t *Table) Name() schema.TableName {
	return t.name
}

func (t *Table) ForceAPIName() string {
	return t.name.ForceAPIName()
}

func (t *Table) IsValid() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.valid
}

func (t *Table) Exists() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.exists
}

func (t *Table) IsVirtual() bool {
	return t.virtual
}

// Invalidate forces the next access to describe the object again
func (t *Table) Invalidate() {
	if t.virtual {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.valid = false
}

// Refresh rebuilds the column map. A nil describe result triggers a describe
// call. A "no such object" fault leaves the table invalid and non-existent.
func (t *Table) Refresh(ctx context.Context, describe *ports.DescribeSObjectResult, conn ports.Connection) error {
	if t.virtual {
		return nil
	}
	if describe == nil {
		if conn == nil {
			return errors.ErrNoConnection
		}
		result, err := conn.DescribeSObject(ctx, t.ForceAPIName())
		if err != nil {
			if ports.IsNoSuchObject(err) {
				t.mu.Lock()
				t.reset()
				t.mu.Unlock()
				return nil
			}
			return fmt.Errorf("failed to describe %s: %w", t.ForceAPIName(), err)
		}
		describe = result
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.reset()

	for _, f := range describe.Fields {
		col := newColumnImpl(f)
		if col.ExternalID && t.externalID == nil {
			t.externalID = col
		}
		t.addColumn(col)
	}
	for _, cr := range describe.ChildRelationships {
		if cr.RelationshipName == "" {
			continue
		}
		if _, backed := t.byAPIName[strings.ToLower(cr.RelationshipName)]; backed {
			continue
		}
		t.addColumn(&RelationshipImpl{
			Name:          cr.RelationshipName,
			ChildSObject:  cr.ChildSObject,
			Field:         cr.Field,
			CascadeDelete: cr.CascadeDelete,
		})
	}

	t.valid = true
	t.exists = true
	return nil
}

// reset must be called with the write lock held
func (t *Table) reset() {
	t.columns = nil
	t.byAPIName = make(map[string]Column)
	t.byJavaName = make(map[string]Column)
	t.externalID = nil
	t.valid = false
	t.exists = false
}

func (t *Table) addColumn(col Column) {
	t.columns = append(t.columns, col)
	t.byAPIName[strings.ToLower(col.ForceAPIName())] = col
}

// Columns returns the columns in describe order
func (t *Table) Columns() []Column {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Column(nil), t.columns...)
}

// ExternalIDColumn returns the external id field, or nil
func (t *Table) ExternalIDColumn() *ColumnImpl {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.externalID
}

// GetColumnByForceAPIName looks a column up case-insensitively. Describe
// results sometimes omit the namespace on custom fields, so the namespaced
// form is tried as well.
func (t *Table) GetColumnByForceAPIName(name string) Column {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookup(name)
}

func (t *Table) lookup(name string) Column {
	key := strings.ToLower(name)
	if col, ok := t.byAPIName[key]; ok {
		return col
	}
	if t.defaultNamespace == "" {
		return nil
	}
	prefix := strings.ToLower(t.defaultNamespace) + constants.NameSeparator
	if strings.HasPrefix(key, prefix) {
		return t.byAPIName[strings.TrimPrefix(key, prefix)]
	}
	return t.byAPIName[prefix+key]
}

// RegisterJavaColumn binds a member name to the column it maps to
func (t *Table) RegisterJavaColumn(member string, col Column) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byJavaName[member] = col
}

// GetColumnFor resolves a declared member to its remote column
func (t *Table) GetColumnFor(entity *schema.Entity, member *schema.Member) (Column, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if col, ok := t.byJavaName[member.Name]; ok {
		return col, nil
	}
	for _, candidate := range fieldNameCandidates(member) {
		if col := t.lookup(candidate); col != nil {
			return col, nil
		}
	}
	return nil, errors.NewConfigurationError(entity.Name, member.Name,
		"no matching remote field found").WithTable(t.ForceAPIName())
}

// ChildRelationship finds the reverse relationship for a lookup field on childSObject
func (t *Table) ChildRelationship(childSObject, field string) *RelationshipImpl {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, col := range t.columns {
		rel, ok := col.(*RelationshipImpl)
		if !ok {
			continue
		}
		if strings.EqualFold(rel.ChildSObject, childSObject) && strings.EqualFold(rel.Field, field) {
			return rel
		}
	}
	return nil
}
