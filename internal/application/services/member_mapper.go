package services

import (
	"context"
	"strings"
	"sync"

	"github.com/nexuscrm/forcemapper/internal/config"
	"github.com/nexuscrm/forcemapper/internal/domain/ports"
	"github.com/nexuscrm/forcemapper/internal/domain/schema"
	"github.com/nexuscrm/forcemapper/pkg/constants"
	"github.com/nexuscrm/forcemapper/pkg/errors"
	"go.uber.org/zap"
)

// tableRegistry is the part of the schema handler the mapper depends on
type tableRegistry interface {
	GetTable(entityName string) (*Table, error)
	LookupEntity(name string) (*schema.Entity, bool)
	ResolveTarget(name string) (schema.TableName, error)
	InvalidateTable(wireName string)
	entityLock(entityName string) *sync.Mutex
}

// FieldSchemaResult is the outcome of one entity's field reconciliation
type FieldSchemaResult struct {
	Entity        string
	Table         string
	Missing       []string
	TableMissing  bool
	CreatedObject bool
	Fields        []*schema.CustomField
}

// pendingField pairs a member with the field it needs remotely
type pendingField struct {
	member *schema.Member
	target *schema.TableName
	field  *schema.CustomField
}

// MemberMapper reconciles declared entity members with remote fields
type MemberMapper struct {
	logger   *zap.Logger
	unit     config.PersistenceUnit
	registry tableRegistry
}

// NewMemberMapper creates a mapper bound to a table registry
func NewMemberMapper(logger *zap.Logger, unit config.PersistenceUnit, registry tableRegistry) *MemberMapper {
	return &MemberMapper{logger: logger, unit: unit, registry: registry}
}

// CreateFieldSchema compares the entity against its table and queues the
// missing fields (or, in a delete pass, the existing ones) on the writer.
// Calls for the same entity are serialized.
func (mm *MemberMapper) CreateFieldSchema(ctx context.Context, conn ports.Connection, entity *schema.Entity, writer *SchemaWriter) (*FieldSchemaResult, error) {
	lock := mm.registry.entityLock(entity.Name)
	lock.Lock()
	defer lock.Unlock()

	table, err := mm.registry.GetTable(entity.Name)
	if err != nil {
		return nil, err
	}
	result := &FieldSchemaResult{Entity: entity.Name, Table: table.ForceAPIName()}
	if table.IsVirtual() {
		return result, nil
	}

	if writer.IsDelete() {
		return result, mm.queueDeletes(entity, table, writer)
	}

	pending, err := mm.missingFields(ctx, conn, entity, table)
	if err != nil {
		return nil, err
	}
	result.TableMissing = !table.Exists()
	for _, p := range pending {
		result.Missing = append(result.Missing, p.field.FullName)
	}
	if len(pending) == 0 {
		mm.bindColumns(entity, table)
		return result, nil
	}

	allowed := mm.unit.AutoCreateColumns
	if result.TableMissing {
		allowed = mm.unit.AutoCreateTables
	}
	if !allowed {
		drift := &errors.SchemaDriftError{Entity: entity.Name, Table: table.ForceAPIName(), Missing: result.Missing}
		if mm.unit.WarnOnSchemaDrift {
			mm.logger.Warn("⚠️ Schema drift detected",
				zap.String("entity", entity.Name),
				zap.String("table", table.ForceAPIName()),
				zap.Strings("missing", result.Missing),
				zap.Bool("tableMissing", result.TableMissing))
			mm.bindColumns(entity, table)
			return result, nil
		}
		return nil, drift
	}

	if entity.ReadOnlySchema {
		return nil, errors.NewConfigurationError(entity.Name, pending[0].member.Name,
			"cannot add field %s to read-only schema object", pending[0].field.FullName).WithTable(table.ForceAPIName())
	}
	if result.TableMissing && !table.Name().IsCustom() {
		return nil, errors.NewConfigurationError(entity.Name, "",
			"standard object %s does not exist and cannot be created", table.ForceAPIName()).WithTable(table.ForceAPIName())
	}

	queued := make(map[string]struct{}, len(pending))
	for _, p := range pending {
		queued[strings.ToLower(p.field.FullName)] = struct{}{}
	}
	for _, p := range pending {
		if p.field.Formula == "" {
			continue
		}
		if missing := unresolvedReferences(p.field.Formula, table, queued); len(missing) > 0 {
			return nil, errors.NewConfigurationError(entity.Name, p.member.Name,
				"formula references unknown fields: %s", strings.Join(missing, ", ")).WithTable(table.ForceAPIName())
		}
	}

	for _, p := range pending {
		result.Fields = append(result.Fields, p.field)
	}

	if result.TableMissing {
		obj := newCustomObject(table.Name())
		obj.Fields = result.Fields
		if err := writer.AddCustomObject(obj); err != nil {
			return nil, err
		}
		result.CreatedObject = true
	} else {
		for _, f := range result.Fields {
			if err := writer.AddCustomField(f); err != nil {
				return nil, err
			}
		}
	}

	// The targets of new lookups gain a child relationship
	for _, p := range pending {
		if p.target != nil {
			mm.registry.InvalidateTable(p.target.ForceAPIName())
		}
	}
	table.Invalidate()

	mm.logger.Info("📐 Queued schema changes",
		zap.String("entity", entity.Name),
		zap.String("table", table.ForceAPIName()),
		zap.Bool("createObject", result.CreatedObject),
		zap.Strings("fields", result.Missing))
	return result, nil
}

// Drift reports the fields the entity lacks remotely without queueing anything
func (mm *MemberMapper) Drift(ctx context.Context, conn ports.Connection, entity *schema.Entity) (*FieldSchemaResult, error) {
	table, err := mm.registry.GetTable(entity.Name)
	if err != nil {
		return nil, err
	}
	result := &FieldSchemaResult{Entity: entity.Name, Table: table.ForceAPIName()}
	if table.IsVirtual() {
		return result, nil
	}
	pending, err := mm.missingFields(ctx, conn, entity, table)
	if err != nil {
		return nil, err
	}
	result.TableMissing = !table.Exists()
	for _, p := range pending {
		result.Missing = append(result.Missing, p.field.FullName)
		result.Fields = append(result.Fields, p.field)
	}
	return result, nil
}

// missingFields validates the entity and builds a request for every member
// whose field is absent remotely
func (mm *MemberMapper) missingFields(ctx context.Context, conn ports.Connection, entity *schema.Entity, table *Table) ([]pendingField, error) {
	if err := validateEntity(entity); err != nil {
		return nil, err
	}
	members, err := persistableMembers(entity)
	if err != nil {
		return nil, err
	}

	if !table.IsValid() && table.Exists() {
		if err := table.Refresh(ctx, nil, conn); err != nil {
			return nil, err
		}
	}

	var pending []pendingField
	for i := range members {
		m := &members[i]
		if err := validateMember(entity, m); err != nil {
			return nil, err
		}
		// The reverse side of a lookup appears once the owning lookup exists
		if m.IsToMany() || m.ID {
			continue
		}

		var target *schema.TableName
		if m.Relation != nil {
			tn, err := mm.registry.ResolveTarget(m.Relation.Target)
			if err != nil {
				return nil, err
			}
			target = &tn
		}

		name := fieldName(m, target)
		if constants.IsStandardField(name) {
			continue
		}
		if table.IsValid() && table.GetColumnByForceAPIName(name) != nil {
			continue
		}

		cf, err := buildCustomField(entity, table.Name(), m, target)
		if err != nil {
			return nil, err
		}
		pending = append(pending, pendingField{member: m, target: target, field: cf})
	}
	return pending, nil
}

// queueDeletes marks the entity's object, or its custom fields on a standard
// object, for removal. Read-only schema entities are left alone.
func (mm *MemberMapper) queueDeletes(entity *schema.Entity, table *Table, writer *SchemaWriter) error {
	if entity.ReadOnlySchema || !table.Exists() {
		return nil
	}
	if table.Name().IsCustom() {
		if err := writer.AddCustomObject(&schema.CustomObject{FullName: table.ForceAPIName()}); err != nil {
			return err
		}
	}

	members, err := persistableMembers(entity)
	if err != nil {
		return err
	}
	for i := range members {
		m := &members[i]
		if m.IsToMany() || m.ID {
			continue
		}
		col, err := table.GetColumnFor(entity, m)
		if err != nil {
			continue
		}
		impl, ok := col.(*ColumnImpl)
		if !ok || !impl.Custom || constants.IsStandardField(impl.Name) {
			continue
		}
		if err := writer.AddCustomField(&schema.CustomField{Object: table.ForceAPIName(), FullName: impl.Name}); err != nil {
			return err
		}
	}
	return nil
}

// bindColumns registers the resolved column of every member that has one,
// including the parent side of one-to-many relationships
func (mm *MemberMapper) bindColumns(entity *schema.Entity, table *Table) {
	members, err := persistableMembers(entity)
	if err != nil {
		return
	}
	for i := range members {
		m := &members[i]
		if m.Relation != nil && m.Relation.Kind == schema.RelationOneToMany {
			if rel := mm.childRelationship(table, m); rel != nil {
				table.RegisterJavaColumn(m.Name, rel)
			}
			continue
		}
		if m.IsToMany() {
			continue
		}
		if col, err := table.GetColumnFor(entity, m); err == nil {
			table.RegisterJavaColumn(m.Name, col)
		}
	}
}

// childRelationship finds the reverse relationship backing a one-to-many member
func (mm *MemberMapper) childRelationship(parent *Table, m *schema.Member) *RelationshipImpl {
	child, ok := mm.registry.LookupEntity(m.Relation.Target)
	if !ok {
		return nil
	}
	childTable, err := mm.registry.GetTable(child.Name)
	if err != nil {
		return nil
	}
	inverse, ok := child.Member(m.Relation.MappedBy)
	if !ok {
		return nil
	}
	target := parent.Name()
	return parent.ChildRelationship(childTable.ForceAPIName(), fieldName(&inverse, &target))
}

// newCustomObject describes a custom object about to be created
func newCustomObject(tn schema.TableName) *schema.CustomObject {
	label := labelFor(tn.BaseName)
	return &schema.CustomObject{
		FullName:         tn.ForceAPIName(),
		Label:            label,
		PluralLabel:      pluralLabel(label),
		DeploymentStatus: constants.DeploymentStatusDeployed,
		SharingModel:     string(constants.SharingModelPublicReadWrite),
		NameField: &schema.CustomField{
			FullName: constants.FieldName,
			Label:    label + " Name",
			Type:     constants.FieldTypeText,
		},
	}
}
