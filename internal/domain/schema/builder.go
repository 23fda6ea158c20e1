package schema

import "github.com/nexuscrm/forcemapper/pkg/constants"

// EntityBuilder assembles an Entity declaratively
type EntityBuilder struct {
	entity *Entity
}

// NewEntity starts a builder for the named entity
func NewEntity(name string) *EntityBuilder {
	return &EntityBuilder{entity: &Entity{Name: name}}
}

// MemberOption adjusts a member as it is added
type MemberOption func(*Member)

func (b *EntityBuilder) Table(name string) *EntityBuilder {
	b.entity.TableName = name
	return b
}

func (b *EntityBuilder) Inheritance(t InheritanceType) *EntityBuilder {
	b.entity.Inheritance = t
	return b
}

func (b *EntityBuilder) Extends(parent *Entity) *EntityBuilder {
	b.entity.Superclass = parent
	return b
}

func (b *EntityBuilder) MappedSuperclass() *EntityBuilder {
	b.entity.MappedSuperclass = true
	return b
}

func (b *EntityBuilder) Embeddable() *EntityBuilder {
	b.entity.Embeddable = true
	return b
}

func (b *EntityBuilder) Virtual() *EntityBuilder {
	b.entity.Virtual = true
	return b
}

func (b *EntityBuilder) ReadOnlySchema() *EntityBuilder {
	b.entity.ReadOnlySchema = true
	return b
}

func (b *EntityBuilder) SecondaryTable(name string) *EntityBuilder {
	b.entity.SecondaryTables = append(b.entity.SecondaryTables, name)
	return b
}

func (b *EntityBuilder) IDClass() *EntityBuilder {
	b.entity.IDClass = true
	return b
}

// ID adds the String primary key mapped to the standard Id field
func (b *EntityBuilder) ID(name string, opts ...MemberOption) *EntityBuilder {
	return b.Field(name, TypeString, append([]MemberOption{func(m *Member) { m.ID = true }}, opts...)...)
}

// Field adds a member of the given Java type
func (b *EntityBuilder) Field(name string, t JavaType, opts ...MemberOption) *EntityBuilder {
	m := Member{Name: name, Type: t}
	for _, opt := range opts {
		opt(&m)
	}
	b.entity.Members = append(b.entity.Members, m)
	return b
}

func (b *EntityBuilder) String(name string, opts ...MemberOption) *EntityBuilder {
	return b.Field(name, TypeString, opts...)
}

// Enum adds an enum member with its declared constants
func (b *EntityBuilder) Enum(name string, values []string, opts ...MemberOption) *EntityBuilder {
	return b.Field(name, TypeEnum, append([]MemberOption{func(m *Member) {
		m.Enum = &EnumSpec{Constants: values}
	}}, opts...)...)
}

// EnumArray adds a multi-valued enum member
func (b *EntityBuilder) EnumArray(name string, values []string, opts ...MemberOption) *EntityBuilder {
	return b.Field(name, TypeEnumArray, append([]MemberOption{func(m *Member) {
		m.Enum = &EnumSpec{Constants: values}
	}}, opts...)...)
}

// ManyToOne adds a reference to another entity
func (b *EntityBuilder) ManyToOne(name, target string, opts ...MemberOption) *EntityBuilder {
	return b.Field(name, TypeEntity, append([]MemberOption{func(m *Member) {
		m.Relation = &RelationSpec{Kind: RelationManyToOne, Target: target}
	}}, opts...)...)
}

// OneToMany adds the collection side of a lookup declared on target
func (b *EntityBuilder) OneToMany(name, target, mappedBy string, opts ...MemberOption) *EntityBuilder {
	return b.Field(name, TypeCollection, append([]MemberOption{func(m *Member) {
		m.Relation = &RelationSpec{Kind: RelationOneToMany, Target: target, MappedBy: mappedBy}
	}}, opts...)...)
}

// Embedded adds a member whose fields are expanded into this entity
func (b *EntityBuilder) Embedded(name string, value *Entity, opts ...MemberOption) *EntityBuilder {
	return b.Field(name, TypeEmbedded, append([]MemberOption{func(m *Member) {
		m.Embedded = value
	}}, opts...)...)
}

func (b *EntityBuilder) Build() *Entity {
	return b.entity
}

// Member options

func column(m *Member) *ColumnSpec {
	if m.Column == nil {
		m.Column = &ColumnSpec{}
	}
	return m.Column
}

func custom(m *Member) *CustomFieldSpec {
	if m.Custom == nil {
		m.Custom = &CustomFieldSpec{}
	}
	return m.Custom
}

// Named sets the explicit remote column name
func Named(name string) MemberOption {
	return func(m *Member) { column(m).Name = name }
}

func NotNull() MemberOption {
	return func(m *Member) { column(m).NotNull = true }
}

func Unique() MemberOption {
	return func(m *Member) { column(m).Unique = true }
}

func Length(n int) MemberOption {
	return func(m *Member) { column(m).Length = n }
}

func Precision(precision, scale int) MemberOption {
	return func(m *Member) {
		c := column(m)
		c.Precision = precision
		c.Scale = scale
	}
}

// ColumnDefinition sets the JDBC type hint
func ColumnDefinition(def string) MemberOption {
	return func(m *Member) { column(m).Definition = def }
}

// ColumnTable places the column on another table; always rejected by the mapper
func ColumnTable(table string) MemberOption {
	return func(m *Member) { column(m).Table = table }
}

func Lob() MemberOption {
	return func(m *Member) { m.Lob = true }
}

func Temporal(t TemporalType) MemberOption {
	return func(m *Member) { m.Temporal = t }
}

func Transient() MemberOption {
	return func(m *Member) { m.Transient = true }
}

func EmbeddedID() MemberOption {
	return func(m *Member) {
		m.ID = true
		m.EmbeddedID = true
	}
}

// Enumerated sets the enum strategy
func Enumerated(t EnumType) MemberOption {
	return func(m *Member) {
		if m.Enum == nil {
			m.Enum = &EnumSpec{}
		}
		m.Enum.Type = t
	}
}

// NonStrictPicklist lets the picklist accept values outside the enum
func NonStrictPicklist(allowed ...string) MemberOption {
	return func(m *Member) {
		if m.Enum == nil {
			m.Enum = &EnumSpec{}
		}
		m.Enum.NonStrict = true
		m.Enum.AllowedValues = allowed
	}
}

func Eager() MemberOption {
	return func(m *Member) {
		if m.Relation != nil {
			m.Relation.Fetch = FetchEager
		}
	}
}

func WithJoinTable() MemberOption {
	return func(m *Member) {
		if m.Relation != nil {
			m.Relation.JoinTable = true
		}
	}
}

// Relation overrides the association kind, e.g. OneToOne or ManyToMany
func Relation(kind RelationKind, target string) MemberOption {
	return func(m *Member) {
		m.Relation = &RelationSpec{Kind: kind, Target: target}
		if kind == RelationOneToMany || kind == RelationManyToMany {
			m.Type = TypeCollection
		} else {
			m.Type = TypeEntity
		}
	}
}

// FieldType overrides the inferred remote type
func FieldType(t constants.FieldType) MemberOption {
	return func(m *Member) { custom(m).Type = t }
}

// CustomName sets the remote field name via the custom field annotation
func CustomName(name string) MemberOption {
	return func(m *Member) { custom(m).Name = name }
}

func ExternalID() MemberOption {
	return func(m *Member) { custom(m).ExternalID = true }
}

func Formula(expr string) MemberOption {
	return func(m *Member) { custom(m).Formula = expr }
}

func StartValue(v int) MemberOption {
	return func(m *Member) { custom(m).StartValue = &v }
}

func DisplayFormat(format string) MemberOption {
	return func(m *Member) { custom(m).DisplayFormat = format }
}

func PicklistValues(values ...string) MemberOption {
	return func(m *Member) { custom(m).PicklistValues = values }
}

func ChildRelationshipName(name string) MemberOption {
	return func(m *Member) { custom(m).ChildRelationshipName = name }
}

func Label(label string) MemberOption {
	return func(m *Member) { custom(m).Label = label }
}

func Description(text string) MemberOption {
	return func(m *Member) { custom(m).Description = text }
}
