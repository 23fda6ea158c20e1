package schema

import (
	"strings"

	"github.com/nexuscrm/forcemapper/pkg/constants"
)

// JavaType is the declared type of an entity member
type JavaType int

const (
	TypeString JavaType = iota
	TypeInt
	TypeLong
	TypeShort
	TypeDouble
	TypeFloat
	TypeBigInteger
	TypeBigDecimal
	TypeBoolean
	TypeDate
	TypeDateTime
	TypeEnum
	TypeEnumArray
	TypeURL
	TypeBytes
	TypeEntity
	TypeCollection
	TypeMap
	TypeEmbedded
)

var javaTypeNames = map[JavaType]string{
	TypeString:     "String",
	TypeInt:        "int",
	TypeLong:       "long",
	TypeShort:      "short",
	TypeDouble:     "double",
	TypeFloat:      "float",
	TypeBigInteger: "BigInteger",
	TypeBigDecimal: "BigDecimal",
	TypeBoolean:    "boolean",
	TypeDate:       "Date",
	TypeDateTime:   "DateTime",
	TypeEnum:       "enum",
	TypeEnumArray:  "enum[]",
	TypeURL:        "URL",
	TypeBytes:      "byte[]",
	TypeEntity:     "entity",
	TypeCollection: "Collection",
	TypeMap:        "Map",
	TypeEmbedded:   "embedded",
}

func (t JavaType) String() string {
	if name, ok := javaTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseJavaType looks a type up by its declared name, ignoring case
func ParseJavaType(name string) (JavaType, bool) {
	for t, n := range javaTypeNames {
		if strings.EqualFold(n, name) {
			return t, true
		}
	}
	return 0, false
}

// IsNumeric reports whether the type maps onto a Number field
func (t JavaType) IsNumeric() bool {
	switch t {
	case TypeInt, TypeLong, TypeShort, TypeDouble, TypeFloat, TypeBigInteger, TypeBigDecimal:
		return true
	}
	return false
}

// InheritanceType mirrors the JPA inheritance strategies
type InheritanceType int

const (
	InheritanceNone InheritanceType = iota
	InheritanceSingleTable
	InheritanceJoined
	InheritanceTablePerClass
)

// FetchType of a relationship
type FetchType int

const (
	FetchLazy FetchType = iota
	FetchEager
)

// EnumType selects how enum constants become picklist values.
// Ordinal is the zero value, matching the JPA default.
type EnumType int

const (
	EnumOrdinal EnumType = iota
	EnumString
)

// TemporalType narrows a Date member
type TemporalType int

const (
	TemporalNone TemporalType = iota
	TemporalDate
	TemporalTimestamp
)

// RelationKind of an association member
type RelationKind int

const (
	RelationNone RelationKind = iota
	RelationManyToOne
	RelationOneToMany
	RelationOneToOne
	RelationManyToMany
)

// ColumnSpec is the @Column analogue
type ColumnSpec struct {
	Name       string
	Table      string
	Definition string // JDBC type hint, e.g. "VARCHAR", "DECIMAL", "CLOB"
	Length     int
	Precision  int
	Scale      int
	NotNull    bool
	Unique     bool
}

// EnumSpec describes an enum member's constants and picklist semantics
type EnumSpec struct {
	Type      EnumType
	Constants []string
	// NonStrict picklists accept values outside the enum; they must list
	// the allowed values explicitly.
	NonStrict     bool
	AllowedValues []string
}

// RelationSpec describes an association member
type RelationSpec struct {
	Kind      RelationKind
	Target    string
	MappedBy  string
	Fetch     FetchType
	JoinTable bool
}

// CustomFieldSpec carries remote-specific field settings
type CustomFieldSpec struct {
	Name                  string
	Type                  constants.FieldType
	Label                 string
	Description           string
	Length                int
	Precision             int
	Scale                 int
	VisibleLines          int
	Formula               string
	ExternalID            bool
	Unique                bool
	Required              bool
	StartValue            *int
	DisplayFormat         string
	ChildRelationshipName string
	PicklistValues        []string
}

// Member is one declared field of an entity
type Member struct {
	Name       string
	Type       JavaType
	ID         bool
	EmbeddedID bool
	Transient  bool
	Lob        bool
	Temporal   TemporalType
	Column     *ColumnSpec
	Enum       *EnumSpec
	Relation   *RelationSpec
	Embedded   *Entity
	Custom     *CustomFieldSpec
}

// ExplicitName returns the remote name given by a naming annotation, if any
func (m *Member) ExplicitName() string {
	if m.Custom != nil && m.Custom.Name != "" {
		return m.Custom.Name
	}
	if m.Column != nil && m.Column.Name != "" {
		return m.Column.Name
	}
	return ""
}

// IsToMany reports whether the member is a collection-valued association
func (m *Member) IsToMany() bool {
	return m.Type == TypeCollection || m.Type == TypeMap ||
		(m.Relation != nil && (m.Relation.Kind == RelationOneToMany || m.Relation.Kind == RelationManyToMany))
}

// Entity is the declarative description of a persistent class
type Entity struct {
	Name             string
	TableName        string
	Inheritance      InheritanceType
	Superclass       *Entity
	MappedSuperclass bool
	Embeddable       bool
	Virtual          bool
	ReadOnlySchema   bool
	IDClass          bool
	SecondaryTables  []string
	Members          []Member
}

// DeclaredTableName returns the explicit table name of the entity, walking up
// single-table hierarchies and mapped superclasses.
func (e *Entity) DeclaredTableName() string {
	for cur := e; cur != nil; cur = cur.Superclass {
		if cur.TableName != "" {
			return cur.TableName
		}
		if cur.Superclass == nil {
			break
		}
		if !cur.Superclass.MappedSuperclass && cur.Superclass.RootInheritance() != InheritanceSingleTable {
			break
		}
	}
	return ""
}

// RootInheritance returns the inheritance strategy declared at the hierarchy root
func (e *Entity) RootInheritance() InheritanceType {
	return e.root().Inheritance
}

// TableOwner returns the entity whose name identifies the table: the
// hierarchy root under single-table inheritance, the entity itself otherwise.
func (e *Entity) TableOwner() *Entity {
	if root := e.root(); root.Inheritance == InheritanceSingleTable {
		return root
	}
	return e
}

// root skips mapped superclasses, which never own a table
func (e *Entity) root() *Entity {
	root := e
	for root.Superclass != nil && !root.Superclass.MappedSuperclass {
		root = root.Superclass
	}
	return root
}

// AllMembers returns inherited members first, then the entity's own members.
// Transient members are dropped.
func (e *Entity) AllMembers() []Member {
	var chain []*Entity
	for cur := e; cur != nil; cur = cur.Superclass {
		chain = append([]*Entity{cur}, chain...)
	}

	var members []Member
	for _, ent := range chain {
		for _, m := range ent.Members {
			if m.Transient {
				continue
			}
			members = append(members, m)
		}
	}
	return members
}

// Member looks up a member by its Java name, including inherited ones
func (e *Entity) Member(name string) (Member, bool) {
	for _, m := range e.AllMembers() {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}
