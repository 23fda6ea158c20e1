// Package modelfile reads entity declarations from YAML.
//
//	entities:
//	  - name: Widget
//	    members:
//	      - {name: id, type: id}
//	      - {name: sku, type: String, externalId: true}
//	      - {name: category, type: entity, target: Category}
package modelfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nexuscrm/forcemapper/internal/domain/schema"
	"github.com/nexuscrm/forcemapper/pkg/constants"
	"github.com/nexuscrm/forcemapper/pkg/errors"
	"gopkg.in/yaml.v3"
)

// File is the document root
type File struct {
	Entities []EntityDef `yaml:"entities"`
}

// EntityDef declares one entity
type EntityDef struct {
	Name             string      `yaml:"name"`
	Table            string      `yaml:"table"`
	Extends          string      `yaml:"extends"`
	Inheritance      string      `yaml:"inheritance"`
	MappedSuperclass bool        `yaml:"mappedSuperclass"`
	Embeddable       bool        `yaml:"embeddable"`
	Virtual          bool        `yaml:"virtual"`
	ReadOnlySchema   bool        `yaml:"readOnlySchema"`
	SecondaryTables  []string    `yaml:"secondaryTables"`
	Members          []MemberDef `yaml:"members"`
}

// MemberDef declares one member
type MemberDef struct {
	Name string `yaml:"name"`
	// Type is a declared type name (String, int, BigDecimal, enum, ...), or
	// id, entity, collection, embedded
	Type      string `yaml:"type"`
	Target    string `yaml:"target"`
	MappedBy  string `yaml:"mappedBy"`
	Relation  string `yaml:"relation"`
	Eager     bool   `yaml:"eager"`
	Embedded  string `yaml:"embedded"`
	Transient bool   `yaml:"transient"`
	Lob       bool   `yaml:"lob"`
	Temporal  string `yaml:"temporal"`

	Column     string `yaml:"column"`
	ColumnType string `yaml:"columnDefinition"`
	NotNull    bool   `yaml:"notNull"`
	Unique     bool   `yaml:"unique"`
	Length     int    `yaml:"length"`
	Precision  int    `yaml:"precision"`
	Scale      int    `yaml:"scale"`

	Values     []string `yaml:"values"`
	Enumerated string   `yaml:"enumerated"`
	NonStrict  []string `yaml:"nonStrict"`

	FieldName     string   `yaml:"fieldName"`
	FieldType     string   `yaml:"fieldType"`
	Label         string   `yaml:"label"`
	Description   string   `yaml:"description"`
	ExternalID    bool     `yaml:"externalId"`
	Formula       string   `yaml:"formula"`
	StartValue    *int     `yaml:"startValue"`
	DisplayFormat string   `yaml:"displayFormat"`
	Picklist      []string `yaml:"picklist"`
	ChildName     string   `yaml:"childRelationshipName"`
}

var inheritanceNames = map[string]schema.InheritanceType{
	"":                schema.InheritanceNone,
	"single_table":    schema.InheritanceSingleTable,
	"joined":          schema.InheritanceJoined,
	"table_per_class": schema.InheritanceTablePerClass,
}

var relationNames = map[string]schema.RelationKind{
	"many_to_one":  schema.RelationManyToOne,
	"one_to_many":  schema.RelationOneToMany,
	"one_to_one":   schema.RelationOneToOne,
	"many_to_many": schema.RelationManyToMany,
}

// LoadFile reads and resolves a model file
func LoadFile(path string) ([]*schema.Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(bytes.NewReader(data))
}

// Load decodes a model document. Unknown keys are rejected. Entities are
// returned in document order with superclass and embedded references resolved.
func Load(r io.Reader) ([]*schema.Entity, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, errors.NewValidationError("model", err.Error())
	}

	l := &loader{defs: map[string]*EntityDef{}, built: map[string]*schema.Entity{}, building: map[string]bool{}}
	for i := range file.Entities {
		def := &file.Entities[i]
		if def.Name == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("entities[%d].name", i), "entity name is required")
		}
		key := strings.ToLower(def.Name)
		if _, dup := l.defs[key]; dup {
			return nil, errors.NewValidationError(def.Name, "entity declared twice")
		}
		l.defs[key] = def
	}

	out := make([]*schema.Entity, 0, len(file.Entities))
	for i := range file.Entities {
		e, err := l.entity(file.Entities[i].Name)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

type loader struct {
	defs     map[string]*EntityDef
	built    map[string]*schema.Entity
	building map[string]bool
}

func (l *loader) entity(name string) (*schema.Entity, error) {
	key := strings.ToLower(name)
	if e, ok := l.built[key]; ok {
		return e, nil
	}
	def, ok := l.defs[key]
	if !ok {
		return nil, errors.NewValidationError(name, "unknown entity")
	}
	if l.building[key] {
		return nil, errors.NewValidationError(name, "entity references itself through extends or embedded")
	}
	l.building[key] = true
	defer delete(l.building, key)

	inheritance, ok := inheritanceNames[strings.ToLower(def.Inheritance)]
	if !ok {
		return nil, errors.NewValidationError(def.Name+".inheritance", fmt.Sprintf("unknown strategy %q", def.Inheritance))
	}

	b := schema.NewEntity(def.Name).Inheritance(inheritance)
	if def.Table != "" {
		b.Table(def.Table)
	}
	if def.Extends != "" {
		parent, err := l.entity(def.Extends)
		if err != nil {
			return nil, err
		}
		b.Extends(parent)
	}
	if def.MappedSuperclass {
		b.MappedSuperclass()
	}
	if def.Embeddable {
		b.Embeddable()
	}
	if def.Virtual {
		b.Virtual()
	}
	if def.ReadOnlySchema {
		b.ReadOnlySchema()
	}
	for _, t := range def.SecondaryTables {
		b.SecondaryTable(t)
	}

	for _, m := range def.Members {
		if err := l.member(b, def.Name, m); err != nil {
			return nil, err
		}
	}

	e := b.Build()
	l.built[key] = e
	return e, nil
}

func (l *loader) member(b *schema.EntityBuilder, entity string, m MemberDef) error {
	path := entity + "." + m.Name
	if m.Name == "" {
		return errors.NewValidationError(entity, "member name is required")
	}

	opts, err := memberOptions(path, m)
	if err != nil {
		return err
	}

	switch strings.ToLower(m.Type) {
	case "id":
		b.ID(m.Name, opts...)
	case "entity":
		if m.Target == "" {
			return errors.NewValidationError(path, "entity members need a target")
		}
		b.ManyToOne(m.Name, m.Target, opts...)
	case "collection":
		if m.Target == "" {
			return errors.NewValidationError(path, "collection members need a target")
		}
		b.OneToMany(m.Name, m.Target, m.MappedBy, opts...)
	case "embedded":
		value, err := l.entity(m.Embedded)
		if err != nil {
			return err
		}
		b.Embedded(m.Name, value, opts...)
	case "enum":
		b.Enum(m.Name, m.Values, opts...)
	case "enum[]":
		b.EnumArray(m.Name, m.Values, opts...)
	default:
		t, ok := schema.ParseJavaType(m.Type)
		if !ok {
			return errors.NewValidationError(path, fmt.Sprintf("unknown type %q", m.Type))
		}
		b.Field(m.Name, t, opts...)
	}
	return nil
}

func memberOptions(path string, m MemberDef) ([]schema.MemberOption, error) {
	var opts []schema.MemberOption
	add := func(cond bool, opt schema.MemberOption) {
		if cond {
			opts = append(opts, opt)
		}
	}

	// Relation overrides must come first; later options refine the relation it creates
	if m.Relation != "" {
		kind, ok := relationNames[strings.ToLower(m.Relation)]
		if !ok {
			return nil, errors.NewValidationError(path, fmt.Sprintf("unknown relation %q", m.Relation))
		}
		opts = append(opts, schema.Relation(kind, m.Target))
	}

	add(m.Eager, schema.Eager())
	add(m.Transient, schema.Transient())
	add(m.Lob, schema.Lob())
	switch strings.ToLower(m.Temporal) {
	case "":
	case "date":
		opts = append(opts, schema.Temporal(schema.TemporalDate))
	case "timestamp":
		opts = append(opts, schema.Temporal(schema.TemporalTimestamp))
	default:
		return nil, errors.NewValidationError(path, fmt.Sprintf("unknown temporal type %q", m.Temporal))
	}

	add(m.Column != "", schema.Named(m.Column))
	add(m.ColumnType != "", schema.ColumnDefinition(m.ColumnType))
	add(m.NotNull, schema.NotNull())
	add(m.Unique, schema.Unique())
	add(m.Length > 0, schema.Length(m.Length))
	add(m.Precision > 0 || m.Scale > 0, schema.Precision(m.Precision, m.Scale))

	switch strings.ToLower(m.Enumerated) {
	case "", "ordinal":
	case "string":
		opts = append(opts, schema.Enumerated(schema.EnumString))
	default:
		return nil, errors.NewValidationError(path, fmt.Sprintf("unknown enum strategy %q", m.Enumerated))
	}
	add(m.NonStrict != nil, schema.NonStrictPicklist(m.NonStrict...))

	add(m.FieldName != "", schema.CustomName(m.FieldName))
	add(m.FieldType != "", schema.FieldType(constants.FieldType(m.FieldType)))
	add(m.Label != "", schema.Label(m.Label))
	add(m.Description != "", schema.Description(m.Description))
	add(m.ExternalID, schema.ExternalID())
	add(m.Formula != "", schema.Formula(m.Formula))
	if m.StartValue != nil {
		opts = append(opts, schema.StartValue(*m.StartValue))
	}
	add(m.DisplayFormat != "", schema.DisplayFormat(m.DisplayFormat))
	add(len(m.Picklist) > 0, schema.PicklistValues(m.Picklist...))
	add(m.ChildName != "", schema.ChildRelationshipName(m.ChildName))
	return opts, nil
}
