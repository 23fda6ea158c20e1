package services

import (
	"strings"

	"github.com/nexuscrm/forcemapper/internal/domain/schema"
	"github.com/nexuscrm/forcemapper/pkg/errors"
)

// validateEntity rejects entity-level constructs the remote store cannot express
func validateEntity(entity *schema.Entity) error {
	switch entity.RootInheritance() {
	case schema.InheritanceJoined, schema.InheritanceTablePerClass:
		return errors.NewConfigurationError(entity.Name, "",
			"only single-table inheritance is supported")
	}
	if len(entity.SecondaryTables) > 0 {
		return errors.NewConfigurationError(entity.Name, "",
			"secondary tables are not supported: %s", strings.Join(entity.SecondaryTables, ", "))
	}
	if entity.IDClass {
		return errors.NewConfigurationError(entity.Name, "",
			"composite primary keys are not supported")
	}
	if entity.Embeddable && entity.TableName != "" {
		return errors.NewConfigurationError(entity.Name, "",
			"embeddable types cannot declare their own table")
	}
	return nil
}

// validateMember rejects member-level constructs the remote store cannot express
func validateMember(entity *schema.Entity, m *schema.Member) error {
	fail := func(format string, args ...interface{}) error {
		return errors.NewConfigurationError(entity.Name, m.Name, format, args...)
	}

	if m.ID {
		if m.EmbeddedID {
			return fail("composite primary keys are not supported")
		}
		if m.Type != schema.TypeString {
			return fail("primary keys must be of type String, got %s", m.Type)
		}
	}

	if m.Column != nil {
		if m.Column.Table != "" {
			return fail("columns cannot be placed on another table (%s)", m.Column.Table)
		}
		if strings.EqualFold(m.Column.Definition, "CLOB") {
			return fail("CLOB columns are not supported")
		}
	}

	if m.Type == schema.TypeEmbedded {
		if m.Embedded == nil {
			return fail("embedded member has no embeddable type")
		}
		if m.Embedded.TableName != "" {
			return fail("embeddable type %s cannot declare its own table", m.Embedded.Name)
		}
	}

	if m.Type == schema.TypeEntity && m.Relation == nil {
		return fail("entity-valued member needs a relationship declaration")
	}

	if rel := m.Relation; rel != nil {
		switch rel.Kind {
		case schema.RelationOneToOne:
			return fail("one-to-one relationships are not supported")
		case schema.RelationManyToMany:
			return fail("many-to-many relationships are not supported")
		case schema.RelationOneToMany:
			if rel.MappedBy == "" {
				return fail("one-to-many relationships must declare mappedBy")
			}
			if rel.Fetch == schema.FetchEager {
				return fail("one-to-many relationships cannot be fetched eagerly")
			}
		}
		if rel.JoinTable {
			return fail("join tables are not supported")
		}
		if rel.Target == "" {
			return fail("relationship has no target entity")
		}
	}

	if e := m.Enum; e != nil && e.NonStrict {
		if e.Type == schema.EnumOrdinal {
			return fail("non-strict picklists cannot use ordinal enums")
		}
		if len(e.AllowedValues) == 0 {
			return fail("non-strict picklists must declare their allowed values")
		}
	}

	return nil
}

// persistableMembers returns the entity's members with embedded value types
// expanded in place
func persistableMembers(entity *schema.Entity) ([]schema.Member, error) {
	var out []schema.Member
	for _, m := range entity.AllMembers() {
		if m.Type != schema.TypeEmbedded {
			out = append(out, m)
			continue
		}
		if err := validateMember(entity, &m); err != nil {
			return nil, err
		}
		nested, err := persistableMembers(m.Embedded)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}
