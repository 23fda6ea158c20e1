package services

import (
	"strings"

	"github.com/nexuscrm/forcemapper/internal/domain/schema"
	"github.com/nexuscrm/forcemapper/pkg/constants"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// fieldName is the wire name given to a member's field when it is created.
// target is the resolved table of a to-one relationship, nil otherwise.
func fieldName(m *schema.Member, target *schema.TableName) string {
	if explicit := m.ExplicitName(); explicit != "" {
		return explicit
	}
	if m.ID {
		return constants.FieldID
	}
	if std, ok := constants.StandardFieldName(m.Name); ok {
		return std
	}
	// Lookups into standard objects keep the bare member name
	if target != nil && !target.IsCustom() {
		return m.Name
	}
	return m.Name + constants.CustomSuffix
}

// fieldNameCandidates lists the wire names a member may carry remotely, most
// specific first. Used when no column has been registered for the member.
func fieldNameCandidates(m *schema.Member) []string {
	if explicit := m.ExplicitName(); explicit != "" {
		return []string{explicit}
	}
	if m.ID {
		return []string{constants.FieldID}
	}
	if std, ok := constants.StandardFieldName(m.Name); ok {
		return []string{std}
	}
	candidates := []string{m.Name + constants.CustomSuffix, m.Name}
	if m.Relation != nil && !m.IsToMany() {
		candidates = append(candidates, m.Name+"Id")
	}
	return candidates
}

// relationshipName derives the reverse relationship name of a lookup as
// <field>_<ChildTable>s, cut to the platform limit.
func relationshipName(m *schema.Member, child schema.TableName) string {
	if m.Custom != nil && m.Custom.ChildRelationshipName != "" {
		return m.Custom.ChildRelationshipName
	}
	name := m.Name + "_" + child.BaseName + "s"
	if len(name) > constants.MaxRelationshipNameLength {
		name = name[:constants.MaxRelationshipNameLength]
	}
	return strings.TrimRight(name, "_")
}

// labelFor turns a member or object name into a display label:
// "shippingAddress" -> "Shipping Address", "order_line" -> "Order Line"
func labelFor(name string) string {
	name = strings.TrimSuffix(name, constants.CustomSuffix)
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_':
			b.WriteRune(' ')
			continue
		case i > 0 && r >= 'A' && r <= 'Z' && name[i-1] != '_' && !(name[i-1] >= 'A' && name[i-1] <= 'Z'):
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return cases.Title(language.English).String(strings.Join(strings.Fields(b.String()), " "))
}

// pluralLabel is the naive English plural of a label
func pluralLabel(label string) string {
	switch {
	case strings.HasSuffix(label, "s"), strings.HasSuffix(label, "x"):
		return label + "es"
	case strings.HasSuffix(label, "y") && len(label) > 1 && !strings.ContainsRune("aeiou", rune(label[len(label)-2])):
		return label[:len(label)-1] + "ies"
	default:
		return label + "s"
	}
}

// relationshipLabel is the display label of the reverse relationship
func relationshipLabel(child schema.TableName) string {
	return pluralLabel(labelFor(child.BaseName))
}
