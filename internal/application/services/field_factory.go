package services

import (
	"strconv"
	"strings"

	"github.com/nexuscrm/forcemapper/internal/domain/schema"
	"github.com/nexuscrm/forcemapper/pkg/constants"
	"github.com/nexuscrm/forcemapper/pkg/errors"
)

// numericPrecision is the platform-standard precision and scale per Java type
var numericPrecision = map[schema.JavaType][2]int{
	schema.TypeInt:        {11, 0},
	schema.TypeLong:       {18, 0},
	schema.TypeDouble:     {16, 2},
	schema.TypeFloat:      {16, 2},
	schema.TypeShort:      {6, 0},
	schema.TypeBigInteger: {18, 0},
	schema.TypeBigDecimal: {16, 2},
}

// NumericPrecision returns the precision and scale generated for a numeric member type
func NumericPrecision(t schema.JavaType) (precision, scale int, ok bool) {
	p, ok := numericPrecision[t]
	return p[0], p[1], ok
}

// jdbcHints maps column definitions onto field types
var jdbcHints = map[string]constants.FieldType{
	"VARCHAR":     constants.FieldTypeText,
	"CHAR":        constants.FieldTypeText,
	"LONGVARCHAR": constants.FieldTypeLongTextArea,
	"TEXT":        constants.FieldTypeLongTextArea,
	"INTEGER":     constants.FieldTypeNumber,
	"BIGINT":      constants.FieldTypeNumber,
	"SMALLINT":    constants.FieldTypeNumber,
	"DECIMAL":     constants.FieldTypeNumber,
	"NUMERIC":     constants.FieldTypeNumber,
	"DOUBLE":      constants.FieldTypeNumber,
	"FLOAT":       constants.FieldTypeNumber,
	"BOOLEAN":     constants.FieldTypeCheckbox,
	"BIT":         constants.FieldTypeCheckbox,
	"DATE":        constants.FieldTypeDate,
	"TIMESTAMP":   constants.FieldTypeDateTime,
}

// inferFieldType picks the remote type: explicit override, then the column
// definition hint, then the Java type
func inferFieldType(m *schema.Member) (constants.FieldType, bool) {
	if m.Custom != nil && m.Custom.Type != "" {
		return m.Custom.Type, true
	}
	if m.Column != nil && m.Column.Definition != "" {
		def := strings.ToUpper(strings.TrimSpace(m.Column.Definition))
		if i := strings.IndexByte(def, '('); i > 0 {
			def = def[:i]
		}
		if ft, ok := jdbcHints[def]; ok {
			return ft, true
		}
	}

	switch m.Type {
	case schema.TypeString:
		if m.Lob {
			return constants.FieldTypeLongTextArea, true
		}
		return constants.FieldTypeText, true
	case schema.TypeInt, schema.TypeLong, schema.TypeShort, schema.TypeDouble,
		schema.TypeFloat, schema.TypeBigInteger, schema.TypeBigDecimal:
		return constants.FieldTypeNumber, true
	case schema.TypeBoolean:
		return constants.FieldTypeCheckbox, true
	case schema.TypeDate:
		if m.Temporal == schema.TemporalDate {
			return constants.FieldTypeDate, true
		}
		return constants.FieldTypeDateTime, true
	case schema.TypeDateTime:
		return constants.FieldTypeDateTime, true
	case schema.TypeEnum:
		return constants.FieldTypePicklist, true
	case schema.TypeEnumArray:
		return constants.FieldTypeMultiselectPicklist, true
	case schema.TypeURL:
		return constants.FieldTypeURL, true
	case schema.TypeBytes:
		return constants.FieldTypeLongTextArea, true
	case schema.TypeEntity:
		return constants.FieldTypeLookup, true
	}
	return "", false
}

// picklistValues returns the value set of a picklist member
func picklistValues(entity *schema.Entity, m *schema.Member) (*schema.ValueSet, error) {
	if m.Custom != nil && len(m.Custom.PicklistValues) > 0 {
		return schema.NewValueSet(m.Custom.PicklistValues, true), nil
	}
	if m.Enum == nil || len(m.Enum.Constants) == 0 {
		return nil, errors.NewConfigurationError(entity.Name, m.Name,
			"picklist fields need enum constants or explicit picklist values")
	}
	if m.Enum.NonStrict {
		return schema.NewValueSet(m.Enum.AllowedValues, false), nil
	}

	values := make([]string, len(m.Enum.Constants))
	for i, c := range m.Enum.Constants {
		if m.Enum.Type == schema.EnumOrdinal {
			values[i] = strconv.Itoa(i)
		} else {
			values[i] = c
		}
	}
	return schema.NewValueSet(values, true), nil
}

// buildCustomField turns a member into a field-creation request on owner.
// target is the resolved table of a to-one relationship, nil otherwise.
func buildCustomField(entity *schema.Entity, owner schema.TableName, m *schema.Member, target *schema.TableName) (*schema.CustomField, error) {
	fail := func(format string, args ...interface{}) error {
		return errors.NewConfigurationError(entity.Name, m.Name, format, args...).WithTable(owner.ForceAPIName())
	}

	fieldType, ok := inferFieldType(m)
	if !ok {
		return nil, fail("cannot map member of type %s to a remote field", m.Type)
	}

	cf := &schema.CustomField{
		Object:   owner.ForceAPIName(),
		FullName: fieldName(m, target),
		Label:    labelFor(m.Name),
		Type:     fieldType,
	}

	spec := m.Custom
	if spec == nil {
		spec = &schema.CustomFieldSpec{}
	}
	if spec.Label != "" {
		cf.Label = spec.Label
	}
	cf.Description = spec.Description
	cf.ExternalID = spec.ExternalID
	cf.Unique = spec.Unique || (m.Column != nil && m.Column.Unique)
	cf.Required = spec.Required || (m.Column != nil && m.Column.NotNull)
	cf.Formula = spec.Formula

	if spec.StartValue != nil && fieldType != constants.FieldTypeAutoNumber {
		return nil, fail("startValue is only allowed on AutoNumber fields, not %s", fieldType)
	}

	switch fieldType {
	case constants.FieldTypeText:
		cf.Length = firstPositive(spec.Length, columnLength(m), constants.DefaultTextLength)

	case constants.FieldTypeLongTextArea, constants.FieldTypeHTML:
		cf.Length = firstPositive(spec.Length, columnLength(m), constants.DefaultLongTextLength)
		cf.VisibleLines = firstPositive(spec.VisibleLines, constants.DefaultVisibleLines)

	case constants.FieldTypeNumber, constants.FieldTypeCurrency, constants.FieldTypePercent:
		precision, scale, _ := NumericPrecision(m.Type)
		if precision == 0 {
			precision, scale = 18, 0
		}
		if m.Column != nil && m.Column.Precision > 0 {
			precision, scale = m.Column.Precision, m.Column.Scale
		}
		if spec.Precision > 0 {
			precision, scale = spec.Precision, spec.Scale
		}
		cf.Precision = precision
		cf.Scale = &scale

	case constants.FieldTypePicklist, constants.FieldTypeMultiselectPicklist:
		vs, err := picklistValues(entity, m)
		if err != nil {
			return nil, err
		}
		cf.ValueSet = vs
		if fieldType == constants.FieldTypeMultiselectPicklist {
			cf.VisibleLines = firstPositive(spec.VisibleLines, constants.DefaultVisibleLines)
		}

	case constants.FieldTypeLookup, constants.FieldTypeMasterDetail:
		if target == nil {
			return nil, fail("%s fields need a relationship target", fieldType)
		}
		cf.ReferenceTo = target.ForceAPIName()
		cf.RelationshipName = relationshipName(m, owner)
		cf.RelationshipLabel = relationshipLabel(owner)
		if fieldType == constants.FieldTypeLookup {
			cf.DeleteConstraint = "SetNull"
			// Lookups cannot be required without restricting deletes
			if cf.Required {
				cf.DeleteConstraint = "Restrict"
			}
		} else {
			cf.Required = false
		}

	case constants.FieldTypeAutoNumber:
		cf.StartingNumber = spec.StartValue
		cf.DisplayFormat = spec.DisplayFormat
		if cf.DisplayFormat == "" {
			cf.DisplayFormat = "{0}"
		}
		cf.Required = false
		cf.Unique = false

	case constants.FieldTypeCheckbox:
		cf.DefaultValue = "false"
		cf.Required = false
	}

	if cf.Formula != "" {
		cf.Required = false
		cf.Unique = false
		cf.ExternalID = false
		cf.DefaultValue = ""
		cf.Length = 0
		cf.VisibleLines = 0
	}

	return cf, nil
}

func columnLength(m *schema.Member) int {
	if m.Column == nil {
		return 0
	}
	return m.Column.Length
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
