package constants

import "strings"

// FieldType is the remote store's field type as reported by describe and
// accepted by the metadata API.
type FieldType string

const (
	FieldTypeText                FieldType = "Text"
	FieldTypeTextArea            FieldType = "TextArea"
	FieldTypeLongTextArea        FieldType = "LongTextArea"
	FieldTypeHTML                FieldType = "Html"
	FieldTypeNumber              FieldType = "Number"
	FieldTypeCurrency            FieldType = "Currency"
	FieldTypePercent             FieldType = "Percent"
	FieldTypeDate                FieldType = "Date"
	FieldTypeDateTime            FieldType = "DateTime"
	FieldTypeCheckbox            FieldType = "Checkbox"
	FieldTypePicklist            FieldType = "Picklist"
	FieldTypeMultiselectPicklist FieldType = "MultiselectPicklist"
	FieldTypeLookup              FieldType = "Lookup"
	FieldTypeMasterDetail        FieldType = "MasterDetail"
	FieldTypeURL                 FieldType = "Url"
	FieldTypeEmail               FieldType = "Email"
	FieldTypePhone               FieldType = "Phone"
	FieldTypeAutoNumber          FieldType = "AutoNumber"
	FieldTypeReference           FieldType = "reference"
	FieldTypeID                  FieldType = "id"
)

// describeTypes maps the lower-case type names emitted by describe calls onto
// metadata field types.
var describeTypes = map[string]FieldType{
	"string":        FieldTypeText,
	"textarea":      FieldTypeTextArea,
	"double":        FieldTypeNumber,
	"int":           FieldTypeNumber,
	"currency":      FieldTypeCurrency,
	"percent":       FieldTypePercent,
	"date":          FieldTypeDate,
	"datetime":      FieldTypeDateTime,
	"boolean":       FieldTypeCheckbox,
	"picklist":      FieldTypePicklist,
	"multipicklist": FieldTypeMultiselectPicklist,
	"reference":     FieldTypeReference,
	"url":           FieldTypeURL,
	"email":         FieldTypeEmail,
	"phone":         FieldTypePhone,
	"id":            FieldTypeID,
}

// FieldTypeFromDescribe converts a describe type name. Unknown names are kept verbatim.
func FieldTypeFromDescribe(name string) FieldType {
	if ft, ok := describeTypes[strings.ToLower(name)]; ok {
		return ft
	}
	return FieldType(name)
}

// IsRelationship reports whether the type points at another object
func (ft FieldType) IsRelationship() bool {
	return ft == FieldTypeLookup || ft == FieldTypeMasterDetail || ft == FieldTypeReference
}

// IsPicklist reports whether the type carries picklist values
func (ft FieldType) IsPicklist() bool {
	return ft == FieldTypePicklist || ft == FieldTypeMultiselectPicklist
}

// IsNumeric reports whether precision and scale apply
func (ft FieldType) IsNumeric() bool {
	return ft == FieldTypeNumber || ft == FieldTypeCurrency || ft == FieldTypePercent
}

// SharingModel represents object-level sharing model
type SharingModel string

const (
	SharingModelPrivate         SharingModel = "Private"
	SharingModelPublicRead      SharingModel = "Read"
	SharingModelPublicReadWrite SharingModel = "ReadWrite"
	SharingModelControlledBy    SharingModel = "ControlledByParent"
)

// DeploymentStatus of a custom object definition
const DeploymentStatusDeployed = "Deployed"
