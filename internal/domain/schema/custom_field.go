package schema

import (
	"encoding/xml"

	"github.com/nexuscrm/forcemapper/pkg/constants"
)

// CustomField is a field-creation request: a field declared in code that is
// missing remotely. It lives between drift detection and deploy submission.
type CustomField struct {
	Object string `xml:"-"`

	FullName          string              `xml:"fullName"`
	Label             string              `xml:"label,omitempty"`
	Description       string              `xml:"description,omitempty"`
	Type              constants.FieldType `xml:"type"`
	Length            int                 `xml:"length,omitempty"`
	Precision         int                 `xml:"precision,omitempty"`
	Scale             *int                `xml:"scale,omitempty"`
	VisibleLines      int                 `xml:"visibleLines,omitempty"`
	Required          bool                `xml:"required,omitempty"`
	Unique            bool                `xml:"unique,omitempty"`
	ExternalID        bool                `xml:"externalId,omitempty"`
	Formula           string              `xml:"formula,omitempty"`
	ReferenceTo       string              `xml:"referenceTo,omitempty"`
	RelationshipName  string              `xml:"relationshipName,omitempty"`
	RelationshipLabel string              `xml:"relationshipLabel,omitempty"`
	DeleteConstraint  string              `xml:"deleteConstraint,omitempty"`
	StartingNumber    *int                `xml:"startingNumber,omitempty"`
	DisplayFormat     string              `xml:"displayFormat,omitempty"`
	DefaultValue      string              `xml:"defaultValue,omitempty"`
	ValueSet          *ValueSet           `xml:"valueSet,omitempty"`
}

// QualifiedName is the Object.field form used in package manifests
func (f *CustomField) QualifiedName() string {
	return f.Object + "." + f.FullName
}

// PicklistLabels returns the picklist values in declaration order
func (f *CustomField) PicklistLabels() []string {
	if f.ValueSet == nil {
		return nil
	}
	values := make([]string, 0, len(f.ValueSet.Definition.Values))
	for _, v := range f.ValueSet.Definition.Values {
		values = append(values, v.FullName)
	}
	return values
}

// ValueSet holds picklist values
type ValueSet struct {
	Restricted bool               `xml:"restricted,omitempty"`
	Definition ValueSetDefinition `xml:"valueSetDefinition"`
}

// ValueSetDefinition lists picklist values
type ValueSetDefinition struct {
	Sorted bool            `xml:"sorted"`
	Values []PicklistValue `xml:"value"`
}

// PicklistValue is a single picklist entry
type PicklistValue struct {
	FullName string `xml:"fullName"`
	Default  bool   `xml:"default"`
	Label    string `xml:"label"`
}

// NewValueSet builds a value set from plain strings
func NewValueSet(values []string, restricted bool) *ValueSet {
	vs := &ValueSet{Restricted: restricted}
	for _, v := range values {
		vs.Definition.Values = append(vs.Definition.Values, PicklistValue{FullName: v, Label: v})
	}
	return vs
}

// CustomObject is an object-creation (or deletion) request
type CustomObject struct {
	XMLName xml.Name `xml:"http://soap.sforce.com/2006/04/metadata CustomObject"`

	FullName         string         `xml:"-"`
	Label            string         `xml:"label,omitempty"`
	PluralLabel      string         `xml:"pluralLabel,omitempty"`
	Description      string         `xml:"description,omitempty"`
	DeploymentStatus string         `xml:"deploymentStatus,omitempty"`
	SharingModel     string         `xml:"sharingModel,omitempty"`
	NameField        *CustomField   `xml:"nameField,omitempty"`
	Fields           []*CustomField `xml:"fields"`
}

// Marshal renders the object as a deployable .object file
func (o *CustomObject) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(o, "", "    ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// UnmarshalCustomObject parses a .object file
func UnmarshalCustomObject(fullName string, data []byte) (*CustomObject, error) {
	obj := &CustomObject{}
	if err := xml.Unmarshal(data, obj); err != nil {
		return nil, err
	}
	obj.FullName = fullName
	for _, f := range obj.Fields {
		f.Object = fullName
	}
	return obj, nil
}
