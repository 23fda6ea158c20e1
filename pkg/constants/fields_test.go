package constants

import (
	"testing"
)

func TestIsStandardField(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Id", true},
		{"id", true},
		{"NAME", true},
		{"ownerid", true},
		{"owner", true},
		{"systemmodstamp", true},
		{"sku__c", false},
		{"Category", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStandardField(tt.name); got != tt.want {
				t.Errorf("IsStandardField(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestFieldTypeFromDescribe(t *testing.T) {
	if got := FieldTypeFromDescribe("boolean"); got != FieldTypeCheckbox {
		t.Errorf("boolean mapped to %s", got)
	}
	if got := FieldTypeFromDescribe("Reference"); got != FieldTypeReference {
		t.Errorf("Reference mapped to %s", got)
	}
	if got := FieldTypeFromDescribe("location"); got != FieldType("location") {
		t.Errorf("unknown type not kept verbatim: %s", got)
	}
	if !FieldTypeLookup.IsRelationship() || FieldTypeText.IsRelationship() {
		t.Error("IsRelationship mismatch")
	}
}
