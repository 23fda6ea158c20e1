package constants

import "strings"

// Standard field names present on every remote object. They are never
// treated as missing and never created.
const (
	FieldID                = "Id"
	FieldName              = "Name"
	FieldOwnerID           = "OwnerId"
	FieldCreatedDate       = "CreatedDate"
	FieldCreatedByID       = "CreatedById"
	FieldLastModifiedDate  = "LastModifiedDate"
	FieldLastModifiedByID  = "LastModifiedById"
	FieldSystemModstamp    = "SystemModstamp"
	FieldIsDeleted         = "IsDeleted"
	FieldLastActivityDate  = "LastActivityDate"
	FieldLastViewedDate    = "LastViewedDate"
	FieldLastReferenceDate = "LastReferencedDate"
	FieldRecordTypeID      = "RecordTypeId"
	FieldCurrencyIsoCode   = "CurrencyIsoCode"
)

var standardFields = map[string]string{}

func init() {
	for _, f := range StandardSystemFields() {
		standardFields[strings.ToLower(f)] = f
	}
	// Java-side aliases for the relationship form of the audit fields
	standardFields["owner"] = FieldOwnerID
	standardFields["createdby"] = FieldCreatedByID
	standardFields["lastmodifiedby"] = FieldLastModifiedByID
}

// StandardSystemFields returns the built-in fields present on every object
func StandardSystemFields() []string {
	return []string{
		FieldID,
		FieldName,
		FieldOwnerID,
		FieldCreatedDate,
		FieldCreatedByID,
		FieldLastModifiedDate,
		FieldLastModifiedByID,
		FieldSystemModstamp,
		FieldIsDeleted,
		FieldLastActivityDate,
		FieldLastViewedDate,
		FieldLastReferenceDate,
		FieldRecordTypeID,
		FieldCurrencyIsoCode,
	}
}

// IsStandardField checks case-insensitively if a name is a built-in field
func IsStandardField(name string) bool {
	_, ok := standardFields[strings.ToLower(name)]
	return ok
}

// StandardFieldName returns the canonical spelling of a built-in field
func StandardFieldName(name string) (string, bool) {
	f, ok := standardFields[strings.ToLower(name)]
	return f, ok
}
