package constants

import "time"

// Metadata API settings
const (
	DefaultAPIVersion = "59.0"
	MetadataNamespace = "http://soap.sforce.com/2006/04/metadata"
	PartnerNamespace  = "urn:partner.soap.sforce.com"

	// MaxDescribeBatch is the largest number of names a single describeSObjects accepts
	MaxDescribeBatch = 100
)

// Deploy polling curve
const (
	DeployPollInitial    = 500 * time.Millisecond
	DeployPollMultiplier = 1.5
	DeployPollMax        = 30 * time.Second
)

// Remote fault codes that mean "not there yet"
const (
	FaultInvalidType  = "INVALID_TYPE"
	FaultInvalidField = "INVALID_FIELD"
	FaultNotFound     = "NOT_FOUND"
)

// Deploy package file names
const (
	PackageManifest     = "package.xml"
	DestructiveManifest = "destructiveChanges.xml"
	ObjectsDir          = "objects"
	ObjectFileExtension = ".object"
	MetadataTypeObject  = "CustomObject"
	MetadataTypeField   = "CustomField"
)
