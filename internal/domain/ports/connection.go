package ports

import (
	"context"
)

// Connection is the remote metadata transport capability.
type Connection interface {
	// DescribeSObject returns the field and child relationship inventory of one object.
	DescribeSObject(ctx context.Context, name string) (*DescribeSObjectResult, error)

	// DescribeSObjects describes up to constants.MaxDescribeBatch objects in one call.
	DescribeSObjects(ctx context.Context, names []string) ([]*DescribeSObjectResult, error)

	// Deploy submits a zipped metadata package and returns the async job handle.
	Deploy(ctx context.Context, zipFile []byte, opts DeployOptions) (*AsyncResult, error)

	// CheckStatus reports the progress of async jobs.
	CheckStatus(ctx context.Context, ids []string) ([]*AsyncResult, error)

	// CheckDeployStatus returns the per-item outcome of a finished deploy.
	CheckDeployStatus(ctx context.Context, id string) (*DeployResult, error)
}

// ConnectionProvider hands out scoped connections. The release func must be
// called once the caller is done, even on failure.
type ConnectionProvider interface {
	Acquire(ctx context.Context) (Connection, func(), error)
}

// ProviderFunc adapts a function to ConnectionProvider
type ProviderFunc func(ctx context.Context) (Connection, func(), error)

func (f ProviderFunc) Acquire(ctx context.Context) (Connection, func(), error) {
	return f(ctx)
}

// StaticProvider always returns the same connection with a no-op release
func StaticProvider(conn Connection) ConnectionProvider {
	return ProviderFunc(func(ctx context.Context) (Connection, func(), error) {
		return conn, func() {}, nil
	})
}

// DescribeField is one field entry of a describe result
type DescribeField struct {
	Name             string   `json:"name"`
	Label            string   `json:"label"`
	Type             string   `json:"type"`
	Custom           bool     `json:"custom"`
	ExternalID       bool     `json:"externalId"`
	Nillable         bool     `json:"nillable"`
	Unique           bool     `json:"unique"`
	Length           int      `json:"length"`
	Precision        int      `json:"precision"`
	Scale            int      `json:"scale"`
	ReferenceTo      []string `json:"referenceTo,omitempty"`
	RelationshipName string   `json:"relationshipName,omitempty"`
	PicklistValues   []string `json:"picklistValues,omitempty"`
}

// ChildRelationship is a reverse relationship reported on the parent object
type ChildRelationship struct {
	ChildSObject     string `json:"childSObject"`
	Field            string `json:"field"`
	RelationshipName string `json:"relationshipName"`
	CascadeDelete    bool   `json:"cascadeDelete"`
}

// DescribeSObjectResult is the metadata of one remote object
type DescribeSObjectResult struct {
	Name               string              `json:"name"`
	Label              string              `json:"label"`
	Custom             bool                `json:"custom"`
	Fields             []DescribeField     `json:"fields"`
	ChildRelationships []ChildRelationship `json:"childRelationships"`
}

// DeployOptions tune a metadata deploy
type DeployOptions struct {
	RollbackOnError bool
	SinglePackage   bool
	PurgeOnDelete   bool
	CheckOnly       bool
	IgnoreWarnings  bool
}

// AsyncResult is the handle and progress of an async metadata job
type AsyncResult struct {
	ID         string
	Done       bool
	State      string
	StatusCode string
	Message    string
}

// DeployMessage is the outcome of one component in a deploy
type DeployMessage struct {
	FileName      string
	FullName      string
	ComponentType string
	Problem       string
	Success       bool
	Created       bool
	Deleted       bool
}

// DeployResult is the final report of a deploy job
type DeployResult struct {
	ID           string
	Done         bool
	Success      bool
	Status       string
	ErrorMessage string
	Messages     []DeployMessage
}

// Failures returns the unsuccessful messages
func (r *DeployResult) Failures() []DeployMessage {
	var failed []DeployMessage
	for _, m := range r.Messages {
		if !m.Success {
			failed = append(failed, m)
		}
	}
	return failed
}
