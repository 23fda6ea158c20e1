// Package memstore simulates a remote org in memory. It backs local runs of
// the CLI and the service tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/nexuscrm/forcemapper/internal/domain/ports"
	"github.com/nexuscrm/forcemapper/pkg/constants"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

// Error is the error class of the in-memory org
var Error = errs.Class("memstore")

// Stats counts the calls made against the org
type Stats struct {
	Describes     int
	BulkDescribes int
	Deploys       int
	StatusChecks  int
}

type object struct {
	name   string
	label  string
	custom bool
	fields []ports.DescribeField
	// parent-side relationship names of custom lookups, by lower field name
	childRel map[string]string
}

func (o *object) field(name string) (int, bool) {
	for i, f := range o.fields {
		if strings.EqualFold(f.Name, name) {
			return i, true
		}
	}
	return -1, false
}

func (o *object) clone() *object {
	cp := *o
	cp.fields = append([]ports.DescribeField(nil), o.fields...)
	cp.childRel = make(map[string]string, len(o.childRel))
	for k, v := range o.childRel {
		cp.childRel[k] = v
	}
	return &cp
}

type job struct {
	id     string
	polls  int
	result *ports.DeployResult
}

// Org is an in-memory remote store implementing ports.Connection
type Org struct {
	logger *zap.Logger

	mu             sync.Mutex
	objects        map[string]*object
	jobs           map[string]*job
	pollsUntilDone int
	failures       map[string]string
	stats          Stats
}

// New creates an org holding the standard Account, Contact and User objects
func New(logger *zap.Logger) *Org {
	o := &Org{
		logger:   logger,
		objects:  make(map[string]*object),
		jobs:     make(map[string]*job),
		failures: make(map[string]string),
	}
	for _, name := range []string{"Account", "Contact", "User"} {
		o.objects[strings.ToLower(name)] = &object{name: name, label: name, fields: standardFields()}
	}
	return o
}

func standardFields() []ports.DescribeField {
	return []ports.DescribeField{
		{Name: constants.FieldID, Label: "Record ID", Type: "id"},
		{Name: constants.FieldName, Label: "Name", Type: "string", Length: 80},
		{Name: constants.FieldOwnerID, Label: "Owner ID", Type: "reference", ReferenceTo: []string{"User"}, RelationshipName: "Owner"},
		{Name: constants.FieldCreatedDate, Label: "Created Date", Type: "datetime"},
		{Name: constants.FieldLastModifiedDate, Label: "Last Modified Date", Type: "datetime"},
		{Name: constants.FieldIsDeleted, Label: "Deleted", Type: "boolean"},
	}
}

// PutObject seeds an object. Standard fields are added when missing.
func (o *Org) PutObject(name string, fields ...ports.DescribeField) {
	o.mu.Lock()
	defer o.mu.Unlock()
	obj := &object{name: name, label: name, custom: isCustom(name)}
	obj.fields = append(obj.fields, fields...)
	for _, std := range standardFields() {
		if _, ok := obj.field(std.Name); !ok {
			obj.fields = append(obj.fields, std)
		}
	}
	o.objects[strings.ToLower(name)] = obj
}

// PutRawObject seeds an object with exactly the given fields
func (o *Org) PutRawObject(name string, fields ...ports.DescribeField) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[strings.ToLower(name)] = &object{name: name, label: name, custom: isCustom(name), fields: fields}
}

// HasObject reports whether an object exists
func (o *Org) HasObject(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.objects[strings.ToLower(name)]
	return ok
}

// SetPollsUntilDone makes deploy jobs report done only after n status checks
func (o *Org) SetPollsUntilDone(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pollsUntilDone = n
}

// FailComponent makes the deploy of a component (Object or Object.field) fail
func (o *Org) FailComponent(fullName, problem string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[strings.ToLower(fullName)] = problem
}

// Stats returns the call counters
func (o *Org) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// Acquire implements ports.ConnectionProvider
func (o *Org) Acquire(ctx context.Context) (ports.Connection, func(), error) {
	return o, func() {}, nil
}

func isCustom(name string) bool {
	return strings.Contains(name, constants.NameSeparator)
}

// DescribeSObject implements ports.Connection
func (o *Org) DescribeSObject(ctx context.Context, name string) (*ports.DescribeSObjectResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats.Describes++
	return o.describe(name)
}

// DescribeSObjects implements ports.Connection. Like the real service, one
// unknown name fails the whole call.
func (o *Org) DescribeSObjects(ctx context.Context, names []string) ([]*ports.DescribeSObjectResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(names) > constants.MaxDescribeBatch {
		return nil, Error.New("describeSObjects accepts at most %d names, got %d", constants.MaxDescribeBatch, len(names))
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats.BulkDescribes++

	results := make([]*ports.DescribeSObjectResult, 0, len(names))
	for _, name := range names {
		r, err := o.describe(name)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// describe must be called with the lock held
func (o *Org) describe(name string) (*ports.DescribeSObjectResult, error) {
	obj, ok := o.objects[strings.ToLower(name)]
	if !ok {
		return nil, ports.NewFault(constants.FaultInvalidType, "sObject type '%s' is not supported.", name)
	}

	result := &ports.DescribeSObjectResult{
		Name:   obj.name,
		Label:  obj.label,
		Custom: obj.custom,
		Fields: append([]ports.DescribeField(nil), obj.fields...),
	}

	childNames := make([]string, 0, len(o.objects))
	for key := range o.objects {
		childNames = append(childNames, key)
	}
	sort.Strings(childNames)
	for _, key := range childNames {
		child := o.objects[key]
		for _, f := range child.fields {
			if f.Type != "reference" || len(f.ReferenceTo) == 0 || !strings.EqualFold(f.ReferenceTo[0], obj.name) {
				continue
			}
			rel, ok := child.childRel[strings.ToLower(f.Name)]
			if !ok {
				continue
			}
			result.ChildRelationships = append(result.ChildRelationships, ports.ChildRelationship{
				ChildSObject:     child.name,
				Field:            f.Name,
				RelationshipName: rel,
			})
		}
	}
	return result, nil
}
