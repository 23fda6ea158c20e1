package memstore

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/nexuscrm/forcemapper/internal/domain/ports"
	"github.com/nexuscrm/forcemapper/internal/domain/schema"
	"github.com/nexuscrm/forcemapper/pkg/constants"
	"go.uber.org/zap"
)

// describeTypes maps metadata field types onto the names describe reports
var describeTypes = map[constants.FieldType]string{
	constants.FieldTypeText:                "string",
	constants.FieldTypeTextArea:            "textarea",
	constants.FieldTypeLongTextArea:        "textarea",
	constants.FieldTypeHTML:                "textarea",
	constants.FieldTypeNumber:              "double",
	constants.FieldTypeCurrency:            "currency",
	constants.FieldTypePercent:             "percent",
	constants.FieldTypeDate:                "date",
	constants.FieldTypeDateTime:            "datetime",
	constants.FieldTypeCheckbox:            "boolean",
	constants.FieldTypePicklist:            "picklist",
	constants.FieldTypeMultiselectPicklist: "multipicklist",
	constants.FieldTypeLookup:              "reference",
	constants.FieldTypeMasterDetail:        "reference",
	constants.FieldTypeURL:                 "url",
	constants.FieldTypeEmail:               "email",
	constants.FieldTypePhone:               "phone",
	constants.FieldTypeAutoNumber:          "string",
}

// deployment is the parsed content of a deploy zip
type deployment struct {
	manifest    *schema.PackageManifest
	destructive *schema.PackageManifest
	objects     map[string]*schema.CustomObject
}

func readDeployment(zipFile []byte) (*deployment, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipFile), int64(len(zipFile)))
	if err != nil {
		return nil, Error.Wrap(err)
	}

	d := &deployment{objects: make(map[string]*schema.CustomObject)}
	for _, f := range zr.File {
		data, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		switch {
		case f.Name == constants.PackageManifest:
			d.manifest, err = schema.ParsePackageManifest(data)
		case f.Name == constants.DestructiveManifest:
			d.destructive, err = schema.ParsePackageManifest(data)
		case path.Dir(f.Name) == constants.ObjectsDir && path.Ext(f.Name) == constants.ObjectFileExtension:
			name := strings.TrimSuffix(path.Base(f.Name), constants.ObjectFileExtension)
			var obj *schema.CustomObject
			obj, err = schema.UnmarshalCustomObject(name, data)
			if err == nil {
				d.objects[strings.ToLower(name)] = obj
			}
		default:
			return nil, Error.New("unexpected file in package: %s", f.Name)
		}
		if err != nil {
			return nil, Error.New("%s: %v", f.Name, err)
		}
	}
	if d.manifest == nil {
		return nil, Error.New("package has no %s", constants.PackageManifest)
	}
	return d, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	return data, Error.Wrap(err)
}

// Deploy implements ports.Connection. Changes are applied on submission; the
// job then reports done after the configured number of status checks.
func (o *Org) Deploy(ctx context.Context, zipFile []byte, opts ports.DeployOptions) (*ports.AsyncResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := readDeployment(zipFile)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats.Deploys++

	id := uuid.New().String()
	snapshot := o.snapshot()

	var messages []ports.DeployMessage
	if d.destructive != nil {
		messages = o.applyDestructive(d.destructive)
	} else {
		messages = o.applyCreate(d)
	}

	result := &ports.DeployResult{ID: id, Success: true, Messages: messages}
	for _, m := range messages {
		if !m.Success {
			result.Success = false
		}
	}
	if !result.Success && opts.RollbackOnError {
		o.objects = snapshot
	}
	result.Status = "Succeeded"
	if !result.Success {
		result.Status = "Failed"
	}

	o.jobs[id] = &job{id: id, result: result}
	o.logger.Debug("Deploy accepted",
		zap.String("job", id),
		zap.Int("components", len(messages)),
		zap.Bool("success", result.Success))
	return &ports.AsyncResult{ID: id, State: "Queued"}, nil
}

// CheckStatus implements ports.Connection
func (o *Org) CheckStatus(ctx context.Context, ids []string) ([]*ports.AsyncResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats.StatusChecks++

	out := make([]*ports.AsyncResult, 0, len(ids))
	for _, id := range ids {
		j, ok := o.jobs[id]
		if !ok {
			return nil, ports.NewFault(constants.FaultNotFound, "no async job with id %s", id)
		}
		j.polls++
		status := &ports.AsyncResult{ID: id, State: "InProgress"}
		if j.polls > o.pollsUntilDone {
			status.Done = true
			status.State = "Completed"
		}
		out = append(out, status)
	}
	return out, nil
}

// CheckDeployStatus implements ports.Connection
func (o *Org) CheckDeployStatus(ctx context.Context, id string) (*ports.DeployResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	j, ok := o.jobs[id]
	if !ok {
		return nil, ports.NewFault(constants.FaultNotFound, "no deploy with id %s", id)
	}
	result := *j.result
	result.Done = j.polls > o.pollsUntilDone
	return &result, nil
}

func (o *Org) snapshot() map[string]*object {
	cp := make(map[string]*object, len(o.objects))
	for k, v := range o.objects {
		cp[k] = v.clone()
	}
	return cp
}

func objectFile(name string) string {
	return path.Join(constants.ObjectsDir, name+constants.ObjectFileExtension)
}

// applyCreate must be called with the lock held
func (o *Org) applyCreate(d *deployment) []ports.DeployMessage {
	var messages []ports.DeployMessage

	listed := make(map[string]struct{})
	for _, name := range d.manifest.Members(constants.MetadataTypeField) {
		listed[strings.ToLower(name)] = struct{}{}
	}

	// Objects first so lookups between new objects resolve
	for _, name := range d.manifest.Members(constants.MetadataTypeObject) {
		def, ok := d.objects[strings.ToLower(name)]
		msg := ports.DeployMessage{FileName: objectFile(name), FullName: name, ComponentType: constants.MetadataTypeObject}
		switch {
		case !ok:
			msg.Problem = "No CustomObject definition found for " + name
		case o.failures[strings.ToLower(name)] != "":
			msg.Problem = o.failures[strings.ToLower(name)]
		case !isCustom(name):
			if _, exists := o.objects[strings.ToLower(name)]; !exists {
				msg.Problem = "Cannot create standard object " + name
			} else {
				msg.Success = true
			}
		default:
			if _, exists := o.objects[strings.ToLower(name)]; !exists {
				o.objects[strings.ToLower(name)] = &object{
					name:   name,
					label:  def.Label,
					custom: true,
					fields: standardFields(),
				}
				msg.Created = true
			}
			msg.Success = true
		}
		messages = append(messages, msg)
	}

	names := make([]string, 0, len(d.objects))
	for key := range d.objects {
		names = append(names, key)
	}
	sort.Strings(names)
	for _, key := range names {
		def := d.objects[key]
		for _, f := range def.Fields {
			qualified := def.FullName + "." + f.FullName
			if _, ok := listed[strings.ToLower(qualified)]; !ok && !containsFold(d.manifest.Members(constants.MetadataTypeObject), def.FullName) {
				continue
			}
			messages = append(messages, o.addField(def.FullName, f))
		}
	}
	return messages
}

// addField must be called with the lock held
func (o *Org) addField(objectName string, f *schema.CustomField) ports.DeployMessage {
	qualified := objectName + "." + f.FullName
	msg := ports.DeployMessage{FileName: objectFile(objectName), FullName: qualified, ComponentType: constants.MetadataTypeField}

	obj, ok := o.objects[strings.ToLower(objectName)]
	if !ok {
		msg.Problem = "Cannot add field to unknown object " + objectName
		return msg
	}
	if problem := o.failures[strings.ToLower(qualified)]; problem != "" {
		msg.Problem = problem
		return msg
	}
	if _, dup := obj.field(f.FullName); dup {
		msg.Problem = "There is already a field named " + f.FullName + " on " + objectName
		return msg
	}
	if f.ReferenceTo != "" {
		if _, ok := o.objects[strings.ToLower(f.ReferenceTo)]; !ok {
			msg.Problem = "Field " + f.FullName + " references unknown object " + f.ReferenceTo
			return msg
		}
	}
	if f.StartingNumber != nil && f.Type != constants.FieldTypeAutoNumber {
		msg.Problem = "startingNumber is only valid on AutoNumber fields"
		return msg
	}

	df := ports.DescribeField{
		Name:       f.FullName,
		Label:      f.Label,
		Type:       describeTypes[f.Type],
		Custom:     true,
		ExternalID: f.ExternalID,
		Nillable:   !f.Required,
		Unique:     f.Unique,
		Length:     f.Length,
		Precision:  f.Precision,
	}
	if f.Scale != nil {
		df.Scale = *f.Scale
	}
	if df.Type == "" {
		df.Type = strings.ToLower(string(f.Type))
	}
	if f.ReferenceTo != "" {
		df.ReferenceTo = []string{f.ReferenceTo}
		df.RelationshipName = strings.TrimSuffix(f.FullName, constants.CustomSuffix) + constants.RelationshipSuffix
		if f.RelationshipName != "" {
			if obj.childRel == nil {
				obj.childRel = make(map[string]string)
			}
			obj.childRel[strings.ToLower(f.FullName)] = f.RelationshipName + constants.RelationshipSuffix
		}
	}
	df.PicklistValues = f.PicklistLabels()

	obj.fields = append(obj.fields, df)
	msg.Success = true
	msg.Created = true
	return msg
}

// applyDestructive must be called with the lock held
func (o *Org) applyDestructive(m *schema.PackageManifest) []ports.DeployMessage {
	var messages []ports.DeployMessage
	for _, name := range m.Members(constants.MetadataTypeObject) {
		msg := ports.DeployMessage{FileName: objectFile(name), FullName: name, ComponentType: constants.MetadataTypeObject}
		key := strings.ToLower(name)
		switch {
		case o.failures[key] != "":
			msg.Problem = o.failures[key]
		case !isCustom(name):
			msg.Problem = "Cannot delete standard object " + name
		case o.objects[key] == nil:
			msg.Problem = "No CustomObject named " + name + " found"
		default:
			delete(o.objects, key)
			msg.Success = true
			msg.Deleted = true
		}
		messages = append(messages, msg)
	}

	for _, qualified := range m.Members(constants.MetadataTypeField) {
		objectName, fieldName, _ := strings.Cut(qualified, ".")
		msg := ports.DeployMessage{FileName: objectFile(objectName), FullName: qualified, ComponentType: constants.MetadataTypeField}
		obj := o.objects[strings.ToLower(objectName)]
		switch {
		case o.failures[strings.ToLower(qualified)] != "":
			msg.Problem = o.failures[strings.ToLower(qualified)]
		case obj == nil:
			msg.Problem = "No CustomObject named " + objectName + " found"
		default:
			i, ok := obj.field(fieldName)
			if !ok || !obj.fields[i].Custom {
				msg.Problem = "No custom field named " + qualified + " found"
				break
			}
			obj.fields = append(obj.fields[:i], obj.fields[i+1:]...)
			delete(obj.childRel, strings.ToLower(fieldName))
			msg.Success = true
			msg.Deleted = true
		}
		messages = append(messages, msg)
	}
	return messages
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
