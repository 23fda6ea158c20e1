package services

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"sort"

	"github.com/nexuscrm/forcemapper/internal/domain/schema"
	"github.com/nexuscrm/forcemapper/pkg/constants"
)

// packageFile is one entry of a deploy zip
type packageFile struct {
	Name string
	Data []byte
}

// buildPackage renders the manifests and object files of a batch.
// In delete mode package.xml is empty and destructiveChanges.xml lists what
// goes away; field deletes under a deleted object are left out.
func buildPackage(apiVersion string, deleteMode bool, objects []*schema.CustomObject, fields []*schema.CustomField) ([]packageFile, error) {
	objectNames := make([]string, 0, len(objects))
	objectSet := make(map[string]struct{}, len(objects))
	for _, o := range objects {
		objectNames = append(objectNames, o.FullName)
		objectSet[o.FullName] = struct{}{}
	}

	var fieldNames []string
	for _, f := range fields {
		if deleteMode {
			if _, whole := objectSet[f.Object]; whole {
				continue
			}
		}
		fieldNames = append(fieldNames, f.QualifiedName())
	}

	var files []packageFile
	if deleteMode {
		empty, err := schema.NewPackageManifest(apiVersion, nil, nil).Marshal()
		if err != nil {
			return nil, err
		}
		destructive, err := schema.NewPackageManifest("", objectNames, fieldNames).Marshal()
		if err != nil {
			return nil, err
		}
		files = append(files,
			packageFile{Name: constants.PackageManifest, Data: empty},
			packageFile{Name: constants.DestructiveManifest, Data: destructive},
		)
		return files, nil
	}

	manifest, err := schema.NewPackageManifest(apiVersion, objectNames, fieldNames).Marshal()
	if err != nil {
		return nil, err
	}
	files = append(files, packageFile{Name: constants.PackageManifest, Data: manifest})

	// One .object file per touched object. New objects carry their full
	// definition; existing ones only the fields being added.
	byObject := make(map[string]*schema.CustomObject)
	for _, o := range objects {
		cp := *o
		cp.Fields = append([]*schema.CustomField(nil), o.Fields...)
		byObject[o.FullName] = &cp
	}
	for _, f := range fields {
		o, ok := byObject[f.Object]
		if !ok {
			o = &schema.CustomObject{FullName: f.Object}
			byObject[f.Object] = o
		}
		if !hasField(o, f.FullName) {
			o.Fields = append(o.Fields, f)
		}
	}

	names := make([]string, 0, len(byObject))
	for name := range byObject {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := byObject[name].Marshal()
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", name, err)
		}
		files = append(files, packageFile{
			Name: path.Join(constants.ObjectsDir, name+constants.ObjectFileExtension),
			Data: data,
		})
	}
	return files, nil
}

func hasField(o *schema.CustomObject, name string) bool {
	for _, f := range o.Fields {
		if f.FullName == name {
			return true
		}
	}
	return false
}

// zipPackage writes the files into a deployable archive
func zipPackage(files []packageFile) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
