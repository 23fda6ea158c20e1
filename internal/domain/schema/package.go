package schema

import (
	"encoding/xml"
	"sort"

	"github.com/nexuscrm/forcemapper/pkg/constants"
)

// PackageManifest is a package.xml or destructiveChanges.xml document
type PackageManifest struct {
	XMLName xml.Name       `xml:"http://soap.sforce.com/2006/04/metadata Package"`
	Types   []PackageTypes `xml:"types"`
	Version string         `xml:"version,omitempty"`
}

// PackageTypes lists the members of one metadata type
type PackageTypes struct {
	Members []string `xml:"members"`
	Name    string   `xml:"name"`
}

// NewPackageManifest builds a manifest listing objects and fields.
// Empty groups are left out; members are sorted for stable output.
func NewPackageManifest(version string, objects, fields []string) *PackageManifest {
	m := &PackageManifest{Version: version}
	m.add(constants.MetadataTypeObject, objects)
	m.add(constants.MetadataTypeField, fields)
	return m
}

func (m *PackageManifest) add(typeName string, members []string) {
	if len(members) == 0 {
		return
	}
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	m.Types = append(m.Types, PackageTypes{Members: sorted, Name: typeName})
}

// Members returns the listed members of the given metadata type
func (m *PackageManifest) Members(typeName string) []string {
	for _, t := range m.Types {
		if t.Name == typeName {
			return t.Members
		}
	}
	return nil
}

// Marshal renders the manifest with an XML header
func (m *PackageManifest) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(m, "", "    ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// ParsePackageManifest reads a manifest document
func ParsePackageManifest(data []byte) (*PackageManifest, error) {
	m := &PackageManifest{}
	if err := xml.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}
