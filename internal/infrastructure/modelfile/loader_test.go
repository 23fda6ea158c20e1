package modelfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nexuscrm/forcemapper/internal/domain/schema"
	"github.com/nexuscrm/forcemapper/pkg/constants"
	"github.com/nexuscrm/forcemapper/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalog = `
entities:
  - name: Address
    embeddable: true
    members:
      - {name: city, type: String}
  - name: Vehicle
    table: Vehicle__c
    inheritance: single_table
    members:
      - {name: id, type: id}
      - {name: vin, type: String, externalId: true, length: 17}
  - name: Truck
    extends: Vehicle
    members:
      - {name: payload, type: BigDecimal, precision: 10, scale: 1}
  - name: Widget
    members:
      - {name: id, type: id}
      - name: status
        type: enum
        values: [OPEN, CLOSED]
        enumerated: string
      - {name: category, type: entity, target: Category, eager: true}
      - {name: home, type: embedded, embedded: Address}
      - {name: number, type: String, fieldType: AutoNumber, startValue: 1000, displayFormat: "W-{0000}"}
      - {name: scratch, type: String, transient: true}
  - name: Category
    members:
      - {name: id, type: id}
      - {name: widgets, type: collection, target: Widget, mappedBy: category}
`

func TestLoad(t *testing.T) {
	entities, err := Load(strings.NewReader(catalog))
	require.NoError(t, err)
	require.Len(t, entities, 5)

	byName := map[string]*schema.Entity{}
	for _, e := range entities {
		byName[e.Name] = e
	}

	assert.True(t, byName["Address"].Embeddable)

	truck := byName["Truck"]
	assert.Same(t, byName["Vehicle"], truck.Superclass)
	assert.Equal(t, "Vehicle__c", truck.DeclaredTableName())
	payload, ok := truck.Member("payload")
	require.True(t, ok)
	assert.Equal(t, schema.TypeBigDecimal, payload.Type)
	assert.Equal(t, 10, payload.Column.Precision)
	assert.Equal(t, 1, payload.Column.Scale)

	widget := byName["Widget"]
	status, _ := widget.Member("status")
	assert.Equal(t, schema.TypeEnum, status.Type)
	assert.Equal(t, schema.EnumString, status.Enum.Type)
	assert.Equal(t, []string{"OPEN", "CLOSED"}, status.Enum.Constants)

	category, _ := widget.Member("category")
	require.NotNil(t, category.Relation)
	assert.Equal(t, schema.RelationManyToOne, category.Relation.Kind)
	assert.Equal(t, schema.FetchEager, category.Relation.Fetch)

	home, _ := widget.Member("home")
	assert.Same(t, byName["Address"], home.Embedded)

	number, _ := widget.Member("number")
	assert.Equal(t, constants.FieldTypeAutoNumber, number.Custom.Type)
	require.NotNil(t, number.Custom.StartValue)
	assert.Equal(t, 1000, *number.Custom.StartValue)

	_, ok = widget.Member("scratch")
	assert.False(t, ok, "transient members are not persistent")

	widgets, _ := byName["Category"].Member("widgets")
	assert.True(t, widgets.IsToMany())
	assert.Equal(t, "category", widgets.Relation.MappedBy)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"UnknownKey", "entities:\n  - name: A\n    colour: red\n", "colour"},
		{"Duplicate", "entities:\n  - name: A\n  - name: a\n", "declared twice"},
		{"UnknownType", "entities:\n  - name: A\n    members:\n      - {name: x, type: Blob}\n", "unknown type"},
		{"UnknownParent", "entities:\n  - name: A\n    extends: B\n", "unknown entity"},
		{"Cycle", "entities:\n  - name: A\n    extends: B\n  - name: B\n    extends: A\n", "references itself"},
		{"MissingTarget", "entities:\n  - name: A\n    members:\n      - {name: b, type: entity}\n", "need a target"},
		{"BadInheritance", "entities:\n  - name: A\n    inheritance: nested\n", "unknown strategy"},
		{"BadEnumerated", "entities:\n  - name: A\n    members:\n      - {name: s, type: enum, enumerated: bits}\n", "enum strategy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o600))

	entities, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, entities, 5)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Empty(t *testing.T) {
	entities, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entities)
}
