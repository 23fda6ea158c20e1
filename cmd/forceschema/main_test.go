package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/nexuscrm/forcemapper/internal/application/services"
	"github.com/nexuscrm/forcemapper/internal/domain/ports"
	"github.com/nexuscrm/forcemapper/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const model = `
entities:
  - name: Widget
    members:
      - {name: id, type: id}
      - {name: sku, type: String, externalId: true}
`

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &services.SchemaReport{}, false)
	assert.Equal(t, "schema is up to date\n", buf.String())

	buf.Reset()
	printReport(&buf, &services.SchemaReport{
		Objects: []string{"Widget__c"},
		Fields:  []string{"Widget__c.sku__c", "Widget__c.category__c"},
		Deploy: &ports.DeployResult{ID: "0Af1", Status: "Failed", Messages: []ports.DeployMessage{
			{FullName: "Widget__c.category__c", Problem: "invalid reference", Success: false},
		}},
	}, true)
	assert.Equal(t, "objects deleted: Widget__c\n"+
		"fields deleted: Widget__c.sku__c, Widget__c.category__c\n"+
		"deploy 0Af1: Failed\n"+
		"  failed Widget__c.category__c: invalid reference\n", buf.String())
}

func TestPrintDrift(t *testing.T) {
	var buf bytes.Buffer
	printDrift(&buf, nil)
	assert.Equal(t, "no drift\n", buf.String())

	buf.Reset()
	printDrift(&buf, []*services.FieldSchemaResult{
		{Entity: "Widget", Table: "Widget__c", Missing: []string{"sku__c", "weight__c"}},
		{Entity: "Gadget", Table: "Gadget__c", TableMissing: true},
	})
	assert.Equal(t, "Widget: Widget__c lacks sku__c, weight__c\nGadget: object Gadget__c is missing\n", buf.String())
}

func TestNewStore(t *testing.T) {
	store, err := newStore("server")
	require.NoError(t, err)
	assert.IsType(t, &auth.SessionStore{}, store)

	store, err = newStore("cookie")
	require.NoError(t, err)
	assert.IsType(t, &auth.CookieStore{}, store)

	store, err = newStore("none")
	require.NoError(t, err)
	assert.Nil(t, store)

	_, err = newStore("redis")
	assert.Error(t, err)
}

func TestReconcileLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(model), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"reconcile", "--local", "--model", path, "--create-tables", "--create-columns"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "objects created: Widget__c")

	// Every --local run starts from an empty org
	out.Reset()
	rootCmd.SetArgs([]string{"drift", "--local", "--model", path, "--fail"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.True(t, errDrift.Has(err))
	assert.Contains(t, out.String(), "Widget: object Widget__c is missing")
}
