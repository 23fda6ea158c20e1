package services

import (
	"context"
	"testing"
	"time"

	"github.com/nexuscrm/forcemapper/internal/domain/ports"
	"github.com/nexuscrm/forcemapper/internal/domain/schema"
	"github.com/nexuscrm/forcemapper/pkg/constants"
	"github.com/nexuscrm/forcemapper/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func skuField() *schema.CustomField {
	return &schema.CustomField{Object: "Widget__c", FullName: "sku__c", Label: "Sku", Type: constants.FieldTypeText, Length: 255}
}

// recordSleeps replaces the writer's sleep with one that records the waits
func recordSleeps(w *SchemaWriter) *[]time.Duration {
	var waits []time.Duration
	w.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return &waits
}

func TestPollPolicy_Next(t *testing.T) {
	p := DefaultPollPolicy()
	wait := p.Initial
	assert.Equal(t, 500*time.Millisecond, wait)
	assert.Equal(t, 750*time.Millisecond, p.Next(wait))

	for i := 0; i < 50; i++ {
		wait = p.Next(wait)
		assert.LessOrEqual(t, wait, 30*time.Second)
	}
	assert.Equal(t, 30*time.Second, wait)
}

func TestNewSchemaWriter_NormalizesPollPolicy(t *testing.T) {
	tests := []struct {
		name string
		in   PollPolicy
		want PollPolicy
	}{
		{"zero value", PollPolicy{}, DefaultPollPolicy()},
		{"zero cap", PollPolicy{Initial: time.Second, Multiplier: 2},
			PollPolicy{Initial: time.Second, Multiplier: 2, Max: 30 * time.Second}},
		{"shrinking multiplier", PollPolicy{Initial: time.Second, Multiplier: 0.5, Max: 10 * time.Second},
			PollPolicy{Initial: time.Second, Multiplier: 1.5, Max: 10 * time.Second}},
		{"cap below start", PollPolicy{Initial: time.Minute, Multiplier: 1.5, Max: time.Second},
			PollPolicy{Initial: time.Minute, Multiplier: 1.5, Max: time.Minute}},
		{"kept", PollPolicy{Initial: time.Millisecond, Multiplier: 1, Max: 5 * time.Millisecond},
			PollPolicy{Initial: time.Millisecond, Multiplier: 1, Max: 5 * time.Millisecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewSchemaWriter(zaptest.NewLogger(t), WriterOptions{Poll: tt.in})
			assert.Equal(t, tt.want, w.opts.Poll)

			wait := w.opts.Poll.Initial
			for i := 0; i < 20; i++ {
				next := w.opts.Poll.Next(wait)
				assert.GreaterOrEqual(t, next, wait)
				wait = next
			}
			assert.Positive(t, wait)
		})
	}
}

func TestSchemaWriter_PollsUntilDone(t *testing.T) {
	conn := &MockConnection{}
	conn.On("Deploy", mock.Anything, mock.Anything, ports.DeployOptions{RollbackOnError: true, SinglePackage: true}).
		Return(&ports.AsyncResult{ID: "0Af1", State: "Queued"}, nil).Once()
	conn.On("CheckStatus", mock.Anything, []string{"0Af1"}).
		Return([]*ports.AsyncResult{{ID: "0Af1", State: "InProgress"}}, nil).Once()
	conn.On("CheckStatus", mock.Anything, []string{"0Af1"}).
		Return([]*ports.AsyncResult{{ID: "0Af1", Done: true, State: "Completed"}}, nil).Once()
	conn.On("CheckDeployStatus", mock.Anything, "0Af1").
		Return(&ports.DeployResult{ID: "0Af1", Done: true, Success: true}, nil).Once()

	w := NewSchemaWriter(zaptest.NewLogger(t), WriterOptions{Strict: true})
	waits := recordSleeps(w)
	require.NoError(t, w.AddCustomField(skuField()))

	result, err := w.Write(context.Background(), conn)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 750 * time.Millisecond}, *waits)
	for _, d := range *waits {
		assert.LessOrEqual(t, d, 30*time.Second)
	}
	conn.AssertExpectations(t)
}

func TestSchemaWriter_StrictAggregatesFailures(t *testing.T) {
	conn := &MockConnection{}
	conn.On("Deploy", mock.Anything, mock.Anything, mock.Anything).
		Return(&ports.AsyncResult{ID: "0Af2", Done: true}, nil)
	conn.On("CheckDeployStatus", mock.Anything, "0Af2").Return(&ports.DeployResult{
		ID: "0Af2", Done: true,
		Messages: []ports.DeployMessage{
			{FileName: "objects/Widget__c.object", FullName: "Widget__c.sku__c", Problem: "duplicate field"},
			{FileName: "objects/Widget__c.object", FullName: "Widget__c.color__c", Problem: "bad length"},
			{FileName: "package.xml", FullName: "package.xml", Success: true},
		},
	}, nil)

	w := NewSchemaWriter(zaptest.NewLogger(t), WriterOptions{Strict: true})
	require.NoError(t, w.AddCustomField(skuField()))

	_, err := w.Write(context.Background(), conn)
	require.Error(t, err)
	assert.True(t, errors.IsDeploy(err))
	deployErr, ok := err.(*errors.DeployError)
	require.True(t, ok)
	assert.Len(t, deployErr.Failures, 2)
	assert.Contains(t, err.Error(), "duplicate field")
	assert.Contains(t, err.Error(), "bad length")
}

func TestSchemaWriter_LenientLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	conn := &MockConnection{}
	conn.On("Deploy", mock.Anything, mock.Anything, ports.DeployOptions{SinglePackage: true}).
		Return(&ports.AsyncResult{ID: "0Af3", Done: true}, nil)
	conn.On("CheckDeployStatus", mock.Anything, "0Af3").Return(&ports.DeployResult{
		ID: "0Af3", Done: true,
		Messages: []ports.DeployMessage{{FileName: "objects/Widget__c.object", FullName: "Widget__c.sku__c", Problem: "duplicate field"}},
	}, nil)

	w := NewSchemaWriter(zap.New(core), WriterOptions{Strict: false})
	require.NoError(t, w.AddCustomField(skuField()))

	result, err := w.Write(context.Background(), conn)
	require.NoError(t, err)
	assert.Len(t, result.Failures(), 1)
	assert.Equal(t, 1, logs.FilterMessage("⚠️ Deploy item failed").Len())
}

func TestSchemaWriter_StatusCodeFails(t *testing.T) {
	conn := &MockConnection{}
	conn.On("Deploy", mock.Anything, mock.Anything, mock.Anything).
		Return(&ports.AsyncResult{ID: "0Af4"}, nil)
	conn.On("CheckStatus", mock.Anything, []string{"0Af4"}).
		Return([]*ports.AsyncResult{{ID: "0Af4", Done: true, StatusCode: "INVALID_CROSS_REFERENCE_KEY", Message: "bad"}}, nil)

	w := NewSchemaWriter(zaptest.NewLogger(t), WriterOptions{})
	recordSleeps(w)
	require.NoError(t, w.AddCustomField(skuField()))

	_, err := w.Write(context.Background(), conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_CROSS_REFERENCE_KEY")
	conn.AssertNotCalled(t, "CheckDeployStatus", mock.Anything, mock.Anything)
}

func TestSchemaWriter_HonorsCancellation(t *testing.T) {
	conn := &MockConnection{}
	conn.On("Deploy", mock.Anything, mock.Anything, mock.Anything).
		Return(&ports.AsyncResult{ID: "0Af5"}, nil)

	w := NewSchemaWriter(zaptest.NewLogger(t), WriterOptions{})
	require.NoError(t, w.AddCustomField(skuField()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.Write(ctx, conn)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSchemaWriter_ConsumesBatch(t *testing.T) {
	conn := &MockConnection{}
	w := NewSchemaWriter(zaptest.NewLogger(t), WriterOptions{})
	assert.True(t, w.IsEmpty())

	result, err := w.Write(context.Background(), conn)
	require.NoError(t, err)
	assert.Nil(t, result)
	conn.AssertNotCalled(t, "Deploy", mock.Anything, mock.Anything, mock.Anything)

	assert.ErrorIs(t, w.AddCustomField(skuField()), errors.ErrBatchConsumed)
	assert.ErrorIs(t, w.AddCustomObject(&schema.CustomObject{FullName: "Widget__c"}), errors.ErrBatchConsumed)
	_, err = w.Write(context.Background(), conn)
	assert.ErrorIs(t, err, errors.ErrBatchConsumed)
}

func TestSchemaWriter_MergesDuplicateObjects(t *testing.T) {
	w := NewSchemaWriter(zaptest.NewLogger(t), WriterOptions{})
	require.NoError(t, w.AddCustomObject(&schema.CustomObject{FullName: "Vehicle__c", Fields: []*schema.CustomField{
		{Object: "Vehicle__c", FullName: "wheels__c", Type: constants.FieldTypeNumber},
	}}))
	require.NoError(t, w.AddCustomObject(&schema.CustomObject{FullName: "Vehicle__c", Fields: []*schema.CustomField{
		{Object: "Vehicle__c", FullName: "wheels__c", Type: constants.FieldTypeNumber},
		{Object: "Vehicle__c", FullName: "payload__c", Type: constants.FieldTypeNumber},
	}}))
	require.NoError(t, w.AddCustomField(skuField()))
	require.NoError(t, w.AddCustomField(skuField()))

	objects := w.Objects()
	require.Len(t, objects, 1)
	assert.Len(t, objects[0].Fields, 2)
	assert.Len(t, w.Fields(), 1)
}

func TestBuildPackage_Create(t *testing.T) {
	objects := []*schema.CustomObject{newCustomObject(mustTableName(t, "Gadget__c"))}
	fields := []*schema.CustomField{skuField()}

	files, err := buildPackage("59.0", false, objects, fields)
	require.NoError(t, err)

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"package.xml", "objects/Gadget__c.object", "objects/Widget__c.object"}, names)

	manifest, err := schema.ParsePackageManifest(files[0].Data)
	require.NoError(t, err)
	assert.Equal(t, "59.0", manifest.Version)
	assert.Equal(t, []string{"Gadget__c"}, manifest.Members(constants.MetadataTypeObject))
	assert.Equal(t, []string{"Widget__c.sku__c"}, manifest.Members(constants.MetadataTypeField))

	widget, err := schema.UnmarshalCustomObject("Widget__c", files[2].Data)
	require.NoError(t, err)
	require.Len(t, widget.Fields, 1)
	assert.Equal(t, "sku__c", widget.Fields[0].FullName)
	assert.Empty(t, objects[0].Fields, "caller's objects are not modified")
}

func TestBuildPackage_DeleteOmitsFieldsOfDeletedObjects(t *testing.T) {
	objects := []*schema.CustomObject{{FullName: "Widget__c"}}
	fields := []*schema.CustomField{
		skuField(),
		{Object: "Account", FullName: "rating__c"},
	}

	files, err := buildPackage("59.0", true, objects, fields)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, constants.PackageManifest, files[0].Name)
	assert.Equal(t, constants.DestructiveManifest, files[1].Name)

	pkg, err := schema.ParsePackageManifest(files[0].Data)
	require.NoError(t, err)
	assert.Empty(t, pkg.Types)

	destructive, err := schema.ParsePackageManifest(files[1].Data)
	require.NoError(t, err)
	assert.Empty(t, destructive.Version)
	assert.Equal(t, []string{"Widget__c"}, destructive.Members(constants.MetadataTypeObject))
	assert.Equal(t, []string{"Account.rating__c"}, destructive.Members(constants.MetadataTypeField))
}
