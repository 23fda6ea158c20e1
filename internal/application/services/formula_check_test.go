package services

import (
	"context"
	"testing"

	"github.com/nexuscrm/forcemapper/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormulaReferences(t *testing.T) {
	refs, ok := formulaReferences("price__c * quantity__c + price__c - discount")
	require.True(t, ok)
	assert.Equal(t, []string{"price__c", "quantity__c"}, refs)

	_, ok = formulaReferences("price__c *")
	assert.False(t, ok)
}

func TestUnresolvedReferences(t *testing.T) {
	table := NewTable(mustTableName(t, "Line__c"), "")
	require.NoError(t, table.Refresh(context.Background(), &ports.DescribeSObjectResult{
		Name: "Line__c",
		Fields: []ports.DescribeField{
			{Name: "Id", Type: "id"},
			{Name: "price__c", Type: "double", Custom: true},
		},
	}, nil))

	pending := map[string]struct{}{"quantity__c": {}}
	assert.Empty(t, unresolvedReferences("price__c * quantity__c", table, pending))
	assert.Equal(t, []string{"tax__c"}, unresolvedReferences("price__c * (1 + tax__c)", table, pending))
	assert.Empty(t, unresolvedReferences("price__c * (", table, pending))
}
