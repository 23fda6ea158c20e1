package services

import (
	"context"
	"testing"

	"github.com/nexuscrm/forcemapper/internal/domain/ports"
	"github.com/nexuscrm/forcemapper/internal/domain/schema"
	"github.com/nexuscrm/forcemapper/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reconciledBuilder(t *testing.T, eager bool) *QueryBuilder {
	t.Helper()
	unit := testUnit()
	unit.AutoCreateColumns = true
	h, org := newTestHandler(t, unit)
	org.PutObject("Category__c")
	org.PutObject("Widget__c", ports.DescribeField{Name: "sku__c", Type: "string", Custom: true, ExternalID: true})

	var opts []schema.MemberOption
	if eager {
		opts = append(opts, schema.Eager())
	}
	category := schema.NewEntity("Category").ID("id").String("name").OneToMany("widgets", "Widget", "category").Build()
	widget := schema.NewEntity("Widget").ID("id").String("sku").ManyToOne("category", "Category", opts...).Build()
	require.NoError(t, h.Register(category, widget))

	_, err := h.CreateSchema(context.Background())
	require.NoError(t, err)
	return NewQueryBuilder(h)
}

func TestQueryBuilder_Select(t *testing.T) {
	qb := reconciledBuilder(t, false)

	q, err := qb.Select("Widget")
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id, sku__c, category__c FROM Widget__c", q)

	q, err = qb.Select("Category")
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id, Name, (SELECT Id, sku__c, category__c FROM category_Widgets__r) FROM Category__c", q)
}

func TestQueryBuilder_EagerParent(t *testing.T) {
	qb := reconciledBuilder(t, true)

	q, err := qb.SelectByID("Widget", "a01")
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT Id, sku__c, category__c, category__r.Id, category__r.Name FROM Widget__c WHERE Id = 'a01'", q)
}

func TestQueryBuilder_Where(t *testing.T) {
	qb := reconciledBuilder(t, false)

	q, err := qb.SelectByExternalID("Widget", "O'Brien")
	require.NoError(t, err)
	assert.Equal(t, `SELECT Id, sku__c, category__c FROM Widget__c WHERE sku__c = 'O\'Brien'`, q)

	_, err = qb.SelectByExternalID("Category", "x")
	assert.True(t, errors.IsValidation(err))

	_, err = qb.Select("Nope")
	assert.True(t, errors.IsNotFound(err))
}

func TestTraversalName(t *testing.T) {
	assert.Equal(t, "parent__r", traversalName(&ColumnImpl{Name: "parent__c"}))
	assert.Equal(t, "Account", traversalName(&ColumnImpl{Name: "AccountId"}))
	assert.Equal(t, "Owner", traversalName(&ColumnImpl{Name: "OwnerId", RelationshipName: "Owner"}))
}
