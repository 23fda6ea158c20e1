package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/nexuscrm/forcemapper/internal/domain/schema"
	"github.com/nexuscrm/forcemapper/pkg/constants"
	"github.com/nexuscrm/forcemapper/pkg/errors"
	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver" // value expressions for literals
)

// selectQuery is a query before rendering. Items are field paths or nested
// child queries.
type selectQuery struct {
	items []selectItem
	from  string
	where *whereClause
}

type selectItem struct {
	path  []string
	child *selectQuery
}

type whereClause struct {
	field string
	value string
}

// render writes the query; quote is applied to every identifier
func (q *selectQuery) render(quote func(string) string) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	for i, item := range q.items {
		if i > 0 {
			sb.WriteString(", ")
		}
		if item.child != nil {
			sb.WriteString("(")
			sb.WriteString(item.child.render(quote))
			sb.WriteString(")")
			continue
		}
		parts := make([]string, len(item.path))
		for j, p := range item.path {
			parts[j] = quote(p)
		}
		sb.WriteString(strings.Join(parts, "."))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(quote(q.from))
	if q.where != nil {
		fmt.Fprintf(&sb, " WHERE %s = '%s'", quote(q.where.field), escapeLiteral(q.where.value))
	}
	return sb.String()
}

func escapeLiteral(v string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
}

func plain(s string) string { return s }

func backquote(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" }

// QueryBuilder renders native queries for mapped entities. Every query is
// checked structurally before it is handed out.
type QueryBuilder struct {
	handler *SchemaHandler

	mu     sync.Mutex
	parser *parser.Parser
}

// NewQueryBuilder creates a builder over the handler's tables
func NewQueryBuilder(handler *SchemaHandler) *QueryBuilder {
	return &QueryBuilder{handler: handler, parser: parser.New()}
}

// Select returns the query for all mapped columns of an entity
func (qb *QueryBuilder) Select(entityName string) (string, error) {
	return qb.build(entityName, nil)
}

// SelectByID returns the query for one record by its Id
func (qb *QueryBuilder) SelectByID(entityName, id string) (string, error) {
	return qb.build(entityName, &whereClause{field: constants.FieldID, value: id})
}

// SelectByExternalID returns the query for one record by its external id field
func (qb *QueryBuilder) SelectByExternalID(entityName, value string) (string, error) {
	table, err := qb.handler.GetTable(entityName)
	if err != nil {
		return "", err
	}
	ext := table.ExternalIDColumn()
	if ext == nil {
		return "", errors.NewValidationError(entityName, fmt.Sprintf("table %s has no external id field", table.ForceAPIName()))
	}
	return qb.build(entityName, &whereClause{field: ext.Name, value: value})
}

func (qb *QueryBuilder) build(entityName string, where *whereClause) (string, error) {
	entity, ok := qb.handler.LookupEntity(entityName)
	if !ok {
		return "", errors.NewNotFoundError("entity", entityName)
	}
	q, err := qb.selectFor(entity, true)
	if err != nil {
		return "", err
	}
	q.where = where

	if err := qb.check(q); err != nil {
		return "", err
	}
	return q.render(plain), nil
}

// selectFor collects the columns of an entity. Nested child queries and
// parent traversals are only emitted at the top level.
func (qb *QueryBuilder) selectFor(entity *schema.Entity, top bool) (*selectQuery, error) {
	table, err := qb.handler.GetTable(entity.Name)
	if err != nil {
		return nil, err
	}
	members, err := persistableMembers(entity)
	if err != nil {
		return nil, err
	}

	q := &selectQuery{from: table.ForceAPIName()}
	seen := make(map[string]struct{})
	add := func(path ...string) {
		key := strings.ToLower(strings.Join(path, "."))
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		q.items = append(q.items, selectItem{path: path})
	}
	add(constants.FieldID)

	for i := range members {
		m := &members[i]
		col, err := table.GetColumnFor(entity, m)

		switch {
		case m.Relation != nil && m.Relation.Kind == schema.RelationOneToMany:
			rel, ok := col.(*RelationshipImpl)
			if err != nil || !ok || !top {
				continue
			}
			child, found := qb.handler.LookupEntity(m.Relation.Target)
			if !found {
				continue
			}
			sub, err := qb.selectFor(child, false)
			if err != nil {
				return nil, err
			}
			sub.from = rel.Name
			q.items = append(q.items, selectItem{child: sub})

		case m.IsToMany():
			continue

		case m.Relation != nil:
			if err != nil {
				continue
			}
			add(col.ForceAPIName())
			if !top || m.Relation.Fetch != schema.FetchEager {
				continue
			}
			target, found := qb.handler.LookupEntity(m.Relation.Target)
			if !found {
				continue
			}
			parent, err := qb.selectFor(target, false)
			if err != nil {
				return nil, err
			}
			prefix := traversalName(col)
			for _, item := range parent.items {
				if item.child == nil {
					add(append([]string{prefix}, item.path...)...)
				}
			}

		default:
			if err != nil {
				continue
			}
			add(col.ForceAPIName())
		}
	}
	return q, nil
}

// traversalName is the relationship name used to reach the parent of a lookup:
// category__c -> category__r, AccountId -> Account
func traversalName(col Column) string {
	if impl, ok := col.(*ColumnImpl); ok && impl.RelationshipName != "" {
		return impl.RelationshipName
	}
	name := col.ForceAPIName()
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, strings.ToLower(constants.CustomSuffix)):
		return name[:len(name)-len(constants.CustomSuffix)] + constants.RelationshipSuffix
	case strings.HasSuffix(lower, "id") && len(name) > 2:
		return name[:len(name)-2]
	}
	return name
}

// check parses a backquoted rendering and insists on a single SELECT over a
// single source
func (qb *QueryBuilder) check(q *selectQuery) error {
	sql := q.render(backquote)

	qb.mu.Lock()
	stmts, _, err := qb.parser.Parse(sql, "", "")
	qb.mu.Unlock()
	if err != nil {
		return errors.NewInternalError("generated query does not parse", err)
	}
	if len(stmts) != 1 {
		return errors.NewInternalError("generated query must be a single statement", nil)
	}
	sel, ok := stmts[0].(*ast.SelectStmt)
	if !ok {
		return errors.NewInternalError("generated query is not a SELECT", nil)
	}
	if sel.From == nil || sel.From.TableRefs == nil || sel.From.TableRefs.Right != nil {
		return errors.NewInternalError("generated query must read exactly one object", nil)
	}
	if _, ok := sel.From.TableRefs.Left.(*ast.TableSource); !ok {
		return errors.NewInternalError("generated query must read exactly one object", nil)
	}
	return nil
}
