package services

import (
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/nexuscrm/forcemapper/pkg/constants"
)

// referenceCollector gathers identifiers that name custom fields
type referenceCollector struct {
	seen map[string]struct{}
	refs []string
}

// Visit implements ast.Visitor
func (c *referenceCollector) Visit(node *ast.Node) {
	id, ok := (*node).(*ast.IdentifierNode)
	if !ok {
		return
	}
	if !strings.HasSuffix(strings.ToLower(id.Value), strings.ToLower(constants.CustomSuffix)) {
		return
	}
	key := strings.ToLower(id.Value)
	if _, dup := c.seen[key]; dup {
		return
	}
	c.seen[key] = struct{}{}
	c.refs = append(c.refs, id.Value)
}

// formulaReferences returns the custom fields a formula refers to, in order of
// appearance. ok is false when the formula does not parse; such formulas are
// deployed unchecked and left to the remote store to judge.
func formulaReferences(formula string) (refs []string, ok bool) {
	tree, err := parser.Parse(formula)
	if err != nil {
		return nil, false
	}
	collector := &referenceCollector{seen: make(map[string]struct{})}
	ast.Walk(&tree.Node, collector)
	return collector.refs, true
}

// unresolvedReferences returns the formula references that match neither an
// existing column nor a field pending in the same batch
func unresolvedReferences(formula string, table *Table, pending map[string]struct{}) []string {
	refs, ok := formulaReferences(formula)
	if !ok {
		return nil
	}
	var missing []string
	for _, ref := range refs {
		if _, queued := pending[strings.ToLower(ref)]; queued {
			continue
		}
		if table != nil && table.GetColumnByForceAPIName(ref) != nil {
			continue
		}
		missing = append(missing, ref)
	}
	return missing
}
