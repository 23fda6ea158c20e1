package schema

import (
	"fmt"
	"strings"

	"github.com/nexuscrm/forcemapper/pkg/constants"
	"github.com/nexuscrm/forcemapper/pkg/errors"
)

// TableType classifies a remote object by its name suffix
type TableType int

const (
	TableTypeStandard TableType = iota
	TableTypeCustom
	TableTypeCustomRelationship
	TableTypeCustomComponent
	TableTypeKnowledgeArticle
	TableTypeKnowledgeArticleVersion
	TableTypeFeed
)

var suffixTypes = map[string]TableType{
	constants.SuffixCustom:                  TableTypeCustom,
	constants.SuffixCustomRelationship:      TableTypeCustomRelationship,
	constants.SuffixCustomComponent:         TableTypeCustomComponent,
	constants.SuffixKnowledgeArticle:        TableTypeKnowledgeArticle,
	constants.SuffixKnowledgeArticleVersion: TableTypeKnowledgeArticleVersion,
	constants.SuffixFeed:                    TableTypeFeed,
}

// Suffix returns the wire suffix, empty for standard objects
func (t TableType) Suffix() string {
	switch t {
	case TableTypeCustom:
		return constants.SuffixCustom
	case TableTypeCustomRelationship:
		return constants.SuffixCustomRelationship
	case TableTypeCustomComponent:
		return constants.SuffixCustomComponent
	case TableTypeKnowledgeArticle:
		return constants.SuffixKnowledgeArticle
	case TableTypeKnowledgeArticleVersion:
		return constants.SuffixKnowledgeArticleVersion
	case TableTypeFeed:
		return constants.SuffixFeed
	default:
		return ""
	}
}

func (t TableType) String() string {
	switch t {
	case TableTypeStandard:
		return "Standard"
	case TableTypeCustom:
		return "Custom"
	case TableTypeCustomRelationship:
		return "CustomRelationship"
	case TableTypeCustomComponent:
		return "CustomComponent"
	case TableTypeKnowledgeArticle:
		return "KnowledgeArticle"
	case TableTypeKnowledgeArticleVersion:
		return "KnowledgeArticleVersion"
	case TableTypeFeed:
		return "Feed"
	default:
		return "Unknown"
	}
}

// TableName is the three-part (namespace, base name, type) name of a remote object
type TableName struct {
	Namespace string
	BaseName  string
	Type      TableType
}

// ParseTableName splits a wire name on the double-underscore separator.
//
//	Account            -> Standard
//	Widget__c          -> Custom
//	acme__Widget__c    -> Custom in namespace acme
func ParseTableName(name string) (TableName, error) {
	tokens := strings.Split(name, constants.NameSeparator)
	for _, tok := range tokens {
		if tok == "" {
			return TableName{}, parseError(name)
		}
	}

	switch len(tokens) {
	case 1:
		return TableName{BaseName: tokens[0], Type: TableTypeStandard}, nil
	case 2:
		tt, ok := suffixTypes[strings.ToLower(tokens[1])]
		if !ok {
			return TableName{}, unknownSuffixError(name, tokens[1])
		}
		return TableName{BaseName: tokens[0], Type: tt}, nil
	case 3:
		tt, ok := suffixTypes[strings.ToLower(tokens[2])]
		if !ok {
			return TableName{}, unknownSuffixError(name, tokens[2])
		}
		return TableName{Namespace: tokens[0], BaseName: tokens[1], Type: tt}, nil
	default:
		return TableName{}, parseError(name)
	}
}

func parseError(name string) error {
	return &errors.ConfigurationError{Table: name, Message: fmt.Sprintf("Could not parse table: %s", name)}
}

func unknownSuffixError(name, suffix string) error {
	return &errors.ConfigurationError{Table: name,
		Message: fmt.Sprintf("Could not parse table: %s (unsupported suffix %q)", name, constants.NameSeparator+suffix)}
}

// NewTableName resolves the remote object name of an entity. An explicit
// (possibly inherited) table name is parsed; otherwise the name of the
// entity owning the table is used verbatim as a custom object in the given
// namespace.
func NewTableName(namespace string, entity *Entity) (TableName, error) {
	declared := entity.DeclaredTableName()
	if declared == "" {
		return TableName{Namespace: namespace, BaseName: entity.TableOwner().Name, Type: TableTypeCustom}, nil
	}

	tn, err := ParseTableName(declared)
	if err != nil {
		return TableName{}, err
	}
	if tn.Namespace == "" && tn.Type != TableTypeStandard {
		tn.Namespace = namespace
	}
	return tn, nil
}

// ForceAPIName serializes the name back to its wire form
func (t TableName) ForceAPIName() string {
	if t.Type == TableTypeStandard {
		return t.BaseName
	}
	if t.Namespace == "" {
		return t.BaseName + constants.NameSeparator + t.Type.Suffix()
	}
	return t.Namespace + constants.NameSeparator + t.BaseName + constants.NameSeparator + t.Type.Suffix()
}

// IsCustom reports whether the object is user-defined rather than built in
func (t TableName) IsCustom() bool {
	return t.Type != TableTypeStandard
}

func (t TableName) String() string {
	return t.ForceAPIName()
}
