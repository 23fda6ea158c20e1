package constants

// Name separator and type suffixes of remote object names
const (
	NameSeparator = "__"

	SuffixCustom                  = "c"
	SuffixCustomRelationship      = "r"
	SuffixCustomComponent         = "s"
	SuffixKnowledgeArticle        = "ka"
	SuffixKnowledgeArticleVersion = "kav"
	SuffixFeed                    = "feed"
)

// CustomSuffix is appended to custom object and field names
const CustomSuffix = NameSeparator + SuffixCustom

// RelationshipSuffix is appended to custom relationship names
const RelationshipSuffix = NameSeparator + SuffixCustomRelationship

// Remote name limits
const (
	MaxRelationshipNameLength = 40
	MaxFieldNameLength        = 40
	DefaultTextLength         = 255
	DefaultLongTextLength     = 32768
	DefaultVisibleLines       = 4
)
