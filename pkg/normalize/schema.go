// Package normalize maps public query parameters onto the canonical
// upstream parameter set of each operation and derives cache keys from it.
package normalize

// Operation names a client-facing capability.
type Operation string

const (
	OpHome          Operation = "home"
	OpMangaList     Operation = "manga_list"
	OpMangaDetail   Operation = "manga_detail"
	OpChapterList   Operation = "chapter_list"
	OpChapterDetail Operation = "chapter_detail"
	OpSearch        Operation = "search"
	OpGenres        Operation = "genres"
)

// Kind is the value type of a field.
type Kind int

const (
	String Kind = iota
	Int
)

// Source says where a field's value comes from.
type Source int

const (
	// Query fields are read from the query string and forwarded upstream.
	Query Source = iota
	// Path fields are read from the route and only feed the cache key.
	Path
	// Fixed fields always take their default and are forwarded upstream.
	Fixed
)

// Field is one recognized parameter.
type Field struct {
	Name    string
	Kind    Kind
	Source  Source
	Default string
	// Min is the smallest accepted value for Int fields.
	Min int
	// Required fields have no default; an empty value is reported by Validate.
	Required bool
}

// Schema is the fixed parameter set of one operation.
type Schema []Field

var schemas = map[Operation]Schema{
	OpHome:   {},
	OpGenres: {},
	OpMangaList: {
		{Name: "type", Default: "project"},
		{Name: "page", Kind: Int, Default: "1", Min: 1},
		{Name: "page_size", Kind: Int, Default: "30", Min: 1},
		{Name: "is_update", Default: "true"},
		{Name: "sort", Default: "latest"},
		{Name: "sort_order", Default: "desc"},
		{Name: "q", Default: ""},
	},
	OpSearch: {
		{Name: "q", Required: true},
		{Name: "page", Kind: Int, Default: "1", Min: 1},
		{Name: "page_size", Kind: Int, Source: Fixed, Default: "5"},
	},
	OpMangaDetail: {
		{Name: "id", Source: Path, Required: true},
	},
	OpChapterList: {
		{Name: "id", Source: Path, Required: true},
		{Name: "page", Kind: Int, Default: "1", Min: 1},
		{Name: "page_size", Kind: Int, Default: "24", Min: 1},
		{Name: "sort_by", Default: "chapter_number"},
		{Name: "sort_order", Default: "desc"},
	},
	OpChapterDetail: {
		{Name: "id", Source: Path, Required: true},
	},
}

// SchemaFor returns the schema of op and whether op is known.
func SchemaFor(op Operation) (Schema, bool) {
	s, ok := schemas[op]
	return s, ok
}
