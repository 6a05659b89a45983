package hint

import (
	"fmt"
	"slices"
	"strings"
)

// Category says what a hint kind targets.
type Category uint8

const (
	CategoryUnknown Category = iota
	CategoryTable
	CategoryIndex
	CategoryQuery
)

func (c Category) String() string {
	switch c {
	case CategoryTable:
		return "table"
	case CategoryIndex:
		return "index"
	case CategoryQuery:
		return "query"
	default:
		return "unknown"
	}
}

// ParseCategory parses the textual form produced by Category.String.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(s) {
	case "table":
		return CategoryTable, nil
	case "index":
		return CategoryIndex, nil
	case "query":
		return CategoryQuery, nil
	default:
		return CategoryUnknown, fmt.Errorf("unknown hint category %q", s)
	}
}

// DefaultSeparator separates hint parameters unless the kind says otherwise.
const DefaultSeparator = " "

// KindSpec describes one hint kind.
type KindSpec struct {
	Kind      Kind
	Category  Category
	Separator string
}

// Vocabulary maps hint kinds to their specs. The zero value is not usable;
// call NewVocabulary or Oracle.
type Vocabulary struct {
	name  string
	kinds map[Kind]KindSpec
}

// NewVocabulary creates an empty vocabulary.
func NewVocabulary(name string) *Vocabulary {
	return &Vocabulary{name: name, kinds: make(map[Kind]KindSpec)}
}

// Name returns the vocabulary name.
func (v *Vocabulary) Name() string {
	return v.name
}

// Define adds or replaces a kind. QB_NAME is reserved.
func (v *Vocabulary) Define(spec KindSpec) error {
	if spec.Kind == "" {
		return fmt.Errorf("hint kind is empty")
	}
	if spec.Kind == QBName {
		return fmt.Errorf("hint kind %s is reserved", QBName)
	}
	if spec.Category == CategoryUnknown {
		return fmt.Errorf("hint kind %s has no category", spec.Kind)
	}
	if spec.Separator == "" {
		spec.Separator = DefaultSeparator
	}
	v.kinds[spec.Kind] = spec
	return nil
}

// Lookup returns the spec for a kind.
func (v *Vocabulary) Lookup(k Kind) (KindSpec, bool) {
	spec, ok := v.kinds[k]
	return spec, ok
}

// Separator returns the parameter separator for a kind.
func (v *Vocabulary) Separator(k Kind) string {
	if spec, ok := v.kinds[k]; ok {
		return spec.Separator
	}
	return DefaultSeparator
}

// Kinds returns all specs sorted by kind.
func (v *Vocabulary) Kinds() []KindSpec {
	specs := make([]KindSpec, 0, len(v.kinds))
	for _, s := range v.kinds {
		specs = append(specs, s)
	}
	slices.SortFunc(specs, func(a, b KindSpec) int {
		return strings.Compare(string(a.Kind), string(b.Kind))
	})
	return specs
}

// Clone returns an independent copy that can be extended without touching v.
func (v *Vocabulary) Clone(name string) *Vocabulary {
	c := NewVocabulary(name)
	for k, s := range v.kinds {
		c.kinds[k] = s
	}
	return c
}
