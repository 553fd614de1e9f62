package processor

import (
	"fmt"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/strtpl/internal/ir"
	"github.com/roach88/strtpl/internal/template"
)

// STR interpolates templates with the default value conversion.
var STR = MustNew(Hooks[string]{}, WithName("str"))

// Upper interpolates templates with every value upper-cased.
// Fragments are left as written.
var Upper = NewUpper()

// Raw returns templates unprocessed.
var Raw Interface[*template.Template] = rawProcessor{}

type rawProcessor struct{}

func (rawProcessor) Process(t *template.Template) (*template.Template, error) {
	if t == nil {
		return nil, template.NewNullReference("Process", "template")
	}
	return t, nil
}

// NewUpper creates an upper-casing processor. Options apply as for New.
func NewUpper(opts ...Option) *Processor[string] {
	hooks := Hooks[string]{
		MapValue: func(_ int, v any) (any, error) {
			// cases.Caser is not safe for concurrent use.
			return cases.Upper(language.Und).String(ir.ToString(v)), nil
		},
		MapType: func(int, ir.Type) ir.Type {
			return ir.TypeString
		},
	}
	return MustNew(hooks, append([]Option{WithName("upper")}, opts...)...)
}

// NewSTR creates a plain interpolating processor. Options apply as for New.
func NewSTR(opts ...Option) *Processor[string] {
	return MustNew(Hooks[string]{}, append([]Option{WithName("str")}, opts...)...)
}

// Named is a string processor selectable by name.
type Named interface {
	Name() string
	ProcessResult(t *template.Template) (Result[string], error)
}

// rawString reports the unprocessed template structure. It never consults
// linkage metadata, so every call is served by the slow path.
type rawString struct{}

func (rawString) Name() string { return "raw" }

func (rawString) ProcessResult(t *template.Template) (Result[string], error) {
	tpl, err := Raw.Process(t)
	if err != nil {
		return Result[string]{}, err
	}
	return Result[string]{Value: tpl.String(), Path: ir.PathSlow}, nil
}

var constructors = map[string]func(...Option) Named{
	"str":   func(opts ...Option) Named { return NewSTR(opts...) },
	"upper": func(opts ...Option) Named { return NewUpper(opts...) },
	"raw":   func(...Option) Named { return rawString{} },
}

// Lookup creates a fresh string processor by name. Options do not apply to
// raw.
func Lookup(name string, opts ...Option) (Named, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown processor %q (available: %v)", name, Names())
	}
	return ctor(opts...), nil
}

// Names lists the processors Lookup knows, sorted.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
