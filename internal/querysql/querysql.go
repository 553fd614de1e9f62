package querysql

import (
	"fmt"
	"time"

	"github.com/roach88/strtpl/internal/ir"
	"github.com/roach88/strtpl/internal/processor"
	"github.com/roach88/strtpl/internal/template"
)

// Placeholder is the bind marker emitted for each value (SQLite style).
const Placeholder = "?"

// Query is a parameterized SQL statement.
type Query struct {
	SQL  string
	Args []any
}

// Ident is an SQL identifier. Identifiers cannot be bound as parameters,
// so embedding one in a query template is an error.
type Ident string

// Processor turns templates into Query values.
//
// The SQL text is built by a string processor whose fast path caches the
// statement shape in the template's linkage, so repeated executions of the
// same call site do not rebuild it.
//
// Thread-safety: Processor is safe for concurrent use.
type Processor struct {
	text *processor.Processor[string]
}

var _ processor.Interface[Query] = (*Processor)(nil)

// Default is the shared SQL processor.
var Default = New()

// New creates an SQL processor. Options apply to the SQL text processor.
func New(opts ...processor.Option) *Processor {
	hooks := processor.Hooks[string]{
		MapValue: func(int, any) (any, error) {
			return Placeholder, nil
		},
		MapType: func(int, ir.Type) ir.Type {
			return ir.TypeString
		},
	}
	return &Processor{
		text: processor.MustNew(hooks, append([]processor.Option{processor.WithName("sql")}, opts...)...),
	}
}

// Name returns the processor name used in logs and render records.
func (p *Processor) Name() string {
	return p.text.Name()
}

// Process converts t to a parameterized query.
//
// Returns NULL_REFERENCE if t is nil and INVALID_ARGUMENT if a value cannot
// be bound as an SQL parameter.
func (p *Processor) Process(t *template.Template) (Query, error) {
	res, err := p.ProcessResult(t)
	return res.Value, err
}

// ProcessResult is like Process but also reports which path built the SQL text.
func (p *Processor) ProcessResult(t *template.Template) (processor.Result[Query], error) {
	if t == nil {
		return processor.Result[Query]{}, template.NewNullReference("querysql.Process", "template")
	}

	flat, err := template.Flatten(t)
	if err != nil {
		return processor.Result[Query]{}, err
	}

	args := make([]any, flat.Len())
	for i := range args {
		param, err := valueToParam(flat.Value(i))
		if err != nil {
			return processor.Result[Query]{}, template.NewInvalidArgument("querysql.Process",
				"value %d: %v", i, err)
		}
		args[i] = param
	}

	text, err := p.text.ProcessResult(flat)
	if err != nil {
		return processor.Result[Query]{}, err
	}
	return processor.Result[Query]{
		Value: Query{SQL: text.Value, Args: args},
		Path:  text.Path,
	}, nil
}

// valueToParam converts a template value to a database/sql argument.
// Supports strings, integers, floats, bools, []byte, time.Time, nil and
// interpolators (bound as their interpolation).
func valueToParam(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case Ident:
		return nil, fmt.Errorf("identifier %q cannot be used as SQL parameter", string(val))
	case string, bool, float64, int64, []byte, time.Time:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint8:
		return int64(val), nil
	case uint:
		return uintParam(uint64(val))
	case uint64:
		return uintParam(val)
	case float32:
		return float64(val), nil
	case *template.Template:
		if val == nil {
			return nil, nil
		}
		return val.Interpolate(), nil
	case ir.Interpolator:
		return val.Interpolate(), nil
	default:
		return nil, fmt.Errorf("unsupported type for SQL parameter: %T", v)
	}
}

func uintParam(u uint64) (any, error) {
	if u > 1<<63-1 {
		return nil, fmt.Errorf("unsigned value %d overflows int64", u)
	}
	return int64(u), nil
}
