package processor

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/roach88/strtpl/internal/ir"
	"github.com/roach88/strtpl/internal/template"
)

// Interface is implemented by everything that processes templates.
type Interface[R any] interface {
	Process(t *template.Template) (R, error)
}

// Result is a processed value together with the path that produced it.
type Result[R any] struct {
	Value R
	Path  ir.Path
}

// Processor converts templates to R using configured hooks.
//
// Thread-safety: a Processor is immutable after New and safe for
// concurrent use.
type Processor[R any] struct {
	name     string
	hooks    Hooks[R]
	owner    any
	fastPath bool
	logger   *slog.Logger
}

var _ Interface[string] = (*Processor[string])(nil)

// Option configures a Processor.
type Option func(*options)

type options struct {
	name     string
	fastPath bool
	logger   *slog.Logger
}

// WithName sets the processor name used in logs and render records.
// Default: "processor".
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithFastPath enables or disables the fast path.
// Default: enabled.
func WithFastPath(enabled bool) Option {
	return func(o *options) {
		o.fastPath = enabled
	}
}

// WithLogger sets the logger for metadata events.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a processor from hooks.
//
// Returns NULL_REFERENCE if MapInterpolation is nil and R is not string,
// and INVALID_ARGUMENT if SelectOwner yields a nil or non-comparable owner.
func New[R any](hooks Hooks[R], opts ...Option) (*Processor[R], error) {
	o := options{name: "processor", fastPath: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if hooks.MapInterpolation == nil {
		mi, ok := stringResult[R]()
		if !ok {
			return nil, template.NewNullReference("processor.New", "MapInterpolation")
		}
		hooks.MapInterpolation = mi
	}
	if hooks.MapFragment == nil {
		hooks.MapFragment = identityFragment
	}
	if hooks.MapType == nil {
		// A custom value mapping may change the dynamic type.
		if hooks.MapValue != nil || hooks.CreateValueFilter != nil {
			hooks.MapType = anyType
		} else {
			hooks.MapType = identityType
		}
	}
	if hooks.MapValue == nil {
		hooks.MapValue = identityValue
	}
	if hooks.CreateValueFilter == nil {
		mapValue := hooks.MapValue
		hooks.CreateValueFilter = func(index int, _ ir.Type) (ValueFilter, error) {
			return func(v any) (any, error) { return mapValue(index, v) }, nil
		}
	}
	if hooks.CreateResultFilter == nil {
		mapInterpolation := hooks.MapInterpolation
		hooks.CreateResultFilter = func() (ResultFilter[R], error) {
			return mapInterpolation, nil
		}
	}
	if hooks.Useful == nil {
		hooks.Useful = nonNil[R]
	}

	p := &Processor[R]{
		name:     o.name,
		hooks:    hooks,
		fastPath: o.fastPath,
		logger:   o.logger,
	}

	if hooks.SelectOwner == nil {
		p.owner = p
	} else {
		p.owner = hooks.SelectOwner()
		if p.owner == nil {
			return nil, template.NewInvalidArgument("processor.New", "owner must not be nil")
		}
		if !reflect.TypeOf(p.owner).Comparable() {
			return nil, template.NewInvalidArgument("processor.New",
				"owner of type %T is not comparable", p.owner)
		}
	}
	return p, nil
}

// MustNew is like New but panics on error.
// Use only for package-level processors with known-valid hooks.
func MustNew[R any](hooks Hooks[R], opts ...Option) *Processor[R] {
	p, err := New(hooks, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the processor name.
func (p *Processor[R]) Name() string {
	return p.name
}

// Owner returns the identity this processor claims linkage slots with.
func (p *Processor[R]) Owner() any {
	return p.owner
}

// FastPath reports whether the fast path is enabled.
func (p *Processor[R]) FastPath() bool {
	return p.fastPath
}

// Process converts t to R.
// Returns NULL_REFERENCE if t is nil.
func (p *Processor[R]) Process(t *template.Template) (R, error) {
	res, err := p.ProcessResult(t)
	return res.Value, err
}

// ProcessResult is like Process but also reports which path served the call.
func (p *Processor[R]) ProcessResult(t *template.Template) (Result[R], error) {
	if t == nil {
		return Result[R]{}, template.NewNullReference("Process", "template")
	}

	m, ok, err := p.metadata(t)
	if err != nil {
		return Result[R]{}, err
	}
	if ok {
		v, err := p.runFast(m, t)
		if err != nil {
			return Result[R]{}, err
		}
		return Result[R]{Value: v, Path: ir.PathFast}, nil
	}

	v, err := p.slow(t)
	if err != nil {
		return Result[R]{}, err
	}
	return Result[R]{Value: v, Path: ir.PathSlow}, nil
}

// metadata looks up or builds the fast-path metadata for t.
// ok is false when the slow path must serve the call.
func (p *Processor[R]) metadata(t *template.Template) (*Metadata[R], bool, error) {
	l := t.Linkage()
	if !p.fastPath || l == nil {
		return nil, false, nil
	}

	v, ok, err := l.Metadata(p.owner, func() (any, error) {
		m, err := p.buildMetadata(l)
		if err != nil {
			return nil, err
		}
		p.logger.Debug("processor metadata built",
			"processor", p.name,
			"linkage_id", l.ID(),
			"arity", l.Arity(),
		)
		return m, nil
	})
	if err != nil {
		return nil, false, err
	}
	if !ok {
		if l.MarkContended() {
			p.logger.Warn("linkage owned by another processor, using slow path",
				"processor", p.name,
				"linkage_id", l.ID(),
			)
		}
		return nil, false, nil
	}

	m, isMeta := v.(*Metadata[R])
	if !isMeta || !p.hooks.Useful(m) {
		return nil, false, nil
	}
	return m, true, nil
}

// runFast applies metadata, converting panics into INTERNAL_LINKAGE errors.
func (p *Processor[R]) runFast(m *Metadata[R], t *template.Template) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			result = zero
			err = template.NewInternalLinkageError("Process",
				fmt.Sprintf("%s fast path failed on linkage %s", p.name, m.linkageID),
				fmt.Errorf("panic: %v", r))
		}
	}()
	return m.apply(t)
}

// slow is the generic hook-driven path.
func (p *Processor[R]) slow(t *template.Template) (R, error) {
	var zero R

	n := t.Len()
	fragments := make([]string, n+1)
	for i := range fragments {
		f, err := p.hooks.MapFragment(i, t.Fragment(i), i == n)
		if err != nil {
			return zero, err
		}
		fragments[i] = f
	}

	values := make([]any, n)
	for i := range values {
		v, err := p.hooks.MapValue(i, t.Value(i))
		if err != nil {
			return zero, err
		}
		values[i] = v
	}

	s, err := template.Interpolate(fragments, values)
	if err != nil {
		return zero, err
	}
	return p.hooks.MapInterpolation(s)
}
