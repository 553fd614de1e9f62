package processor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/strtpl/internal/ir"
	"github.com/roach88/strtpl/internal/template"
)

// Metadata is a processor's precompiled procedure for one linkage.
// It is built at most once per (linkage, owner) pair and is read-only
// afterwards.
type Metadata[R any] struct {
	linkageID string
	fragments []string
	types     ir.Signature

	filters      []ValueFilter
	stringifiers []func(any) string
	result       ResultFilter[R]

	fragLen int
}

// LinkageID identifies the linkage the metadata was built for.
func (m *Metadata[R]) LinkageID() string {
	return m.linkageID
}

// Fragments returns the mapped fragments.
func (m *Metadata[R]) Fragments() []string {
	return append([]string(nil), m.fragments...)
}

// Types returns the mapped slot types.
func (m *Metadata[R]) Types() ir.Signature {
	return append(ir.Signature(nil), m.types...)
}

// apply runs the precompiled procedure. Filter errors are returned as-is.
func (m *Metadata[R]) apply(t *template.Template) (R, error) {
	var b strings.Builder
	b.Grow(m.fragLen + 8*len(m.filters))
	b.WriteString(m.fragments[0])
	for i, filter := range m.filters {
		v, err := filter(t.Value(i))
		if err != nil {
			var zero R
			return zero, err
		}
		b.WriteString(m.stringifiers[i](v))
		b.WriteString(m.fragments[i+1])
	}
	return m.result(b.String())
}

// buildMetadata compiles the hooks against a linkage. Hook errors are
// returned unchanged; a nil filter or an unsupported mapped type is a
// LINKAGE error.
func (p *Processor[R]) buildMetadata(l *template.Linkage) (*Metadata[R], error) {
	src := l.Fragments()
	m := &Metadata[R]{
		linkageID: l.ID(),
		fragments: make([]string, len(src)),
	}
	for i, f := range src {
		mapped, err := p.hooks.MapFragment(i, f, i == len(src)-1)
		if err != nil {
			return nil, err
		}
		m.fragments[i] = mapped
		m.fragLen += len(mapped)
	}

	types := l.Types()
	m.types = make(ir.Signature, len(types))
	m.filters = make([]ValueFilter, len(types))
	m.stringifiers = make([]func(any) string, len(types))
	for i, t := range types {
		filter, err := p.hooks.CreateValueFilter(i, t)
		if err != nil {
			return nil, err
		}
		if filter == nil {
			return nil, p.linkageError(l, fmt.Errorf("slot %d: nil value filter", i))
		}
		mapped := p.hooks.MapType(i, t)
		str, err := template.Stringifier(mapped)
		if err != nil {
			return nil, p.linkageError(l, fmt.Errorf("slot %d: %w", i, err))
		}
		m.types[i] = mapped
		m.filters[i] = filter
		m.stringifiers[i] = str
	}

	result, err := p.hooks.CreateResultFilter()
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, p.linkageError(l, errors.New("nil result filter"))
	}
	m.result = result
	return m, nil
}

func (p *Processor[R]) linkageError(l *template.Linkage, cause error) error {
	return template.NewLinkageError("Process",
		fmt.Sprintf("building %s metadata for linkage %s", p.name, l.ID()), cause)
}
