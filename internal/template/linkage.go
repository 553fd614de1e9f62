package template

import (
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/strtpl/internal/ir"
)

// Linkage is the shared, specialized data of one template call site.
//
// Every template built by a linkage references the same fragment list and
// the same specialized procedures. A linkage also holds one metadata slot
// that a single processor owner may claim to cache precompiled data.
//
// INVARIANTS:
//   - fragments, types and procs never change after construction
//   - the metadata slot moves from empty to exactly one owner; other owners
//     are refused for the lifetime of the linkage
type Linkage struct {
	id        string
	key       string
	fragments []string
	types     ir.Signature
	procs     *procedures

	slot      atomic.Pointer[metadataSlot]
	contended atomic.Bool
}

// metadataSlot holds one owner's cached metadata.
// The mutex serializes the single build; readers after ready never block
// on a failed or partial value.
type metadataSlot struct {
	owner any

	mu     sync.Mutex
	ready  bool
	failed bool
	value  any
}

// ID returns the linkage identifier (unique per factory).
func (l *Linkage) ID() string {
	return l.id
}

// Key returns the content-addressed site key.
func (l *Linkage) Key() string {
	return l.key
}

// Fragments returns a copy of the call-site fragments.
func (l *Linkage) Fragments() []string {
	return slices.Clone(l.fragments)
}

// Types returns a copy of the slot signature.
func (l *Linkage) Types() ir.Signature {
	return slices.Clone(l.types)
}

// Arity returns the number of value slots.
func (l *Linkage) Arity() int {
	return len(l.types)
}

// New builds a template for this call site from slot values.
//
// Returns INVALID_ARGUMENT if the number of values does not match the
// arity or a value does not conform to its slot type.
func (l *Linkage) New(values ...any) (*Template, error) {
	if len(values) != len(l.types) {
		return nil, NewInvalidArgument("Linkage.New",
			"expected %d values, got %d", len(l.types), len(values))
	}
	for i, v := range values {
		if !l.types[i].Conforms(v) {
			return nil, NewInvalidArgument("Linkage.New",
				"slot %d: value of type %T does not conform to %s", i, v, l.types[i])
		}
	}
	return &Template{
		fragments: l.fragments,
		values:    slices.Clone(values),
		link:      l,
	}, nil
}

// MustNew is like New but panics on error.
// Use only in tests or when inputs are known to be valid.
func (l *Linkage) MustNew(values ...any) *Template {
	t, err := l.New(values...)
	if err != nil {
		panic(err)
	}
	return t
}

// Owner returns the owner holding the metadata slot, or nil if unclaimed.
func (l *Linkage) Owner() any {
	if s := l.slot.Load(); s != nil {
		return s.owner
	}
	return nil
}

// MarkContended records that a non-owner was refused the metadata slot.
// It reports true only for the first call on the linkage.
func (l *Linkage) MarkContended() bool {
	return l.contended.CompareAndSwap(false, true)
}

// Metadata returns the metadata cached for owner, calling build exactly
// once to create it.
//
// The first owner to arrive claims the slot by compare-and-swap. Concurrent
// callers with the same owner wait for the single build and observe the same
// value. Callers with any other owner get ok == false and must fall back to
// their own slow path. If build fails, its error is returned and the slot is
// released so a later call may retry.
//
// Owner must be non-nil and of a comparable type.
func (l *Linkage) Metadata(owner any, build func() (any, error)) (value any, ok bool, err error) {
	if owner == nil {
		return nil, false, NewNullReference("Linkage.Metadata", "owner")
	}
	if build == nil {
		return nil, false, NewNullReference("Linkage.Metadata", "build")
	}

	for {
		s := l.slot.Load()
		if s == nil {
			if !reflect.TypeOf(owner).Comparable() {
				return nil, false, NewInvalidArgument("Linkage.Metadata",
					"owner of type %T is not comparable", owner)
			}
			fresh := &metadataSlot{owner: owner}
			if !l.slot.CompareAndSwap(nil, fresh) {
				continue
			}
			s = fresh
		}
		if s.owner != owner {
			return nil, false, nil
		}

		value, retry, err := l.fill(s, build)
		if retry {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return value, true, nil
	}
}

// fill builds the slot value once. retry reports that the slot was released
// by a failed build in another goroutine.
func (l *Linkage) fill(s *metadataSlot, build func() (any, error)) (value any, retry bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.ready:
		return s.value, false, nil
	case s.failed:
		return nil, true, nil
	}

	value, err = build()
	if err != nil {
		s.failed = true
		l.slot.CompareAndSwap(s, nil)
		return nil, false, err
	}
	s.value = value
	s.ready = true
	return value, false, nil
}
