package template

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/strtpl/internal/ir"
)

// IDGenerator stamps linkages with identifiers for logging and persistence.
// Implemented by UUIDv7Generator (production) and testutil.SequenceGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 linkage IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Factory specializes call sites and memoizes the resulting linkages by
// (fragments, signature).
//
// Thread-safety: all methods are safe for concurrent use. Concurrent first
// requests for the same site produce exactly one linkage.
type Factory struct {
	mu    sync.Mutex
	sites map[string]*Linkage
	order []*Linkage

	ids      IDGenerator
	logger   *slog.Logger
	maxSlots int
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithIDGenerator sets the linkage ID generator.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) FactoryOption {
	return func(f *Factory) {
		f.ids = g
	}
}

// WithLogger sets the logger for specialization events.
// Default: slog.Default().
func WithLogger(l *slog.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = l
	}
}

// WithMaxSlots lowers the per-site value limit. Values outside 1..MaxSlots
// are ignored.
func WithMaxSlots(n int) FactoryOption {
	return func(f *Factory) {
		if n >= 1 && n <= MaxSlots {
			f.maxSlots = n
		}
	}
}

// NewFactory creates an empty Factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		sites:    make(map[string]*Linkage),
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
		maxSlots: MaxSlots,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DefaultFactory serves call sites that do not own a factory.
var DefaultFactory = NewFactory()

// Site returns the linkage for fragments and sig using DefaultFactory.
func Site(fragments []string, sig ir.Signature) (*Linkage, error) {
	return DefaultFactory.Site(fragments, sig)
}

// Site returns the linkage for a call site, specializing it on first use.
//
// Returns NULL_REFERENCE if fragments is nil, INVALID_ARGUMENT if
// len(fragments) != len(sig)+1 or the arity exceeds the slot limit, and
// LINKAGE if a slot type cannot be specialized. A failed specialization is
// not cached.
func (f *Factory) Site(fragments []string, sig ir.Signature) (*Linkage, error) {
	if fragments == nil {
		return nil, NewNullReference("Site", "fragments")
	}
	if len(fragments) != len(sig)+1 {
		return nil, NewInvalidArgument("Site",
			"fragments size must be one more than signature size (%d fragments, %d types)",
			len(fragments), len(sig))
	}
	if len(sig) > f.maxSlots {
		return nil, NewInvalidArgument("Site", "too many embedded values (%d > %d)", len(sig), f.maxSlots)
	}

	key, err := ir.SiteKey(fragments, sig)
	if err != nil {
		return nil, NewLinkageError("Site", "computing site key", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if l, ok := f.sites[key]; ok {
		return l, nil
	}

	procs, err := plan(fragments, sig)
	if err != nil {
		f.logger.Error("specialization failed", "site_key", key, "types", sig.Names(), "error", err)
		return nil, NewLinkageError("Site", "constructing specialized procedures", err)
	}

	l := &Linkage{
		id:        f.ids.Generate(),
		key:       key,
		fragments: slices.Clone(fragments),
		types:     slices.Clone(sig),
		procs:     procs,
	}
	f.sites[key] = l
	f.order = append(f.order, l)

	f.logger.Debug("linkage specialized",
		"linkage_id", l.id,
		"site_key", key,
		"arity", len(sig),
		"types", sig.Names(),
	)
	return l, nil
}

// Len returns the number of cached linkages.
func (f *Factory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sites)
}

// Linkages returns cached linkages in specialization order.
func (f *Factory) Linkages() []*Linkage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.order)
}
