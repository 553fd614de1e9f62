package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/strtpl/internal/ir"
	"github.com/roach88/strtpl/internal/store"
	"github.com/roach88/strtpl/internal/template"
)

// storedIDs reuses the linkage ID a site already has in the database so
// that repeated invocations log renders against one site row.
type storedIDs struct {
	id       string
	fallback template.IDGenerator
}

func (g storedIDs) Generate() string {
	if g.id != "" {
		return g.id
	}
	return g.fallback.Generate()
}

// siteFactory returns a factory whose first linkage for (fragments, sig)
// carries the ID recorded in st, if any. st may be nil.
func siteFactory(ctx context.Context, st *store.Store, spec *ir.SiteSpec, opts ...template.FactoryOption) (*template.Factory, error) {
	ids := storedIDs{fallback: template.UUIDv7Generator{}}
	if st != nil {
		key, err := ir.SiteKey(spec.Fragments, spec.Types)
		if err != nil {
			return nil, err
		}
		rec, err := st.ReadSiteByKey(ctx, key)
		switch {
		case err == nil:
			ids.id = rec.ID
		case !errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("look up site: %w", err)
		}
	}
	return template.NewFactory(append(opts, template.WithIDGenerator(ids))...), nil
}

// logRender appends a render to the log, writing its site first. Both
// records take fresh seq values from the shared clock.
func logRender(ctx context.Context, st *store.Store, t *template.Template, processorName string, path ir.Path, result string) (int64, error) {
	if l := t.Linkage(); l != nil {
		seq, err := st.NextSeq(ctx)
		if err != nil {
			return 0, err
		}
		if err := st.WriteSite(ctx, store.SiteRecordFor(l, seq)); err != nil {
			return 0, err
		}
	}

	seq, err := st.NextSeq(ctx)
	if err != nil {
		return 0, err
	}
	if err := st.WriteRender(ctx, store.RenderRecordFor(seq, t, processorName, path, result)); err != nil {
		return 0, err
	}
	return seq, nil
}
