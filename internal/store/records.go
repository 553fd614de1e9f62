package store

import (
	"github.com/roach88/strtpl/internal/ir"
	"github.com/roach88/strtpl/internal/template"
)

// SiteRecordFor builds the persisted form of a linkage.
func SiteRecordFor(l *template.Linkage, seq int64) ir.SiteRecord {
	return ir.SiteRecord{
		ID:        l.ID(),
		SiteKey:   l.Key(),
		Fragments: l.Fragments(),
		Types:     l.Types(),
		Seq:       seq,
	}
}

// RenderRecordFor builds the render log entry for one processed template.
// Values are recorded in their canonical string form.
func RenderRecordFor(seq int64, t *template.Template, processor string, path ir.Path, result string) ir.RenderRecord {
	rec := ir.RenderRecord{
		Seq:       seq,
		Processor: processor,
		Path:      path,
		Result:    result,
		Values:    make([]string, t.Len()),
	}
	if l := t.Linkage(); l != nil {
		rec.SiteID = l.ID()
	}
	for i := range rec.Values {
		rec.Values[i] = ir.ToString(t.Value(i))
	}
	return rec
}
