package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/strtpl/internal/ir"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSite creates a site record with minimal required fields.
func createTestSite(id, key string, seq int64) ir.SiteRecord {
	return ir.SiteRecord{
		ID:        id,
		SiteKey:   key,
		Fragments: []string{"x=", ""},
		Types:     ir.Signature{ir.TypeInt},
		Seq:       seq,
	}
}

// createTestRender creates a render record with minimal required fields.
func createTestRender(seq int64, siteID string, path ir.Path) ir.RenderRecord {
	return ir.RenderRecord{
		Seq:       seq,
		SiteID:    siteID,
		Processor: "str",
		Path:      path,
		Result:    "x=1",
		Values:    []string{"1"},
	}
}
