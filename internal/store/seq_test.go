package store

import (
	"context"
	"reflect"
	"testing"

	"github.com/roach88/strtpl/internal/ir"
)

func TestGetLastSeq_Empty(t *testing.T) {
	s := createTestStore(t)

	seq, err := s.GetLastSeq(context.Background())
	if err != nil {
		t.Fatalf("GetLastSeq() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("GetLastSeq() = %d, want 0", seq)
	}
}

func TestNextSeq_SpansBothTables(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteSite(ctx, createTestSite("site-0001", "k", 9)); err != nil {
		t.Fatalf("WriteSite() failed: %v", err)
	}
	if err := s.WriteRender(ctx, createTestRender(4, "site-0001", ir.PathFast)); err != nil {
		t.Fatalf("WriteRender() failed: %v", err)
	}

	next, err := s.NextSeq(ctx)
	if err != nil {
		t.Fatalf("NextSeq() failed: %v", err)
	}
	if next != 10 {
		t.Errorf("NextSeq() = %d, want 10", next)
	}
}

func TestRenderStats(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteSite(ctx, createTestSite("site-0001", "k", 1)); err != nil {
		t.Fatalf("WriteSite() failed: %v", err)
	}
	records := []ir.RenderRecord{
		createTestRender(2, "site-0001", ir.PathFast),
		createTestRender(3, "site-0001", ir.PathFast),
		createTestRender(4, "site-0001", ir.PathSlow),
		createTestRender(5, "", ir.PathSlow),
	}
	for _, rec := range records {
		if err := s.WriteRender(ctx, rec); err != nil {
			t.Fatalf("WriteRender() failed: %v", err)
		}
	}

	stats, err := s.RenderStats(ctx)
	if err != nil {
		t.Fatalf("RenderStats() failed: %v", err)
	}

	want := []PathStats{
		{SiteID: "", Fast: 0, Slow: 1},
		{SiteID: "site-0001", Fast: 2, Slow: 1},
	}
	if !reflect.DeepEqual(stats, want) {
		t.Errorf("RenderStats() = %+v, want %+v", stats, want)
	}
}
