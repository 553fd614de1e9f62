package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/strtpl/internal/ir"
)

// GetLastSeq returns the highest seq across sites and renders.
// Returns 0 for an empty store.
//
// Sites and renders share one logical clock, so a process resuming against
// an existing database continues from GetLastSeq()+1.
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM (
			SELECT seq FROM sites
			UNION ALL
			SELECT seq FROM renders
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq.Int64, nil
}

// NextSeq returns GetLastSeq()+1.
func (s *Store) NextSeq(ctx context.Context) (int64, error) {
	last, err := s.GetLastSeq(ctx)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// PathStats counts renders of one site by path.
type PathStats struct {
	SiteID string `json:"site_id"`
	Fast   int    `json:"fast"`
	Slow   int    `json:"slow"`
}

// RenderStats summarizes the render log per site, ordered by site id.
// Unlinked renders are grouped under an empty SiteID, listed first.
func (s *Store) RenderStats(ctx context.Context) ([]PathStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(site_id, ''), path, COUNT(*)
		FROM renders
		GROUP BY COALESCE(site_id, ''), path
		ORDER BY COALESCE(site_id, '') COLLATE BINARY ASC, path ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query render stats: %w", err)
	}
	defer rows.Close()

	stats := []PathStats{}
	for rows.Next() {
		var (
			siteID string
			path   string
			count  int
		)
		if err := rows.Scan(&siteID, &path, &count); err != nil {
			return nil, fmt.Errorf("scan render stats: %w", err)
		}
		if len(stats) == 0 || stats[len(stats)-1].SiteID != siteID {
			stats = append(stats, PathStats{SiteID: siteID})
		}
		cur := &stats[len(stats)-1]
		switch ir.Path(path) {
		case ir.PathFast:
			cur.Fast = count
		case ir.PathSlow:
			cur.Slow = count
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate render stats: %w", err)
	}

	return stats, nil
}
