package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/strtpl/internal/ir"
)

// ReadSite retrieves a single site by linkage ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSite(ctx context.Context, id string) (ir.SiteRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, site_key, fragments, signature, seq
		FROM sites
		WHERE id = ?
	`, id)

	return scanSite(row)
}

// ReadSiteByKey retrieves a single site by site key.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSiteByKey(ctx context.Context, key string) (ir.SiteRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, site_key, fragments, signature, seq
		FROM sites
		WHERE site_key = ?
	`, key)

	return scanSite(row)
}

// ReadAllSites returns all sites ordered by seq ASC, id ASC COLLATE BINARY.
// Returns an empty slice (not nil) if no sites exist.
func (s *Store) ReadAllSites(ctx context.Context) ([]ir.SiteRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site_key, fragments, signature, seq
		FROM sites
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()

	sites := []ir.SiteRecord{}
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sites: %w", err)
	}

	return sites, nil
}

// ReadRenders returns the most recent renders in ascending seq order.
// limit <= 0 returns the whole log.
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) ReadRenders(ctx context.Context, limit int) ([]ir.RenderRecord, error) {
	query := `
		SELECT seq, site_id, processor, path, result, values_json
		FROM renders
		ORDER BY seq ASC
	`
	var args []any
	if limit > 0 {
		query = `
			SELECT seq, site_id, processor, path, result, values_json
			FROM (
				SELECT * FROM renders ORDER BY seq DESC LIMIT ?
			)
			ORDER BY seq ASC
		`
		args = append(args, limit)
	}

	return s.queryRenders(ctx, query, args...)
}

// ReadRendersForSite returns every render of one linkage in seq order.
func (s *Store) ReadRendersForSite(ctx context.Context, siteID string) ([]ir.RenderRecord, error) {
	return s.queryRenders(ctx, `
		SELECT seq, site_id, processor, path, result, values_json
		FROM renders
		WHERE site_id = ?
		ORDER BY seq ASC
	`, siteID)
}

func (s *Store) queryRenders(ctx context.Context, query string, args ...any) ([]ir.RenderRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query renders: %w", err)
	}
	defer rows.Close()

	renders := []ir.RenderRecord{}
	for rows.Next() {
		rec, err := scanRender(rows)
		if err != nil {
			return nil, err
		}
		renders = append(renders, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate renders: %w", err)
	}

	return renders, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanSite scans a site row.
// sql.ErrNoRows is returned unwrapped so callers can compare with ==.
func scanSite(row scanner) (ir.SiteRecord, error) {
	var (
		rec           ir.SiteRecord
		fragmentsJSON string
		signatureJSON string
	)

	err := row.Scan(&rec.ID, &rec.SiteKey, &fragmentsJSON, &signatureJSON, &rec.Seq)
	if err == sql.ErrNoRows {
		return ir.SiteRecord{}, err
	}
	if err != nil {
		return ir.SiteRecord{}, fmt.Errorf("scan site: %w", err)
	}

	rec.Fragments, err = unmarshalStrings(fragmentsJSON)
	if err != nil {
		return ir.SiteRecord{}, fmt.Errorf("scan site %s: %w", rec.ID, err)
	}

	rec.Types, err = unmarshalSignature(signatureJSON)
	if err != nil {
		return ir.SiteRecord{}, fmt.Errorf("scan site %s: %w", rec.ID, err)
	}

	return rec, nil
}

// scanRender scans a render row.
func scanRender(row scanner) (ir.RenderRecord, error) {
	var (
		rec        ir.RenderRecord
		siteID     sql.NullString
		path       string
		valuesJSON string
	)

	if err := row.Scan(&rec.Seq, &siteID, &rec.Processor, &path, &rec.Result, &valuesJSON); err != nil {
		return ir.RenderRecord{}, fmt.Errorf("scan render: %w", err)
	}
	rec.SiteID = siteID.String
	rec.Path = ir.Path(path)

	values, err := unmarshalStrings(valuesJSON)
	if err != nil {
		return ir.RenderRecord{}, fmt.Errorf("scan render %d: %w", rec.Seq, err)
	}
	rec.Values = values

	return rec, nil
}
