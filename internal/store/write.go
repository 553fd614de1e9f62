package store

import (
	"context"
	"fmt"

	"github.com/roach88/strtpl/internal/ir"
)

// WriteSite inserts a site record into the store.
// Uses ON CONFLICT DO NOTHING for idempotency - a linkage written twice
// (same id or same site key) is silently ignored.
//
// Fragments and signature are serialized to canonical JSON per RFC 8785.
func (s *Store) WriteSite(ctx context.Context, rec ir.SiteRecord) error {
	fragmentsJSON, err := marshalStrings(rec.Fragments)
	if err != nil {
		return fmt.Errorf("write site: %w", err)
	}

	signatureJSON, err := marshalSignature(rec.Types)
	if err != nil {
		return fmt.Errorf("write site: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sites
		(id, site_key, fragments, signature, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.ID,
		rec.SiteKey,
		fragmentsJSON,
		signatureJSON,
		rec.Seq,
	)
	if err != nil {
		return fmt.Errorf("write site: %w", err)
	}

	return nil
}

// WriteRender appends a render record to the log.
//
// Note: a non-empty SiteID must reference an existing site (foreign key constraint).
// Note: seq is the primary key; writing the same seq twice is an error.
func (s *Store) WriteRender(ctx context.Context, rec ir.RenderRecord) error {
	valuesJSON, err := marshalStrings(rec.Values)
	if err != nil {
		return fmt.Errorf("write render: %w", err)
	}

	var siteID any
	if rec.SiteID != "" {
		siteID = rec.SiteID
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO renders
		(seq, site_id, processor, path, result, values_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		rec.Seq,
		siteID,
		rec.Processor,
		string(rec.Path),
		rec.Result,
		valuesJSON,
	)
	if err != nil {
		return fmt.Errorf("write render: %w", err)
	}

	return nil
}
