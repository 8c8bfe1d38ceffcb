// Package catalog persists scan results and run reports in a per-project
// sqlite database under .texforge/. It is the durable form of the engine's
// scan cache: a scan whose tree signature matches the cached row is served
// from here instead of re-classifying the whole tree.
package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"texforge/internal/errors"
	"texforge/internal/logging"
	"texforge/internal/material"
	"texforge/internal/paths"
	"texforge/internal/report"
)

// Catalog wraps the sqlite connection.
type Catalog struct {
	conn   *sql.DB
	logger *logging.Logger
}

// Open opens or creates the catalog database for a project root.
func Open(projectRoot string, logger *logging.Logger) (*Catalog, error) {
	if _, err := paths.EnsureDataDir(projectRoot); err != nil {
		return nil, errors.New(errors.CatalogError, "cannot create data directory", err)
	}

	conn, err := sql.Open("sqlite", paths.CatalogPath(projectRoot))
	if err != nil {
		return nil, errors.New(errors.CatalogError, "cannot open catalog database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, errors.New(errors.CatalogError, "cannot configure catalog database", err)
		}
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, errors.New(errors.CatalogError, "cannot initialize catalog schema", err)
	}

	return &Catalog{conn: conn, logger: logger}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.conn.Close()
}

// cachedScan is the JSON payload stored per scan root.
type cachedScan struct {
	Signature   string                 `json:"signature"`
	Descriptors []*material.Descriptor `json:"descriptors"`
	Diagnostics []report.Diagnostic    `json:"diagnostics,omitempty"`
}

// SaveScan stores a scan result and refreshes the materials table for the root.
func (c *Catalog) SaveScan(root, signature string, descs []*material.Descriptor, diags []report.Diagnostic) error {
	payload, err := json.Marshal(cachedScan{
		Signature:   signature,
		Descriptors: descs,
		Diagnostics: diags,
	})
	if err != nil {
		return errors.New(errors.CatalogError, "cannot encode scan payload", err)
	}

	tx, err := c.conn.Begin()
	if err != nil {
		return errors.New(errors.CatalogError, "cannot begin transaction", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)

	if _, err := tx.Exec(`
		INSERT INTO scan_cache (root, signature, payload_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(root) DO UPDATE SET
			signature = excluded.signature,
			payload_json = excluded.payload_json,
			created_at = excluded.created_at
	`, root, signature, string(payload), now); err != nil {
		return errors.New(errors.CatalogError, "cannot store scan cache row", err)
	}

	if _, err := tx.Exec(`DELETE FROM materials WHERE root = ?`, root); err != nil {
		return errors.New(errors.CatalogError, "cannot clear materials for root", err)
	}
	for _, d := range descs {
		lowConf := 0
		if len(d.LowConfidence) > 0 {
			lowConf = 1
		}
		if _, err := tx.Exec(`
			INSERT INTO materials (root, mesh_scope, name, channel_count, low_confidence, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, root, d.MeshScope, d.Name, len(d.Channels), lowConf, now); err != nil {
			return errors.New(errors.CatalogError,
				fmt.Sprintf("cannot store material %s/%s", d.MeshScope, d.Name), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.New(errors.CatalogError, "cannot commit scan", err)
	}
	return nil
}

// LoadScan returns the cached scan for a root if its signature still matches.
func (c *Catalog) LoadScan(root, signature string) ([]*material.Descriptor, []report.Diagnostic, bool, error) {
	var storedSig, payload string
	err := c.conn.QueryRow(`
		SELECT signature, payload_json FROM scan_cache WHERE root = ?
	`, root).Scan(&storedSig, &payload)
	if err == sql.ErrNoRows {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, errors.New(errors.CatalogError, "scan cache lookup failed", err)
	}
	if storedSig != signature {
		return nil, nil, false, nil
	}

	var cached cachedScan
	if err := json.Unmarshal([]byte(payload), &cached); err != nil {
		// A corrupt row is treated as a miss; the next save repairs it.
		c.logger.Warn("discarding corrupt scan cache row", map[string]interface{}{
			"root": root, "error": err.Error(),
		})
		return nil, nil, false, nil
	}
	return cached.Descriptors, cached.Diagnostics, true, nil
}

// ClearScanCache drops every cached scan. Whole-cache invalidation only.
func (c *Catalog) ClearScanCache() error {
	if _, err := c.conn.Exec(`DELETE FROM scan_cache`); err != nil {
		return errors.New(errors.CatalogError, "cannot clear scan cache", err)
	}
	return nil
}

// SaveRun stores a finished batch report.
func (c *Catalog) SaveRun(r *report.BatchReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return errors.New(errors.CatalogError, "cannot encode run report", err)
	}
	_, err = c.conn.Exec(`
		INSERT INTO runs (id, root, started_at, finished_at,
			created_count, skipped_count, renamed_count, warning_count, error_count, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.Root,
		r.StartedAt.Format(time.RFC3339), r.FinishedAt.Format(time.RFC3339),
		len(r.Created), len(r.Skipped), len(r.Renamed),
		len(r.Warnings()), len(r.Errors()), string(payload))
	if err != nil {
		return errors.New(errors.CatalogError, "cannot store run report", err)
	}
	return nil
}

// RunSummary is one row of run history.
type RunSummary struct {
	ID       string    `json:"id"`
	Root     string    `json:"root"`
	Started  time.Time `json:"started"`
	Created  int       `json:"created"`
	Skipped  int       `json:"skipped"`
	Warnings int       `json:"warnings"`
	Errors   int       `json:"errors"`
}

// RecentRuns returns the latest run summaries for a root, newest first.
func (c *Catalog) RecentRuns(root string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := c.conn.Query(`
		SELECT id, root, started_at, created_count, skipped_count, warning_count, error_count
		FROM runs WHERE root = ? ORDER BY started_at DESC LIMIT ?
	`, root, limit)
	if err != nil {
		return nil, errors.New(errors.CatalogError, "cannot query runs", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var started string
		if err := rows.Scan(&s.ID, &s.Root, &started, &s.Created, &s.Skipped, &s.Warnings, &s.Errors); err != nil {
			return nil, errors.New(errors.CatalogError, "cannot scan run row", err)
		}
		s.Started, _ = time.Parse(time.RFC3339, started)
		out = append(out, s)
	}
	return out, rows.Err()
}
