// internal/sqlstore/sqlstore.go
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"taxmrca/internal/mrca"
	"taxmrca/internal/reconcile"
	"taxmrca/internal/summary"
)

// Store is a SQLite export of reconciled runs.
type Store struct {
	db *sql.DB
}

// Config holds configuration for SQLite.
type Config struct {
	DBPath string
}

// RunMeta describes one stored run.
type RunMeta struct {
	RunID     string
	Namespace string
	Threshold float64
	Mode      string
	Created   time.Time
}

// New opens (or creates) the database and its schema.
func New(cfg *Config) (*Store, error) {
	if cfg == nil || cfg.DBPath == "" {
		return nil, fmt.Errorf("sqlstore: DBPath is required")
	}
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", cfg.DBPath, err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id     TEXT PRIMARY KEY,
		namespace  TEXT NOT NULL,
		threshold  REAL NOT NULL,
		mode       TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS finals (
		run_id      TEXT NOT NULL,
		query       TEXT NOT NULL,
		node_id     TEXT NOT NULL,
		taxid       TEXT NOT NULL,
		depth       INTEGER NOT NULL,
		support     REAL NOT NULL,
		coverage    REAL NOT NULL,
		provenance  TEXT NOT NULL,
		conflict    INTEGER NOT NULL,
		unsupported INTEGER NOT NULL,
		alt_node_id TEXT,
		alt_taxid   TEXT,

		PRIMARY KEY (run_id, query),
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_finals_node ON finals(run_id, node_id);

	CREATE TABLE IF NOT EXISTS node_counts (
		run_id  TEXT NOT NULL,
		node_id TEXT NOT NULL,
		taxid   TEXT NOT NULL,
		queries INTEGER NOT NULL,
		percent REAL NOT NULL,

		PRIMARY KEY (run_id, node_id),
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// PutRun stores a run, its final table and its node summary atomically.
// Re-storing a run id replaces its rows.
func (s *Store) PutRun(ctx context.Context, meta RunMeta, finals []reconcile.Final, sum summary.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{`DELETE FROM finals WHERE run_id = ?`, `DELETE FROM node_counts WHERE run_id = ?`} {
		if _, err := tx.ExecContext(ctx, q, meta.RunID); err != nil {
			return fmt.Errorf("sqlstore: clear run: %w", err)
		}
	}
	if meta.Created.IsZero() {
		meta.Created = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, namespace, threshold, mode, created_at) VALUES (?, ?, ?, ?, ?)`,
		meta.RunID, meta.Namespace, meta.Threshold, meta.Mode, meta.Created.Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlstore: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO finals (run_id, query, node_id, taxid, depth, support, coverage, provenance, conflict, unsupported, alt_node_id, alt_taxid)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlstore: prepare: %w", err)
	}
	defer stmt.Close()
	for _, f := range finals {
		var altNode, altTax sql.NullString
		if f.Alternate != nil {
			altNode = sql.NullString{String: f.Alternate.NodeID, Valid: true}
			altTax = sql.NullString{String: f.Alternate.TaxID, Valid: true}
		}
		r := f.Result
		_, err = stmt.ExecContext(ctx, meta.RunID, f.Query, r.NodeID, r.TaxID, r.Depth, r.Support, r.Coverage,
			string(f.Provenance), f.Conflict, r.Unsupported, altNode, altTax)
		if err != nil {
			return fmt.Errorf("sqlstore: insert final %s: %w", f.Query, err)
		}
	}

	for _, n := range sum.Nodes {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO node_counts (run_id, node_id, taxid, queries, percent) VALUES (?, ?, ?, ?, ?)`,
			meta.RunID, n.NodeID, n.TaxID, n.Queries, n.Percent,
		)
		if err != nil {
			return fmt.Errorf("sqlstore: insert node count %s: %w", n.NodeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit: %w", err)
	}
	return nil
}

// Finals reads back the final table of a run, ordered by query.
// Alternates carry only their node and taxid.
func (s *Store) Finals(ctx context.Context, runID string) ([]reconcile.Final, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT query, node_id, taxid, depth, support, coverage, provenance, conflict, unsupported, alt_node_id, alt_taxid
		 FROM finals WHERE run_id = ? ORDER BY query`, runID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query finals: %w", err)
	}
	defer rows.Close()

	var out []reconcile.Final
	for rows.Next() {
		var (
			f              reconcile.Final
			prov           string
			altNode, altTx sql.NullString
		)
		r := &f.Result
		if err := rows.Scan(&f.Query, &r.NodeID, &r.TaxID, &r.Depth, &r.Support, &r.Coverage,
			&prov, &f.Conflict, &r.Unsupported, &altNode, &altTx); err != nil {
			return nil, fmt.Errorf("sqlstore: scan final: %w", err)
		}
		r.Query = f.Query
		f.Provenance = reconcile.Provenance(prov)
		if f.Provenance == reconcile.Hybrid {
			r.Provenance = mrca.HybridPass
		} else {
			r.Provenance = mrca.FirstPass
		}
		if altNode.Valid {
			f.Alternate = &mrca.Result{Query: f.Query, NodeID: altNode.String, TaxID: altTx.String}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Runs lists stored run ids, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, namespace, threshold, mode, created_at FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query runs: %w", err)
	}
	defer rows.Close()
	var out []RunMeta
	for rows.Next() {
		var m RunMeta
		var ts int64
		if err := rows.Scan(&m.RunID, &m.Namespace, &m.Threshold, &m.Mode, &ts); err != nil {
			return nil, fmt.Errorf("sqlstore: scan run: %w", err)
		}
		m.Created = time.Unix(ts, 0)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
