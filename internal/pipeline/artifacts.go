// internal/pipeline/artifacts.go
package pipeline

import (
	"context"
	"path/filepath"

	"taxmrca/internal/records"
	"taxmrca/internal/sqlstore"
)

// Files written under the output directory.
const (
	FileFirstFocal  = "first_focal.tsv"
	FileFirstMRCA   = "first_mrca.tsv"
	FilePartition   = "partition.tsv"
	FileSecondFocal = "second_focal.tsv"
	FileHybridMRCA  = "hybrid_mrca.tsv"
	FileFinal       = "final.tsv"
	FileSummary     = "summary.tsv"
)

func (p *Pipeline) writeArtifacts(ctx context.Context, out Outcome) error {
	dir := p.cfg.OutDir
	path := func(name string) string { return filepath.Join(dir, name) }

	steps := []func() error{
		func() error { return records.SaveFocalSets(path(FileFirstFocal), out.First.Batch.Sets) },
		func() error { return records.SaveResults(path(FileFirstMRCA), out.Resolved1) },
		func() error { return records.SavePartition(path(FilePartition), out.Partition.Assignments) },
		func() error { return records.SaveFocalSets(path(FileSecondFocal), out.Second.Batch.Sets) },
		func() error { return records.SaveResults(path(FileHybridMRCA), out.Hybrid) },
		func() error { return records.SaveFinals(path(FileFinal), out.Final.Finals) },
		func() error { return records.SaveSummary(path(FileSummary), out.Summary) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	if p.cfg.SQLite != "" {
		db, err := sqlstore.New(&sqlstore.Config{DBPath: p.cfg.SQLite})
		if err != nil {
			return err
		}
		meta := sqlstore.RunMeta{
			RunID:     out.SessionID,
			Namespace: Namespace(p.cfg),
			Threshold: p.cfg.Threshold,
			Mode:      p.cfg.Mode,
		}
		err = db.PutRun(ctx, meta, out.Final.Finals, out.Summary)
		if cerr := db.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}
	if p.cfg.MetricsFile != "" {
		if err := p.met.WriteTextfile(p.cfg.MetricsFile); err != nil {
			return err
		}
	}
	return nil
}
