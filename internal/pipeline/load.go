// internal/pipeline/load.go
package pipeline

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"taxmrca/internal/checkpoint"
	"taxmrca/internal/config"
	"taxmrca/internal/lineage"
)

// LoadIndex reads the tree and optional correspondence table.
func LoadIndex(treePath, corrPath string) (*lineage.Index, error) {
	tree, err := lineage.LoadTree(treePath)
	if err != nil {
		return nil, err
	}
	var corr []lineage.Correspondence
	if corrPath != "" {
		if corr, err = lineage.LoadCorrespondence(corrPath); err != nil {
			return nil, err
		}
	}
	idx, err := lineage.Build(tree, corr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", treePath, err)
	}
	return idx, nil
}

// Namespace fingerprints every input that changes stage outputs.
func Namespace(cfg config.Run) string {
	abs := func(p string) string {
		if p == "" {
			return ""
		}
		if a, err := filepath.Abs(p); err == nil {
			return a
		}
		return p
	}
	absAll := func(ps []string) string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = abs(p)
		}
		return strings.Join(out, ",")
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return checkpoint.Fingerprint(
		abs(cfg.Tree), abs(cfg.Correspondence), abs(cfg.Sequences),
		absAll(cfg.FirstHits), absAll(cfg.SecondHits),
		cfg.TargetDB, cfg.ComprehensiveDB,
		f(cfg.EValue), strconv.Itoa(cfg.LevelsUp), f(cfg.Threshold),
		cfg.Mode, cfg.Weighting, cfg.Anchor,
	)
}

// OpenCheckpoint opens the badger store under cfg.Checkpoint, or returns nil
// when checkpointing is off.
func OpenCheckpoint(cfg config.Run) (*checkpoint.Checkpointer, error) {
	if cfg.Checkpoint == "" {
		return nil, nil
	}
	store, err := checkpoint.OpenBadger(&checkpoint.BadgerConfig{DataDir: cfg.Checkpoint})
	if err != nil {
		return nil, err
	}
	cp, err := checkpoint.New(store, Namespace(cfg))
	if err != nil {
		store.Close()
		return nil, err
	}
	return cp, nil
}
