// internal/app/run.go
package app

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"taxmrca/internal/cmdutil"
	"taxmrca/internal/common"
	"taxmrca/internal/config"
	"taxmrca/internal/pipeline"
	"taxmrca/internal/writers"
)

// binder registers flags onto a config.Run and remembers how to copy each
// flag's value onto another Run, so a YAML file can be overridden by only
// the flags the user actually set.
type binder struct {
	fs   *pflag.FlagSet
	cfg  *config.Run
	copy map[string]func(dst *config.Run)
}

func bind[T any](b *binder, set func(*T, string, T, string), name string, field func(*config.Run) *T, usage string) {
	p := field(b.cfg)
	set(p, name, *p, usage)
	b.copy[name] = func(dst *config.Run) { *field(dst) = *p }
}

func (b *binder) apply(dst *config.Run) {
	b.fs.Visit(func(f *pflag.Flag) {
		if cp, ok := b.copy[f.Name]; ok {
			cp(dst)
		}
	})
}

func newRunCmd(g *globals) *cobra.Command {
	cfg := config.Defaults()
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the two-pass resolution pipeline end to end",
		Long: `Run extracts focal taxa from first-pass hits, resolves an MRCA per query,
broadens each MRCA and reruns queries whose evidence escapes the broadened
subtree, then reconciles both passes. Hits may be given precomputed or
produced by the search binary from --sequences and the databases.

The final table goes to stdout; stage files go to --out-dir.`,
		Args: cobra.NoArgs,
	}
	fs := cmd.Flags()
	b := &binder{fs: fs, cfg: &cfg, copy: map[string]func(*config.Run){}}

	fs.StringVarP(&cfgPath, "config", "c", "", "YAML run configuration; flags override it")

	bind(b, fs.StringVar, "out-dir", func(c *config.Run) *string { return &c.OutDir }, "directory for stage files")
	bind(b, fs.StringVar, "sequences", func(c *config.Run) *string { return &c.Sequences }, "query protein FASTA")
	bind(b, fs.StringVar, "tree", func(c *config.Run) *string { return &c.Tree }, "lineage tree (Newick, or .tsv edge table)")
	bind(b, fs.StringVar, "correspondence", func(c *config.Run) *string { return &c.Correspondence }, "taxid<TAB>node[<TAB>name] table")
	bind(b, fs.StringSliceVar, "first-hits", func(c *config.Run) *[]string { return &c.FirstHits }, "precomputed first-pass hit tables (repeatable, comma-separated)")
	bind(b, fs.StringSliceVar, "second-hits", func(c *config.Run) *[]string { return &c.SecondHits }, "precomputed second-pass hit tables")
	bind(b, fs.StringVar, "target-db", func(c *config.Run) *string { return &c.TargetDB }, "first-pass search database")
	bind(b, fs.StringVar, "comprehensive-db", func(c *config.Run) *string { return &c.ComprehensiveDB }, "second-pass search database")
	bind(b, fs.StringVar, "search-binary", func(c *config.Run) *string { return &c.SearchBinary }, "aligner executable")
	bind(b, fs.StringArrayVar, "search-arg", func(c *config.Run) *[]string { return &c.SearchArgs }, "extra aligner argument (repeatable)")
	bind(b, fs.IntVar, "threads", func(c *config.Run) *int { return &c.Threads }, "worker threads")
	bind(b, fs.Float64Var, "evalue", func(c *config.Run) *float64 { return &c.EValue }, "keep hits with evalue <= this")
	bind(b, fs.IntVar, "levels-up", func(c *config.Run) *int { return &c.LevelsUp }, "levels to broaden each MRCA before the containment check")
	bind(b, fs.Float64Var, "threshold", func(c *config.Run) *float64 { return &c.Threshold }, "support fraction a node must exceed")
	bind(b, fs.StringVar, "mode", func(c *config.Run) *string { return &c.Mode }, "species_percentage|node_activation")
	bind(b, fs.StringVar, "weighting", func(c *config.Run) *string { return &c.Weighting }, "count|presence|bitscore")
	bind(b, fs.StringVar, "anchor", func(c *config.Run) *string { return &c.Anchor }, "anchor taxid, or auto")
	bind(b, fs.IntVar, "cache-size", func(c *config.Run) *int { return &c.CacheSize }, "memoised focal-set signatures (0 disables)")
	bind(b, fs.DurationVar, "stage-timeout", func(c *config.Run) *time.Duration { return &c.StageTimeout }, "per-stage time limit")
	bind(b, fs.StringVar, "checkpoint-dir", func(c *config.Run) *string { return &c.Checkpoint }, "stage checkpoint store")
	bind(b, fs.BoolVar, "resume", func(c *config.Run) *bool { return &c.Resume }, "reuse checkpointed stages")
	bind(b, fs.StringVar, "sqlite", func(c *config.Run) *string { return &c.SQLite }, "record finals into this SQLite database")
	bind(b, fs.StringVar, "metrics-file", func(c *config.Run) *string { return &c.MetricsFile }, "write Prometheus text metrics here")
	bind(b, fs.StringVar, "output", func(c *config.Run) *string { return &c.Output }, "final table format (tsv|json|jsonl)")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		run := cfg
		if cfgPath != "" {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return usageError{err}
			}
			b.apply(&loaded)
			run = loaded
		}
		run.FirstHits = common.SplitList(run.FirstHits...)
		run.SecondHits = common.SplitList(run.SecondHits...)
		applyGlobals(cmd, g, &run)
		if err := run.Validate(); err != nil {
			return err
		}

		log, err := g.logger()
		if err != nil {
			return err
		}
		idx, err := pipeline.LoadIndex(run.Tree, run.Correspondence)
		if err != nil {
			return err
		}
		if n := idx.Skipped(); n > 0 {
			cmdutil.Warnf(g.stderr, g.quiet, "%d correspondence rows name unknown nodes and were skipped", n)
		}
		cp, err := pipeline.OpenCheckpoint(run)
		if err != nil {
			return err
		}
		if cp != nil {
			defer cp.Close()
		}
		p, err := pipeline.New(run, pipeline.Deps{Index: idx, Logger: log, Checkpoint: cp})
		if err != nil {
			return err
		}
		out, err := p.Run(cmd.Context())
		if err != nil {
			return err
		}
		if err := writers.WriteFinals(run.Output, g.stdout, writers.Finals{Rows: out.Final.Finals, Names: idx.Name, Header: true}); err != nil {
			return err
		}
		if len(out.Final.Finals) == 0 {
			g.code = cmdutil.ExitNoResult
		}
		return nil
	}
	return cmd
}

// applyGlobals copies root logging and output flags the user set onto run.
func applyGlobals(cmd *cobra.Command, g *globals, run *config.Run) {
	fl := cmd.Flags()
	if fl.Changed("log-level") {
		run.LogLevel = g.logLevel
	} else {
		g.logLevel = run.LogLevel
	}
	if fl.Changed("log-format") {
		run.LogFormat = g.logFormat
	} else {
		g.logFormat = run.LogFormat
	}
	if fl.Changed("quiet") {
		run.Quiet = g.quiet
	} else {
		g.quiet = run.Quiet
	}
}
