// internal/app/stages.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"taxmrca/internal/blasttab"
	"taxmrca/internal/cmdutil"
	"taxmrca/internal/common"
	"taxmrca/internal/config"
	"taxmrca/internal/extract"
	"taxmrca/internal/fasta"
	"taxmrca/internal/lineage"
	"taxmrca/internal/mrca"
	"taxmrca/internal/pipeline"
	"taxmrca/internal/reconcile"
	"taxmrca/internal/records"
	"taxmrca/internal/search"
	"taxmrca/internal/subtree"
	"taxmrca/internal/writers"
)

func malformedLogger(log *slog.Logger) blasttab.MalformedFunc {
	return func(src string, line int, err error) {
		log.Debug("skipping malformed hit line", slog.String("file", src), slog.Int("line", line), slog.Any("err", err))
	}
}

// ---------------- extract ----------------

func newExtractCmd(g *globals) *cobra.Command {
	var (
		tf        treeFlags
		hits      []string
		sequences string
		evalue    float64
		weighting string
		threads   int
		out       string
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Turn alignment hits into per-query focal taxa",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths := common.SplitList(hits...)
			if len(paths) == 0 {
				return usagef("--hits is required")
			}
			w, err := extract.ParseWeighting(weighting)
			if err != nil {
				return usageError{err}
			}
			log, err := g.logger()
			if err != nil {
				return err
			}
			idx, err := tf.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			var expected []string
			if sequences != "" {
				if expected, err = fasta.IDs(ctx, sequences); err != nil {
					return err
				}
			}
			batch, err := extractHits(ctx, idx, log, paths, extract.Options{
				EValue:    evalue,
				Threads:   threads,
				Weighting: w,
				Expected:  expected,
				WarnCap:   4096,
				Logger:    log,
			})
			if err != nil {
				return err
			}
			log.Info("extracted",
				slog.Int("hits", batch.Stats.Hits),
				slog.Int("kept", batch.Stats.Kept),
				slog.Int("filtered", batch.Stats.Filtered),
				slog.Int("unknown_taxa", batch.Stats.UnknownTaxa),
				slog.Int("queries", batch.Stats.Queries))
			if err := emit(g, out, func(w io.Writer) error { return records.WriteFocalSets(w, batch.Sets) }); err != nil {
				return err
			}
			if len(batch.Sets) == 0 {
				g.code = cmdutil.ExitNoResult
			}
			return nil
		},
	}
	tf.add(cmd, true)
	fs := cmd.Flags()
	fs.StringSliceVar(&hits, "hits", nil, "hit tables (repeatable, comma-separated)")
	fs.StringVar(&sequences, "sequences", "", "FASTA whose ids must appear even without hits")
	fs.Float64Var(&evalue, "evalue", config.DefaultEValue, "keep hits with evalue <= this")
	fs.StringVar(&weighting, "weighting", string(extract.WeightCount), "count|presence|bitscore")
	fs.IntVar(&threads, "threads", config.DefaultThreads, "partitions")
	fs.StringVarP(&out, "out", "o", "", "focal table path (default stdout)")
	return cmd
}

func extractHits(ctx context.Context, idx *lineage.Index, log *slog.Logger, paths []string, opts extract.Options) (extract.Batch, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, done := blasttab.Stream(ctx, paths, malformedLogger(log))
	batch, err := extract.New(idx, opts).Extract(ctx, ch)
	cancel()
	res := <-done
	if err != nil {
		return extract.Batch{}, err
	}
	if res.Err != nil && !errors.Is(res.Err, context.Canceled) {
		return extract.Batch{}, res.Err
	}
	return batch, nil
}

// ---------------- resolve ----------------

func newResolveCmd(g *globals) *cobra.Command {
	var (
		tf        treeFlags
		focal     string
		threshold float64
		mode      string
		anchor    string
		hits      []string
		evalue    float64
		pass      string
		cacheSize int
		threads   int
		out       string
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the MRCA of every focal set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := mrca.ParseMode(mode)
			if err != nil {
				return usageError{err}
			}
			var prov mrca.Provenance
			switch mrca.Provenance(pass) {
			case mrca.FirstPass, mrca.HybridPass:
				prov = mrca.Provenance(pass)
			default:
				return usagef("unknown pass %q (want first|hybrid)", pass)
			}
			log, err := g.logger()
			if err != nil {
				return err
			}
			idx, err := tf.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if strings.EqualFold(anchor, "auto") {
				paths := common.SplitList(hits...)
				if len(paths) == 0 {
					return usagef("--anchor auto needs --hits")
				}
				if anchor, err = pipeline.AutoAnchor(ctx, idx, paths, evalue, malformedLogger(log)); err != nil {
					return err
				}
				log.Info("anchor chosen", slog.String("taxid", anchor), slog.String("name", idx.Name(anchor)))
			}
			sets, err := records.LoadFocalSets(focal)
			if err != nil {
				return err
			}
			r, err := mrca.NewResolver(idx, mrca.Options{
				Threshold:  threshold,
				Mode:       m,
				Anchor:     anchor,
				CacheSize:  cacheSize,
				Provenance: prov,
			})
			if err != nil {
				if errors.Is(err, mrca.ErrAnchorRequired) {
					return usageError{err}
				}
				return err
			}
			rs, err := r.ResolveAll(ctx, sets, threads)
			if err != nil {
				return err
			}
			if err := emit(g, out, func(w io.Writer) error { return records.WriteResults(w, rs) }); err != nil {
				return err
			}
			if len(rs) == 0 {
				g.code = cmdutil.ExitNoResult
			}
			return nil
		},
	}
	tf.add(cmd, true)
	fs := cmd.Flags()
	fs.StringVar(&focal, "focal", "", "focal table from extract")
	fs.Float64Var(&threshold, "threshold", config.DefaultThreshold, "support fraction a node must exceed")
	fs.StringVar(&mode, "mode", string(mrca.SpeciesPercentage), "species_percentage|node_activation")
	fs.StringVar(&anchor, "anchor", "", "anchor taxid, or auto (needs --hits)")
	fs.StringSliceVar(&hits, "hits", nil, "first-pass hit tables for --anchor auto")
	fs.Float64Var(&evalue, "evalue", config.DefaultEValue, "e-value cutoff for --anchor auto")
	fs.StringVar(&pass, "pass", string(mrca.FirstPass), "provenance of the results (first|hybrid)")
	fs.IntVar(&cacheSize, "cache-size", config.DefaultCacheSize, "memoised focal-set signatures (0 disables)")
	fs.IntVar(&threads, "threads", config.DefaultThreads, "workers")
	fs.StringVarP(&out, "out", "o", "", "result table path (default stdout)")
	_ = cmd.MarkFlagRequired("focal")
	return cmd
}

// ---------------- expand ----------------

func newExpandCmd(g *globals) *cobra.Command {
	var (
		tf       treeFlags
		focal    string
		results  string
		levelsUp int
		out      string
	)
	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Split first-pass results into resolved and rerun queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if levelsUp < 0 {
				return usagef("--levels-up must be >= 0")
			}
			log, err := g.logger()
			if err != nil {
				return err
			}
			idx, err := tf.load()
			if err != nil {
				return err
			}
			sets, err := records.LoadFocalSets(focal)
			if err != nil {
				return err
			}
			rs, err := records.LoadResults(results)
			if err != nil {
				return err
			}
			part := subtree.NewExpander(idx, sets).Expand(rs, levelsUp)
			log.Info("partitioned", slog.Int("resolved", len(part.Resolved)), slog.Int("rerun", len(part.Rerun)))
			return emit(g, out, func(w io.Writer) error { return records.WritePartition(w, part.Assignments) })
		},
	}
	tf.add(cmd, true)
	fs := cmd.Flags()
	fs.StringVar(&focal, "focal", "", "focal table from extract")
	fs.StringVar(&results, "results", "", "first-pass result table from resolve")
	fs.IntVar(&levelsUp, "levels-up", config.DefaultLevelsUp, "levels to broaden each MRCA")
	fs.StringVarP(&out, "out", "o", "", "partition table path (default stdout)")
	_ = cmd.MarkFlagRequired("focal")
	_ = cmd.MarkFlagRequired("results")
	return cmd
}

// ---------------- regroup ----------------

func newRegroupCmd(g *globals) *cobra.Command {
	var (
		tf        treeFlags
		partition string
		sequences string
		db        string
		dir       string
		doSearch  bool
		binary    string
		threads   int
		extra     []string
	)
	cmd := &cobra.Command{
		Use:   "regroup",
		Short: "Write per-scope FASTA files for the rerun queries",
		Long: `Regroup reads a partition, writes one FASTA per broadened scope holding the
queries marked new, and prints one search job per scope. With --search the
jobs are run and their outputs concatenated into <dir>/second_hits.tsv.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := g.logger()
			if err != nil {
				return err
			}
			idx, err := tf.load()
			if err != nil {
				return err
			}
			as, err := records.LoadPartition(partition)
			if err != nil {
				return err
			}
			groups := subtree.Partition{Assignments: as}.Groups()
			if len(groups) == 0 {
				log.Info("no queries to rerun")
				g.code = cmdutil.ExitNoResult
				return nil
			}
			ctx := cmd.Context()
			plan, err := search.Regroup(ctx, sequences, dir, db, idx.Root().ID, groups)
			if err != nil {
				return err
			}
			for _, q := range plan.Missing {
				cmdutil.Warnf(g.stderr, g.quiet, "query %s not found in %s", q, sequences)
			}
			for _, sc := range plan.Unscoped {
				cmdutil.Warnf(g.stderr, g.quiet, "scope %s has no mapped taxid; searching unscoped", sc)
			}
			if err := writeJobs(g.stdout, plan.Jobs); err != nil {
				return err
			}
			if !doSearch {
				return nil
			}
			run := search.Diamond{Binary: binary, Threads: threads, ExtraArgs: extra, Logger: log}
			if err := search.RunAll(ctx, run, plan.Jobs, 1); err != nil {
				return err
			}
			merged := filepath.Join(dir, "second_hits.tsv")
			if err := search.Concat(merged, plan.Outputs()); err != nil {
				return err
			}
			log.Info("second-pass hits written", slog.String("path", merged))
			return nil
		},
	}
	tf.add(cmd, true)
	fs := cmd.Flags()
	fs.StringVar(&partition, "partition", "", "partition table from expand")
	fs.StringVar(&sequences, "sequences", "", "query protein FASTA")
	fs.StringVar(&db, "db", "", "comprehensive search database")
	fs.StringVar(&dir, "dir", "", "output directory for scope FASTA and hits")
	fs.BoolVar(&doSearch, "search", false, "run the jobs")
	fs.StringVar(&binary, "search-binary", config.DefaultSearchBinary, "aligner executable")
	fs.IntVar(&threads, "threads", config.DefaultThreads, "aligner threads")
	fs.StringArrayVar(&extra, "search-arg", nil, "extra aligner argument (repeatable)")
	for _, f := range []string{"partition", "sequences", "dir"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func writeJobs(w io.Writer, jobs []search.Job) error {
	if _, err := fmt.Fprintln(w, "#job\tqueries\tdb\ttaxonlist\tout"); err != nil {
		return err
	}
	for _, j := range jobs {
		tl := common.Dash(strings.Join(j.TaxonList, ","))
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", j.Name, j.Queries, common.Dash(j.DB), tl, j.Out); err != nil {
			return err
		}
	}
	return nil
}

// ---------------- reconcile ----------------

func newReconcileCmd(g *globals) *cobra.Command {
	var (
		first     string
		partition string
		hybrid    string
		format    string
		out       string
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Merge resolved first-pass and hybrid results into one table",
		Long: `Reconcile merges first-pass and hybrid results into one row per query.
With --partition only first-pass queries marked old are taken; without it
every first-pass result counts as resolved. A query present on both sides
keeps the first-pass answer and is flagged as a conflict.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, ok := writers.FinalWriters[format]; !ok {
				return usagef("unknown output format %q (want %s)", format, strings.Join(writers.Formats(), "|"))
			}
			firsts, err := records.LoadResults(first)
			if err != nil {
				return err
			}
			if partition != "" {
				as, err := records.LoadPartition(partition)
				if err != nil {
					return err
				}
				firsts = keepOld(firsts, as)
			}
			var hyb []mrca.Result
			if hybrid != "" {
				if hyb, err = records.LoadResults(hybrid); err != nil {
					return err
				}
			}
			finals, st := reconcile.Reconcile(firsts, hyb)
			if st.Conflicts > 0 {
				cmdutil.Warnf(g.stderr, g.quiet, "%d queries reached reconciliation twice; kept the first-pass answer", st.Conflicts)
			}
			err = emit(g, out, func(w io.Writer) error {
				return writers.WriteFinals(format, w, writers.Finals{Rows: finals, Header: true})
			})
			if err != nil {
				return err
			}
			if len(finals) == 0 {
				g.code = cmdutil.ExitNoResult
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&first, "first", "", "first-pass result table")
	fs.StringVar(&partition, "partition", "", "partition table; keeps only old first-pass queries")
	fs.StringVar(&hybrid, "hybrid", "", "hybrid result table")
	fs.StringVar(&format, "output", "tsv", "output format (tsv|json|jsonl)")
	fs.StringVarP(&out, "out", "o", "", "final table path (default stdout)")
	_ = cmd.MarkFlagRequired("first")
	return cmd
}

func keepOld(rs []mrca.Result, as []subtree.Assignment) []mrca.Result {
	old := make(map[string]bool, len(as))
	for _, a := range as {
		if a.Status == subtree.Old {
			old[a.Query] = true
		}
	}
	out := rs[:0]
	for _, r := range rs {
		if old[r.Query] {
			out = append(out, r)
		}
	}
	return out
}
