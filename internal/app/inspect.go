// internal/app/inspect.go
package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"taxmrca/internal/cmdutil"
	"taxmrca/internal/output"
	"taxmrca/internal/records"
	"taxmrca/internal/summary"
	"taxmrca/internal/verify"
	"taxmrca/internal/version"
	"taxmrca/internal/writers"
)

func newVerifyCmd(g *globals) *cobra.Command {
	var (
		tf        treeFlags
		candidate string
		reference string
		format    string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Report queries whose answer is not at or below a reference answer",
		Long: `Verify compares two final tables over the queries they share. A query is
reported when its candidate node does not lie in the subtree of the reference
node, or when either node is unknown to the tree. Exit status is 1 when any
discrepancy is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, ok := writers.ReportWriters[format]; !ok {
				return usagef("unknown output format %q", format)
			}
			idx, err := tf.load()
			if err != nil {
				return err
			}
			cand, err := records.LoadFinals(candidate)
			if err != nil {
				return err
			}
			ref, err := records.LoadFinals(reference)
			if err != nil {
				return err
			}
			ds := verify.Compare(idx, cand, ref)
			if err := writers.WriteReport(format, g.stdout, writers.Report{Rows: ds, Header: true}); err != nil {
				return err
			}
			if len(ds) > 0 {
				g.code = cmdutil.ExitNoResult
			}
			return nil
		},
	}
	tf.add(cmd, true)
	fs := cmd.Flags()
	fs.StringVar(&candidate, "candidate", "", "final table to check")
	fs.StringVar(&reference, "reference", "", "final table to check against")
	fs.StringVar(&format, "output", "tsv", "report format (tsv|json|jsonl)")
	_ = cmd.MarkFlagRequired("candidate")
	_ = cmd.MarkFlagRequired("reference")
	return cmd
}

func newSummaryCmd(g *globals) *cobra.Command {
	var (
		tf     treeFlags
		finals string
		format string
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Count queries per final node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, ok := writers.SummaryWriters[format]; !ok {
				return usagef("unknown output format %q", format)
			}
			var names output.Namer
			if tf.tree != "" {
				idx, err := tf.load()
				if err != nil {
					return err
				}
				names = idx.Name
			}
			fs, err := records.LoadFinals(finals)
			if err != nil {
				return err
			}
			s := summary.Of(fs)
			if err := writers.WriteSummary(format, g.stdout, writers.Summary{Summary: s, Names: names}); err != nil {
				return err
			}
			if s.Total == 0 {
				g.code = cmdutil.ExitNoResult
			}
			return nil
		},
	}
	tf.add(cmd, false)
	cmd.Flags().StringVar(&finals, "finals", "", "final table")
	cmd.Flags().StringVar(&format, "output", "tsv", "summary format (tsv|json)")
	_ = cmd.MarkFlagRequired("finals")
	return cmd
}

func newTreeCmd(g *globals) *cobra.Command {
	var (
		tf     treeFlags
		newick bool
	)
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Load a lineage tree and print its shape, or re-emit it as Newick",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := tf.load()
			if err != nil {
				return err
			}
			if newick {
				return idx.WriteNewick(g.stdout)
			}
			root := idx.Root()
			maxDepth, mapped := 0, 0
			for i := 0; i < idx.Len(); i++ {
				n := idx.At(i)
				maxDepth = max(maxDepth, n.Depth)
				if n.TaxID != "" {
					mapped++
				}
			}
			return writeKV(g.stdout,
				"root", root.ID,
				"nodes", fmt.Sprint(idx.Len()),
				"leaves", fmt.Sprint(idx.LeafCount(root)),
				"max_depth", fmt.Sprint(maxDepth),
				"mapped_nodes", fmt.Sprint(mapped),
				"skipped_correspondence", fmt.Sprint(idx.Skipped()),
			)
		},
	}
	tf.add(cmd, true)
	cmd.Flags().BoolVar(&newick, "newick", false, "write the tree as Newick with resolved internal names")
	return cmd
}

func writeKV(w io.Writer, kv ...string) error {
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		b.WriteString(kv[i])
		b.WriteByte('\t')
		b.WriteString(kv[i+1])
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func newVersionCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(g.stdout, "taxmrca %s\n", version.Version)
			return err
		},
	}
}
