// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"taxmrca/internal/cmdutil"
	"taxmrca/internal/config"
	"taxmrca/internal/lineage"
	"taxmrca/internal/logging"
	"taxmrca/internal/pipeline"
)

// usageError marks bad invocations (exit 2).
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, a ...any) error {
	return usageError{fmt.Errorf(format, a...)}
}

func isUsage(err error) bool {
	var ue usageError
	if errors.As(err, &ue) || errors.Is(err, config.ErrInvalid) {
		return true
	}
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag") ||
		strings.HasPrefix(msg, "required flag")
}

// globals are the root persistent flags plus the exit code commands set
// when they succeed without producing results.
type globals struct {
	logLevel  string
	logFormat string
	quiet     bool
	code      int

	stdout io.Writer
	stderr io.Writer
}

func (g *globals) logger() (*slog.Logger, error) {
	l, err := logging.New(g.stderr, logging.Options{Level: g.logLevel, Format: g.logFormat, Quiet: g.quiet})
	if err != nil {
		return nil, usageError{err}
	}
	return l, nil
}

// Run is RunContext without cancellation.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

// RunContext executes the taxmrca command line and returns the exit code:
// 0 ok, 1 no results, 2 usage, 3 runtime failure, 130 canceled.
func RunContext(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	g := &globals{stdout: outw, stderr: stderr}

	root := newRootCmd(g)
	root.SetArgs(argv)
	root.SetOut(outw)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	code := g.code
	if err != nil {
		code = cmdutil.CodeFor(err, isUsage)
		switch code {
		case cmdutil.ExitCanceled, cmdutil.ExitOK:
		case cmdutil.ExitUsage:
			_, _ = fmt.Fprintf(stderr, "taxmrca: %v\nRun 'taxmrca --help' for usage.\n", err)
		default:
			_, _ = fmt.Fprintf(stderr, "taxmrca: %v\n", err)
		}
	}
	return cmdutil.Flush(outw, stderr, code)
}

func newRootCmd(g *globals) *cobra.Command {
	root := &cobra.Command{
		Use:   "taxmrca",
		Short: "Resolve taxonomic lineage (MRCA) for queries from alignment hits",
		Long: `taxmrca assigns each query the most specific ancestor in a lineage tree
that is supported by its alignment hits. A first pass resolves every query;
queries whose evidence escapes their broadened subtree are searched again in a
scoped database and re-resolved, and both passes are reconciled into one table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	pf := root.PersistentFlags()
	pf.StringVar(&g.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	pf.StringVar(&g.logFormat, "log-format", "auto", "log format (auto|text|json)")
	pf.BoolVarP(&g.quiet, "quiet", "q", false, "only log errors")

	root.AddCommand(
		newRunCmd(g),
		newExtractCmd(g),
		newResolveCmd(g),
		newExpandCmd(g),
		newRegroupCmd(g),
		newReconcileCmd(g),
		newVerifyCmd(g),
		newSummaryCmd(g),
		newTreeCmd(g),
		newVersionCmd(g),
	)
	return root
}

// treeFlags are shared by every command that needs the lineage index.
type treeFlags struct {
	tree string
	corr string
}

func (t *treeFlags) add(cmd *cobra.Command, required bool) {
	cmd.Flags().StringVar(&t.tree, "tree", "", "lineage tree (Newick, or .tsv child/parent edge table)")
	cmd.Flags().StringVar(&t.corr, "correspondence", "", "taxid<TAB>node[<TAB>name] table")
	if required {
		_ = cmd.MarkFlagRequired("tree")
	}
}

func (t *treeFlags) load() (*lineage.Index, error) {
	return pipeline.LoadIndex(t.tree, t.corr)
}

// sink returns where a command writes its table: stdout for "" or "-",
// otherwise a buffered file closed by the returned func.
func sink(g *globals, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return g.stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	bw := bufio.NewWriterSize(f, 64<<10)
	return bw, func() error {
		if err := bw.Flush(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}, nil
}

// emit writes through sink and closes it.
func emit(g *globals, path string, write func(io.Writer) error) error {
	w, closeFn, err := sink(g, path)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}
