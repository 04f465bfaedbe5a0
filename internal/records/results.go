// internal/records/results.go
package records

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"taxmrca/internal/mrca"
)

// ResultHeader names the MRCA result columns.
const ResultHeader = "#query\tmrca\ttaxid\tdepth\tsupport\tcoverage\tprovenance\tunsupported\tactivation"

func formatResult(r mrca.Result) string {
	act := none
	if len(r.Activation) > 0 {
		parts := make([]string, len(r.Activation))
		for i, a := range r.Activation {
			parts[i] = fmtFloat(a)
		}
		act = strings.Join(parts, ",")
	}
	return strings.Join([]string{
		r.Query, r.NodeID, orNone(r.TaxID), strconv.Itoa(r.Depth),
		fmtFloat(r.Support), fmtFloat(r.Coverage), string(r.Provenance),
		fmtBool(r.Unsupported), act,
	}, "\t")
}

func parseResult(f []string) (mrca.Result, error) {
	r := mrca.Result{Query: f[0], NodeID: f[1], TaxID: fromNone(f[2]), Provenance: mrca.Provenance(f[6])}
	var err error
	if r.Depth, err = strconv.Atoi(f[3]); err != nil {
		return r, fmt.Errorf("bad depth %q", f[3])
	}
	if r.Support, err = strconv.ParseFloat(f[4], 64); err != nil {
		return r, fmt.Errorf("bad support %q", f[4])
	}
	if r.Coverage, err = strconv.ParseFloat(f[5], 64); err != nil {
		return r, fmt.Errorf("bad coverage %q", f[5])
	}
	if r.Unsupported, err = parseBool(f[7]); err != nil {
		return r, err
	}
	if len(f) > 8 && f[8] != none && f[8] != "" {
		for _, s := range strings.Split(f[8], ",") {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return r, fmt.Errorf("bad activation %q", s)
			}
			r.Activation = append(r.Activation, v)
		}
	}
	return r, nil
}

// WriteResults writes results in the given order.
func WriteResults(w io.Writer, rs []mrca.Result) error {
	if _, err := fmt.Fprintln(w, ResultHeader); err != nil {
		return err
	}
	for _, r := range rs {
		if _, err := fmt.Fprintln(w, formatResult(r)); err != nil {
			return err
		}
	}
	return nil
}

// SaveResults writes results to path.
func SaveResults(path string, rs []mrca.Result) error {
	return writeFile(path, func(w io.Writer) error { return WriteResults(w, rs) })
}

// ReadResults parses the WriteResults format.
func ReadResults(r io.Reader, src string) ([]mrca.Result, error) {
	var out []mrca.Result
	err := scanRows(r, src, 8, 9, func(f []string) error {
		res, err := parseResult(f)
		if err != nil {
			return err
		}
		out = append(out, res)
		return nil
	})
	return out, err
}

// LoadResults reads a result file.
func LoadResults(path string) ([]mrca.Result, error) {
	return readFile(path, ReadResults)
}
