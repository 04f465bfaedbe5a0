// internal/records/finals.go
package records

import (
	"fmt"
	"io"
	"strings"

	"taxmrca/internal/mrca"
	"taxmrca/internal/reconcile"
)

// FinalHeader names the final table columns.
const FinalHeader = "#query\tmrca\ttaxid\tsupport\tcoverage\tprovenance\tconflict\tunsupported\talt_mrca\talt_taxid"

// FormatFinal renders one final row without the newline.
func FormatFinal(f reconcile.Final) string {
	altNode, altTax := none, none
	if f.Alternate != nil {
		altNode, altTax = f.Alternate.NodeID, orNone(f.Alternate.TaxID)
	}
	return strings.Join([]string{
		f.Query, f.Result.NodeID, orNone(f.Result.TaxID),
		fmtFloat(f.Result.Support), fmtFloat(f.Result.Coverage),
		string(f.Provenance), fmtBool(f.Conflict), fmtBool(f.Result.Unsupported),
		altNode, altTax,
	}, "\t")
}

// WriteFinals writes the final table.
func WriteFinals(w io.Writer, fs []reconcile.Final, header bool) error {
	if header {
		if _, err := fmt.Fprintln(w, FinalHeader); err != nil {
			return err
		}
	}
	for _, f := range fs {
		if _, err := fmt.Fprintln(w, FormatFinal(f)); err != nil {
			return err
		}
	}
	return nil
}

// SaveFinals writes the final table to path.
func SaveFinals(path string, fs []reconcile.Final) error {
	return writeFile(path, func(w io.Writer) error { return WriteFinals(w, fs, true) })
}

// ReadFinals parses the WriteFinals format. Depth and activation are not
// part of the table and come back zero.
func ReadFinals(r io.Reader, src string) ([]reconcile.Final, error) {
	var out []reconcile.Final
	err := scanRows(r, src, 10, 10, func(f []string) error {
		res, err := parseResult([]string{f[0], f[1], f[2], "0", f[3], f[4], "", f[7]})
		if err != nil {
			return err
		}
		fin := reconcile.Final{Query: f[0], Provenance: reconcile.Provenance(f[5])}
		if fin.Provenance != reconcile.Old && fin.Provenance != reconcile.Hybrid {
			return fmt.Errorf("bad provenance %q", f[5])
		}
		res.Provenance = mrca.FirstPass
		if fin.Provenance == reconcile.Hybrid {
			res.Provenance = mrca.HybridPass
		}
		fin.Result = res
		if fin.Conflict, err = parseBool(f[6]); err != nil {
			return err
		}
		if f[8] != none {
			fin.Alternate = &mrca.Result{Query: f[0], NodeID: f[8], TaxID: fromNone(f[9])}
		}
		out = append(out, fin)
		return nil
	})
	return out, err
}

// LoadFinals reads a final table.
func LoadFinals(path string) ([]reconcile.Final, error) {
	return readFile(path, ReadFinals)
}
