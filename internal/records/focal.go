// internal/records/focal.go
package records

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"taxmrca/internal/extract"
)

// FocalHeader names the focal set columns. One row per (query, taxon);
// a query with an empty set has a single row of "-" placeholders.
const FocalHeader = "#query\ttaxid\tnode\tweight"

// WriteFocalSets writes sets ordered by query id.
func WriteFocalSets(w io.Writer, sets map[string]extract.FocalSet) error {
	qs := make([]string, 0, len(sets))
	for q := range sets {
		qs = append(qs, q)
	}
	sort.Strings(qs)
	if _, err := fmt.Fprintln(w, FocalHeader); err != nil {
		return err
	}
	for _, q := range qs {
		fs := sets[q]
		if fs.Empty() {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t0\n", q, none, none); err != nil {
				return err
			}
			continue
		}
		for _, e := range fs.Entries {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", q, e.TaxID, e.NodeID,
				strconv.FormatFloat(e.Weight, 'g', -1, 64)); err != nil {
				return err
			}
		}
	}
	return nil
}

// SaveFocalSets writes sets to path.
func SaveFocalSets(path string, sets map[string]extract.FocalSet) error {
	return writeFile(path, func(w io.Writer) error { return WriteFocalSets(w, sets) })
}

// ReadFocalSets parses the WriteFocalSets format.
func ReadFocalSets(r io.Reader, src string) (map[string]extract.FocalSet, error) {
	sets := map[string]extract.FocalSet{}
	err := scanRows(r, src, 4, 4, func(f []string) error {
		fs := sets[f[0]]
		fs.Query = f[0]
		if f[1] != none {
			w, err := strconv.ParseFloat(f[3], 64)
			if err != nil {
				return fmt.Errorf("bad weight %q", f[3])
			}
			fs.Entries = append(fs.Entries, extract.Entry{TaxID: f[1], NodeID: f[2], Weight: w})
		}
		sets[f[0]] = fs
		return nil
	})
	if err != nil {
		return nil, err
	}
	for q, fs := range sets {
		sort.Slice(fs.Entries, func(i, j int) bool { return fs.Entries[i].TaxID < fs.Entries[j].TaxID })
		sets[q] = fs
	}
	return sets, nil
}

// LoadFocalSets reads a focal set file.
func LoadFocalSets(path string) (map[string]extract.FocalSet, error) {
	return readFile(path, ReadFocalSets)
}
