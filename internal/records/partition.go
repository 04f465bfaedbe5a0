// internal/records/partition.go
package records

import (
	"fmt"
	"io"

	"taxmrca/internal/subtree"
)

// PartitionHeader names the partition columns.
const PartitionHeader = "#query\tstatus\tscope\tscope_taxid"

// WritePartition writes one row per assignment.
func WritePartition(w io.Writer, as []subtree.Assignment) error {
	if _, err := fmt.Fprintln(w, PartitionHeader); err != nil {
		return err
	}
	for _, a := range as {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Query, a.Status, a.Scope, orNone(a.ScopeTaxID)); err != nil {
			return err
		}
	}
	return nil
}

// SavePartition writes assignments to path.
func SavePartition(path string, as []subtree.Assignment) error {
	return writeFile(path, func(w io.Writer) error { return WritePartition(w, as) })
}

// ReadPartition parses the WritePartition format.
func ReadPartition(r io.Reader, src string) ([]subtree.Assignment, error) {
	var out []subtree.Assignment
	err := scanRows(r, src, 4, 4, func(f []string) error {
		st := subtree.Status(f[1])
		if st != subtree.Old && st != subtree.New {
			return fmt.Errorf("bad status %q", f[1])
		}
		out = append(out, subtree.Assignment{Query: f[0], Status: st, Scope: f[2], ScopeTaxID: fromNone(f[3])})
		return nil
	})
	return out, err
}

// LoadPartition reads a partition file.
func LoadPartition(path string) ([]subtree.Assignment, error) {
	return readFile(path, ReadPartition)
}
