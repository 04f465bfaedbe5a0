// internal/lineage/tree.go
package lineage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"taxmrca/internal/fileio"
)

// RawNode is one parsed tree node before validation.
// Parent is "" for the root.
type RawNode struct {
	ID     string
	TaxID  string
	Parent string
}

// Tree is an unvalidated node list in input order.
type Tree struct {
	Nodes []RawNode
}

// LoadTree reads a tree from path. .tsv/.tab/.txt (optionally .gz) are read as
// a child/parent edge table, everything else as Newick.
func LoadTree(path string) (*Tree, error) {
	rc, err := fileio.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var t *Tree
	if isEdgeTable(path) {
		t, err = ParseEdgeTable(rc)
	} else {
		t, err = ParseNewick(rc)
	}
	if err != nil {
		var tpe *TreeParseError
		if errors.As(err, &tpe) && tpe.Source == "" {
			tpe.Source = path
			return nil, tpe
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func isEdgeTable(path string) bool {
	ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(path, ".gz")))
	switch ext {
	case ".tsv", ".tab", ".txt", ".edges":
		return true
	}
	return false
}
