// internal/lineage/edges.go
package lineage

import (
	"bufio"
	"io"
	"strings"
)

// ParseEdgeTable reads "child<TAB>parent[<TAB>taxid]" rows. The root row has an
// empty parent, "-", or parent == child. Blank lines and '#' comments are skipped.
func ParseEdgeTable(r io.Reader) (*Tree, error) {
	t := &Tree{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || line[0] == '#' {
			continue
		}
		f := strings.Split(line, "\t")
		if len(f) < 1 || len(f) > 3 {
			return nil, &TreeParseError{Line: ln, Msg: "bad field count"}
		}
		n := RawNode{ID: strings.TrimSpace(f[0])}
		if n.ID == "" {
			return nil, &TreeParseError{Line: ln, Msg: "empty node id"}
		}
		if len(f) >= 2 {
			n.Parent = strings.TrimSpace(f[1])
		}
		if n.Parent == "-" || n.Parent == n.ID {
			n.Parent = ""
		}
		if len(f) == 3 {
			n.TaxID = strings.TrimSpace(f[2])
		}
		t.Nodes = append(t.Nodes, n)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(t.Nodes) == 0 {
		return nil, treeErr("empty edge table")
	}
	return t, nil
}
