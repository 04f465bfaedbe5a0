// internal/lineage/newick.go
package lineage

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/evolbioinfo/gotree/io/newick"
	gotree "github.com/evolbioinfo/gotree/tree"
)

// InternalPrefix names unlabeled nodes, numbered from 1 in level order.
const InternalPrefix = "Internal_"

type nwNode struct {
	label    string
	children []*nwNode
}

// ParseNewick reads a single Newick tree with optional internal node labels
// (ete "format 1"). Branch lengths and [comments] are ignored.
func ParseNewick(r io.Reader) (*Tree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	body, err := terminated(src)
	if err != nil {
		return nil, err
	}
	gt, err := newick.NewParser(bytes.NewReader(body)).Parse()
	if err != nil {
		return nil, treeErr("newick: %v", err)
	}
	if gt.Root() == nil {
		return nil, treeErr("newick: no root")
	}

	var conv func(cur, prev *gotree.Node) *nwNode
	conv = func(cur, prev *gotree.Node) *nwNode {
		n := &nwNode{label: unquote(cur.Name())}
		for _, c := range cur.Neigh() {
			if c != prev {
				n.children = append(n.children, conv(c, cur))
			}
		}
		return n
	}
	root := conv(gt.Root(), nil)
	nameUnlabeled(root)

	t := &Tree{}
	var walk func(n *nwNode, parent string)
	walk = func(n *nwNode, parent string) {
		t.Nodes = append(t.Nodes, RawNode{ID: n.label, Parent: parent})
		for _, c := range n.children {
			walk(c, n.label)
		}
	}
	walk(root, "")
	return t, nil
}

// terminated returns src up to and including the first ';' outside quotes and
// comments. Anything but whitespace after it is an error.
func terminated(src []byte) ([]byte, error) {
	if len(bytes.TrimSpace(src)) == 0 {
		return nil, treeErr("empty newick input")
	}
	quoted, depth := false, 0
	for i, c := range src {
		switch {
		case quoted:
			if c == '\'' {
				quoted = false
			}
		case c == '\'':
			quoted = true
		case c == '[':
			depth++
		case c == ']' && depth > 0:
			depth--
		case c == ';' && depth == 0:
			if len(bytes.TrimSpace(src[i+1:])) > 0 {
				return nil, treeErr("newick offset %d: trailing data after ';'", i+1)
			}
			return src[:i+1], nil
		}
	}
	if quoted {
		return nil, treeErr("newick: unterminated quoted label")
	}
	return nil, treeErr("newick: expected ';'")
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

func isNewickDelim(c byte) bool {
	switch c {
	case '(', ')', ',', ':', ';', '[', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// nameUnlabeled assigns Internal_<n> names in level order, skipping numbers
// that would collide with an existing label.
func nameUnlabeled(root *nwNode) {
	used := map[string]bool{}
	queue := []*nwNode{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.label != "" {
			used[n.label] = true
		}
		queue = append(queue, n.children...)
	}
	counter := 1
	queue = []*nwNode{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.label == "" {
			for used[InternalPrefix+strconv.Itoa(counter)] {
				counter++
			}
			n.label = InternalPrefix + strconv.Itoa(counter)
			counter++
		}
		queue = append(queue, n.children...)
	}
}

// WriteNewick writes the indexed tree in Newick format with every node labeled.
func (x *Index) WriteNewick(w io.Writer) error {
	bw := bufio.NewWriter(w)
	var walk func(i int)
	walk = func(i int) {
		n := &x.nodes[i]
		if len(n.Children) > 0 {
			_ = bw.WriteByte('(')
			for k, c := range n.Children {
				if k > 0 {
					_ = bw.WriteByte(',')
				}
				walk(c)
			}
			_ = bw.WriteByte(')')
		}
		_, _ = bw.WriteString(quoteLabel(n.ID))
	}
	walk(x.root)
	_, _ = bw.WriteString(";\n")
	return bw.Flush()
}

func quoteLabel(s string) string {
	for i := 0; i < len(s); i++ {
		if isNewickDelim(s[i]) || s[i] == '\'' || s[i] == ']' {
			return "'" + strings.ReplaceAll(s, "'", "''") + "'"
		}
	}
	return s
}
