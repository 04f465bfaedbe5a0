// internal/lineage/index.go
package lineage

import (
	"fmt"
	"sort"
)

// Node is an indexed tree node. Parent and Children are arena indexes; the
// root has Parent -1.
type Node struct {
	ID       string
	TaxID    string
	Parent   int
	Children []int
	Depth    int

	idx int
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Index answers taxid -> node and node -> root-path questions in O(1) per step.
type Index struct {
	nodes []Node
	byID  map[string]int
	byTax map[string]int
	names map[string]string
	root  int

	order  []int // preorder node indexes
	pos    []int // preorder position per node
	end    []int // exclusive end of the subtree interval
	leaves []int // leaf count per node

	skipped int
}

// Build validates tree and attaches the correspondence table. It fails with a
// *TreeParseError on duplicate node ids, dangling parents, zero or several
// roots, cycles and conflicting taxids. Correspondence rows naming an
// unknown node are skipped and counted (see Skipped).
func Build(tree *Tree, corr []Correspondence) (*Index, error) {
	if tree == nil || len(tree.Nodes) == 0 {
		return nil, treeErr("empty tree")
	}
	x := &Index{
		nodes: make([]Node, len(tree.Nodes)),
		byID:  make(map[string]int, len(tree.Nodes)),
		byTax: make(map[string]int, len(tree.Nodes)+len(corr)),
		names: make(map[string]string),
		root:  -1,
	}
	for i, rn := range tree.Nodes {
		if rn.ID == "" {
			return nil, treeErr("node %d has an empty id", i)
		}
		if _, dup := x.byID[rn.ID]; dup {
			return nil, treeErr("duplicate node id %q", rn.ID)
		}
		x.byID[rn.ID] = i
		x.nodes[i] = Node{ID: rn.ID, TaxID: rn.TaxID, Parent: -1, idx: i}
	}
	for i, rn := range tree.Nodes {
		if rn.Parent == "" {
			if x.root >= 0 {
				return nil, treeErr("multiple roots: %q and %q", x.nodes[x.root].ID, rn.ID)
			}
			x.root = i
			continue
		}
		p, ok := x.byID[rn.Parent]
		if !ok {
			return nil, treeErr("node %q has unknown parent %q", rn.ID, rn.Parent)
		}
		x.nodes[i].Parent = p
		x.nodes[p].Children = append(x.nodes[p].Children, i)
	}
	if x.root < 0 {
		return nil, treeErr("no root (every node has a parent: cycle)")
	}
	for i := range x.nodes {
		ch := x.nodes[i].Children
		sort.Slice(ch, func(a, b int) bool { return x.nodes[ch[a]].ID < x.nodes[ch[b]].ID })
	}

	if err := x.number(); err != nil {
		return nil, err
	}

	for i := range x.nodes {
		if t := x.nodes[i].TaxID; t != "" {
			if prev, dup := x.byTax[t]; dup {
				return nil, treeErr("taxid %q on both %q and %q", t, x.nodes[prev].ID, x.nodes[i].ID)
			}
			x.byTax[t] = i
		}
	}
	for _, c := range corr {
		ni, ok := x.byID[c.NodeID]
		if !ok {
			x.skipped++
			continue
		}
		if prev, dup := x.byTax[c.TaxID]; dup && prev != ni {
			return nil, treeErr("taxid %q maps to both %q and %q", c.TaxID, x.nodes[prev].ID, c.NodeID)
		}
		x.byTax[c.TaxID] = ni
		if x.nodes[ni].TaxID == "" {
			x.nodes[ni].TaxID = c.TaxID
		}
		if c.Name != "" {
			x.names[c.TaxID] = c.Name
		}
	}
	return x, nil
}

// number assigns depths and preorder intervals iteratively from the root.
// Nodes left unvisited are on a cycle detached from the root.
func (x *Index) number() error {
	n := len(x.nodes)
	x.order = make([]int, 0, n)
	x.pos = make([]int, n)
	x.end = make([]int, n)
	x.leaves = make([]int, n)
	for i := range x.pos {
		x.pos[i] = -1
	}

	type frame struct{ node, next int }
	stack := []frame{{node: x.root}}
	x.pos[x.root] = 0
	x.order = append(x.order, x.root)
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		nd := &x.nodes[top.node]
		if top.next < len(nd.Children) {
			c := nd.Children[top.next]
			top.next++
			x.nodes[c].Depth = nd.Depth + 1
			x.pos[c] = len(x.order)
			x.order = append(x.order, c)
			stack = append(stack, frame{node: c})
			continue
		}
		x.end[top.node] = len(x.order)
		if nd.IsLeaf() {
			x.leaves[top.node] = 1
		}
		if nd.Parent >= 0 {
			x.leaves[nd.Parent] += x.leaves[top.node]
		}
		stack = stack[:len(stack)-1]
	}
	if len(x.order) != n {
		for i := range x.pos {
			if x.pos[i] < 0 {
				return treeErr("node %q is not connected to root %q (cycle)", x.nodes[i].ID, x.nodes[x.root].ID)
			}
		}
	}
	return nil
}

// Len returns the number of nodes.
func (x *Index) Len() int { return len(x.nodes) }

// Skipped is the number of correspondence rows that named no tree node.
func (x *Index) Skipped() int { return x.skipped }

// Root returns the tree root.
func (x *Index) Root() *Node { return &x.nodes[x.root] }

// Node looks a node up by its identifier.
func (x *Index) Node(id string) (*Node, bool) {
	i, ok := x.byID[id]
	if !ok {
		return nil, false
	}
	return &x.nodes[i], true
}

// At returns the node stored at arena index i.
func (x *Index) At(i int) *Node { return &x.nodes[i] }

// Parent returns n's parent, or nil for the root.
func (x *Index) Parent(n *Node) *Node {
	if n.Parent < 0 {
		return nil
	}
	return &x.nodes[n.Parent]
}

// Resolve maps an external taxid to its node: correspondence first, then a
// node whose own label equals the taxid.
func (x *Index) Resolve(taxid string) (*Node, error) {
	if i, ok := x.byTax[taxid]; ok {
		return &x.nodes[i], nil
	}
	if i, ok := x.byID[taxid]; ok {
		return &x.nodes[i], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTaxid, taxid)
}

// AncestorPath returns the node for taxid followed by all of its ancestors up
// to and including the root.
func (x *Index) AncestorPath(taxid string) ([]*Node, error) {
	n, err := x.Resolve(taxid)
	if err != nil {
		return nil, err
	}
	return x.PathToRoot(n), nil
}

// PathToRoot returns n, parent(n), ..., root.
func (x *Index) PathToRoot(n *Node) []*Node {
	path := make([]*Node, 0, n.Depth+1)
	for i := n.idx; i >= 0; i = x.nodes[i].Parent {
		path = append(path, &x.nodes[i])
	}
	return path
}

// AncestorAtDistance climbs k levels from n, stopping at the root. k <= 0
// returns n.
func (x *Index) AncestorAtDistance(n *Node, k int) *Node {
	i := n.idx
	for ; k > 0 && x.nodes[i].Parent >= 0; k-- {
		i = x.nodes[i].Parent
	}
	return &x.nodes[i]
}

// MappedAncestor returns the nearest node on n's root path, n included, that
// carries a correspondence taxid.
func (x *Index) MappedAncestor(n *Node) (*Node, bool) {
	for i := n.idx; i >= 0; i = x.nodes[i].Parent {
		if x.nodes[i].TaxID != "" {
			return &x.nodes[i], true
		}
	}
	return nil, false
}

// Contains reports whether n lies in the subtree rooted at anc (n == anc counts).
func (x *Index) Contains(anc, n *Node) bool {
	return x.pos[anc.idx] <= x.pos[n.idx] && x.pos[n.idx] < x.end[anc.idx]
}

// LCA returns the lowest common ancestor of a and b.
func (x *Index) LCA(a, b *Node) *Node {
	i, j := a.idx, b.idx
	for x.nodes[i].Depth > x.nodes[j].Depth {
		i = x.nodes[i].Parent
	}
	for x.nodes[j].Depth > x.nodes[i].Depth {
		j = x.nodes[j].Parent
	}
	for i != j {
		i, j = x.nodes[i].Parent, x.nodes[j].Parent
	}
	return &x.nodes[i]
}

// LeafCount returns the number of leaves under n (1 for a leaf).
func (x *Index) LeafCount(n *Node) int { return x.leaves[n.idx] }

// Leaves returns the leaves under n in preorder.
func (x *Index) Leaves(n *Node) []*Node {
	out := make([]*Node, 0, x.leaves[n.idx])
	for _, i := range x.order[x.pos[n.idx]:x.end[n.idx]] {
		if x.nodes[i].IsLeaf() {
			out = append(out, &x.nodes[i])
		}
	}
	return out
}

// Preorder returns the preorder rank of n; subtree(n) spans
// [Preorder(n), Preorder(n)+SubtreeSize(n)).
func (x *Index) Preorder(n *Node) int { return x.pos[n.idx] }

// SubtreeSize returns the number of nodes in subtree(n), n included.
func (x *Index) SubtreeSize(n *Node) int { return x.end[n.idx] - x.pos[n.idx] }

// TaxIDOf returns the external taxid for n, falling back to its node id.
func (x *Index) TaxIDOf(n *Node) string {
	if n.TaxID != "" {
		return n.TaxID
	}
	return n.ID
}

// Name returns the display name registered for taxid, if any.
func (x *Index) Name(taxid string) string { return x.names[taxid] }
