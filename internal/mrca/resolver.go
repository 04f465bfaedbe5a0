// internal/mrca/resolver.go
package mrca

import (
	"context"
	"errors"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"taxmrca/internal/extract"
	"taxmrca/internal/lineage"
	"taxmrca/internal/runutil"
)

// DefaultThreshold is the support fraction a node must exceed.
const DefaultThreshold = 0.5

const supportEps = 1e-12

// ErrAnchorRequired is returned for node_activation without an anchor taxon.
var ErrAnchorRequired = errors.New("node_activation mode requires an anchor taxon")

// Options configures a Resolver.
type Options struct {
	Threshold  float64 // 0 means DefaultThreshold
	Mode       Mode
	Anchor     string // optional anchor taxid, added with weight 1 to sets with usable weight
	CacheSize  int    // memoised signatures; <= 0 disables the cache
	Provenance Provenance
}

// Resolver picks the deepest ancestor with enough support for a FocalSet.
// It is safe for concurrent use.
type Resolver struct {
	idx    *lineage.Index
	opts   Options
	anchor *lineage.Node
	cache  *lru.Cache[string, Result]
}

// NewResolver validates opts against idx.
func NewResolver(idx *lineage.Index, opts Options) (*Resolver, error) {
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("support threshold %g outside [0,1]", opts.Threshold)
	}
	if opts.Mode == "" {
		opts.Mode = SpeciesPercentage
	}
	if opts.Provenance == "" {
		opts.Provenance = FirstPass
	}
	r := &Resolver{idx: idx, opts: opts}
	if opts.Anchor != "" {
		n, err := idx.Resolve(opts.Anchor)
		if err != nil {
			return nil, fmt.Errorf("anchor: %w", err)
		}
		r.anchor = n
	}
	if opts.Mode == NodeActivation && r.anchor == nil {
		return nil, ErrAnchorRequired
	}
	if opts.CacheSize > 0 {
		c, err := lru.New[string, Result](opts.CacheSize)
		if err != nil {
			return nil, err
		}
		r.cache = c
	}
	return r, nil
}

// Resolve computes the result for one FocalSet. It never fails: sets without
// usable weight resolve to the root flagged Unsupported.
func (r *Resolver) Resolve(fs extract.FocalSet) Result {
	key := fs.Signature()
	if r.cache != nil {
		if res, ok := r.cache.Get(key); ok {
			res.Query = fs.Query
			return res
		}
	}
	res := r.compute(fs)
	if r.cache != nil {
		r.cache.Add(key, res)
	}
	res.Query = fs.Query
	return res
}

func (r *Resolver) compute(fs extract.FocalSet) Result {
	type weighted struct {
		node *lineage.Node
		w    float64
	}
	var (
		entries []weighted
		total   float64
	)
	for _, e := range fs.Entries {
		if e.Weight <= 0 {
			continue
		}
		n, ok := r.idx.Node(e.NodeID)
		if !ok {
			continue
		}
		entries = append(entries, weighted{n, e.Weight})
		total += e.Weight
	}
	observed := make([]*lineage.Node, len(entries))
	for i, e := range entries {
		observed[i] = e.node
	}
	if r.anchor != nil && total > 0 {
		entries = append(entries, weighted{r.anchor, 1})
		total++
	}
	root := r.idx.Root()
	if total <= 0 {
		return Result{
			NodeID: root.ID, TaxID: r.idx.TaxIDOf(root), Depth: root.Depth,
			Unsupported: true, Provenance: r.opts.Provenance,
		}
	}

	acc := make(map[*lineage.Node]float64, len(entries)*4)
	for _, e := range entries {
		for _, a := range r.idx.PathToRoot(e.node) {
			acc[a] += e.w
		}
	}

	var (
		best    *lineage.Node
		bestSup float64
	)
	for n, w := range acc {
		sup := w / total
		if !r.qualifies(sup) {
			continue
		}
		if best == nil || n.Depth > best.Depth ||
			(n.Depth == best.Depth && (sup > bestSup+supportEps ||
				(sup >= bestSup-supportEps && n.ID < best.ID))) {
			best, bestSup = n, sup
		}
	}
	if bestSup > 1 {
		bestSup = 1
	}

	observed = r.maximal(observed)

	res := Result{
		NodeID:     best.ID,
		TaxID:      r.idx.TaxIDOf(best),
		Depth:      best.Depth,
		Support:    bestSup,
		Coverage:   ratio(r.observedUnder(best, observed), r.idx.LeafCount(best)),
		Provenance: r.opts.Provenance,
	}
	if r.opts.Mode == NodeActivation {
		res.Activation = r.activation(best, observed)
	}
	return res
}

// qualifies: strictly above the threshold, or complete agreement.
func (r *Resolver) qualifies(sup float64) bool {
	return sup > r.opts.Threshold+supportEps || sup >= 1-supportEps
}

// maximal drops nodes contained in another listed node.
func (r *Resolver) maximal(ns []*lineage.Node) []*lineage.Node {
	sort.Slice(ns, func(i, j int) bool {
		pi, pj := r.idx.Preorder(ns[i]), r.idx.Preorder(ns[j])
		if pi != pj {
			return pi < pj
		}
		return r.idx.SubtreeSize(ns[i]) > r.idx.SubtreeSize(ns[j])
	})
	out := ns[:0]
	for _, n := range ns {
		if len(out) > 0 && r.idx.Contains(out[len(out)-1], n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// observedUnder counts leaves of v that lie under an observed node.
func (r *Resolver) observedUnder(v *lineage.Node, observed []*lineage.Node) int {
	n := 0
	for _, o := range observed {
		switch {
		case r.idx.Contains(o, v):
			return r.idx.LeafCount(v)
		case r.idx.Contains(v, o):
			n += r.idx.LeafCount(o)
		}
	}
	return n
}

// activation walks from the anchor toward v (or to their common ancestor
// when v is not above the anchor) and reports, per level, the fraction of
// newly included leaves that were observed.
func (r *Resolver) activation(v *lineage.Node, observed []*lineage.Node) []float64 {
	top := r.idx.LCA(r.anchor, v)
	var (
		out          []float64
		prevLeaves   int
		prevObserved int
	)
	for n := r.anchor; ; n = r.idx.Parent(n) {
		leaves := r.idx.LeafCount(n)
		obs := r.observedUnder(n, observed)
		out = append(out, ratio(obs-prevObserved, leaves-prevLeaves))
		prevLeaves, prevObserved = leaves, obs
		if n == top {
			break
		}
	}
	return out
}

func ratio(a, b int) float64 {
	if b <= 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// ResolveAll resolves every set with up to threads workers and returns the
// results ordered by query id.
func (r *Resolver) ResolveAll(ctx context.Context, sets map[string]extract.FocalSet, threads int) ([]Result, error) {
	queries := make([]string, 0, len(sets))
	for q := range sets {
		queries = append(queries, q)
	}
	sort.Strings(queries)
	out := make([]Result, len(queries))
	threads = runutil.EffectiveThreads(threads)
	chunk := runutil.ChunkSize(len(queries), threads, 64)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for lo := 0; lo < len(queries); lo += chunk {
		lo := lo
		hi := min(lo+chunk, len(queries))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				out[i] = r.Resolve(sets[queries[i]])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
