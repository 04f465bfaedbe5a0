// internal/extract/extract.go
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"taxmrca/internal/blasttab"
	"taxmrca/internal/lineage"
	"taxmrca/internal/runutil"
)

// Weighting selects how hits become entry weights.
type Weighting string

const (
	WeightCount    Weighting = "count"    // one per hit naming the taxon
	WeightPresence Weighting = "presence" // one per distinct taxon
	WeightBitscore Weighting = "bitscore" // summed bitscore
)

// ParseWeighting validates a weighting name; "" means count.
func ParseWeighting(s string) (Weighting, error) {
	switch Weighting(s) {
	case "", WeightCount:
		return WeightCount, nil
	case WeightPresence, WeightBitscore:
		return Weighting(s), nil
	}
	return "", fmt.Errorf("unknown weighting %q (want count|presence|bitscore)", s)
}

// Options configures an Extractor.
type Options struct {
	EValue    float64   // keep hits with evalue <= EValue
	Threads   int       // partitions; <= 0 means 1
	Weighting Weighting // "" means count
	Expected  []string  // query ids that must appear even without hits
	WarnCap   int       // distinct unknown taxids remembered for warn-once
	Logger    *slog.Logger
}

// Stats counts what one extraction pass saw.
type Stats struct {
	Hits        int // records consumed
	Kept        int // records contributing at least one taxon
	Filtered    int // records above the e-value threshold
	NoHit       int // unaligned query rows
	UnknownTaxa int // taxid occurrences with no tree node
	Queries     int // distinct queries in the result
}

func (s *Stats) add(o Stats) {
	s.Hits += o.Hits
	s.Kept += o.Kept
	s.Filtered += o.Filtered
	s.NoHit += o.NoHit
	s.UnknownTaxa += o.UnknownTaxa
}

// Batch is the per-query output of one extraction pass.
type Batch struct {
	Sets  map[string]FocalSet
	Stats Stats
}

// Queries returns the query ids in ascending order.
func (b Batch) Queries() []string {
	out := make([]string, 0, len(b.Sets))
	for q := range b.Sets {
		out = append(out, q)
	}
	sort.Strings(out)
	return out
}

// Extractor turns alignment hits into FocalSets. Safe for one Extract call
// at a time per instance.
type Extractor struct {
	idx  *lineage.Index
	opts Options

	warned *runutil.LRUSet[string]
}

// New builds an Extractor over idx.
func New(idx *lineage.Index, opts Options) *Extractor {
	if opts.Threads < 1 {
		opts.Threads = 1
	}
	if opts.Weighting == "" {
		opts.Weighting = WeightCount
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Extractor{idx: idx, opts: opts, warned: runutil.NewLRUSet[string](opts.WarnCap)}
}

type taxAcc struct {
	node   string
	weight float64
}

type partial struct {
	sets  map[string]map[string]*taxAcc
	stats Stats
}

// Extract consumes hits until the channel closes. Hits are routed to
// partitions by a hash of the query id so every query is owned by exactly
// one partition; partial results merge by disjoint union.
func (e *Extractor) Extract(ctx context.Context, hits <-chan blasttab.Hit) (Batch, error) {
	n := e.opts.Threads
	parts := make([]partial, n)
	lanes := make([]chan blasttab.Hit, n)
	for i := range lanes {
		lanes[i] = make(chan blasttab.Hit, 256)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer func() {
			for _, l := range lanes {
				close(l)
			}
		}()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case h, ok := <-hits:
				if !ok {
					return nil
				}
				lane := lanes[xxhash.Sum64String(h.Query)%uint64(n)]
				select {
				case lane <- h:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		}
	})
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			p := partial{sets: make(map[string]map[string]*taxAcc)}
			for h := range lanes[i] {
				e.accumulate(&p, h)
			}
			parts[i] = p
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, err
	}
	return e.merge(parts), nil
}

// ExtractSlice is Extract over an in-memory slice.
func (e *Extractor) ExtractSlice(ctx context.Context, hits []blasttab.Hit) (Batch, error) {
	ch := make(chan blasttab.Hit, 256)
	go func() {
		defer close(ch)
		for _, h := range hits {
			select {
			case ch <- h:
			case <-ctx.Done():
				return
			}
		}
	}()
	return e.Extract(ctx, ch)
}

func (e *Extractor) accumulate(p *partial, h blasttab.Hit) {
	p.stats.Hits++
	taxa, ok := p.sets[h.Query]
	if !ok {
		taxa = make(map[string]*taxAcc)
		p.sets[h.Query] = taxa
	}
	if h.NoHit {
		p.stats.NoHit++
		return
	}
	if h.EValue > e.opts.EValue {
		p.stats.Filtered++
		return
	}

	var ids []string
	if h.HasTax {
		ids = h.TaxIDs
	} else {
		ids = []string{blasttab.SubjectTaxon(h.Subject)}
	}
	contributed := false
	for _, tid := range ids {
		node, err := e.idx.Resolve(tid)
		if err != nil {
			p.stats.UnknownTaxa++
			e.warnOnce(tid)
			continue
		}
		contributed = true
		acc, seen := taxa[tid]
		if !seen {
			acc = &taxAcc{node: node.ID}
			taxa[tid] = acc
		}
		switch e.opts.Weighting {
		case WeightPresence:
			acc.weight = 1
		case WeightBitscore:
			acc.weight += h.BitScore
		default:
			acc.weight++
		}
	}
	if contributed {
		p.stats.Kept++
	}
}

func (e *Extractor) warnOnce(taxid string) {
	if !e.warned.Add(taxid) {
		e.opts.Logger.Warn("taxid not in tree, dropped", slog.String("taxid", taxid))
	}
}

func (e *Extractor) merge(parts []partial) Batch {
	size := len(e.opts.Expected)
	for _, p := range parts {
		size += len(p.sets)
	}
	b := Batch{Sets: make(map[string]FocalSet, size)}
	for _, p := range parts {
		b.Stats.add(p.stats)
		for q, taxa := range p.sets {
			fs := FocalSet{Query: q, Entries: make([]Entry, 0, len(taxa))}
			for tid, acc := range taxa {
				if acc.weight <= 0 {
					continue
				}
				fs.Entries = append(fs.Entries, Entry{TaxID: tid, NodeID: acc.node, Weight: acc.weight})
			}
			sortEntries(fs.Entries)
			b.Sets[q] = fs
		}
	}
	for _, q := range e.opts.Expected {
		if _, ok := b.Sets[q]; !ok {
			b.Sets[q] = FocalSet{Query: q}
		}
	}
	b.Stats.Queries = len(b.Sets)
	return b
}
