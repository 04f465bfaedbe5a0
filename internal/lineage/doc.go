// Package lineage loads a reference taxonomy tree and answers ancestry queries.
//
// The Index is built once per run and is read-only afterwards; every method
// is safe for concurrent use.
//
// Nodes are stored in an arena with children sorted by ID and numbered in
// DFS preorder, so "v lies in subtree(u)" is the interval test
// pos[u] <= pos[v] < end[u].
package lineage
