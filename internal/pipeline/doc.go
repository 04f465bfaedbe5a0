// Package pipeline wires the two-pass lineage resolution into a stage DAG:
//
//	search1 -> extract1 -> resolve1 -> expand -> search2 -> extract2 -> resolve2 -> reconcile
//	        \-> anchor ----------^--------------------------------------------^
//
// Each stage output can be checkpointed and restored on resume. Stage record
// files and the final table are written under the run's output directory.
package pipeline
