// Package build runs one site build as a sequence of states:
//
//	idle → discovering → converting → resolving_urls → rendering → writing → done
//
// Any failure moves the run to the terminal failed state, carrying the state
// that failed and its cause (see StageError). Output is written to a staging
// directory next to the destination and published with a single directory
// replacement, so an aborted run never touches previously published output.
package build
