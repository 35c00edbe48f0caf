// Package engine drives a battle run to completion.
//
// A Manager runs the opening phases once, then executes the round sequence in
// order until the Victory phase decides the battle, a phase asks to halt, or
// the round cap is reached. It packages the terminal battlefield as an
// Outcome. Runs are single-threaded; independent runs can proceed in parallel
// through ResolveBatch, each with its own battlefield, generator and reporter.
package engine
