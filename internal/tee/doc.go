// Package tee supervises one child process: it streams the child's combined
// output line by line to the console and to a timestamped log file, then maps
// the way the run ended to an exit status.
//
// Supervisor.Run never returns an error. Every failure is folded into an
// Outcome: Completed with the child's own code, Interrupted (130) when the
// operator interrupts the run, or Failed (1) for anything else.
package tee
