// Package execshell starts supervised child processes.
//
// It wraps os/exec so the child's standard output and standard error arrive
// as one combined stream, either through a shared operating system pipe
// (OSProcessStarter) or a pseudo-terminal (PseudoTerminalStarter). It also
// defines the lifecycle observer contract and the console message formatter
// used to announce and conclude a run.
package execshell
