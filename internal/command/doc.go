// Package command turns raw invocation arguments into the final child command
// line and the environment it runs with.
//
// Normalizer pins generic interpreter aliases to a concrete interpreter path,
// injects the interpreter's unbuffered-output flag, and forces a UTF-8 text
// encoding variable into a clone of the inherited environment.
package command
