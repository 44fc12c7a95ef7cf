// Package cli constructs the loggy-run command-line interface. The root Cobra
// command passes every argument through to the supervised child verbatim, so
// all settings come from the configuration file and LOGGYRUN_* environment
// variables rather than flags.
package cli
