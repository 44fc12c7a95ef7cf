package execshell

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	outputModePipeStringConstant           = "pipe"
	outputModePseudoTerminalStringConstant = "pty"
	outputModeAutoStringConstant           = "auto"
	unsupportedOutputModeTemplateConstant  = "unsupported output mode: %s"
)

// OutputMode selects how the child's combined output stream is produced.
type OutputMode string

// Supported output modes.
const (
	OutputModePipe           OutputMode = OutputMode(outputModePipeStringConstant)
	OutputModePseudoTerminal OutputMode = OutputMode(outputModePseudoTerminalStringConstant)
	OutputModeAuto           OutputMode = OutputMode(outputModeAutoStringConstant)
)

// TerminalDetector reports whether a file is an interactive terminal.
type TerminalDetector func(file *os.File) bool

// StdoutIsTerminal reports whether the supervisor's standard output is a terminal.
func StdoutIsTerminal(file *os.File) bool {
	if file == nil {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// NewProcessStarter returns the starter for mode. Auto selects a pseudo-terminal when console
// is an interactive terminal and the platform supports it, and a pipe otherwise.
func NewProcessStarter(mode OutputMode, console *os.File, detector TerminalDetector) (ProcessStarter, error) {
	normalizedMode := OutputMode(strings.ToLower(strings.TrimSpace(string(mode))))
	if len(normalizedMode) == 0 {
		normalizedMode = OutputModePipe
	}
	if detector == nil {
		detector = StdoutIsTerminal
	}

	switch normalizedMode {
	case OutputModePipe:
		return NewOSProcessStarter(), nil
	case OutputModePseudoTerminal:
		return NewPseudoTerminalStarter(), nil
	case OutputModeAuto:
		if pseudoTerminalSupported() && detector(console) {
			return NewPseudoTerminalStarter(), nil
		}
		return NewOSProcessStarter(), nil
	default:
		return nil, fmt.Errorf(unsupportedOutputModeTemplateConstant, mode)
	}
}
