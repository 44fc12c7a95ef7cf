//go:build windows

package execshell

import (
	"context"
	"errors"
)

const (
	pseudoTerminalUnsupportedMessageConstant = "pseudo-terminal output mode is not supported on windows"
)

// ErrPseudoTerminalUnsupported indicates the platform cannot attach children to a pseudo-terminal.
var ErrPseudoTerminalUnsupported = errors.New(pseudoTerminalUnsupportedMessageConstant)

// PseudoTerminalStarter is unavailable on windows and always fails to start.
type PseudoTerminalStarter struct{}

// NewPseudoTerminalStarter constructs a PseudoTerminalStarter.
func NewPseudoTerminalStarter() *PseudoTerminalStarter {
	return &PseudoTerminalStarter{}
}

// Start always reports ErrPseudoTerminalUnsupported.
func (starter *PseudoTerminalStarter) Start(context.Context, ShellCommand) (RunningProcess, error) {
	return nil, ErrPseudoTerminalUnsupported
}

func pseudoTerminalSupported() bool {
	return false
}
