//go:build !windows

package execshell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"
)

const (
	pseudoTerminalOpenErrorTemplateConstant = "unable to open pseudo-terminal: %w"
	pseudoTerminalModeErrorTemplateConstant = "unable to configure pseudo-terminal: %w"
)

// PseudoTerminalStarter starts children attached to a pseudo-terminal so they line-buffer as if
// writing to an interactive console. The terminal is put in raw mode, so output bytes pass through
// untranslated. The child's standard input is the pseudo-terminal itself and receives no input.
type PseudoTerminalStarter struct{}

// NewPseudoTerminalStarter constructs a PseudoTerminalStarter.
func NewPseudoTerminalStarter() *PseudoTerminalStarter {
	return &PseudoTerminalStarter{}
}

// Start spawns the command in its own session with the pseudo-terminal as controlling terminal.
func (starter *PseudoTerminalStarter) Start(executionContext context.Context, command ShellCommand) (RunningProcess, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return nil, contextError
	}

	executable, buildError := buildExecutable(command)
	if buildError != nil {
		return nil, buildError
	}

	controller, terminal, openError := pty.Open()
	if openError != nil {
		return nil, fmt.Errorf(pseudoTerminalOpenErrorTemplateConstant, openError)
	}

	if _, rawModeError := term.MakeRaw(int(terminal.Fd())); rawModeError != nil {
		_ = terminal.Close()
		_ = controller.Close()
		return nil, fmt.Errorf(pseudoTerminalModeErrorTemplateConstant, rawModeError)
	}

	executable.Stdin = terminal
	executable.Stdout = terminal
	executable.Stderr = terminal
	executable.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}

	startError := executable.Start()
	_ = terminal.Close()
	if startError != nil {
		_ = controller.Close()
		return nil, startError
	}

	return &pseudoTerminalProcess{executable: executable, controller: controller}, nil
}

type pseudoTerminalProcess struct {
	executable *exec.Cmd
	controller *os.File
}

func (process *pseudoTerminalProcess) Output() io.Reader {
	return pseudoTerminalReader{controller: process.controller}
}

func (process *pseudoTerminalProcess) Wait() (int, error) {
	return waitForExitCode(process.executable)
}

func (process *pseudoTerminalProcess) Close() error {
	return process.controller.Close()
}

// pseudoTerminalReader reports io.EOF where Linux reports EIO after the last slave descriptor closes.
type pseudoTerminalReader struct {
	controller *os.File
}

func (reader pseudoTerminalReader) Read(buffer []byte) (int, error) {
	bytesRead, readError := reader.controller.Read(buffer)
	if readError != nil && errors.Is(readError, syscall.EIO) {
		return bytesRead, io.EOF
	}
	return bytesRead, readError
}

func pseudoTerminalSupported() bool {
	return true
}
