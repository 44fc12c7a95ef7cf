package execshell

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"syscall"
)

const (
	commandNameMissingMessageConstant = "command name must be provided"
	signalExitCodeOffsetConstant      = 128
)

// ErrCommandNameMissing indicates a ShellCommand without an executable.
var ErrCommandNameMissing = errors.New(commandNameMissingMessageConstant)

// CommandName identifies the executable to start.
type CommandName string

// CommandDetails describes a single child invocation.
type CommandDetails struct {
	Arguments []string
	// EnvironmentEntries are KEY=VALUE strings; nil inherits the supervisor's environment.
	EnvironmentEntries []string
}

// ShellCommand combines a CommandName with specific options.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// RunningProcess is a started child whose standard output and standard error form one stream.
type RunningProcess interface {
	// Output returns the combined stream. It reports io.EOF once the child closed both descriptors.
	Output() io.Reader
	// Wait blocks until the child terminates and returns its exit code.
	Wait() (int, error)
	// Close releases the supervisor's end of the stream without signalling the child.
	Close() error
}

// ProcessStarter spawns children.
type ProcessStarter interface {
	Start(executionContext context.Context, command ShellCommand) (RunningProcess, error)
}

func buildExecutable(command ShellCommand) (*exec.Cmd, error) {
	if len(command.Name) == 0 {
		return nil, ErrCommandNameMissing
	}

	executable := exec.Command(string(command.Name), append([]string{}, command.Details.Arguments...)...)
	if command.Details.EnvironmentEntries != nil {
		executable.Env = append([]string{}, command.Details.EnvironmentEntries...)
	}
	return executable, nil
}

// waitForExitCode maps the result of exec.Cmd.Wait to an exit code.
// Children terminated by a signal report 128 plus the signal number.
func waitForExitCode(executable *exec.Cmd) (int, error) {
	waitError := executable.Wait()
	if waitError == nil {
		return 0, nil
	}

	var exitError *exec.ExitError
	if !errors.As(waitError, &exitError) {
		return 0, waitError
	}

	if waitStatus, isWaitStatus := exitError.Sys().(syscall.WaitStatus); isWaitStatus && waitStatus.Signaled() {
		return signalExitCodeOffsetConstant + int(waitStatus.Signal()), nil
	}
	return exitError.ExitCode(), nil
}
