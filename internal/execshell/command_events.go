package execshell

import "time"

// ExecutionResult summarizes a completed supervised run.
type ExecutionResult struct {
	ExitCode  int
	LineCount int
	Duration  time.Duration
}

// CommandEventObserver receives lifecycle notifications for supervised command execution.
type CommandEventObserver interface {
	// CommandStarted notifies observers that the child was spawned and its output is logged to logFilePath.
	CommandStarted(command ShellCommand, logFilePath string)
	// CommandCompleted notifies observers that the child terminated on its own and supplies the result.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandInterrupted reports that the operator interrupted the run.
	CommandInterrupted(command ShellCommand)
	// CommandExecutionFailed reports unexpected failures prior to receiving an execution result.
	CommandExecutionFailed(command ShellCommand, failure error)
}

// NoopCommandEventObserver discards all command events.
type NoopCommandEventObserver struct{}

// CommandStarted implements CommandEventObserver for the no-op observer.
func (NoopCommandEventObserver) CommandStarted(ShellCommand, string) {}

// CommandCompleted implements CommandEventObserver for the no-op observer.
func (NoopCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

// CommandInterrupted implements CommandEventObserver for the no-op observer.
func (NoopCommandEventObserver) CommandInterrupted(ShellCommand) {}

// CommandExecutionFailed implements CommandEventObserver for the no-op observer.
func (NoopCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}
