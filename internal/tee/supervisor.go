package tee

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/h434ni/loggy-run/internal/command"
	"github.com/h434ni/loggy-run/internal/execshell"
)

const (
	processStarterMissingMessageConstant = "process starter must be provided"
	consoleMissingMessageConstant        = "console writer must be provided"
	streamReadErrorTemplateConstant      = "unable to read child output: %w"
	consoleWriteErrorTemplateConstant    = "unable to write to console: %w"
	logWriteErrorTemplateConstant        = "unable to write log file: %w"
	logCloseErrorTemplateConstant        = "unable to close log file: %w"
	waitErrorTemplateConstant            = "unable to collect child exit status: %w"
	logDirectoryCreatedMessageConstant   = "created log directory"
	logFileOpenedMessageConstant         = "opened log file"
	childStartedMessageConstant          = "child process started"
	childCompletedMessageConstant        = "child process completed"
	runInterruptedMessageConstant        = "run interrupted by operator"
	runFailedMessageConstant             = "run failed"
	consoleSubstitutionMessageConstant   = "console encoding could not represent line; substituted non-ASCII characters"
	logFieldDirectoryConstant            = "directory"
	logFieldPathConstant                 = "path"
	logFieldCommandConstant              = "command"
	logFieldExitCodeConstant             = "exit_code"
	logFieldLineCountConstant            = "lines"
	logFieldDurationConstant             = "duration"
	logFieldLineNumberConstant           = "line_number"
)

var (
	// ErrProcessStarterMissing indicates a Supervisor built without a ProcessStarter.
	ErrProcessStarterMissing = errors.New(processStarterMissingMessageConstant)
	// ErrConsoleMissing indicates a Supervisor built without a console.
	ErrConsoleMissing = errors.New(consoleMissingMessageConstant)
)

// Dependencies wires the collaborators a Supervisor needs.
type Dependencies struct {
	ProcessStarter execshell.ProcessStarter
	Console        io.Writer
	Observer       execshell.CommandEventObserver
	Clock          Clock
	Logger         *zap.Logger
}

// Supervisor runs one child at a time and tees its output.
type Supervisor struct {
	starter      execshell.ProcessStarter
	console      *ConsoleWriter
	destinations *LogDestinationProvider
	observer     execshell.CommandEventObserver
	clock        Clock
	logger       *zap.Logger
	formatter    execshell.CommandMessageFormatter
}

// NewSupervisor validates dependencies and constructs a Supervisor.
func NewSupervisor(configuration Configuration, dependencies Dependencies) (*Supervisor, error) {
	if dependencies.ProcessStarter == nil {
		return nil, ErrProcessStarterMissing
	}
	if dependencies.Console == nil {
		return nil, ErrConsoleMissing
	}

	sanitized := configuration.Sanitize()
	console, consoleError := NewConsoleWriter(dependencies.Console, sanitized.ConsoleEncoding)
	if consoleError != nil {
		return nil, consoleError
	}

	observer := dependencies.Observer
	if observer == nil {
		observer = execshell.NoopCommandEventObserver{}
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Supervisor{
		starter:      dependencies.ProcessStarter,
		console:      console,
		destinations: NewLogDestinationProvider(sanitized.LogDirectory, sanitized.LogCollision, clock),
		observer:     observer,
		clock:        clock,
		logger:       logger,
	}, nil
}

// Run starts spec, streams its combined output to the console and a new log file, and waits for it.
// Cancelling executionContext is treated as an operator interruption: the notice is printed, the
// child is left running, and its exit status is never collected.
func (supervisor *Supervisor) Run(executionContext context.Context, spec command.Spec, environment command.Environment) Outcome {
	shellCommand := buildShellCommand(spec, environment)
	if spec.Empty() {
		return supervisor.fail(shellCommand, command.ErrEmptyCommand)
	}
	if executionContext.Err() != nil {
		return supervisor.interrupt(shellCommand, nil)
	}

	startTime := supervisor.clock()
	destination, createdDirectory, openError := supervisor.destinations.Open()
	if createdDirectory {
		supervisor.logger.Info(logDirectoryCreatedMessageConstant, zap.String(logFieldDirectoryConstant, supervisor.destinations.directory))
	}
	if openError != nil {
		return supervisor.fail(shellCommand, openError)
	}
	defer destination.Close()
	supervisor.logger.Debug(logFileOpenedMessageConstant, zap.String(logFieldPathConstant, destination.Path()))

	if announceError := supervisor.announce(shellCommand, destination.Path()); announceError != nil {
		return supervisor.fail(shellCommand, announceError)
	}
	if executionContext.Err() != nil {
		return supervisor.interrupt(shellCommand, nil)
	}

	process, startError := supervisor.starter.Start(executionContext, shellCommand)
	if startError != nil {
		if executionContext.Err() != nil {
			return supervisor.interrupt(shellCommand, nil)
		}
		return supervisor.fail(shellCommand, startError)
	}
	supervisor.logger.Debug(childStartedMessageConstant, zap.String(logFieldCommandConstant, supervisor.formatter.FormatCommandLine(shellCommand)))
	supervisor.observer.CommandStarted(shellCommand, destination.Path())

	session := &streamSession{console: supervisor.console, destination: destination, logger: supervisor.logger}
	streamDone := make(chan error, 1)
	go func() {
		streamDone <- session.consume(process.Output())
	}()

	select {
	case streamError := <-streamDone:
		if streamError != nil {
			_ = process.Close()
			go reap(process)
			return supervisor.fail(shellCommand, streamError)
		}
	case <-executionContext.Done():
		return supervisor.abandon(shellCommand, session, process)
	}
	// The interrupt reaches the child too, so its stream may end first.
	if executionContext.Err() != nil {
		return supervisor.abandon(shellCommand, session, process)
	}

	waitDone := make(chan waitResult, 1)
	go func() {
		exitCode, waitError := process.Wait()
		waitDone <- waitResult{exitCode: exitCode, err: waitError}
	}()

	var result waitResult
	select {
	case result = <-waitDone:
	case <-executionContext.Done():
		return supervisor.abandon(shellCommand, session, process)
	}
	if executionContext.Err() != nil {
		return supervisor.abandon(shellCommand, session, process)
	}
	_ = process.Close()

	if result.err != nil {
		return supervisor.fail(shellCommand, fmt.Errorf(waitErrorTemplateConstant, result.err))
	}
	if closeError := destination.Close(); closeError != nil {
		return supervisor.fail(shellCommand, fmt.Errorf(logCloseErrorTemplateConstant, closeError))
	}

	executionResult := execshell.ExecutionResult{
		ExitCode:  result.exitCode,
		LineCount: session.lineCount,
		Duration:  supervisor.clock().Sub(startTime),
	}
	supervisor.logger.Debug(childCompletedMessageConstant,
		zap.Int(logFieldExitCodeConstant, executionResult.ExitCode),
		zap.Int(logFieldLineCountConstant, executionResult.LineCount),
		zap.Duration(logFieldDurationConstant, executionResult.Duration),
	)
	supervisor.observer.CommandCompleted(shellCommand, executionResult)
	return Completed(result.exitCode)
}

func (supervisor *Supervisor) announce(shellCommand execshell.ShellCommand, logFilePath string) error {
	for _, announcement := range []string{
		supervisor.formatter.BuildStartedMessage(shellCommand),
		supervisor.formatter.BuildLogDestinationMessage(logFilePath),
	} {
		if _, writeError := supervisor.console.WriteLine(announcement); writeError != nil {
			return fmt.Errorf(consoleWriteErrorTemplateConstant, writeError)
		}
	}
	return nil
}

// abandon stops delivering output, prints the interruption notice as the final console line,
// and releases the supervisor's end of the stream. The child is neither signalled nor waited for.
func (supervisor *Supervisor) abandon(shellCommand execshell.ShellCommand, session *streamSession, process execshell.RunningProcess) Outcome {
	outcome := supervisor.interrupt(shellCommand, session)
	_ = process.Close()
	return outcome
}

func (supervisor *Supervisor) interrupt(shellCommand execshell.ShellCommand, session *streamSession) Outcome {
	notice := supervisor.formatter.BuildInterruptedMessage()
	if session != nil {
		session.stop(func() {
			_, _ = supervisor.console.WriteLine(notice)
		})
	} else {
		_, _ = supervisor.console.WriteLine(notice)
	}
	supervisor.logger.Debug(runInterruptedMessageConstant)
	supervisor.observer.CommandInterrupted(shellCommand)
	return Interrupted()
}

func (supervisor *Supervisor) fail(shellCommand execshell.ShellCommand, failure error) Outcome {
	_, _ = supervisor.console.WriteLine(supervisor.formatter.BuildExecutionFailureMessage(failure))
	supervisor.logger.Debug(runFailedMessageConstant, zap.Error(failure))
	supervisor.observer.CommandExecutionFailed(shellCommand, failure)
	return Failed(failure)
}

// buildShellCommand leaves the environment nil when none was built so the child inherits the supervisor's.
func buildShellCommand(spec command.Spec, environment command.Environment) execshell.ShellCommand {
	shellCommand := execshell.ShellCommand{
		Name:    execshell.CommandName(spec.Executable()),
		Details: execshell.CommandDetails{Arguments: spec.Arguments()},
	}
	if environment.Len() > 0 {
		shellCommand.Details.EnvironmentEntries = environment.Entries()
	}
	return shellCommand
}

func reap(process execshell.RunningProcess) {
	_, _ = process.Wait()
}

type waitResult struct {
	exitCode int
	err      error
}

// streamSession delivers lines to both sinks until the stream ends or the session is stopped.
// Deliveries and stop are serialized so nothing reaches either sink after stop returns.
type streamSession struct {
	mutex       sync.Mutex
	stopped     bool
	console     *ConsoleWriter
	destination *LogDestination
	logger      *zap.Logger
	lineCount   int
}

func (session *streamSession) consume(output io.Reader) error {
	scanner := NewLineScanner(output)
	for {
		line, readError := scanner.Next()
		if len(line) > 0 {
			if deliverError := session.deliver(line); deliverError != nil {
				return deliverError
			}
		}
		if errors.Is(readError, io.EOF) {
			return nil
		}
		if readError != nil {
			if session.isStopped() {
				return nil
			}
			return fmt.Errorf(streamReadErrorTemplateConstant, readError)
		}
	}
}

func (session *streamSession) deliver(line string) error {
	session.mutex.Lock()
	defer session.mutex.Unlock()

	if session.stopped {
		return nil
	}

	substituted, consoleError := session.console.WriteLine(line)
	if consoleError != nil {
		return fmt.Errorf(consoleWriteErrorTemplateConstant, consoleError)
	}
	session.lineCount++
	if substituted {
		session.logger.Debug(consoleSubstitutionMessageConstant, zap.Int(logFieldLineNumberConstant, session.lineCount))
	}

	if logError := session.destination.WriteLine(line); logError != nil {
		return fmt.Errorf(logWriteErrorTemplateConstant, logError)
	}
	return nil
}

// stop marks the session stopped and runs final while no delivery is in progress.
func (session *streamSession) stop(final func()) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	session.stopped = true
	final()
}

func (session *streamSession) isStopped() bool {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	return session.stopped
}
