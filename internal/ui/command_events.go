package ui

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/h434ni/loggy-run/internal/execshell"
)

const (
	commandStartedMessageTemplateConstant          = "Running %s"
	commandCompletedMessageTemplateConstant        = "Completed %s"
	commandExitedMessageTemplateConstant           = "%s exited with code %d"
	commandInterruptedMessageTemplateConstant      = "Interrupted %s"
	commandExecutionFailureMessageTemplateConstant = "%s failed: %s"
	commandArgumentsJoinSeparatorConstant          = " "
	unknownFailureMessageConstant                  = "unknown error"
	runIdentifierFieldConstant                     = "run_id"
	logFileFieldConstant                           = "log_file"
	exitCodeFieldConstant                          = "exit_code"
	lineCountFieldConstant                         = "lines"
	durationFieldConstant                          = "duration"
)

// CommandEventFormatter builds human-readable messages for command lifecycle events.
type CommandEventFormatter struct{}

// BuildStartedMessage formats the message describing a spawned command.
func (formatter CommandEventFormatter) BuildStartedMessage(command execshell.ShellCommand) string {
	return fmt.Sprintf(commandStartedMessageTemplateConstant, formatter.formatCommandLabel(command))
}

// BuildCompletedMessage formats the message describing a command that terminated on its own.
func (formatter CommandEventFormatter) BuildCompletedMessage(command execshell.ShellCommand, result execshell.ExecutionResult) string {
	if result.ExitCode == 0 {
		return fmt.Sprintf(commandCompletedMessageTemplateConstant, formatter.formatCommandLabel(command))
	}
	return fmt.Sprintf(commandExitedMessageTemplateConstant, formatter.formatCommandLabel(command), result.ExitCode)
}

// BuildInterruptedMessage formats the message describing an operator interruption.
func (formatter CommandEventFormatter) BuildInterruptedMessage(command execshell.ShellCommand) string {
	return fmt.Sprintf(commandInterruptedMessageTemplateConstant, formatter.formatCommandLabel(command))
}

// BuildExecutionFailureMessage formats the message describing an abandoned run.
func (formatter CommandEventFormatter) BuildExecutionFailureMessage(command execshell.ShellCommand, failure error) string {
	failureMessage := unknownFailureMessageConstant
	if failure != nil {
		failureMessage = failure.Error()
	}
	return fmt.Sprintf(commandExecutionFailureMessageTemplateConstant, formatter.formatCommandLabel(command), failureMessage)
}

func (formatter CommandEventFormatter) formatCommandLabel(command execshell.ShellCommand) string {
	commandParts := []string{string(command.Name)}
	if len(command.Details.Arguments) > 0 {
		commandParts = append(commandParts, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	return strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
}

// ConsoleRunEventLogger reports run lifecycle events through a zap logger.
// Every event logs at Info; the console notice is the only report at the default warn level.
type ConsoleRunEventLogger struct {
	logger    *zap.Logger
	formatter CommandEventFormatter
}

// NewConsoleRunEventLogger constructs an event logger whose entries carry runIdentifier when it is set.
func NewConsoleRunEventLogger(logger *zap.Logger, runIdentifier string) *ConsoleRunEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(runIdentifier) > 0 {
		logger = logger.With(zap.String(runIdentifierFieldConstant, runIdentifier))
	}
	return &ConsoleRunEventLogger{logger: logger, formatter: CommandEventFormatter{}}
}

// CommandStarted implements execshell.CommandEventObserver.
func (eventLogger *ConsoleRunEventLogger) CommandStarted(command execshell.ShellCommand, logFilePath string) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildStartedMessage(command), zap.String(logFileFieldConstant, logFilePath))
}

// CommandCompleted implements execshell.CommandEventObserver.
func (eventLogger *ConsoleRunEventLogger) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildCompletedMessage(command, result),
		zap.Int(exitCodeFieldConstant, result.ExitCode),
		zap.Int(lineCountFieldConstant, result.LineCount),
		zap.Duration(durationFieldConstant, result.Duration),
	)
}

// CommandInterrupted implements execshell.CommandEventObserver.
func (eventLogger *ConsoleRunEventLogger) CommandInterrupted(command execshell.ShellCommand) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildInterruptedMessage(command))
}

// CommandExecutionFailed implements execshell.CommandEventObserver.
func (eventLogger *ConsoleRunEventLogger) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildExecutionFailureMessage(command, failure))
}
