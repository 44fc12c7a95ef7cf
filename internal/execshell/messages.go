package execshell

import (
	"fmt"
	"strings"
)

const (
	runningAnnouncementTemplateConstant    = "--- Running: %s ---\n"
	loggingAnnouncementTemplateConstant    = "--- Logging to: %s ---\n"
	interruptedNoticeMessageConstant       = "\n[!] Process interrupted by user.\n"
	executionFailureNoticeTemplateConstant = "\n[!] Critical Error: %s\n"
	commandArgumentsJoinSeparatorConstant  = " "
	unknownFailureMessageConstant          = "unknown error"
)

// CommandMessageFormatter builds the console lines surrounding a supervised run.
type CommandMessageFormatter struct{}

// BuildStartedMessage announces the fully resolved command line.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return fmt.Sprintf(runningAnnouncementTemplateConstant, formatter.FormatCommandLine(command))
}

// BuildLogDestinationMessage announces the log file receiving the copy of the output.
func (formatter CommandMessageFormatter) BuildLogDestinationMessage(logFilePath string) string {
	return fmt.Sprintf(loggingAnnouncementTemplateConstant, logFilePath)
}

// BuildInterruptedMessage formats the notice printed when the operator interrupts the run.
func (formatter CommandMessageFormatter) BuildInterruptedMessage() string {
	return interruptedNoticeMessageConstant
}

// BuildExecutionFailureMessage formats the notice printed when the run is abandoned.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(failure error) string {
	return fmt.Sprintf(executionFailureNoticeTemplateConstant, formatter.describeFailure(failure))
}

// FormatCommandLine joins the executable and its arguments with single spaces.
func (formatter CommandMessageFormatter) FormatCommandLine(command ShellCommand) string {
	commandParts := append([]string{string(command.Name)}, command.Details.Arguments...)
	return strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}
