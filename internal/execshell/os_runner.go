package execshell

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

const (
	pipeCreationErrorTemplateConstant = "unable to create output pipe: %w"
)

// OSProcessStarter starts children with stdout and stderr sharing one operating system pipe,
// so the merged order is whatever the kernel delivers.
type OSProcessStarter struct {
	standardInput *os.File
}

// NewOSProcessStarter constructs a starter whose children inherit the supervisor's standard input.
func NewOSProcessStarter() *OSProcessStarter {
	return &OSProcessStarter{standardInput: os.Stdin}
}

// Start spawns the command. The context is only consulted before spawning; cancelling it later never signals the child.
func (starter *OSProcessStarter) Start(executionContext context.Context, command ShellCommand) (RunningProcess, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return nil, contextError
	}

	executable, buildError := buildExecutable(command)
	if buildError != nil {
		return nil, buildError
	}

	readEnd, writeEnd, pipeError := os.Pipe()
	if pipeError != nil {
		return nil, fmt.Errorf(pipeCreationErrorTemplateConstant, pipeError)
	}

	executable.Stdout = writeEnd
	executable.Stderr = writeEnd
	if starter.standardInput != nil {
		executable.Stdin = starter.standardInput
	}

	startError := executable.Start()
	closeWriteError := writeEnd.Close()
	if startError != nil {
		_ = readEnd.Close()
		return nil, startError
	}
	if closeWriteError != nil {
		_ = readEnd.Close()
		return nil, closeWriteError
	}

	return &pipeProcess{executable: executable, output: readEnd}, nil
}

type pipeProcess struct {
	executable *exec.Cmd
	output     *os.File
}

func (process *pipeProcess) Output() io.Reader {
	return process.output
}

func (process *pipeProcess) Wait() (int, error) {
	return waitForExitCode(process.executable)
}

func (process *pipeProcess) Close() error {
	return process.output.Close()
}
