package tee_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/h434ni/loggy-run/internal/command"
	"github.com/h434ni/loggy-run/internal/execshell"
	"github.com/h434ni/loggy-run/internal/tee"
)

const (
	testFakeExecutableConstant      = "fake-child"
	testMissingExecutableConstant   = "loggy-run-test-missing-executable"
	testInterruptedNoticeConstant   = "\n[!] Process interrupted by user.\n"
	testCriticalErrorPrefixConstant = "\n[!] Critical Error: "
	testEventuallyTimeoutConstant   = 5 * time.Second
	testEventuallyTickConstant      = 10 * time.Millisecond
)

type synchronizedBuffer struct {
	mutex  sync.Mutex
	buffer bytes.Buffer
}

func (buffer *synchronizedBuffer) Write(data []byte) (int, error) {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	return buffer.buffer.Write(data)
}

func (buffer *synchronizedBuffer) String() string {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	return buffer.buffer.String()
}

type recordingObserver struct {
	mutex           sync.Mutex
	startedLogPaths []string
	completed       []execshell.ExecutionResult
	interrupted     int
	failures        []error
}

func (recorder *recordingObserver) CommandStarted(_ execshell.ShellCommand, logFilePath string) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.startedLogPaths = append(recorder.startedLogPaths, logFilePath)
}

func (recorder *recordingObserver) CommandCompleted(_ execshell.ShellCommand, result execshell.ExecutionResult) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.completed = append(recorder.completed, result)
}

func (recorder *recordingObserver) CommandInterrupted(execshell.ShellCommand) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.interrupted++
}

func (recorder *recordingObserver) CommandExecutionFailed(_ execshell.ShellCommand, failure error) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.failures = append(recorder.failures, failure)
}

type fakeProcess struct {
	output      io.Reader
	closer      func() error
	waitStarted chan struct{}
	waitRelease chan struct{}
	onExit      func()
	exitCode    int
	waitCalls   atomic.Int32
	closeCalls  atomic.Int32
}

func (process *fakeProcess) Output() io.Reader {
	return process.output
}

func (process *fakeProcess) Wait() (int, error) {
	process.waitCalls.Add(1)
	if process.waitStarted != nil {
		close(process.waitStarted)
	}
	if process.waitRelease != nil {
		<-process.waitRelease
	}
	if process.onExit != nil {
		process.onExit()
	}
	return process.exitCode, nil
}

// cancellingReader cancels the run when its stream ends, as a child does when it exits on the operator's signal.
type cancellingReader struct {
	reader io.Reader
	cancel context.CancelFunc
}

func (reader cancellingReader) Read(buffer []byte) (int, error) {
	readCount, readError := reader.reader.Read(buffer)
	if errors.Is(readError, io.EOF) {
		reader.cancel()
	}
	return readCount, readError
}

func (process *fakeProcess) Close() error {
	process.closeCalls.Add(1)
	if process.closer != nil {
		return process.closer()
	}
	return nil
}

type fakeStarter struct {
	process    *fakeProcess
	startError error
}

func (starter fakeStarter) Start(context.Context, execshell.ShellCommand) (execshell.RunningProcess, error) {
	if starter.startError != nil {
		return nil, starter.startError
	}
	return starter.process, nil
}

type supervisorFixture struct {
	console      *synchronizedBuffer
	observer     *recordingObserver
	logDirectory string
	logs         *observer.ObservedLogs
	supervisor   *tee.Supervisor
}

func newSupervisorFixture(testInstance *testing.T, configuration tee.Configuration, starter execshell.ProcessStarter) supervisorFixture {
	testInstance.Helper()

	if len(configuration.LogDirectory) == 0 {
		configuration.LogDirectory = filepath.Join(testInstance.TempDir(), "logs")
	}
	observedCore, observedLogs := observer.New(zapcore.DebugLevel)
	fixture := supervisorFixture{
		console:      &synchronizedBuffer{},
		observer:     &recordingObserver{},
		logDirectory: configuration.LogDirectory,
		logs:         observedLogs,
	}

	supervisor, creationError := tee.NewSupervisor(configuration, tee.Dependencies{
		ProcessStarter: starter,
		Console:        fixture.console,
		Observer:       fixture.observer,
		Clock:          fixedClock,
		Logger:         zap.New(observedCore),
	})
	require.NoError(testInstance, creationError)
	fixture.supervisor = supervisor
	return fixture
}

func (fixture supervisorFixture) logPath() string {
	return filepath.Join(fixture.logDirectory, testLogFileNameConstant)
}

func requirePOSIXShell(testInstance *testing.T) {
	testInstance.Helper()
	if runtime.GOOS == "windows" {
		testInstance.Skip("requires a POSIX shell")
	}
}

func shellSpec(testInstance *testing.T, script string) command.Spec {
	testInstance.Helper()
	spec, specError := command.NewSpec([]string{"sh", "-c", script})
	require.NoError(testInstance, specError)
	return spec
}

func inheritedEnvironment() command.Environment {
	return command.NewEnvironment(os.Environ(), nil)
}

func TestSupervisorTeesChildOutput(testInstance *testing.T) {
	requirePOSIXShell(testInstance)

	testCases := []struct {
		name               string
		script             string
		consoleEncoding    string
		expectedConsole    string
		expectedLog        string
		expectedExitStatus int
	}{
		{
			name:            "single_line",
			script:          "echo hello",
			expectedConsole: "hello\n",
			expectedLog:     "hello\n",
		},
		{
			name:            "merged_streams_in_order",
			script:          "echo one; echo two 1>&2; echo three",
			expectedConsole: "one\ntwo\nthree\n",
			expectedLog:     "one\ntwo\nthree\n",
		},
		{
			name:               "child_exit_code_propagated",
			script:             "echo failing; exit 3",
			expectedConsole:    "failing\n",
			expectedLog:        "failing\n",
			expectedExitStatus: 3,
		},
		{
			name:            "unterminated_final_line",
			script:          "printf 'partial'",
			expectedConsole: "partial",
			expectedLog:     "partial",
		},
		{
			name:            "invalid_bytes_replaced",
			script:          "printf 'caf\\351\\n'",
			expectedConsole: "caf�\n",
			expectedLog:     "caf�\n",
		},
		{
			name:            "console_ascii_fallback",
			script:          "printf 'ok \\342\\234\\223\\n'",
			consoleEncoding: "windows-1252",
			expectedConsole: "ok ?\n",
			expectedLog:     "ok ✓\n",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newSupervisorFixture(testInstance, tee.Configuration{ConsoleEncoding: testCase.consoleEncoding}, execshell.NewOSProcessStarter())
			spec := shellSpec(testInstance, testCase.script)

			outcome := fixture.supervisor.Run(context.Background(), spec, inheritedEnvironment())
			require.Equal(testInstance, tee.OutcomeCompleted, outcome.Kind)
			require.Equal(testInstance, testCase.expectedExitStatus, outcome.ExitStatus())

			expectedAnnouncements := "--- Running: " + spec.String() + " ---\n--- Logging to: " + fixture.logPath() + " ---\n"
			require.Equal(testInstance, expectedAnnouncements+testCase.expectedConsole, fixture.console.String())
			require.Equal(testInstance, testCase.expectedLog, readFile(testInstance, fixture.logPath()))

			require.Equal(testInstance, []string{fixture.logPath()}, fixture.observer.startedLogPaths)
			require.Len(testInstance, fixture.observer.completed, 1)
			require.Equal(testInstance, testCase.expectedExitStatus, fixture.observer.completed[0].ExitCode)
			require.Equal(testInstance, strings.Count(testCase.expectedLog, "\n")+boolToInt(!strings.HasSuffix(testCase.expectedLog, "\n")), fixture.observer.completed[0].LineCount)
		})
	}
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func TestSupervisorPassesEnvironmentToChild(testInstance *testing.T) {
	requirePOSIXShell(testInstance)

	fixture := newSupervisorFixture(testInstance, tee.Configuration{}, execshell.NewOSProcessStarter())
	environment := command.NewEnvironment(os.Environ(), map[string]string{"PYTHONIOENCODING": "utf-8"})

	outcome := fixture.supervisor.Run(context.Background(), shellSpec(testInstance, "echo \"$PYTHONIOENCODING\""), environment)
	require.Zero(testInstance, outcome.ExitStatus())
	require.Equal(testInstance, "utf-8\n", readFile(testInstance, fixture.logPath()))
}

func TestSupervisorReportsCreatedLogDirectoryOnce(testInstance *testing.T) {
	requirePOSIXShell(testInstance)

	fixture := newSupervisorFixture(testInstance, tee.Configuration{}, execshell.NewOSProcessStarter())
	_, statError := os.Stat(fixture.logDirectory)
	require.True(testInstance, os.IsNotExist(statError))

	firstOutcome := fixture.supervisor.Run(context.Background(), shellSpec(testInstance, "echo first"), inheritedEnvironment())
	secondOutcome := fixture.supervisor.Run(context.Background(), shellSpec(testInstance, "echo second"), inheritedEnvironment())
	require.Zero(testInstance, firstOutcome.ExitStatus())
	require.Zero(testInstance, secondOutcome.ExitStatus())

	require.Equal(testInstance, 1, fixture.logs.FilterMessage("created log directory").Len())
	require.Equal(testInstance, "first\n", readFile(testInstance, fixture.logPath()))
	require.Equal(testInstance, "second\n", readFile(testInstance, filepath.Join(fixture.logDirectory, testCollidingLogFileNameConstant)))
}

func TestSupervisorTruncateModeReusesLogFile(testInstance *testing.T) {
	requirePOSIXShell(testInstance)

	logDirectory := testInstance.TempDir()
	existingPath := filepath.Join(logDirectory, testLogFileNameConstant)
	require.NoError(testInstance, os.WriteFile(existingPath, []byte("stale content from an earlier run\n"), 0o600))

	fixture := newSupervisorFixture(testInstance, tee.Configuration{LogDirectory: logDirectory, LogCollision: tee.LogCollisionTruncate}, execshell.NewOSProcessStarter())
	outcome := fixture.supervisor.Run(context.Background(), shellSpec(testInstance, "echo hello"), inheritedEnvironment())

	require.Zero(testInstance, outcome.ExitStatus())
	require.Equal(testInstance, "hello\n", readFile(testInstance, existingPath))
	require.Zero(testInstance, fixture.logs.FilterMessage("created log directory").Len())
}

func TestSupervisorFailsWhenChildCannotStart(testInstance *testing.T) {
	fixture := newSupervisorFixture(testInstance, tee.Configuration{}, execshell.NewOSProcessStarter())
	spec, specError := command.NewSpec([]string{testMissingExecutableConstant, "main.py"})
	require.NoError(testInstance, specError)

	outcome := fixture.supervisor.Run(context.Background(), spec, inheritedEnvironment())

	require.Equal(testInstance, tee.OutcomeFailed, outcome.Kind)
	require.Equal(testInstance, tee.FailedExitStatus, outcome.ExitStatus())
	require.Error(testInstance, outcome.Failure)
	require.Contains(testInstance, fixture.console.String(), testCriticalErrorPrefixConstant)
	require.Contains(testInstance, fixture.console.String(), testMissingExecutableConstant)
	require.Len(testInstance, fixture.observer.failures, 1)
	require.Empty(testInstance, fixture.observer.startedLogPaths)
}

func TestSupervisorFailsOnEmptyCommand(testInstance *testing.T) {
	fixture := newSupervisorFixture(testInstance, tee.Configuration{}, fakeStarter{process: &fakeProcess{}})

	outcome := fixture.supervisor.Run(context.Background(), command.Spec{}, command.Environment{})

	require.Equal(testInstance, tee.FailedExitStatus, outcome.ExitStatus())
	require.ErrorIs(testInstance, outcome.Failure, command.ErrEmptyCommand)
	require.True(testInstance, strings.HasPrefix(fixture.console.String(), testCriticalErrorPrefixConstant))
}

func TestSupervisorFailsOnStreamReadError(testInstance *testing.T) {
	readFailure := errors.New("device vanished")
	process := &fakeProcess{output: io.MultiReader(strings.NewReader("partial line\n"), iotest.ErrReader(readFailure))}
	fixture := newSupervisorFixture(testInstance, tee.Configuration{}, fakeStarter{process: process})
	spec, _ := command.NewSpec([]string{testFakeExecutableConstant})

	outcome := fixture.supervisor.Run(context.Background(), spec, command.Environment{})

	require.Equal(testInstance, tee.OutcomeFailed, outcome.Kind)
	require.ErrorIs(testInstance, outcome.Failure, readFailure)
	require.True(testInstance, strings.HasSuffix(fixture.console.String(), "partial line\n"+testCriticalErrorPrefixConstant+"unable to read child output: device vanished\n"))
	require.Equal(testInstance, "partial line\n", readFile(testInstance, fixture.logPath()))
}

func TestSupervisorFailsWhenStarterFails(testInstance *testing.T) {
	fixture := newSupervisorFixture(testInstance, tee.Configuration{}, fakeStarter{startError: errors.New("permission denied")})
	spec, _ := command.NewSpec([]string{testFakeExecutableConstant})

	outcome := fixture.supervisor.Run(context.Background(), spec, command.Environment{})

	require.Equal(testInstance, tee.FailedExitStatus, outcome.ExitStatus())
	require.True(testInstance, strings.HasSuffix(fixture.console.String(), testCriticalErrorPrefixConstant+"permission denied\n"))
}

func TestSupervisorInterruptedDuringStreaming(testInstance *testing.T) {
	outputReader, outputWriter := io.Pipe()
	process := &fakeProcess{output: outputReader, closer: outputReader.Close}
	fixture := newSupervisorFixture(testInstance, tee.Configuration{}, fakeStarter{process: process})
	spec, _ := command.NewSpec([]string{testFakeExecutableConstant})

	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	outcomes := make(chan tee.Outcome, 1)
	go func() {
		outcomes <- fixture.supervisor.Run(executionContext, spec, command.Environment{})
	}()

	_, writeError := outputWriter.Write([]byte("first\n"))
	require.NoError(testInstance, writeError)
	require.Eventually(testInstance, func() bool {
		return strings.HasSuffix(fixture.console.String(), "first\n")
	}, testEventuallyTimeoutConstant, testEventuallyTickConstant)

	cancel()
	outcome := <-outcomes

	require.Equal(testInstance, tee.OutcomeInterrupted, outcome.Kind)
	require.Equal(testInstance, tee.InterruptedExitStatus, outcome.ExitStatus())
	require.Zero(testInstance, process.waitCalls.Load())
	require.Positive(testInstance, process.closeCalls.Load())

	_, lateWriteError := outputWriter.Write([]byte("late\n"))
	require.ErrorIs(testInstance, lateWriteError, io.ErrClosedPipe)

	expectedConsole := "--- Running: fake-child ---\n--- Logging to: " + fixture.logPath() + " ---\nfirst\n" + testInterruptedNoticeConstant
	require.Equal(testInstance, expectedConsole, fixture.console.String())
	require.Equal(testInstance, "first\n", readFile(testInstance, fixture.logPath()))
	require.Equal(testInstance, 1, fixture.observer.interrupted)
	require.Empty(testInstance, fixture.observer.completed)
}

func TestSupervisorInterruptedWhileWaiting(testInstance *testing.T) {
	process := &fakeProcess{
		output:      strings.NewReader("done\n"),
		waitStarted: make(chan struct{}),
		waitRelease: make(chan struct{}),
	}
	defer close(process.waitRelease)
	fixture := newSupervisorFixture(testInstance, tee.Configuration{}, fakeStarter{process: process})
	spec, _ := command.NewSpec([]string{testFakeExecutableConstant})

	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	outcomes := make(chan tee.Outcome, 1)
	go func() {
		outcomes <- fixture.supervisor.Run(executionContext, spec, command.Environment{})
	}()

	<-process.waitStarted
	cancel()
	outcome := <-outcomes

	require.Equal(testInstance, tee.InterruptedExitStatus, outcome.ExitStatus())
	require.True(testInstance, strings.HasSuffix(fixture.console.String(), "done\n"+testInterruptedNoticeConstant))
	require.Equal(testInstance, "done\n", readFile(testInstance, fixture.logPath()))
}

func TestSupervisorInterruptWinsOverChildExitingOnSignal(testInstance *testing.T) {
	testCases := []struct {
		name              string
		buildProcess      func(cancel context.CancelFunc) *fakeProcess
		expectedWaitCalls int32
	}{
		{
			name: "stream_ends_with_interrupt",
			buildProcess: func(cancel context.CancelFunc) *fakeProcess {
				return &fakeProcess{output: cancellingReader{reader: strings.NewReader("ready\n"), cancel: cancel}, exitCode: 1}
			},
			expectedWaitCalls: 0,
		},
		{
			name: "child_exits_with_interrupt",
			buildProcess: func(cancel context.CancelFunc) *fakeProcess {
				return &fakeProcess{output: strings.NewReader("ready\n"), onExit: cancel, exitCode: 1}
			},
			expectedWaitCalls: 1,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executionContext, cancel := context.WithCancel(context.Background())
			defer cancel()

			process := testCase.buildProcess(cancel)
			fixture := newSupervisorFixture(testInstance, tee.Configuration{}, fakeStarter{process: process})
			spec, _ := command.NewSpec([]string{testFakeExecutableConstant})

			outcome := fixture.supervisor.Run(executionContext, spec, command.Environment{})

			require.Equal(testInstance, tee.OutcomeInterrupted, outcome.Kind)
			require.Equal(testInstance, tee.InterruptedExitStatus, outcome.ExitStatus())
			require.Equal(testInstance, testCase.expectedWaitCalls, process.waitCalls.Load())
			require.True(testInstance, strings.HasSuffix(fixture.console.String(), "ready\n"+testInterruptedNoticeConstant))
			require.Equal(testInstance, 1, strings.Count(fixture.console.String(), "[!]"))
			require.Equal(testInstance, "ready\n", readFile(testInstance, fixture.logPath()))
			require.Equal(testInstance, 1, fixture.observer.interrupted)
			require.Empty(testInstance, fixture.observer.completed)
		})
	}
}

func TestSupervisorInterruptedBeforeStart(testInstance *testing.T) {
	process := &fakeProcess{output: strings.NewReader("never\n")}
	fixture := newSupervisorFixture(testInstance, tee.Configuration{}, fakeStarter{process: process})
	spec, _ := command.NewSpec([]string{testFakeExecutableConstant})

	executionContext, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := fixture.supervisor.Run(executionContext, spec, command.Environment{})

	require.Equal(testInstance, tee.InterruptedExitStatus, outcome.ExitStatus())
	require.Equal(testInstance, testInterruptedNoticeConstant, fixture.console.String())
	_, statError := os.Stat(fixture.logDirectory)
	require.True(testInstance, os.IsNotExist(statError))
}

func TestNewSupervisorValidatesDependencies(testInstance *testing.T) {
	_, missingStarterError := tee.NewSupervisor(tee.Configuration{}, tee.Dependencies{Console: &bytes.Buffer{}})
	require.ErrorIs(testInstance, missingStarterError, tee.ErrProcessStarterMissing)

	_, missingConsoleError := tee.NewSupervisor(tee.Configuration{}, tee.Dependencies{ProcessStarter: fakeStarter{}})
	require.ErrorIs(testInstance, missingConsoleError, tee.ErrConsoleMissing)

	_, encodingError := tee.NewSupervisor(tee.Configuration{ConsoleEncoding: "no-such-charset"}, tee.Dependencies{ProcessStarter: fakeStarter{}, Console: &bytes.Buffer{}})
	require.Error(testInstance, encodingError)
}
