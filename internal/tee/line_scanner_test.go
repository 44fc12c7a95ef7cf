package tee_test

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"

	"github.com/h434ni/loggy-run/internal/tee"
)

func collectLines(testInstance *testing.T, scanner *tee.LineScanner) []string {
	testInstance.Helper()
	lines := []string{}
	for {
		line, nextError := scanner.Next()
		if errors.Is(nextError, io.EOF) {
			return lines
		}
		require.NoError(testInstance, nextError)
		lines = append(lines, line)
	}
}

func TestLineScannerSplitsLines(testInstance *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedLines []string
	}{
		{name: "empty_stream", input: "", expectedLines: []string{}},
		{name: "terminated_lines", input: "one\ntwo\n", expectedLines: []string{"one\n", "two\n"}},
		{name: "unterminated_tail", input: "one\ntail", expectedLines: []string{"one\n", "tail"}},
		{name: "carriage_returns_kept", input: "windows\r\n", expectedLines: []string{"windows\r\n"}},
		{name: "blank_lines_kept", input: "\n\n", expectedLines: []string{"\n", "\n"}},
		{name: "multibyte_text", input: "héllo wörld\n", expectedLines: []string{"héllo wörld\n"}},
		{name: "invalid_bytes_replaced", input: "caf\xe9\n\xff\xfeend\n", expectedLines: []string{"caf�\n", "��end\n"}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			scanner := tee.NewLineScanner(strings.NewReader(testCase.input))
			require.Equal(testInstance, testCase.expectedLines, collectLines(testInstance, scanner))

			_, nextError := scanner.Next()
			require.ErrorIs(testInstance, nextError, io.EOF)
		})
	}
}

func TestLineScannerDeliversLinesAcrossShortReads(testInstance *testing.T) {
	scanner := tee.NewLineScanner(iotest.OneByteReader(strings.NewReader("a\nbé\n")))
	require.Equal(testInstance, []string{"a\n", "bé\n"}, collectLines(testInstance, scanner))
}

func TestLineScannerReportsReadErrors(testInstance *testing.T) {
	readFailure := errors.New("device vanished")
	scanner := tee.NewLineScanner(iotest.ErrReader(readFailure))

	_, nextError := scanner.Next()
	require.ErrorIs(testInstance, nextError, readFailure)

	_, nextError = scanner.Next()
	require.ErrorIs(testInstance, nextError, io.EOF)
}
