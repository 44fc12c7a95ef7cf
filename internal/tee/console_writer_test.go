package tee_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/h434ni/loggy-run/internal/tee"
)

func TestConsoleWriterEncodesLines(testInstance *testing.T) {
	testCases := []struct {
		name                string
		encodingName        string
		line                string
		expectedOutput      string
		expectedSubstituted bool
	}{
		{name: "utf8_passthrough", encodingName: "utf-8", line: "ok ✓\n", expectedOutput: "ok ✓\n"},
		{name: "blank_name_is_utf8", encodingName: " ", line: "ok ✓\n", expectedOutput: "ok ✓\n"},
		{name: "windows1252_representable", encodingName: "windows-1252", line: "héllo\n", expectedOutput: "h\xe9llo\n"},
		{name: "windows1252_fallback", encodingName: "windows-1252", line: "héllo ✓\n", expectedOutput: "h?llo ?\n", expectedSubstituted: true},
		{name: "latin1_fallback", encodingName: "ISO-8859-1", line: "done 🚀\n", expectedOutput: "done ?\n", expectedSubstituted: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			output := &bytes.Buffer{}
			writer, creationError := tee.NewConsoleWriter(output, testCase.encodingName)
			require.NoError(testInstance, creationError)

			substituted, writeError := writer.WriteLine(testCase.line)
			require.NoError(testInstance, writeError)
			require.Equal(testInstance, testCase.expectedSubstituted, substituted)
			require.Equal(testInstance, testCase.expectedOutput, output.String())
		})
	}
}

func TestConsoleWriterRejectsUnknownEncoding(testInstance *testing.T) {
	writer, creationError := tee.NewConsoleWriter(&bytes.Buffer{}, "no-such-charset")
	require.Error(testInstance, creationError)
	require.Nil(testInstance, writer)
}

func TestASCIISubstitute(testInstance *testing.T) {
	require.Equal(testInstance, "h?llo\n", tee.ASCIISubstitute("héllo\n"))
	require.Equal(testInstance, "plain text\r\n", tee.ASCIISubstitute("plain text\r\n"))
	require.Equal(testInstance, "? ?", tee.ASCIISubstitute("� 🚀"))
}
