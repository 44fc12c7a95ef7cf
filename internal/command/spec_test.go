package command_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/h434ni/loggy-run/internal/command"
)

func TestNewSpecRejectsEmptyTokens(testInstance *testing.T) {
	_, specError := command.NewSpec(nil)
	require.ErrorIs(testInstance, specError, command.ErrEmptyCommand)
}

func TestSpecAccessorsReturnCopies(testInstance *testing.T) {
	tokens := []string{"ping", "-c", "1", "example.com"}
	spec, specError := command.NewSpec(tokens)
	require.NoError(testInstance, specError)

	tokens[0] = "changed"
	arguments := spec.Arguments()
	arguments[0] = "changed"

	require.Equal(testInstance, "ping", spec.Executable())
	require.Equal(testInstance, []string{"-c", "1", "example.com"}, spec.Arguments())
	require.Equal(testInstance, "ping -c 1 example.com", spec.String())
}

func TestNewEnvironmentParsesEntries(testInstance *testing.T) {
	environment := command.NewEnvironment(
		[]string{"PATH=/usr/bin", "EMPTY=", "EQUALS=a=b", "=C:=C:\\work", "MALFORMED", "PATH=/bin"},
		map[string]string{"PYTHONIOENCODING": "utf-8"},
	)

	require.Equal(testInstance, []string{
		"=C:=C:\\work",
		"EMPTY=",
		"EQUALS=a=b",
		"PATH=/bin",
		"PYTHONIOENCODING=utf-8",
	}, environment.Entries())
	require.Equal(testInstance, 5, environment.Len())

	_, malformedPresent := environment.Lookup("MALFORMED")
	require.False(testInstance, malformedPresent)
}

func TestNewEnvironmentForOperatingSystemFoldsNameCase(testInstance *testing.T) {
	testCases := []struct {
		name            string
		operatingSystem string
		expectedEntries []string
	}{
		{
			name:            "windows_merges_spellings",
			operatingSystem: "windows",
			expectedEntries: []string{"PATH=C:\\override"},
		},
		{
			name:            "linux_keeps_spellings_apart",
			operatingSystem: "linux",
			expectedEntries: []string{"PATH=C:\\override", "Path=C:\\Windows"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			environment := command.NewEnvironmentForOperatingSystem(
				testCase.operatingSystem,
				[]string{"Path=C:\\Windows"},
				map[string]string{"PATH": "C:\\override"},
			)

			require.Equal(testInstance, testCase.expectedEntries, environment.Entries())
		})
	}

	windowsEnvironment := command.NewEnvironmentForOperatingSystem("windows", []string{"Path=C:\\Windows"}, nil)
	pathValue, pathPresent := windowsEnvironment.Lookup("PATH")
	require.True(testInstance, pathPresent)
	require.Equal(testInstance, "C:\\Windows", pathValue)
}
