package pathutils_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/h434ni/loggy-run/internal/utils/path"
)

const testHomeDirectoryConstant = "/home/operator"

func TestExpanderExpand(testInstance *testing.T) {
	environment := map[string]string{
		"PROJECT_ROOT": "/srv/project",
		"RUN_NAME":     "nightly",
	}
	expander := pathutils.NewExpanderWithProviders(
		func() (string, error) { return testHomeDirectoryConstant, nil },
		func(name string) (string, bool) {
			value, exists := environment[name]
			return value, exists
		},
	)

	testCases := []struct {
		name         string
		input        string
		expectedPath string
	}{
		{name: "blank_unchanged", input: "", expectedPath: ""},
		{name: "relative_unchanged", input: "logs", expectedPath: "logs"},
		{name: "tilde_only", input: "~", expectedPath: testHomeDirectoryConstant},
		{name: "tilde_prefix", input: "~/logs/loggy", expectedPath: filepath.Join(testHomeDirectoryConstant, "logs", "loggy")},
		{name: "other_user_untouched", input: "~someone/logs", expectedPath: "~someone/logs"},
		{name: "variable_reference", input: "$PROJECT_ROOT/logs", expectedPath: "/srv/project/logs"},
		{name: "braced_variable_reference", input: "${PROJECT_ROOT}/logs/${RUN_NAME}", expectedPath: "/srv/project/logs/nightly"},
		{name: "unset_variable_empty", input: "/var/${MISSING}logs", expectedPath: "/var/logs"},
		{name: "surrounding_space_trimmed", input: "  ~/logs  ", expectedPath: filepath.Join(testHomeDirectoryConstant, "logs")},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedPath, expander.Expand(testCase.input))
		})
	}
}

func TestExpanderKeepsTildeWhenHomeUnknown(testInstance *testing.T) {
	expander := pathutils.NewExpanderWithProviders(
		func() (string, error) { return "", errors.New("no home") },
		func(string) (string, bool) { return "", false },
	)
	require.Equal(testInstance, "~/logs", expander.Expand("~/logs"))

	var nilExpander *pathutils.Expander
	require.Equal(testInstance, "~/logs", nilExpander.Expand("~/logs"))
}
