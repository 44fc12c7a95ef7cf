package tee

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutcomeExitStatus(t *testing.T) {
	testCases := []struct {
		name               string
		outcome            Outcome
		expectedExitStatus int
		expectedKind       string
	}{
		{name: "completed_zero", outcome: Completed(0), expectedExitStatus: 0, expectedKind: "completed"},
		{name: "completed_non_zero", outcome: Completed(42), expectedExitStatus: 42, expectedKind: "completed"},
		{name: "interrupted", outcome: Interrupted(), expectedExitStatus: 130, expectedKind: "interrupted"},
		{name: "failed", outcome: Failed(errors.New("boom")), expectedExitStatus: 1, expectedKind: "failed"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.expectedExitStatus, testCase.outcome.ExitStatus())
			require.Equal(t, testCase.expectedKind, testCase.outcome.Kind.String())
		})
	}

	require.Equal(t, "outcome(7)", OutcomeKind(7).String())
}
