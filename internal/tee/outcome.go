package tee

import "fmt"

const (
	// InterruptedExitStatus is reported when the operator interrupts the run.
	InterruptedExitStatus = 130
	// FailedExitStatus is reported when the supervisor abandons the run.
	FailedExitStatus = 1

	outcomeKindCompletedStringConstant   = "completed"
	outcomeKindInterruptedStringConstant = "interrupted"
	outcomeKindFailedStringConstant      = "failed"
	outcomeKindUnknownTemplateConstant   = "outcome(%d)"
)

// OutcomeKind distinguishes how a run ended.
type OutcomeKind int

// Outcome kinds.
const (
	OutcomeCompleted OutcomeKind = iota
	OutcomeInterrupted
	OutcomeFailed
)

func (kind OutcomeKind) String() string {
	switch kind {
	case OutcomeCompleted:
		return outcomeKindCompletedStringConstant
	case OutcomeInterrupted:
		return outcomeKindInterruptedStringConstant
	case OutcomeFailed:
		return outcomeKindFailedStringConstant
	default:
		return fmt.Sprintf(outcomeKindUnknownTemplateConstant, int(kind))
	}
}

// Outcome is the result of one supervised run.
type Outcome struct {
	Kind OutcomeKind
	// ExitCode is the child's own status; meaningful only for OutcomeCompleted.
	ExitCode int
	// Failure carries the detail for OutcomeFailed.
	Failure error
}

// Completed reports a child that terminated on its own with exitCode.
func Completed(exitCode int) Outcome {
	return Outcome{Kind: OutcomeCompleted, ExitCode: exitCode}
}

// Interrupted reports an operator interruption.
func Interrupted() Outcome {
	return Outcome{Kind: OutcomeInterrupted}
}

// Failed reports an abandoned run.
func Failed(failure error) Outcome {
	return Outcome{Kind: OutcomeFailed, Failure: failure}
}

// ExitStatus maps the outcome to the status the supervisor process exits with.
func (outcome Outcome) ExitStatus() int {
	switch outcome.Kind {
	case OutcomeCompleted:
		return outcome.ExitCode
	case OutcomeInterrupted:
		return InterruptedExitStatus
	default:
		return FailedExitStatus
	}
}
