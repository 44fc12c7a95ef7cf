package command

import (
	"errors"
	"strings"
)

const (
	emptyCommandMessageConstant      = "command must contain at least one token"
	commandLineJoinSeparatorConstant = " "
)

// ErrEmptyCommand indicates a Spec was built without an executable token.
var ErrEmptyCommand = errors.New(emptyCommandMessageConstant)

// Spec is an ordered, non-empty sequence of tokens: the executable followed by its arguments.
type Spec struct {
	tokens []string
}

// NewSpec copies tokens into a Spec.
func NewSpec(tokens []string) (Spec, error) {
	if len(tokens) == 0 {
		return Spec{}, ErrEmptyCommand
	}
	return Spec{tokens: append([]string{}, tokens...)}, nil
}

// Empty reports whether the Spec carries no executable.
func (spec Spec) Empty() bool {
	return len(spec.tokens) == 0
}

// Executable returns token 0.
func (spec Spec) Executable() string {
	if spec.Empty() {
		return ""
	}
	return spec.tokens[0]
}

// Arguments returns a copy of the tokens after the executable.
func (spec Spec) Arguments() []string {
	if spec.Empty() {
		return nil
	}
	return append([]string{}, spec.tokens[1:]...)
}

// Tokens returns a copy of every token.
func (spec Spec) Tokens() []string {
	return append([]string{}, spec.tokens...)
}

// String renders the command line with tokens joined by single spaces.
func (spec Spec) String() string {
	return strings.Join(spec.tokens, commandLineJoinSeparatorConstant)
}
