package tee

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/h434ni/loggy-run/internal/utils"
)

const (
	utf8CanonicalNameConstant                  = "UTF-8"
	asciiSubstitutionRuneConstant              = '?'
	asciiMaximumRuneConstant                   = 0x7f
	unsupportedConsoleEncodingTemplateConstant = "console encoding %s is not supported"
	consoleEncodingLookupTemplateConstant      = "console encoding %s: %w"
)

// ConsoleWriter writes lines to the supervisor's console in the console's encoding.
// Lines the encoding cannot represent are written with every non-ASCII character replaced by '?'.
type ConsoleWriter struct {
	destination *utils.FlushingWriter
	encoding    encoding.Encoding
}

// NewConsoleWriter constructs a writer for an IANA-named console encoding.
func NewConsoleWriter(destination io.Writer, encodingName string) (*ConsoleWriter, error) {
	consoleEncoding, lookupError := resolveConsoleEncoding(encodingName)
	if lookupError != nil {
		return nil, lookupError
	}
	return &ConsoleWriter{destination: utils.NewFlushingWriter(destination), encoding: consoleEncoding}, nil
}

// WriteLine writes line and reports whether the ASCII fallback was applied.
func (writer *ConsoleWriter) WriteLine(line string) (bool, error) {
	if writer.encoding == nil {
		_, writeError := writer.destination.WriteString(line)
		return false, writeError
	}

	encodedLine, encodeError := writer.encoding.NewEncoder().String(line)
	if encodeError == nil {
		_, writeError := writer.destination.WriteString(encodedLine)
		return false, writeError
	}

	_, writeError := writer.destination.WriteString(ASCIISubstitute(line))
	return true, writeError
}

// ASCIISubstitute replaces every non-ASCII character in text with '?'.
func ASCIISubstitute(text string) string {
	substitution := runes.Map(func(character rune) rune {
		if character > asciiMaximumRuneConstant {
			return asciiSubstitutionRuneConstant
		}
		return character
	})
	substituted, _, _ := transform.String(substitution, text)
	return substituted
}

// resolveConsoleEncoding returns nil for UTF-8, which needs no transcoding.
func resolveConsoleEncoding(encodingName string) (encoding.Encoding, error) {
	trimmedName := strings.TrimSpace(encodingName)
	if len(trimmedName) == 0 {
		return nil, nil
	}

	consoleEncoding, lookupError := ianaindex.IANA.Encoding(trimmedName)
	if lookupError != nil {
		return nil, fmt.Errorf(consoleEncodingLookupTemplateConstant, trimmedName, lookupError)
	}
	if consoleEncoding == nil {
		return nil, fmt.Errorf(unsupportedConsoleEncodingTemplateConstant, trimmedName)
	}

	canonicalName, nameError := ianaindex.IANA.Name(consoleEncoding)
	if nameError == nil && strings.EqualFold(canonicalName, utf8CanonicalNameConstant) {
		return nil, nil
	}
	return consoleEncoding, nil
}
