package tee

import (
	"bufio"
	"errors"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const lineTerminatorConstant = '\n'

// LineScanner yields the lines of a byte stream decoded as UTF-8.
// Invalid sequences become U+FFFD and line terminators are kept.
type LineScanner struct {
	reader   *bufio.Reader
	finished bool
}

// NewLineScanner wraps source.
func NewLineScanner(source io.Reader) *LineScanner {
	decodedSource := transform.NewReader(source, unicode.UTF8.NewDecoder())
	return &LineScanner{reader: bufio.NewReader(decodedSource)}
}

// Next returns the next line. A final line without a terminator is returned as is.
// Next reports io.EOF once the stream is exhausted.
func (scanner *LineScanner) Next() (string, error) {
	if scanner.finished {
		return "", io.EOF
	}

	line, readError := scanner.reader.ReadString(lineTerminatorConstant)
	if readError == nil {
		return line, nil
	}

	scanner.finished = true
	if !errors.Is(readError, io.EOF) {
		return line, readError
	}
	if len(line) == 0 {
		return "", io.EOF
	}
	return line, nil
}
