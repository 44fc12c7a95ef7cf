package tee

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/h434ni/loggy-run/internal/utils"
)

const (
	logFileNamePrefixConstant                = "log_"
	logFileTimestampLayoutConstant           = "2006-01-02_15-04-05"
	logFileExtensionConstant                 = ".txt"
	logFileCollisionSuffixTemplateConstant   = "%s_%d"
	logDirectoryPermissionsConstant          = 0o755
	logFilePermissionsConstant               = 0o644
	maximumCollisionAttemptsConstant         = 1000
	logDirectoryCreateErrorTemplateConstant  = "unable to create log directory %s: %w"
	logFileCreateErrorTemplateConstant       = "unable to create log file %s: %w"
	logCollisionsExhaustedMessageConstant    = "no free log file name after repeated collisions"
	logDirectoryNotDirectoryTemplateConstant = "log directory path %s is not a directory"
	logDestinationClosedMessageConstant      = "log destination is closed"
)

// ErrLogNamesExhausted indicates every suffixed candidate for a timestamped log name already exists.
var ErrLogNamesExhausted = errors.New(logCollisionsExhaustedMessageConstant)

// ErrLogDestinationClosed indicates a write after Close.
var ErrLogDestinationClosed = errors.New(logDestinationClosedMessageConstant)

// Clock supplies the current wall-clock time.
type Clock func() time.Time

// LogFileName returns the name of the log file for a run starting at startTime.
func LogFileName(startTime time.Time) string {
	return logFileNamePrefixConstant + startTime.Format(logFileTimestampLayoutConstant) + logFileExtensionConstant
}

// LogDestinationProvider creates log directories and files.
type LogDestinationProvider struct {
	directory string
	collision string
	clock     Clock
}

// NewLogDestinationProvider constructs a provider writing under directory.
func NewLogDestinationProvider(directory string, collision string, clock Clock) *LogDestinationProvider {
	if clock == nil {
		clock = time.Now
	}
	return &LogDestinationProvider{directory: directory, collision: collision, clock: clock}
}

// Open ensures the log directory exists and creates the log file for a run starting now.
// createdDirectory reports whether the directory had to be created.
func (provider *LogDestinationProvider) Open() (destination *LogDestination, createdDirectory bool, openError error) {
	createdDirectory, openError = provider.ensureDirectory()
	if openError != nil {
		return nil, createdDirectory, openError
	}

	baseName := strings.TrimSuffix(LogFileName(provider.clock()), logFileExtensionConstant)

	if provider.collision == LogCollisionTruncate {
		filePath := filepath.Join(provider.directory, baseName+logFileExtensionConstant)
		file, createError := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, logFilePermissionsConstant)
		if createError != nil {
			return nil, createdDirectory, fmt.Errorf(logFileCreateErrorTemplateConstant, filePath, createError)
		}
		return newLogDestination(filePath, file), createdDirectory, nil
	}

	for attempt := 0; attempt < maximumCollisionAttemptsConstant; attempt++ {
		candidateName := baseName
		if attempt > 0 {
			candidateName = fmt.Sprintf(logFileCollisionSuffixTemplateConstant, baseName, attempt)
		}
		filePath := filepath.Join(provider.directory, candidateName+logFileExtensionConstant)

		file, createError := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, logFilePermissionsConstant)
		if errors.Is(createError, fs.ErrExist) {
			continue
		}
		if createError != nil {
			return nil, createdDirectory, fmt.Errorf(logFileCreateErrorTemplateConstant, filePath, createError)
		}
		return newLogDestination(filePath, file), createdDirectory, nil
	}

	return nil, createdDirectory, ErrLogNamesExhausted
}

func (provider *LogDestinationProvider) ensureDirectory() (bool, error) {
	directoryInfo, statError := os.Stat(provider.directory)
	if statError == nil {
		if !directoryInfo.IsDir() {
			return false, fmt.Errorf(logDirectoryNotDirectoryTemplateConstant, provider.directory)
		}
		return false, nil
	}
	if !errors.Is(statError, fs.ErrNotExist) {
		return false, fmt.Errorf(logDirectoryCreateErrorTemplateConstant, provider.directory, statError)
	}

	if mkdirError := os.MkdirAll(provider.directory, logDirectoryPermissionsConstant); mkdirError != nil {
		return false, fmt.Errorf(logDirectoryCreateErrorTemplateConstant, provider.directory, mkdirError)
	}
	return true, nil
}

// LogDestination is an open log file. Every written line is flushed before the write returns.
type LogDestination struct {
	path      string
	file      *os.File
	writer    *utils.FlushingWriter
	closeOnce sync.Once
	closed    bool
	closeErr  error
}

func newLogDestination(path string, file *os.File) *LogDestination {
	return &LogDestination{
		path:   path,
		file:   file,
		writer: utils.NewFlushingWriter(bufio.NewWriter(file)),
	}
}

// Path returns the path the destination was created at.
func (destination *LogDestination) Path() string {
	return destination.path
}

// WriteLine writes line verbatim as UTF-8 text.
func (destination *LogDestination) WriteLine(line string) error {
	if destination.closed {
		return ErrLogDestinationClosed
	}
	_, writeError := destination.writer.WriteString(line)
	return writeError
}

// Close releases the file. Repeated calls return the first result.
func (destination *LogDestination) Close() error {
	destination.closeOnce.Do(func() {
		destination.closed = true
		destination.closeErr = destination.file.Close()
	})
	return destination.closeErr
}
