// Package pathutils expands user-supplied filesystem paths from configuration.
package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant             = "~"
	tildeForwardSlashPrefixConstant = "~/"
)

var tildeWithPathSeparatorPrefix = tildeSymbolConstant + string(os.PathSeparator)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// EnvironmentLookup resolves an environment variable.
type EnvironmentLookup func(name string) (string, bool)

// Expander rewrites configured paths: a leading "~" becomes the home directory and
// $NAME or ${NAME} references become the variable's value. Unset variables expand to "".
type Expander struct {
	homeDirectoryProvider HomeDirectoryProvider
	lookupEnvironment     EnvironmentLookup
	homeDirectory         string
	homeDirectoryError    error
	initializationGuard   sync.Once
}

// NewExpanderWithProviders constructs an Expander with custom lookups. Nil providers use the operating system.
func NewExpanderWithProviders(homeDirectoryProvider HomeDirectoryProvider, lookupEnvironment EnvironmentLookup) *Expander {
	if homeDirectoryProvider == nil {
		homeDirectoryProvider = os.UserHomeDir
	}
	if lookupEnvironment == nil {
		lookupEnvironment = os.LookupEnv
	}
	return &Expander{homeDirectoryProvider: homeDirectoryProvider, lookupEnvironment: lookupEnvironment}
}

// Expand returns candidatePath with home and environment references resolved.
// Blank input is returned unchanged.
func (expander *Expander) Expand(candidatePath string) string {
	if expander == nil {
		return candidatePath
	}
	trimmedPath := strings.TrimSpace(candidatePath)
	if len(trimmedPath) == 0 {
		return candidatePath
	}

	expandedPath := os.Expand(trimmedPath, func(name string) string {
		value, _ := expander.lookupEnvironment(name)
		return value
	})
	return expander.expandHome(expandedPath)
}

func (expander *Expander) expandHome(candidatePath string) string {
	if !strings.HasPrefix(candidatePath, tildeSymbolConstant) {
		return candidatePath
	}

	resolvedHomeDirectory := expander.resolveHomeDirectory()
	if len(resolvedHomeDirectory) == 0 {
		return candidatePath
	}

	switch {
	case candidatePath == tildeSymbolConstant:
		return resolvedHomeDirectory
	case strings.HasPrefix(candidatePath, tildeForwardSlashPrefixConstant):
		return filepath.Join(resolvedHomeDirectory, strings.TrimPrefix(candidatePath, tildeForwardSlashPrefixConstant))
	case strings.HasPrefix(candidatePath, tildeWithPathSeparatorPrefix):
		return filepath.Join(resolvedHomeDirectory, strings.TrimPrefix(candidatePath, tildeWithPathSeparatorPrefix))
	default:
		return candidatePath
	}
}

func (expander *Expander) resolveHomeDirectory() string {
	expander.initializationGuard.Do(func() {
		expander.homeDirectory, expander.homeDirectoryError = expander.homeDirectoryProvider()
	})
	if expander.homeDirectoryError != nil {
		return ""
	}
	return expander.homeDirectory
}
