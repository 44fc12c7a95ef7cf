package tee

import (
	"strings"
)

const (
	defaultLogDirectoryConstant    = "logs"
	defaultConsoleEncodingConstant = "utf-8"
	defaultOutputModeConstant      = "pipe"
	defaultInterpreterConstant     = "python"
	defaultEntryPointConstant      = "main.py"

	// LogCollisionUnique creates a fresh file, suffixing the name when the timestamped one exists.
	LogCollisionUnique = "unique"
	// LogCollisionTruncate reuses and truncates an existing file with the same timestamped name.
	LogCollisionTruncate = "truncate"
)

// Configuration captures the run.* settings.
type Configuration struct {
	DefaultCommand  []string `mapstructure:"default_command"`
	LogDirectory    string   `mapstructure:"log_directory"`
	LogCollision    string   `mapstructure:"log_collision"`
	OutputMode      string   `mapstructure:"output_mode"`
	ConsoleEncoding string   `mapstructure:"console_encoding"`
}

// DefaultConfiguration returns the settings used when nothing is configured.
func DefaultConfiguration() Configuration {
	return Configuration{
		DefaultCommand:  []string{defaultInterpreterConstant, defaultEntryPointConstant},
		LogDirectory:    defaultLogDirectoryConstant,
		LogCollision:    LogCollisionUnique,
		OutputMode:      defaultOutputModeConstant,
		ConsoleEncoding: defaultConsoleEncodingConstant,
	}
}

// Sanitize trims values and restores defaults for blank or unknown fields.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := Configuration{}

	for _, token := range configuration.DefaultCommand {
		if len(strings.TrimSpace(token)) == 0 {
			continue
		}
		sanitized.DefaultCommand = append(sanitized.DefaultCommand, token)
	}
	if len(sanitized.DefaultCommand) == 0 {
		sanitized.DefaultCommand = defaults.DefaultCommand
	}

	sanitized.LogDirectory = valueOrDefault(configuration.LogDirectory, defaults.LogDirectory)
	sanitized.OutputMode = valueOrDefault(configuration.OutputMode, defaults.OutputMode)
	sanitized.ConsoleEncoding = valueOrDefault(configuration.ConsoleEncoding, defaults.ConsoleEncoding)

	switch strings.ToLower(strings.TrimSpace(configuration.LogCollision)) {
	case LogCollisionTruncate:
		sanitized.LogCollision = LogCollisionTruncate
	default:
		sanitized.LogCollision = LogCollisionUnique
	}

	return sanitized
}

func valueOrDefault(value string, defaultValue string) string {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return defaultValue
	}
	return trimmedValue
}
