package command

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

const (
	defaultInterpreterNameConstant        = "python"
	defaultSecondaryInterpreterConstant   = "python3"
	defaultUnbufferedFlagConstant         = "-u"
	defaultEncodingVariableConstant       = "PYTHONIOENCODING"
	defaultEncodingValueConstant          = "utf-8"
	virtualEnvironmentVariableConstant    = "VIRTUAL_ENV"
	virtualEnvironmentUnixBinaryDirectory = "bin"
	virtualEnvironmentWindowsBinDirectory = "Scripts"
	windowsExecutableSuffixConstant       = ".exe"
	windowsOperatingSystemConstant        = "windows"
)

// InterpreterConfiguration controls interpreter pinning and unbuffered flag injection.
type InterpreterConfiguration struct {
	Aliases        []string `mapstructure:"aliases"`
	Name           string   `mapstructure:"name"`
	Path           string   `mapstructure:"path"`
	UnbufferedFlag string   `mapstructure:"unbuffered_flag"`
}

// EncodingConfiguration names the variable forcing the child's text encoding.
type EncodingConfiguration struct {
	Variable string `mapstructure:"variable"`
	Value    string `mapstructure:"value"`
}

// Configuration groups the normalizer settings.
type Configuration struct {
	Interpreter InterpreterConfiguration `mapstructure:"interpreter"`
	Encoding    EncodingConfiguration    `mapstructure:"encoding"`
}

// DefaultConfiguration returns the settings used when nothing is configured.
func DefaultConfiguration() Configuration {
	return Configuration{
		Interpreter: InterpreterConfiguration{
			Aliases:        []string{defaultInterpreterNameConstant, defaultSecondaryInterpreterConstant},
			Name:           defaultInterpreterNameConstant,
			UnbufferedFlag: defaultUnbufferedFlagConstant,
		},
		Encoding: EncodingConfiguration{
			Variable: defaultEncodingVariableConstant,
			Value:    defaultEncodingValueConstant,
		},
	}
}

// Sanitize trims values and restores defaults for blank fields.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := Configuration{}

	for _, alias := range configuration.Interpreter.Aliases {
		trimmedAlias := strings.TrimSpace(alias)
		if len(trimmedAlias) == 0 {
			continue
		}
		sanitized.Interpreter.Aliases = append(sanitized.Interpreter.Aliases, trimmedAlias)
	}
	if len(sanitized.Interpreter.Aliases) == 0 {
		sanitized.Interpreter.Aliases = defaults.Interpreter.Aliases
	}

	sanitized.Interpreter.Name = valueOrDefault(configuration.Interpreter.Name, defaults.Interpreter.Name)
	sanitized.Interpreter.Path = strings.TrimSpace(configuration.Interpreter.Path)
	sanitized.Interpreter.UnbufferedFlag = valueOrDefault(configuration.Interpreter.UnbufferedFlag, defaults.Interpreter.UnbufferedFlag)
	sanitized.Encoding.Variable = valueOrDefault(configuration.Encoding.Variable, defaults.Encoding.Variable)
	sanitized.Encoding.Value = valueOrDefault(configuration.Encoding.Value, defaults.Encoding.Value)

	return sanitized
}

// Dependencies provides the process facts the normalizer reads.
// Nil fields fall back to the os and os/exec implementations.
type Dependencies struct {
	EnvironmentEntries func() []string
	LookupEnvironment  func(name string) (string, bool)
	LookPath           func(file string) (string, error)
	FileExists         func(path string) bool
	OperatingSystem    string
}

// Normalizer rewrites raw arguments into the final child invocation.
type Normalizer struct {
	configuration Configuration
	dependencies  Dependencies
}

// NewNormalizer constructs a Normalizer from sanitized configuration.
func NewNormalizer(configuration Configuration, dependencies Dependencies) *Normalizer {
	if dependencies.EnvironmentEntries == nil {
		dependencies.EnvironmentEntries = os.Environ
	}
	if dependencies.LookupEnvironment == nil {
		dependencies.LookupEnvironment = os.LookupEnv
	}
	if dependencies.LookPath == nil {
		dependencies.LookPath = exec.LookPath
	}
	if dependencies.FileExists == nil {
		dependencies.FileExists = regularFileExists
	}
	if len(dependencies.OperatingSystem) == 0 {
		dependencies.OperatingSystem = runtime.GOOS
	}
	return &Normalizer{configuration: configuration.Sanitize(), dependencies: dependencies}
}

// Normalize applies interpreter pinning and unbuffered flag injection to rawArguments and
// builds the child environment. rawArguments must be non-empty; an empty input yields an empty Spec.
func (normalizer *Normalizer) Normalize(rawArguments []string) (Spec, Environment) {
	environment := normalizer.buildEnvironment()
	if len(rawArguments) == 0 {
		return Spec{}, environment
	}

	tokens := append([]string{}, rawArguments...)
	tokens[0] = normalizer.pinInterpreter(tokens[0])

	interpreterConfiguration := normalizer.configuration.Interpreter
	if strings.Contains(tokens[0], interpreterConfiguration.Name) && !slices.Contains(tokens, interpreterConfiguration.UnbufferedFlag) {
		tokens = slices.Insert(tokens, 1, interpreterConfiguration.UnbufferedFlag)
	}

	return Spec{tokens: tokens}, environment
}

func (normalizer *Normalizer) buildEnvironment() Environment {
	encodingConfiguration := normalizer.configuration.Encoding
	return NewEnvironmentForOperatingSystem(normalizer.dependencies.OperatingSystem, normalizer.dependencies.EnvironmentEntries(), map[string]string{
		encodingConfiguration.Variable: encodingConfiguration.Value,
	})
}

func (normalizer *Normalizer) pinInterpreter(executable string) string {
	if !slices.Contains(normalizer.configuration.Interpreter.Aliases, executable) {
		return executable
	}

	resolvedPath, resolved := normalizer.resolveInterpreter(executable)
	if !resolved {
		return executable
	}
	return resolvedPath
}

// resolveInterpreter prefers a configured path, then the active virtual environment, then PATH.
func (normalizer *Normalizer) resolveInterpreter(alias string) (string, bool) {
	if configuredPath := normalizer.configuration.Interpreter.Path; len(configuredPath) > 0 {
		return absolutePath(configuredPath)
	}

	if virtualEnvironment, active := normalizer.dependencies.LookupEnvironment(virtualEnvironmentVariableConstant); active && len(strings.TrimSpace(virtualEnvironment)) > 0 {
		candidate := normalizer.virtualEnvironmentInterpreter(strings.TrimSpace(virtualEnvironment), alias)
		if normalizer.dependencies.FileExists(candidate) {
			return absolutePath(candidate)
		}
	}

	foundPath, lookError := normalizer.dependencies.LookPath(alias)
	if lookError != nil {
		return "", false
	}
	return absolutePath(foundPath)
}

func (normalizer *Normalizer) virtualEnvironmentInterpreter(virtualEnvironment string, alias string) string {
	if normalizer.dependencies.OperatingSystem == windowsOperatingSystemConstant {
		return filepath.Join(virtualEnvironment, virtualEnvironmentWindowsBinDirectory, alias+windowsExecutableSuffixConstant)
	}
	return filepath.Join(virtualEnvironment, virtualEnvironmentUnixBinaryDirectory, alias)
}

func absolutePath(path string) (string, bool) {
	resolvedPath, absoluteError := filepath.Abs(path)
	if absoluteError != nil {
		return "", false
	}
	return resolvedPath, true
}

func regularFileExists(path string) bool {
	fileInfo, statError := os.Stat(path)
	if statError != nil {
		return false
	}
	return fileInfo.Mode().IsRegular()
}

func valueOrDefault(value string, defaultValue string) string {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return defaultValue
	}
	return trimmedValue
}
