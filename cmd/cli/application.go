package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/h434ni/loggy-run/internal/command"
	"github.com/h434ni/loggy-run/internal/execshell"
	"github.com/h434ni/loggy-run/internal/tee"
	"github.com/h434ni/loggy-run/internal/ui"
	"github.com/h434ni/loggy-run/internal/utils"
	pathutils "github.com/h434ni/loggy-run/internal/utils/path"
)

const (
	applicationNameConstant                 = "loggy-run"
	applicationShortDescriptionConstant     = "Run a command and tee its combined output to the console and a timestamped log file"
	applicationLongDescriptionConstant      = "loggy-run starts the given command (or the configured default) with stdout and stderr merged, streams every line to the console and to logs/log_<timestamp>.txt, and exits with the child's status. Interrupting the run exits with 130."
	applicationUsageConstant                = applicationNameConstant + " [command [arguments...]]"
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	environmentPrefixConstant               = "LOGGYRUN"
	configurationFileEnvironmentConstant    = environmentPrefixConstant + "_CONFIG"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationDirectoryNameConstant      = applicationNameConstant
	defaultConfigurationSearchPathConstant  = "."
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	processStarterErrorTemplateConstant     = "unable to prepare process starter: %w"
	supervisorCreationErrorTemplateConstant = "unable to prepare supervisor: %w"
	rootCommandDebugMessageConstant         = "supervising command"
	defaultCommandSelectedMessageConstant   = "no command given; running configured default"
	logFieldArgumentsConstant               = "arguments"
	logFieldCommandConstant                 = "command"
	logFieldOutputModeConstant              = "output_mode"
	logFieldRunIdentifierConstant           = "run_id"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	errorOutputTemplateConstant             = "%v\n"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common      ApplicationCommonConfiguration   `mapstructure:"common"`
	Run         tee.Configuration                `mapstructure:"run"`
	Interpreter command.InterpreterConfiguration `mapstructure:"interpreter"`
	Encoding    command.EncodingConfiguration    `mapstructure:"encoding"`
}

// ApplicationCommonConfiguration stores logging configuration.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationDependencies overrides the process facts the application reads. Zero values use the real ones.
type ApplicationDependencies struct {
	Console                *os.File
	DiagnosticOutput       io.Writer
	Clock                  tee.Clock
	TerminalDetector       execshell.TerminalDetector
	NormalizerDependencies command.Dependencies
	LookupEnvironment      func(name string) (string, bool)
}

// Application wires the Cobra root command, configuration loader, structured logger, and supervisor.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	commandContextAccessor utils.CommandContextAccessor
	pathExpander           *pathutils.Expander
	dependencies           ApplicationDependencies
	outcome                tee.Outcome
}

// NewApplication assembles a CLI application bound to the real console and environment.
func NewApplication() *Application {
	return NewApplicationWithDependencies(ApplicationDependencies{})
}

// NewApplicationWithDependencies assembles a CLI application using the supplied dependencies.
func NewApplicationWithDependencies(dependencies ApplicationDependencies) *Application {
	if dependencies.Console == nil {
		dependencies.Console = os.Stdout
	}
	if dependencies.DiagnosticOutput == nil {
		dependencies.DiagnosticOutput = os.Stderr
	}
	if dependencies.LookupEnvironment == nil {
		dependencies.LookupEnvironment = os.LookupEnv
	}

	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		configurationSearchPaths(),
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
		pathExpander:           pathutils.NewExpanderWithProviders(os.UserHomeDir, dependencies.LookupEnvironment),
		dependencies:           dependencies,
		outcome:                tee.Completed(0),
	}

	cobraCommand := &cobra.Command{
		Use:                applicationUsageConstant,
		Short:              applicationShortDescriptionConstant,
		Long:               applicationLongDescriptionConstant,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}
	cobraCommand.SetContext(context.Background())

	application.rootCommand = cobraCommand
	return application
}

// Execute runs the root command with arguments and returns the process exit status.
// Setup failures are reported on the diagnostic output and yield status 1. A logger flush
// failure is reported but never changes the status.
func (application *Application) Execute(executionContext context.Context, arguments []string) int {
	application.rootCommand.SetArgs(append([]string{}, arguments...))
	executionError := application.rootCommand.ExecuteContext(executionContext)
	if syncError := application.flushLogger(); syncError != nil {
		fmt.Fprintf(application.dependencies.DiagnosticOutput, errorOutputTemplateConstant, fmt.Errorf(loggerSyncErrorTemplateConstant, syncError))
	}
	if executionError != nil {
		fmt.Fprintf(application.dependencies.DiagnosticOutput, errorOutputTemplateConstant, executionError)
		return tee.FailedExitStatus
	}
	return application.outcome.ExitStatus()
}

// Outcome returns how the most recent run ended.
func (application *Application) Outcome() tee.Outcome {
	return application.outcome
}

// Execute builds a fresh application instance, runs it with arguments, and returns the exit status.
func Execute(executionContext context.Context, arguments []string) int {
	return NewApplication().Execute(executionContext, arguments)
}

func configurationSearchPaths() []string {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if userConfigurationDirectory, directoryError := os.UserConfigDir(); directoryError == nil {
		searchPaths = append(searchPaths, filepath.Join(userConfigurationDirectory, configurationDirectoryNameConstant))
	}
	return searchPaths
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelWarn),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatConsole),
	}

	configurationFilePath := ""
	if configuredPath, configured := application.dependencies.LookupEnvironment(configurationFileEnvironmentConstant); configured {
		configurationFilePath = application.pathExpander.Expand(strings.TrimSpace(configuredPath))
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	logger, loggerCreationError := application.loggerFactory.CreateLoggerWithOutput(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
		application.dependencies.DiagnosticOutput,
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(command.Context(), application.configurationMetadata.ConfigFileUsed)
		updatedContext = application.commandContextAccessor.WithRunIdentifier(updatedContext, uuid.NewString())
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) runRootCommand(cobraCommand *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	executionContext := cobraCommand.Context()
	runIdentifier, _ := application.commandContextAccessor.RunIdentifier(executionContext)
	runLogger := application.logger.With(zap.String(logFieldRunIdentifierConstant, runIdentifier))
	configurationFilePath, _ := application.commandContextAccessor.ConfigurationFilePath(executionContext)

	runConfiguration := application.configuration.Run.Sanitize()
	runConfiguration.LogDirectory = application.pathExpander.Expand(runConfiguration.LogDirectory)
	interpreterConfiguration := application.configuration.Interpreter
	interpreterConfiguration.Path = application.pathExpander.Expand(interpreterConfiguration.Path)
	rawArguments := arguments
	if len(rawArguments) == 0 {
		runLogger.Debug(defaultCommandSelectedMessageConstant, zap.Strings(logFieldCommandConstant, runConfiguration.DefaultCommand))
		rawArguments = runConfiguration.DefaultCommand
	}

	normalizer := command.NewNormalizer(command.Configuration{
		Interpreter: interpreterConfiguration,
		Encoding:    application.configuration.Encoding,
	}, application.dependencies.NormalizerDependencies)
	spec, environment := normalizer.Normalize(rawArguments)

	runLogger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
		zap.String(logFieldCommandConstant, spec.String()),
		zap.String(logFieldOutputModeConstant, runConfiguration.OutputMode),
		zap.String(configurationFileFieldConstant, configurationFilePath),
	)

	starter, starterError := execshell.NewProcessStarter(
		execshell.OutputMode(runConfiguration.OutputMode),
		application.dependencies.Console,
		application.dependencies.TerminalDetector,
	)
	if starterError != nil {
		return fmt.Errorf(processStarterErrorTemplateConstant, starterError)
	}

	supervisor, supervisorError := tee.NewSupervisor(runConfiguration, tee.Dependencies{
		ProcessStarter: starter,
		Console:        application.dependencies.Console,
		Observer:       ui.NewConsoleRunEventLogger(application.logger, runIdentifier),
		Clock:          application.dependencies.Clock,
		Logger:         runLogger,
	})
	if supervisorError != nil {
		return fmt.Errorf(supervisorCreationErrorTemplateConstant, supervisorError)
	}

	application.outcome = supervisor.Run(executionContext, spec, environment)
	return nil
}

func (application *Application) flushLogger() error {
	return application.syncLoggerInstance(application.logger)
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}
