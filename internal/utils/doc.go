// Package utils exposes reusable helpers consumed by the CLI and the supervisor.
//
// It houses ConfigurationLoader and LoggerFactory abstractions that integrate
// Viper, environment variables, and zap logging, plus FlushingWriter used to
// keep console and log file output durable line by line.
package utils
