// Package logger provides structured logging functionality for the application.
//
// It uses log/slog with a JSON handler on stdout, optionally fanned out to a
// log file, and carries request- or task-scoped loggers through context.
package logger
