package logger

import (
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

var log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Init picks the handler for the running environment. Development gets a
// readable console handler, everything else gets JSON on stdout.
func Init(environment string) {
	if environment == "development" {
		handler := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Level:           charmlog.DebugLevel,
			Prefix:          "welfare",
		})
		log = slog.New(handler)
		slog.SetDefault(log)
		return
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)
}

// InitConsole sends logs to stderr in the readable format, for command line
// tools whose stdout carries their output.
func InitConsole(verbose bool) {
	level := charmlog.WarnLevel
	if verbose {
		level = charmlog.DebugLevel
	}
	log = slog.New(charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:  level,
		Prefix: "welfarectl",
	}))
	slog.SetDefault(log)
}

// With returns a child logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return log.With(args...)
}

func Debug(msg string, args ...any) {
	log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	log.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	log.Error(msg, args...)
}

func Fatal(msg string, args ...any) {
	log.Error(msg, args...)
	os.Exit(1)
}
