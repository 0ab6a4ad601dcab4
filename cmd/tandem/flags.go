package main

import (
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tandem-ml/tandem/internal/config"
	"github.com/tandem-ml/tandem/internal/logger"
)

var (
	configFile string
	logLevel   string
	logFormat  string
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Usage:       "path to config.yaml (default ~/.config/tandem/config.yaml)",
		Destination: &configFile,
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
	}
}

// newLogger builds the command logger from flags and the config file.
// Explicit flags win over config file keys.
func newLogger(cmd *cli.Command, cfg config.Config) logger.Logger {
	level := logLevel
	if cfg.LogLevel != "" && !cmd.IsSet("log-level") {
		level = cfg.LogLevel
	}
	format := logFormat
	if cfg.LogFormat != "" && !cmd.IsSet("log-format") {
		format = cfg.LogFormat
	}

	lv := logger.ParseLevel(level)
	switch format {
	case "json":
		return logger.JSON(os.Stderr, lv)
	case "text":
		return logger.Text(os.Stderr, lv)
	default:
		return logger.Pretty(os.Stderr, lv)
	}
}

// effectiveFloat resolves flag > config file > flag default for a float flag.
func effectiveFloat(cmd *cli.Command, name string, flagValue float64, fileValue *float64) float64 {
	if fileValue != nil && !cmd.IsSet(name) {
		return *fileValue
	}
	return flagValue
}

// effectiveInt resolves flag > config file > flag default for an int flag.
func effectiveInt(cmd *cli.Command, name string, flagValue int64, fileValue *int64) int64 {
	if fileValue != nil && !cmd.IsSet(name) {
		return *fileValue
	}
	return flagValue
}

// effectiveBool resolves flag > config file > flag default for a bool flag.
func effectiveBool(cmd *cli.Command, name string, flagValue bool, fileValue *bool) bool {
	if fileValue != nil && !cmd.IsSet(name) {
		return *fileValue
	}
	return flagValue
}

// effectiveString resolves flag > config file > flag default for a string flag.
func effectiveString(cmd *cli.Command, name, flagValue, fileValue string) string {
	if fileValue != "" && !cmd.IsSet(name) {
		return fileValue
	}
	return flagValue
}
