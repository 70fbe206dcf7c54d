package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/flowir/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated
// Config, a boolean indicating the program should exit cleanly, or an
// ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("flowir", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
flowir - builds example control-flow programs and prints their IR.

Usage:
  flowir [options] [DEMO]

Arguments:
  DEMO
    One of: `+strings.Join(app.DemoNames(), ", ")+`.

Options:
`)
		flagSet.PrintDefaults()
	}

	demoFlag := flagSet.String("demo", "", "Name of the demo program to build.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	demo := *demoFlag
	if demo == "" && flagSet.NArg() > 0 {
		demo = flagSet.Arg(0)
	}
	if demo == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	known := false
	for _, name := range app.DemoNames() {
		if demo == name {
			known = true
			break
		}
	}
	if !known {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown demo %q: must be one of %s", demo, strings.Join(app.DemoNames(), ", "))}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		Demo:      demo,
		LogFormat: logFormat,
		LogLevel:  logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, false, nil
}
