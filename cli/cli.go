// Package cli provides the command-line interface for placing drawn
// signatures on PDF pages.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/georgepadayatti/firma/config"
	"github.com/georgepadayatti/firma/logging"
)

// Version information
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// ErrTerminalOutput is returned when binary output would be written to a
// terminal.
var ErrTerminalOutput = errors.New("refusing to write binary output to a terminal")

// osExit is a variable for os.Exit to allow testing
var osExit = os.Exit

// Output streams, replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// isTerminal reports whether w is an interactive terminal.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Run executes the CLI with the given arguments.
// This is the main entry point for the CLI.
func Run(args []string) {
	if len(args) < 2 {
		Usage()
		return
	}

	command := args[1]

	switch command {
	case "sign":
		SignCommand(args)
	case "place":
		PlaceCommand(args)
	case "pad":
		PadCommand(args)
	case "inspect":
		InspectCommand(args)
	case "version":
		VersionCommand()
	case "help", "-h", "--help":
		Usage()
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		Usage()
	}
}

// Usage prints the CLI usage information.
func Usage() {
	fmt.Fprintf(stdout, "firma - stamp a drawn signature onto a PDF page\n\n")
	fmt.Fprintf(stdout, "Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Fprintln(stdout, "Commands:")
	fmt.Fprintln(stdout, "  sign     Place a signature image on a PDF page")
	fmt.Fprintln(stdout, "  place    Map a click on a rendered page to a signature position")
	fmt.Fprintln(stdout, "  pad      Draw a signature from a stroke script")
	fmt.Fprintln(stdout, "  inspect  List the images placed on each page of a PDF")
	fmt.Fprintln(stdout, "  version  Show version information")
	fmt.Fprintln(stdout, "  help     Show this help message")
	fmt.Fprintln(stdout, "")
	fmt.Fprintf(stdout, "Use '%s <command> -h' for command-specific help\n", os.Args[0])
	fmt.Fprintln(stdout, "")
	fmt.Fprintln(stdout, "Examples:")
	fmt.Fprintf(stdout, "  %s pad -o firma.png strokes.yaml\n", os.Args[0])
	fmt.Fprintf(stdout, "  %s place -preview marked.png contrato.pdf 306 396\n", os.Args[0])
	fmt.Fprintf(stdout, "  %s sign -x 50 -y 50 -page 1 contrato.pdf firma.png\n", os.Args[0])
	fmt.Fprintf(stdout, "  %s inspect contrato_firmado.pdf\n", os.Args[0])
}

// VersionCommand prints version information.
func VersionCommand() {
	fmt.Fprintf(stdout, "firma version %s\n", Version)
	fmt.Fprintf(stdout, "Build time: %s\n", BuildTime)
}

// setup loads the configuration at path, or the defaults when path is
// empty, and builds the logger. level overrides the configured level.
func setup(path, level string) (*config.AppConfig, *slog.Logger, io.Closer, error) {
	cfg := config.DefaultAppConfig()
	if path != "" {
		var err error
		cfg, err = config.LoadAppConfig(path)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	if level != "" {
		cfg.Logging.Level = level
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return cfg, logger, closer, nil
}

// writeOutput writes data to path, or to stdout when path is "-".
func writeOutput(path string, data []byte) error {
	if path != "-" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}
	if isTerminal(stdout) {
		return ErrTerminalOutput
	}
	_, err := stdout.Write(data)
	return err
}

// fail prints err and exits.
func fail(err error) {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	osExit(1)
}
