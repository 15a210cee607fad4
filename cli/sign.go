package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/georgepadayatti/firma/capture"
	"github.com/georgepadayatti/firma/compose"
	"github.com/georgepadayatti/firma/pdf/images"
	"github.com/georgepadayatti/firma/placement"
	"github.com/georgepadayatti/firma/session"
)

// SignOptions contains options for the sign command.
type SignOptions struct {
	Config   string
	Output   string
	LogLevel string
	X        float64
	Y        float64
	Page     int
}

// SignCommand implements the 'sign' command.
func SignCommand(args []string) {
	signFlags := flag.NewFlagSet("sign", flag.ExitOnError)
	signFlags.SetOutput(stderr)

	var opts SignOptions

	signFlags.StringVar(&opts.Config, "config", "", "Path to a YAML configuration file")
	signFlags.StringVar(&opts.Output, "o", "", "Output file, or - for stdout (default <input>_firmado.pdf)")
	signFlags.StringVar(&opts.LogLevel, "log-level", "", "Override the configured log level")
	signFlags.Float64Var(&opts.X, "x", 50, "Horizontal position of the signature center, percent of page width")
	signFlags.Float64Var(&opts.Y, "y", 50, "Vertical position of the signature center, percent of page height from the top")
	signFlags.IntVar(&opts.Page, "page", 1, "Page to sign (1-based)")

	signFlags.Usage = func() {
		fmt.Fprintf(stdout, "Usage: %s sign [options] <input.pdf> <signature.png>\n\n", os.Args[0])
		fmt.Fprintln(stdout, "Place a signature image on a PDF page.")
		fmt.Fprintln(stdout, "")
		fmt.Fprintln(stdout, "Arguments:")
		fmt.Fprintln(stdout, "  input.pdf      PDF file to sign")
		fmt.Fprintln(stdout, "  signature.png  Signature image with a transparent background")
		fmt.Fprintln(stdout, "")
		fmt.Fprintln(stdout, "Options:")
		signFlags.SetOutput(stdout)
		signFlags.PrintDefaults()
		signFlags.SetOutput(stderr)
		fmt.Fprintln(stdout, "")
		fmt.Fprintln(stdout, "Examples:")
		fmt.Fprintf(stdout, "  %s sign contrato.pdf firma.png\n", os.Args[0])
		fmt.Fprintf(stdout, "  %s sign -x 80 -y 90 -page 2 contrato.pdf firma.png\n", os.Args[0])
		fmt.Fprintf(stdout, "  %s sign -o - contrato.pdf firma.png > firmado.pdf\n", os.Args[0])
	}

	if err := signFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	if len(signFlags.Args()) < 2 {
		signFlags.Usage()
		osExit(1)
	}

	outputPath, err := signPDF(context.Background(), signFlags.Arg(0), signFlags.Arg(1), &opts)
	if err != nil {
		fail(err)
		return
	}

	if outputPath != "-" {
		fmt.Fprintf(stdout, "Successfully signed PDF: %s\n", outputPath)
	}
}

// signPDF runs a signing session over the input file and signature image
// and writes the result. It returns where the result was written.
func signPDF(ctx context.Context, inputPath, signaturePath string, opts *SignOptions) (string, error) {
	cfg, logger, closer, err := setup(opts.Config, opts.LogLevel)
	if err != nil {
		return "", err
	}
	defer closer.Close()

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}

	sigData, err := os.ReadFile(signaturePath)
	if err != nil {
		return "", fmt.Errorf("failed to read signature: %w", err)
	}
	width, height, err := images.GetImageDimensions(sigData)
	if err != nil {
		return "", fmt.Errorf("failed to read signature: %w", err)
	}

	s := session.New(
		compose.New(compose.WithLogger(logger)),
		session.WithLogger(logger),
		session.WithSuffix(cfg.Output.Suffix),
	)

	name := filepath.Base(inputPath)
	if err := s.SelectFile(name, session.MIMEFromName(name), data); err != nil {
		return "", userError(err)
	}
	s.SetSignature(&capture.Signature{PNG: sigData, Width: width, Height: height})
	if err := s.SetPosition(placement.Position{X: opts.X, Y: opts.Y, Page: opts.Page}); err != nil {
		return "", fmt.Errorf("invalid position: %w", err)
	}

	out, err := s.Apply(ctx)
	if err != nil {
		return "", userError(err)
	}
	if out == nil {
		return "", userError(session.ErrIncomplete)
	}

	outputPath := opts.Output
	if outputPath == "" {
		outputPath = filepath.Join(filepath.Dir(inputPath), out.Name)
	}
	if err := writeOutput(outputPath, out.Data); err != nil {
		return "", err
	}
	return outputPath, nil
}

// userError prefixes err with the message shown to users for it.
func userError(err error) error {
	return fmt.Errorf("%s: %w", session.Message(err), err)
}
