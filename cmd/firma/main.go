// Command firma stamps a drawn signature onto a PDF page.
//
// Usage:
//
//	firma <command> [options] <args>
//
// Commands:
//
//	sign     Place a signature image on a PDF page
//	place    Map a click on a rendered page to a signature position
//	pad      Draw a signature from a stroke script
//	inspect  List the images placed on each page of a PDF
//	version  Show version information
//	help     Show help message
//
// Examples:
//
//	# Draw a signature
//	firma pad -o firma.png strokes.yaml
//
//	# Find the position for a click on the rendered first page
//	firma place -preview marked.png contrato.pdf 306 396
//
//	# Sign the center of the first page
//	firma sign -x 50 -y 50 contrato.pdf firma.png
package main

import (
	"os"

	"github.com/georgepadayatti/firma/cli"
)

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/firma
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cli.Version = version
	cli.BuildTime = buildTime

	cli.Run(os.Args)
}
