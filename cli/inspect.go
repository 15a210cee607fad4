package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/georgepadayatti/firma/pdf/document"
	"github.com/georgepadayatti/firma/placement"
)

// InspectOutput describes the images placed on a document's pages.
type InspectOutput struct {
	File  string        `json:"file"`
	Pages []PageSummary `json:"pages"`
}

// PageSummary describes one page.
type PageSummary struct {
	Page   int            `json:"page"`
	Size   SizeOutput     `json:"size"`
	Images []ImageSummary `json:"images,omitempty"`
}

// ImageSummary describes one painted image and the position it corresponds
// to.
type ImageSummary struct {
	Name     string             `json:"name"`
	Rect     RectOutput         `json:"rect"`
	Pixels   SizeOutput         `json:"pixels"`
	Position placement.Position `json:"position"`
}

// InspectCommand implements the 'inspect' command.
func InspectCommand(args []string) {
	inspectFlags := flag.NewFlagSet("inspect", flag.ExitOnError)
	inspectFlags.SetOutput(stderr)

	jsonOutput := inspectFlags.Bool("json", false, "Output results in JSON format")

	inspectFlags.Usage = func() {
		fmt.Fprintf(stdout, "Usage: %s inspect [options] <input.pdf>\n\n", os.Args[0])
		fmt.Fprintln(stdout, "List the images placed on each page of a PDF file.")
		fmt.Fprintln(stdout, "")
		fmt.Fprintln(stdout, "Options:")
		inspectFlags.SetOutput(stdout)
		inspectFlags.PrintDefaults()
		inspectFlags.SetOutput(stderr)
		fmt.Fprintln(stdout, "")
		fmt.Fprintln(stdout, "Examples:")
		fmt.Fprintf(stdout, "  %s inspect contrato_firmado.pdf\n", os.Args[0])
		fmt.Fprintf(stdout, "  %s inspect -json contrato_firmado.pdf\n", os.Args[0])
	}

	if err := inspectFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	if len(inspectFlags.Args()) < 1 {
		inspectFlags.Usage()
		osExit(1)
	}

	output, err := inspectPDF(inspectFlags.Arg(0))
	if err != nil {
		fail(err)
		return
	}

	if *jsonOutput {
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(output); err != nil {
			fmt.Fprintf(stderr, "Error encoding JSON: %v\n", err)
			osExit(1)
		}
		return
	}
	outputText(output)
}

// inspectPDF loads the file at path and lists its placed images.
func inspectPDF(path string) (*InspectOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	doc, err := document.Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load PDF: %w", err)
	}

	output := &InspectOutput{File: path}
	for page := 1; page <= doc.PageCount(); page++ {
		size, err := doc.PageSize(page)
		if err != nil {
			return nil, err
		}
		placed, err := doc.Images(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		summary := PageSummary{
			Page: page,
			Size: SizeOutput{Width: size.Width, Height: size.Height},
		}
		for _, p := range placed {
			pos, err := placement.Untranslate(p.Rect, size, page)
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", page, err)
			}
			summary.Images = append(summary.Images, ImageSummary{
				Name:     p.Name,
				Rect:     RectOutput{X: p.Rect.X, Y: p.Rect.Y, Width: p.Rect.Width, Height: p.Rect.Height},
				Pixels:   SizeOutput{Width: float64(p.Width), Height: float64(p.Height)},
				Position: pos,
			})
		}
		output.Pages = append(output.Pages, summary)
	}
	return output, nil
}

// outputText outputs the results in human-readable text format.
func outputText(output *InspectOutput) {
	fmt.Fprintf(stdout, "%s: %d page(s)\n", output.File, len(output.Pages))
	for _, page := range output.Pages {
		fmt.Fprintf(stdout, "\nPage %d (%gx%g pt)\n", page.Page, page.Size.Width, page.Size.Height)
		if len(page.Images) == 0 {
			fmt.Fprintln(stdout, "  no images")
			continue
		}
		for _, img := range page.Images {
			fmt.Fprintf(stdout, "  %s: x=%.2f y=%.2f width=%.2f height=%.2f (%gx%g pixels)\n",
				img.Name, img.Rect.X, img.Rect.Y, img.Rect.Width, img.Rect.Height, img.Pixels.Width, img.Pixels.Height)
			fmt.Fprintf(stdout, "    %s\n", img.Position)
		}
	}
}
