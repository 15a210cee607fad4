package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image/png"
	"os"
	"strconv"

	"github.com/georgepadayatti/firma/capture"
	"github.com/georgepadayatti/firma/placement"
	"github.com/georgepadayatti/firma/render"
	"github.com/georgepadayatti/firma/session"
)

// PlaceOptions contains options for the place command.
type PlaceOptions struct {
	Config   string
	LogLevel string
	Page     int
	Zoom     int
	Preview  string
	Color    string
	JSON     bool
}

// PlaceOutput is the result of mapping a click.
type PlaceOutput struct {
	Page     int                `json:"page"`
	Position placement.Position `json:"position"`
	Rect     RectOutput         `json:"rect"`
	Zoom     float64            `json:"zoom"`
	Surface  SizeOutput         `json:"surface"`
}

// RectOutput is a placement rectangle in PDF points.
type RectOutput struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SizeOutput is a width and height.
type SizeOutput struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PlaceCommand implements the 'place' command.
func PlaceCommand(args []string) {
	placeFlags := flag.NewFlagSet("place", flag.ExitOnError)
	placeFlags.SetOutput(stderr)

	var opts PlaceOptions

	placeFlags.StringVar(&opts.Config, "config", "", "Path to a YAML configuration file")
	placeFlags.StringVar(&opts.LogLevel, "log-level", "", "Override the configured log level")
	placeFlags.IntVar(&opts.Page, "page", 1, "Page to render (1-based)")
	placeFlags.IntVar(&opts.Zoom, "zoom", 0, "Zoom steps from 100% (negative zooms out)")
	placeFlags.StringVar(&opts.Preview, "preview", "", "Write the rendered page with the signature area marked to this PNG file")
	placeFlags.StringVar(&opts.Color, "color", "Rojo", "Marker color: a palette name, CSS name or hex value")
	placeFlags.BoolVar(&opts.JSON, "json", false, "Output results in JSON format")

	placeFlags.Usage = func() {
		fmt.Fprintf(stdout, "Usage: %s place [options] <input.pdf> <x> <y>\n\n", os.Args[0])
		fmt.Fprintln(stdout, "Map a click on a rendered page to a signature position.")
		fmt.Fprintln(stdout, "")
		fmt.Fprintln(stdout, "Arguments:")
		fmt.Fprintln(stdout, "  input.pdf  PDF file to render")
		fmt.Fprintln(stdout, "  x y        Click location in pixels from the top-left corner of the rendered page")
		fmt.Fprintln(stdout, "")
		fmt.Fprintln(stdout, "Options:")
		placeFlags.SetOutput(stdout)
		placeFlags.PrintDefaults()
		placeFlags.SetOutput(stderr)
		fmt.Fprintln(stdout, "")
		fmt.Fprintln(stdout, "Examples:")
		fmt.Fprintf(stdout, "  %s place contrato.pdf 306 396\n", os.Args[0])
		fmt.Fprintf(stdout, "  %s place -page 2 -zoom 2 -preview marked.png contrato.pdf 120 80\n", os.Args[0])
	}

	if err := placeFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	if len(placeFlags.Args()) < 3 {
		placeFlags.Usage()
		osExit(1)
	}

	x, errX := strconv.ParseFloat(placeFlags.Arg(1), 64)
	y, errY := strconv.ParseFloat(placeFlags.Arg(2), 64)
	if errX != nil || errY != nil {
		fail(fmt.Errorf("invalid click location %q %q", placeFlags.Arg(1), placeFlags.Arg(2)))
		return
	}

	output, err := placeClick(context.Background(), placeFlags.Arg(0), placement.Point{X: x, Y: y}, &opts)
	if err != nil {
		fail(err)
		return
	}

	if opts.JSON {
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(output); err != nil {
			fmt.Fprintf(stderr, "Error encoding JSON: %v\n", err)
			osExit(1)
		}
		return
	}

	fmt.Fprintf(stdout, "Rendered page %d at %d%% (%gx%g pixels)\n",
		output.Page, int(output.Zoom*100), output.Surface.Width, output.Surface.Height)
	fmt.Fprintf(stdout, "Position: %s\n", output.Position)
	fmt.Fprintf(stdout, "Signature area: x=%.2f y=%.2f width=%g height=%g\n",
		output.Rect.X, output.Rect.Y, output.Rect.Width, output.Rect.Height)
	fmt.Fprintf(stdout, "Sign with: -x %.2f -y %.2f -page %d\n",
		output.Position.X, output.Position.Y, output.Position.Page)
	if opts.Preview != "" {
		fmt.Fprintf(stdout, "Preview written to %s\n", opts.Preview)
	}
}

// placeClick renders the requested page and maps click, in surface pixels,
// to a position on it.
func placeClick(ctx context.Context, inputPath string, click placement.Point, opts *PlaceOptions) (*PlaceOutput, error) {
	cfg, logger, closer, err := setup(opts.Config, opts.LogLevel)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	marker, err := capture.ParseColor(opts.Color)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	view := render.NewView(render.Preview{},
		render.WithZoomRange(cfg.Viewer.MinZoom, cfg.Viewer.MaxZoom, cfg.Viewer.ZoomStep),
		render.WithPixelsPerPoint(cfg.Viewer.PixelsPerPoint),
		render.WithViewLogger(logger),
	)
	defer view.Close()

	if err := view.Load(ctx, data); err != nil {
		return nil, userError(err)
	}

	if opts.Page != 1 {
		if opts.Page < 1 || opts.Page > view.PageCount() {
			return nil, fmt.Errorf("page %d out of range (document has %d pages)", opts.Page, view.PageCount())
		}
		if err := <-view.SetPage(ctx, opts.Page); err != nil {
			return nil, userError(err)
		}
	}

	for i := 0; i < opts.Zoom; i++ {
		if err := <-view.ZoomIn(ctx); err != nil {
			return nil, userError(err)
		}
	}
	for i := 0; i > opts.Zoom; i-- {
		if err := <-view.ZoomOut(ctx); err != nil {
			return nil, userError(err)
		}
	}

	surface := view.Surface()
	bounds := surface.Bounds()

	s := session.New(nil, session.WithLogger(logger))
	pos, err := s.Click(view, click, bounds)
	if err != nil {
		return nil, userError(err)
	}
	rect := placement.Translate(pos, surface.Size)

	if opts.Preview != "" {
		img, err := view.Marker(pos, marker)
		if err != nil {
			return nil, userError(err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode preview: %w", err)
		}
		if err := writeOutput(opts.Preview, buf.Bytes()); err != nil {
			return nil, err
		}
	}

	return &PlaceOutput{
		Page:     surface.Page,
		Position: pos,
		Rect:     RectOutput{X: rect.X, Y: rect.Y, Width: rect.Width, Height: rect.Height},
		Zoom:     surface.Zoom,
		Surface:  SizeOutput{Width: bounds.Width, Height: bounds.Height},
	}, nil
}
