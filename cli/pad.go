package cli

import (
	"bytes"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/georgepadayatti/firma/capture"
	"github.com/georgepadayatti/firma/config"
)

// PadOptions contains options for the pad command.
type PadOptions struct {
	Config   string
	Output   string
	LogLevel string
}

// StrokeScript is a recorded drawing replayed through the capture engine.
// Zero values fall back to the pad configuration.
type StrokeScript struct {
	Width       float64  `yaml:"width"`
	Height      float64  `yaml:"height"`
	PixelRatio  float64  `yaml:"pixel-ratio"`
	Color       string   `yaml:"color"`
	StrokeWidth float64  `yaml:"stroke-width"`
	Strokes     []Stroke `yaml:"strokes"`
}

// Stroke is one press-move-release sequence. Color and Width change the
// pen before the stroke starts. Touch strokes are delivered as touch input.
type Stroke struct {
	Points [][]float64 `yaml:"points"`
	Color  string      `yaml:"color"`
	Width  float64     `yaml:"width"`
	Touch  bool        `yaml:"touch"`
}

// PadCommand implements the 'pad' command.
func PadCommand(args []string) {
	padFlags := flag.NewFlagSet("pad", flag.ExitOnError)
	padFlags.SetOutput(stderr)

	var opts PadOptions

	padFlags.StringVar(&opts.Config, "config", "", "Path to a YAML configuration file")
	padFlags.StringVar(&opts.Output, "o", capture.SaveName, "Output PNG file, or - for stdout")
	padFlags.StringVar(&opts.LogLevel, "log-level", "", "Override the configured log level")

	padFlags.Usage = func() {
		fmt.Fprintf(stdout, "Usage: %s pad [options] <strokes.yaml>\n\n", os.Args[0])
		fmt.Fprintln(stdout, "Draw a signature from a stroke script and save it as PNG.")
		fmt.Fprintln(stdout, "")
		fmt.Fprintln(stdout, "Arguments:")
		fmt.Fprintln(stdout, "  strokes.yaml  Stroke script")
		fmt.Fprintln(stdout, "")
		fmt.Fprintln(stdout, "Options:")
		padFlags.SetOutput(stdout)
		padFlags.PrintDefaults()
		padFlags.SetOutput(stderr)
		fmt.Fprintln(stdout, "")
		fmt.Fprintln(stdout, "Stroke script:")
		fmt.Fprintln(stdout, "  width: 400")
		fmt.Fprintln(stdout, "  height: 200")
		fmt.Fprintln(stdout, "  color: Azul")
		fmt.Fprintln(stdout, "  strokes:")
		fmt.Fprintln(stdout, "    - points: [[40, 120], [120, 60], [200, 140]]")
		fmt.Fprintln(stdout, "    - points: [[220, 100], [360, 100]]")
		fmt.Fprintln(stdout, "      width: 3")
		fmt.Fprintln(stdout, "")
		fmt.Fprintln(stdout, "Examples:")
		fmt.Fprintf(stdout, "  %s pad strokes.yaml\n", os.Args[0])
		fmt.Fprintf(stdout, "  %s pad -o mi_firma.png strokes.yaml\n", os.Args[0])
	}

	if err := padFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	if len(padFlags.Args()) < 1 {
		padFlags.Usage()
		osExit(1)
	}

	sig, err := drawPad(padFlags.Arg(0), &opts)
	if err != nil {
		fail(err)
		return
	}

	if opts.Output != "-" {
		fmt.Fprintf(stdout, "Signature saved: %s (%dx%d pixels)\n", opts.Output, sig.Width, sig.Height)
	}
}

// drawPad replays the script at scriptPath and writes the drawing.
func drawPad(scriptPath string, opts *PadOptions) (*capture.Signature, error) {
	cfg, logger, closer, err := setup(opts.Config, opts.LogLevel)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	data, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read stroke script: %w", err)
	}
	script, err := ParseStrokeScript(data)
	if err != nil {
		return nil, err
	}

	engine, err := replay(script, cfg.Pad, logger)
	if err != nil {
		return nil, err
	}
	sig := engine.Signature()
	if sig == nil {
		return nil, capture.ErrNoSignature
	}

	var buf bytes.Buffer
	if err := engine.Save(&buf); err != nil {
		return nil, err
	}
	if err := writeOutput(opts.Output, buf.Bytes()); err != nil {
		return nil, err
	}
	return sig, nil
}

// ParseStrokeScript decodes a stroke script. Unknown fields are rejected.
func ParseStrokeScript(data []byte) (*StrokeScript, error) {
	var script StrokeScript
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&script); err != nil {
		return nil, fmt.Errorf("failed to parse stroke script: %w", err)
	}

	for i, s := range script.Strokes {
		for _, p := range s.Points {
			if len(p) != 2 {
				return nil, fmt.Errorf("stroke %d: points must be [x, y] pairs", i+1)
			}
		}
	}
	return &script, nil
}

// replay draws script on a new engine configured from pad.
func replay(script *StrokeScript, pad *config.PadConfig, logger *slog.Logger) (*capture.Engine, error) {
	width, height := pad.Width, pad.Height
	if script.Width > 0 {
		width = script.Width
	}
	if script.Height > 0 {
		height = script.Height
	}
	ratio := pad.PixelRatio
	if script.PixelRatio > 0 {
		ratio = script.PixelRatio
	}
	colorName := pad.Color
	if script.Color != "" {
		colorName = script.Color
	}
	strokeWidth := pad.StrokeWidth
	if script.StrokeWidth > 0 {
		strokeWidth = script.StrokeWidth
	}

	surface, err := capture.NewRasterSurface(width, height, ratio)
	if err != nil {
		return nil, err
	}
	c, err := capture.ParseColor(colorName)
	if err != nil {
		return nil, err
	}
	engine := capture.NewEngine(surface, capture.WithColor(c), capture.WithWidth(strokeWidth))

	for i, s := range script.Strokes {
		if s.Color != "" {
			c, err := capture.ParseColor(s.Color)
			if err != nil {
				return nil, fmt.Errorf("stroke %d: %w", i+1, err)
			}
			engine.SetColor(c)
		}
		if s.Width > 0 {
			engine.SetWidth(s.Width)
		}
		if len(s.Points) == 0 {
			continue
		}

		for j, p := range s.Points {
			kind := capture.Move
			if j == 0 {
				kind = capture.Press
			}
			engine.Handle(capture.Event{Kind: kind, Input: strokeInput(p[0], p[1], s.Touch)})
		}
		engine.Handle(capture.Event{Kind: capture.Release})
		logger.Debug("stroke replayed", "stroke", i+1, "points", len(s.Points), "width", engine.Width())
	}

	if engine.Empty() {
		return nil, capture.ErrNoSignature
	}
	return engine, nil
}

func strokeInput(x, y float64, touch bool) capture.Input {
	if touch {
		return capture.TouchInput{Touches: []capture.Point{{X: x, Y: y}}}
	}
	return capture.PointerInput{X: x, Y: y}
}
