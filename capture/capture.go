// Package capture turns freehand pointer motion into a signature raster.
//
// An Engine draws round-capped strokes onto a RasterSurface and, whenever a
// stroke ends or the surface is cleared, emits the result to its
// subscribers: a PNG-encoded Signature, or nil when nothing visible has been
// drawn. An Engine without a surface accepts every call and does nothing.
package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"io"
	"math"
	"sync"
)

// Stroke width limits in device-independent pixels.
const (
	MinStrokeWidth     = 1.0
	MaxStrokeWidth     = 8.0
	DefaultStrokeWidth = 5.0
)

// SaveName is the file name offered when a signature is saved on its own.
const SaveName = "firma.png"

// ErrNoSignature is returned by Save when nothing has been drawn.
var ErrNoSignature = errors.New("no signature drawn")

// Point is a location in device-independent pixels.
type Point struct {
	X, Y float64
}

// Signature is an encoded signature raster with a transparent background.
type Signature struct {
	PNG []byte
	// Width and Height are the raster's pixel dimensions.
	Width, Height int
}

// Engine captures strokes.
type Engine struct {
	mu        sync.Mutex
	surface   *RasterSurface
	origin    Point
	color     color.Color
	width     float64
	drawing   bool
	last      Point
	signature *Signature
	listeners []func(*Signature)
}

// Option configures an Engine.
type Option func(*Engine)

// WithColor sets the initial stroke color.
func WithColor(c color.Color) Option {
	return func(e *Engine) {
		if c != nil {
			e.color = c
		}
	}
}

// WithWidth sets the initial stroke width.
func WithWidth(w float64) Option {
	return func(e *Engine) {
		e.width = clampWidth(w, e.width)
	}
}

// WithOrigin sets the surface's top-left corner in client coordinates.
func WithOrigin(p Point) Option {
	return func(e *Engine) {
		e.origin = p
	}
}

// NewEngine creates an engine drawing onto surface, which may be nil.
func NewEngine(surface *RasterSurface, opts ...Option) *Engine {
	e := &Engine{
		surface: surface,
		color:   Palette[0].Color,
		width:   DefaultStrokeWidth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnChange registers fn to receive every emitted signature.
func (e *Engine) OnChange(fn func(*Signature)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// SetColor changes the color of subsequent segments.
func (e *Engine) SetColor(c color.Color) {
	if c == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.color = c
}

// SetWidth changes the width of subsequent segments, clamped to
// [MinStrokeWidth, MaxStrokeWidth].
func (e *Engine) SetWidth(w float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.width = clampWidth(w, e.width)
}

// Width returns the current stroke width.
func (e *Engine) Width() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width
}

// Color returns the current stroke color.
func (e *Engine) Color() color.Color {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.color
}

func clampWidth(w, current float64) float64 {
	if math.IsNaN(w) {
		return current
	}
	return math.Min(MaxStrokeWidth, math.Max(MinStrokeWidth, w))
}

// SetOrigin moves the surface's top-left corner in client coordinates.
func (e *Engine) SetOrigin(p Point) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.origin = p
}

// Drawing reports whether a stroke is in progress.
func (e *Engine) Drawing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drawing
}

// Begin starts a stroke at p, relative to the surface.
func (e *Engine) Begin(p Point) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.surface == nil {
		return
	}
	e.drawing = true
	e.last = p
}

// Extend draws a segment from the last point to p when a stroke is in
// progress.
func (e *Engine) Extend(p Point) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.surface == nil || !e.drawing {
		return
	}
	e.surface.Segment(e.last, p, e.width, e.color)
	e.last = p
}

// End finishes the stroke in progress and emits the surface content.
func (e *Engine) End() {
	e.mu.Lock()
	if e.surface == nil || !e.drawing {
		e.mu.Unlock()
		return
	}
	e.drawing = false
	sig, err := e.snapshot()
	if err != nil {
		// Encoding into memory only fails for an invalid image.
		e.mu.Unlock()
		return
	}
	e.signature = sig
	listeners := e.listeners
	e.mu.Unlock()

	emit(listeners, sig)
}

// Clear erases the surface and emits nil.
func (e *Engine) Clear() {
	e.mu.Lock()
	if e.surface == nil {
		e.mu.Unlock()
		return
	}
	e.surface.Clear()
	e.drawing = false
	e.signature = nil
	listeners := e.listeners
	e.mu.Unlock()

	emit(listeners, nil)
}

func emit(listeners []func(*Signature), sig *Signature) {
	for _, fn := range listeners {
		fn(sig)
	}
}

// snapshot encodes the surface, or returns nil when it is blank.
func (e *Engine) snapshot() (*Signature, error) {
	if e.surface.Blank() {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, e.surface.Image()); err != nil {
		return nil, err
	}
	b := e.surface.Image().Bounds()
	return &Signature{PNG: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// Signature returns the most recently emitted signature.
func (e *Engine) Signature() *Signature {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.signature
}

// Empty reports whether the surface holds no visible drawing.
func (e *Engine) Empty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surface == nil || e.surface.Blank()
}

// Resize reallocates the surface and redraws the last emitted signature
// stretched over it. A stroke in progress is abandoned.
func (e *Engine) Resize(width, height, ratio float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.surface == nil {
		return nil
	}

	surface, err := NewRasterSurface(width, height, ratio)
	if err != nil {
		return err
	}
	if e.signature != nil {
		img, err := png.Decode(bytes.NewReader(e.signature.PNG))
		if err != nil {
			return fmt.Errorf("failed to reload signature: %w", err)
		}
		surface.DrawScaled(img)
	}
	e.surface = surface
	e.drawing = false
	return nil
}

// Surface returns the current drawing surface, or nil.
func (e *Engine) Surface() *RasterSurface {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surface
}

// Handle feeds an input event through the engine. Locations are converted
// from client coordinates to surface coordinates using the origin.
func (e *Engine) Handle(ev Event) {
	switch ev.Kind {
	case Press, Move:
		if ev.Input == nil {
			return
		}
		p, ok := ev.Input.location()
		if !ok {
			return
		}
		e.mu.Lock()
		p = Point{X: p.X - e.origin.X, Y: p.Y - e.origin.Y}
		e.mu.Unlock()
		if ev.Kind == Press {
			e.Begin(p)
		} else {
			e.Extend(p)
		}
	case Release, Leave:
		e.End()
	}
}

// Save writes the current drawing as PNG.
func (e *Engine) Save(w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.surface == nil || e.surface.Blank() {
		return ErrNoSignature
	}
	return png.Encode(w, e.surface.Image())
}
