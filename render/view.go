package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"golang.org/x/image/vector"

	"github.com/georgepadayatti/firma/placement"
)

// Zoom defaults.
const (
	DefaultMinZoom  = 0.5
	DefaultMaxZoom  = 3.0
	DefaultZoomStep = 0.25
)

// Surface is a rendered page.
type Surface struct {
	Image      image.Image
	Page       int
	Zoom       float64
	Size       placement.PageSize
	Generation uint64
}

// Bounds returns the surface's pixel area with its top-left corner at the
// origin.
func (s *Surface) Bounds() placement.Surface {
	b := s.Image.Bounds()
	return placement.Surface{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// ViewOption configures a View.
type ViewOption func(*View)

// WithZoomRange sets the zoom limits and step.
func WithZoomRange(min, max, step float64) ViewOption {
	return func(v *View) {
		if min > 0 && max >= min {
			v.minZoom, v.maxZoom = min, max
		}
		if step > 0 {
			v.zoomStep = step
		}
	}
}

// WithPixelsPerPoint sets the raster resolution at zoom 1.
func WithPixelsPerPoint(ppp float64) ViewOption {
	return func(v *View) {
		if ppp > 0 {
			v.ppp = ppp
		}
	}
}

// WithViewLogger sets the logger.
func WithViewLogger(logger *slog.Logger) ViewOption {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// View shows one page of a document at a time and maps clicks on it.
//
// Every render is stamped with a generation number when issued. A finished
// render replaces the surface only if no render issued after it has been
// applied already, so the last zoom or page change always wins.
type View struct {
	renderer Renderer
	logger   *slog.Logger
	minZoom  float64
	maxZoom  float64
	zoomStep float64
	ppp      float64

	generation atomic.Uint64
	wg         sync.WaitGroup

	mu      sync.Mutex
	source  PageSource
	page    int
	zoom    float64
	surface *Surface
	applied uint64
	err     error
}

// NewView creates a view using r to open documents.
func NewView(r Renderer, opts ...ViewOption) *View {
	v := &View{
		renderer: r,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		minZoom:  DefaultMinZoom,
		maxZoom:  DefaultMaxZoom,
		zoomStep: DefaultZoomStep,
		ppp:      1,
		page:     1,
		zoom:     1,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.zoom = v.clampZoom(1)
	return v
}

// Load opens a new document, shows its first page and renders it. When the
// document cannot be opened for preview, the view enters degraded mode: it
// reports a single page, has no surface, and the returned *RenderError is
// also available from Err.
func (v *View) Load(ctx context.Context, data []byte) error {
	src, err := v.renderer.Open(data)

	v.mu.Lock()
	v.page = 1
	v.surface = nil
	// Renders still in flight belong to the previous document.
	v.applied = v.generation.Load()
	if err != nil {
		v.source = nil
		v.err = &RenderError{Err: err}
		v.mu.Unlock()
		v.logger.Warn("preview unavailable", "error", err)
		return v.err
	}
	v.source = src
	v.err = nil
	v.mu.Unlock()

	return v.Render(ctx)
}

// Close forgets the current document.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.source = nil
	v.surface = nil
	v.err = nil
	v.page = 1
	v.applied = v.generation.Load()
}

// Degraded reports whether the preview is unavailable.
func (v *View) Degraded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err != nil
}

// Err returns the error that put the view in degraded mode, or nil.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// PageCount returns the number of pages, which is 1 in degraded mode and 0
// when no document is loaded.
func (v *View) PageCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pageCount()
}

func (v *View) pageCount() int {
	switch {
	case v.source != nil:
		return v.source.PageCount()
	case v.err != nil:
		return 1
	default:
		return 0
	}
}

// Page returns the current 1-based page.
func (v *View) Page() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// Zoom returns the current zoom factor.
func (v *View) Zoom() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.zoom
}

// Surface returns the most recently applied render, or nil.
func (v *View) Surface() *Surface {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.surface
}

func (v *View) clampZoom(z float64) float64 {
	return math.Min(v.maxZoom, math.Max(v.minZoom, z))
}

// ZoomIn raises the zoom by one step and starts a re-render.
func (v *View) ZoomIn(ctx context.Context) <-chan error {
	return v.setZoom(ctx, func(z float64) float64 { return z + v.zoomStep })
}

// ZoomOut lowers the zoom by one step and starts a re-render.
func (v *View) ZoomOut(ctx context.Context) <-chan error {
	return v.setZoom(ctx, func(z float64) float64 { return z - v.zoomStep })
}

// ResetZoom returns to zoom 1 and starts a re-render.
func (v *View) ResetZoom(ctx context.Context) <-chan error {
	return v.setZoom(ctx, func(float64) float64 { return 1 })
}

func (v *View) setZoom(ctx context.Context, next func(float64) float64) <-chan error {
	v.mu.Lock()
	v.zoom = v.clampZoom(next(v.zoom))
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// SetPage moves to a 1-based page and starts a re-render. Out of range
// pages are clamped.
func (v *View) SetPage(ctx context.Context, page int) <-chan error {
	v.mu.Lock()
	n := v.pageCount()
	if page > n {
		page = n
	}
	if page < 1 {
		page = 1
	}
	v.page = page
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// NextPage advances one page.
func (v *View) NextPage(ctx context.Context) <-chan error {
	return v.SetPage(ctx, v.Page()+1)
}

// PrevPage goes back one page.
func (v *View) PrevPage(ctx context.Context) <-chan error {
	return v.SetPage(ctx, v.Page()-1)
}

// Refresh renders the current page in the background. The returned channel
// receives the outcome once: nil when the render was applied, ErrStale when
// a newer render had already been applied, or the render error.
func (v *View) Refresh(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	task := v.issue()
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		done <- v.run(ctx, task)
	}()
	return done
}

// Render renders the current page and waits for the result.
func (v *View) Render(ctx context.Context) error {
	return v.run(ctx, v.issue())
}

// Wait blocks until all background renders have finished.
func (v *View) Wait() {
	v.wg.Wait()
}

type renderTask struct {
	generation uint64
	source     PageSource
	page       int
	zoom       float64
}

func (v *View) issue() renderTask {
	v.mu.Lock()
	defer v.mu.Unlock()
	return renderTask{
		generation: v.generation.Add(1),
		source:     v.source,
		page:       v.page,
		zoom:       v.zoom,
	}
}

func (v *View) run(ctx context.Context, t renderTask) error {
	if t.source == nil {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.err != nil {
			return v.err
		}
		return ErrNoPreview
	}

	size, err := t.source.PageSize(t.page)
	var img image.Image
	if err == nil {
		img, err = t.source.RenderPage(ctx, t.page, t.zoom*v.ppp)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if t.generation <= v.applied {
		v.logger.Debug("dropping stale render", "generation", t.generation, "applied", v.applied)
		return ErrStale
	}
	v.applied = t.generation

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		v.surface = nil
		v.err = &RenderError{Page: t.page, Err: err}
		v.logger.Warn("page render failed", "page", t.page, "error", err)
		return v.err
	}

	v.surface = &Surface{
		Image:      img,
		Page:       t.page,
		Zoom:       t.zoom,
		Size:       size,
		Generation: t.generation,
	}
	v.err = nil
	v.logger.Debug("page rendered", "page", t.page, "zoom", t.zoom, "generation", t.generation)
	return nil
}

// Click maps a click at p, in the same coordinates as bounds, to a position
// on the page shown by the current surface. bounds is where the surface is
// displayed. Clicks are refused while no preview is shown.
func (v *View) Click(p placement.Point, bounds placement.Surface) (placement.Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.surface == nil {
		return placement.Position{}, ErrNoPreview
	}
	return placement.MapClick(p, bounds, v.surface.Page)
}

// Marker returns a copy of the current surface with the signature footprint
// for pos outlined, or ErrNoPreview. Positions on other pages leave the
// copy unmarked.
func (v *View) Marker(pos placement.Position, c color.Color) (image.Image, error) {
	v.mu.Lock()
	s := v.surface
	v.mu.Unlock()
	if s == nil {
		return nil, ErrNoPreview
	}

	b := s.Image.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), s.Image, b.Min, draw.Src)
	if pos.Page != s.Page || s.Size.Width <= 0 || s.Size.Height <= 0 {
		return out, nil
	}

	// Page space to pixels, flipping the vertical axis.
	r := placement.Translate(pos, s.Size)
	sx := float64(b.Dx()) / s.Size.Width
	sy := float64(b.Dy()) / s.Size.Height
	x0, x1 := r.X*sx, (r.X+r.Width)*sx
	y0, y1 := (s.Size.Height-r.Y-r.Height)*sy, (s.Size.Height-r.Y)*sy
	outline(out, x0, y0, x1, y1, 2, c)
	return out, nil
}

func outline(img *image.RGBA, x0, y0, x1, y1, t float64, c color.Color) {
	b := img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.MoveTo(f32(x0), f32(y0))
	z.LineTo(f32(x1), f32(y0))
	z.LineTo(f32(x1), f32(y1))
	z.LineTo(f32(x0), f32(y1))
	z.ClosePath()
	z.MoveTo(f32(x0+t), f32(y0+t))
	z.LineTo(f32(x0+t), f32(y1-t))
	z.LineTo(f32(x1-t), f32(y1-t))
	z.LineTo(f32(x1-t), f32(y0+t))
	z.ClosePath()
	z.Draw(img, b, image.NewUniform(c), image.Point{})
}

func f32(v float64) float32 {
	return float32(v)
}
