// Package placement maps clicks on a rendered page to normalized positions and
// translates normalized positions into PDF page space.
//
// Three coordinate systems meet here:
//
//   - device coordinates of the click, relative to the whole display,
//   - the rendered page surface, whose displayed size changes with zoom,
//   - PDF user space, measured in points with the origin at the bottom-left.
//
// A normalized Position is the hinge between the first two and the third: it
// records the click as a percentage of the surface, so it stays valid across
// zoom levels and raster resolutions.
package placement

import (
	"errors"
	"fmt"
	"math"
)

// Signature footprint on the page, in points.
const (
	SignatureWidth  = 100.0
	SignatureHeight = 50.0
)

// Common errors
var (
	ErrEmptySurface = errors.New("surface has no area")
	ErrInvalidPage  = errors.New("page index must be at least 1")
	ErrInvalidSize  = errors.New("page size must be positive")
)

// Point is a location in device pixels.
type Point struct {
	X, Y float64
}

// Surface is the bounding rectangle of the rendered page as displayed, in
// device pixels with a top-left origin.
type Surface struct {
	Left, Top     float64
	Width, Height float64
}

// Center returns the center point of the surface.
func (s Surface) Center() Point {
	return Point{X: s.Left + s.Width/2, Y: s.Top + s.Height/2}
}

// Position is a click location expressed as a percentage of the rendered
// page's width and height, plus the 1-based page index.
type Position struct {
	X    float64 `yaml:"x" json:"x"`
	Y    float64 `yaml:"y" json:"y"`
	Page int     `yaml:"page" json:"page"`
}

// Validate checks the ranges of a position.
func (p Position) Validate() error {
	if p.Page < 1 {
		return ErrInvalidPage
	}
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || p.X < 0 || p.X > 100 || p.Y < 0 || p.Y > 100 {
		return fmt.Errorf("position (%g, %g) outside [0,100]", p.X, p.Y)
	}
	return nil
}

// String returns the position rounded the way it is shown to users.
func (p Position) String() string {
	return fmt.Sprintf("page %d - X: %d%%, Y: %d%%", p.Page, int(math.Round(p.X)), int(math.Round(p.Y)))
}

// PageSize is the real size of a PDF page in points.
type PageSize struct {
	Width, Height float64
}

// Rect is a rectangle in PDF user space: origin bottom-left, units in points.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Contains reports whether r lies entirely inside the page.
func (r Rect) Contains(size PageSize) bool {
	return r.X >= 0 && r.Y >= 0 && r.X+r.Width <= size.Width && r.Y+r.Height <= size.Height
}

// Center returns the center of the rectangle.
func (r Rect) Center() (x, y float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// MapClick converts a click in device pixels into a Position on the given page.
// The result is clamped into [0,100] on both axes, so clicks that land outside
// the surface snap to the nearest edge.
func MapClick(click Point, surface Surface, page int) (Position, error) {
	if surface.Width <= 0 || surface.Height <= 0 {
		return Position{}, ErrEmptySurface
	}
	if page < 1 {
		return Position{}, ErrInvalidPage
	}

	relX := click.X - surface.Left
	relY := click.Y - surface.Top

	return Position{
		X:    clamp(relX/surface.Width*100, 0, 100),
		Y:    clamp(relY/surface.Height*100, 0, 100),
		Page: page,
	}, nil
}

// Translate converts a Position into the rectangle where the signature is
// drawn on a page of the given size. The footprint is centered on the clicked
// point and then pushed back inside the page, so the rectangle never leaves
// [0,W]x[0,H] for pages at least as large as the footprint.
//
// Normalized y grows downward from the top of the page, PDF y grows upward
// from the bottom, hence the flip.
func Translate(pos Position, size PageSize) Rect {
	rawX := pos.X/100*size.Width - SignatureWidth/2
	rawY := size.Height - pos.Y/100*size.Height - SignatureHeight/2

	return Rect{
		X:      clamp(rawX, 0, size.Width-SignatureWidth),
		Y:      clamp(rawY, 0, size.Height-SignatureHeight),
		Width:  SignatureWidth,
		Height: SignatureHeight,
	}
}

// Untranslate maps a placement rectangle back to the normalized position of
// its center. Used to draw the placement marker over a rendered page.
func Untranslate(r Rect, size PageSize, page int) (Position, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return Position{}, ErrInvalidSize
	}
	cx, cy := r.Center()
	return Position{
		X:    clamp(cx/size.Width*100, 0, 100),
		Y:    clamp((size.Height-cy)/size.Height*100, 0, 100),
		Page: page,
	}, nil
}

// ToSurface maps a Position back onto a displayed surface, returning the
// device pixel it refers to.
func ToSurface(pos Position, surface Surface) Point {
	return Point{
		X: surface.Left + pos.X/100*surface.Width,
		Y: surface.Top + pos.Y/100*surface.Height,
	}
}

// clamp bounds v to [lo, hi]. When hi < lo (a page smaller than the
// footprint) lo wins.
func clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
