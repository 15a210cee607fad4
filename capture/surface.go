package capture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// ErrInvalidSurface is returned for surfaces without a drawable area.
var ErrInvalidSurface = errors.New("invalid surface dimensions")

// kappa places the control points of a cubic Bézier that approximates a
// quarter circle.
const kappa = 0.5522847498

// RasterSurface is a drawing surface backed by a pixel buffer. Its displayed
// size is given in device-independent pixels; the buffer holds
// size × ratio device pixels so strokes stay sharp on dense displays.
type RasterSurface struct {
	width, height float64
	ratio         float64
	img           *image.RGBA
	rast          *vector.Rasterizer
}

// NewRasterSurface allocates a transparent surface.
func NewRasterSurface(width, height, ratio float64) (*RasterSurface, error) {
	if ratio <= 0 || math.IsNaN(ratio) {
		ratio = 1
	}
	pw := int(math.Round(width * ratio))
	ph := int(math.Round(height * ratio))
	if pw <= 0 || ph <= 0 {
		return nil, fmt.Errorf("%w: %gx%g at ratio %g", ErrInvalidSurface, width, height, ratio)
	}
	return &RasterSurface{
		width:  width,
		height: height,
		ratio:  ratio,
		img:    image.NewRGBA(image.Rect(0, 0, pw, ph)),
		rast:   vector.NewRasterizer(pw, ph),
	}, nil
}

// Size returns the displayed size in device-independent pixels.
func (s *RasterSurface) Size() (width, height float64) {
	return s.width, s.height
}

// Ratio returns the device pixel ratio.
func (s *RasterSurface) Ratio() float64 {
	return s.ratio
}

// Image returns the backing buffer.
func (s *RasterSurface) Image() *image.RGBA {
	return s.img
}

// Clear makes every pixel transparent.
func (s *RasterSurface) Clear() {
	clear(s.img.Pix)
}

// Blank reports whether no pixel has any coverage.
func (s *RasterSurface) Blank() bool {
	for i := 3; i < len(s.img.Pix); i += 4 {
		if s.img.Pix[i] != 0 {
			return false
		}
	}
	return true
}

// Segment paints a straight stroke from a to b with round caps. Coordinates
// and width are in device-independent pixels.
func (s *RasterSurface) Segment(a, b Point, width float64, c color.Color) {
	r := width * s.ratio / 2
	ax, ay := a.X*s.ratio, a.Y*s.ratio
	bx, by := b.X*s.ratio, b.Y*s.ratio

	b0 := s.img.Bounds()
	s.rast.Reset(b0.Dx(), b0.Dy())

	dx, dy := bx-ax, by-ay
	length := math.Hypot(dx, dy)
	if length < 1e-9 {
		circle(s.rast, ax, ay, r)
	} else {
		capsule(s.rast, ax, ay, bx, by, dx/length, dy/length, r)
	}

	s.rast.Draw(s.img, b0, image.NewUniform(c), image.Point{})
}

// DrawScaled paints src stretched over the whole surface.
func (s *RasterSurface) DrawScaled(src image.Image) {
	xdraw.CatmullRom.Scale(s.img, s.img.Bounds(), src, src.Bounds(), xdraw.Over, nil)
}

// capsule adds the outline of a segment with semicircular ends. (ux, uy) is
// the unit direction from a to b.
func capsule(z *vector.Rasterizer, ax, ay, bx, by, ux, uy, r float64) {
	nx, ny := -uy*r, ux*r
	dx, dy := ux*r, uy*r

	z.MoveTo(f32(ax+nx), f32(ay+ny))
	z.LineTo(f32(bx+nx), f32(by+ny))
	quarter(z, bx, by, nx, ny, dx, dy)
	quarter(z, bx, by, dx, dy, -nx, -ny)
	z.LineTo(f32(ax-nx), f32(ay-ny))
	quarter(z, ax, ay, -nx, -ny, -dx, -dy)
	quarter(z, ax, ay, -dx, -dy, nx, ny)
	z.ClosePath()
}

func circle(z *vector.Rasterizer, cx, cy, r float64) {
	z.MoveTo(f32(cx+r), f32(cy))
	quarter(z, cx, cy, r, 0, 0, r)
	quarter(z, cx, cy, 0, r, -r, 0)
	quarter(z, cx, cy, -r, 0, 0, -r)
	quarter(z, cx, cy, 0, -r, r, 0)
	z.ClosePath()
}

// quarter adds a quarter arc around (cx, cy) from c+u to c+v, where u and v
// are perpendicular radius vectors. The pen must be at c+u.
func quarter(z *vector.Rasterizer, cx, cy, ux, uy, vx, vy float64) {
	z.CubeTo(
		f32(cx+ux+kappa*vx), f32(cy+uy+kappa*vy),
		f32(cx+vx+kappa*ux), f32(cy+vy+kappa*uy),
		f32(cx+vx), f32(cy+vy),
	)
}

func f32(v float64) float32 {
	return float32(v)
}
