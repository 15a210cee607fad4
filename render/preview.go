package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	lpdf "github.com/ledongthuc/pdf"
	"golang.org/x/image/vector"

	"github.com/georgepadayatti/firma/placement"
)

// maxPixels bounds the size of a single preview raster.
const maxPixels = 64 << 20

// Preview is a Renderer that draws page geometry only: a filled page with a
// border, sized from the page's MediaBox. It never interprets page content.
type Preview struct {
	Background color.Color
	Border     color.Color
}

// Open reads the page tree of a PDF.
func (p Preview) Open(data []byte) (src PageSource, err error) {
	// The reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	n := reader.NumPage()
	if n < 1 {
		return nil, errors.New("document has no pages")
	}

	sizes := make([]placement.PageSize, n)
	for i := 1; i <= n; i++ {
		sizes[i-1] = mediaBox(reader.Page(i).V)
	}

	bg, border := p.Background, p.Border
	if bg == nil {
		bg = color.White
	}
	if border == nil {
		border = color.Gray{Y: 0x99}
	}
	return &previewSource{sizes: sizes, bg: bg, border: border}, nil
}

// mediaBox looks up the MediaBox of a page, following inheritance through
// the page tree. Letter size is assumed when none is found.
func mediaBox(page lpdf.Value) placement.PageSize {
	node := page
	for depth := 0; depth < 64 && node.Kind() == lpdf.Dict; depth++ {
		box := node.Key("MediaBox")
		if box.Kind() == lpdf.Array && box.Len() == 4 {
			x0 := box.Index(0).Float64()
			y0 := box.Index(1).Float64()
			x1 := box.Index(2).Float64()
			y1 := box.Index(3).Float64()
			return placement.PageSize{Width: math.Abs(x1 - x0), Height: math.Abs(y1 - y0)}
		}
		node = node.Key("Parent")
	}
	return placement.PageSize{Width: 612, Height: 792}
}

type previewSource struct {
	sizes  []placement.PageSize
	bg     color.Color
	border color.Color
}

func (s *previewSource) PageCount() int {
	return len(s.sizes)
}

func (s *previewSource) PageSize(page int) (placement.PageSize, error) {
	if page < 1 || page > len(s.sizes) {
		return placement.PageSize{}, fmt.Errorf("page %d out of range [1, %d]", page, len(s.sizes))
	}
	return s.sizes[page-1], nil
}

func (s *previewSource) RenderPage(ctx context.Context, page int, scale float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size, err := s.PageSize(page)
	if err != nil {
		return nil, err
	}
	if scale <= 0 || math.IsNaN(scale) {
		return nil, fmt.Errorf("invalid scale %g", scale)
	}

	w := int(math.Ceil(size.Width * scale))
	h := int(math.Ceil(size.Height * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w*h > maxPixels {
		return nil, fmt.Errorf("preview of %dx%d pixels is too large", w, h)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(s.bg), image.Point{}, draw.Src)
	frame(img, math.Max(1, scale), s.border)
	return img, nil
}

// frame strokes a border of the given thickness along the inside edge.
func frame(img *image.RGBA, thickness float64, c color.Color) {
	b := img.Bounds()
	w, h := float32(b.Dx()), float32(b.Dy())
	t := float32(thickness)

	z := vector.NewRasterizer(b.Dx(), b.Dy())
	// Outer rectangle clockwise, inner counter-clockwise.
	z.MoveTo(0, 0)
	z.LineTo(w, 0)
	z.LineTo(w, h)
	z.LineTo(0, h)
	z.ClosePath()
	z.MoveTo(t, t)
	z.LineTo(t, h-t)
	z.LineTo(w-t, h-t)
	z.LineTo(w-t, t)
	z.ClosePath()
	z.Draw(img, b, image.NewUniform(c), image.Point{})
}
