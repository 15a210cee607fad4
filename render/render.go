// Package render produces page previews and maps clicks on them back to
// page positions.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/georgepadayatti/firma/placement"
)

// Common errors
var (
	ErrNoPreview = errors.New("no page preview available")
	ErrStale     = errors.New("render superseded by a newer one")
)

// Renderer opens documents for previewing.
type Renderer interface {
	Open(data []byte) (PageSource, error)
}

// PageSource is an opened document.
type PageSource interface {
	PageCount() int
	// PageSize returns the size in points of a 1-based page.
	PageSize(page int) (placement.PageSize, error)
	// RenderPage rasterizes a page at scale pixels per point.
	RenderPage(ctx context.Context, page int, scale float64) (image.Image, error)
}

// RenderError reports a preview that could not be produced. Page is zero
// when the document itself could not be opened.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	if e.Page == 0 {
		return fmt.Sprintf("failed to open document for preview: %v", e.Err)
	}
	return fmt.Sprintf("failed to render page %d: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
