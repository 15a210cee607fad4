// Package compose stamps a signature image onto one page of a PDF.
package compose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/georgepadayatti/firma/pdf/document"
	"github.com/georgepadayatti/firma/placement"
)

// Common errors
var (
	ErrLoad        = errors.New("failed to load document")
	ErrInvalidPage = errors.New("invalid page number")
	ErrImageDecode = errors.New("failed to decode signature image")
)

// LoadError reports that the source bytes could not be parsed as a PDF.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%v: %v", ErrLoad, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}

// InvalidPageError reports a target page outside the document.
type InvalidPageError struct {
	Page      int
	PageCount int
}

func (e *InvalidPageError) Error() string {
	return fmt.Sprintf("%v: %d (document has %d pages)", ErrInvalidPage, e.Page, e.PageCount)
}

func (e *InvalidPageError) Unwrap() error {
	return ErrInvalidPage
}

// ImageDecodeError reports a signature raster that could not be embedded.
type ImageDecodeError struct {
	Err error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("%v: %v", ErrImageDecode, e.Err)
}

func (e *ImageDecodeError) Unwrap() []error {
	return []error{ErrImageDecode, e.Err}
}

// Composer produces signed copies of PDF documents.
type Composer struct {
	logger *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the logger used for progress messages.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Composer.
func New(opts ...Option) *Composer {
	c := &Composer{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose draws signature (an encoded raster, normally PNG) onto the page
// named by pos and returns the serialized result. The footprint is centered
// on the position and kept inside the page. src is never modified, and no
// output is returned when any step fails.
func (c *Composer) Compose(ctx context.Context, src, signature []byte, pos placement.Position) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := document.Load(src)
	if err != nil {
		c.logger.Debug("document load failed", "error", err)
		return nil, &LoadError{Err: err}
	}

	if pos.Page < 1 || pos.Page > doc.PageCount() {
		return nil, &InvalidPageError{Page: pos.Page, PageCount: doc.PageCount()}
	}

	size, err := doc.PageSize(pos.Page)
	if err != nil {
		return nil, &InvalidPageError{Page: pos.Page, PageCount: doc.PageCount()}
	}

	img, err := doc.EmbedPNG(signature)
	if err != nil {
		c.logger.Debug("signature decode failed", "error", err)
		return nil, &ImageDecodeError{Err: err}
	}

	rect := placement.Translate(pos, size)
	c.logger.Debug("placing signature",
		"page", pos.Page,
		"x", pos.X,
		"y", pos.Y,
		"page_width", size.Width,
		"page_height", size.Height,
		"rect_x", rect.X,
		"rect_y", rect.Y,
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := doc.DrawImage(pos.Page, img, rect); err != nil {
		return nil, fmt.Errorf("failed to draw signature: %w", err)
	}

	out, err := doc.Bytes()
	if err != nil {
		return nil, err
	}

	c.logger.Info("signature applied", "page", pos.Page, "bytes", len(out))
	return out, nil
}
