// Package images converts signature rasters into the sample data of a PDF
// image XObject.
//
// PDF images carry no alpha channel of their own: transparency is expressed
// with a second DeviceGray image referenced through the SMask entry. A
// signature drawn on a transparent pad therefore becomes two sample buffers,
// the colour samples and the alpha samples.
package images

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register JPEG format
	"image/png"
	"io"
)

// Common errors
var (
	ErrInvalidImage      = errors.New("invalid image data")
	ErrDecodeFailed      = errors.New("image decode failed")
	ErrInvalidDimensions = errors.New("invalid image dimensions")
)

// ColorSpace represents a PDF color space.
type ColorSpace string

const (
	ColorSpaceGray ColorSpace = "DeviceGray"
	ColorSpaceRGB  ColorSpace = "DeviceRGB"
)

// ImageFormat represents an image format.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "PNG"
	FormatJPEG ImageFormat = "JPEG"
)

// PDFImage holds uncompressed samples ready to be placed in an image XObject.
// Compression is left to the document writer.
type PDFImage struct {
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Bits per component; always 8 here.
	BitsPerComponent int
	// Color space of Data.
	ColorSpace ColorSpace
	// Number of color components (1 for gray, 3 for RGB)
	Components int
	// Data holds the colour samples, row by row, without alpha.
	Data []byte
	// Alpha holds one byte of coverage per pixel, or nil when the image is
	// fully opaque.
	Alpha []byte
	// Original format
	OriginalFormat ImageFormat
}

// NewPDFImageFromReader creates a PDFImage from an io.Reader.
func NewPDFImageFromReader(r io.Reader) (*PDFImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return NewPDFImageFromBytes(data)
}

// NewPDFImageFromBytes decodes an encoded raster. PNG is the signature pad's
// native format; anything else the image package can decode is accepted too.
func NewPDFImageFromBytes(data []byte) (*PDFImage, error) {
	if len(data) == 0 {
		return nil, ErrInvalidImage
	}

	if detectFormat(data) == FormatPNG {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		pdfImg, err := NewPDFImageFromImage(img)
		if err != nil {
			return nil, err
		}
		pdfImg.OriginalFormat = FormatPNG
		return pdfImg, nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	pdfImg, err := NewPDFImageFromImage(img)
	if err != nil {
		return nil, err
	}
	if format == "jpeg" {
		pdfImg.OriginalFormat = FormatJPEG
	}
	return pdfImg, nil
}

// NewPDFImageFromImage extracts samples from a Go image. Gray images stay
// gray; everything else becomes RGB. Colour samples are stored
// un-premultiplied, since the soft mask applies the alpha.
func NewPDFImageFromImage(img image.Image) (*PDFImage, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}

	if g, ok := img.(*image.Gray); ok {
		data := make([]byte, 0, width*height)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			row := g.Pix[g.PixOffset(bounds.Min.X, y):]
			data = append(data, row[:width]...)
		}
		return &PDFImage{
			Width:            width,
			Height:           height,
			BitsPerComponent: 8,
			ColorSpace:       ColorSpaceGray,
			Components:       1,
			Data:             data,
		}, nil
	}

	data := make([]byte, 0, width*height*3)
	alpha := make([]byte, 0, width*height)
	opaque := true

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			data = append(data, c.R, c.G, c.B)
			alpha = append(alpha, c.A)
			if c.A != 0xff {
				opaque = false
			}
		}
	}

	pdfImg := &PDFImage{
		Width:            width,
		Height:           height,
		BitsPerComponent: 8,
		ColorSpace:       ColorSpaceRGB,
		Components:       3,
		Data:             data,
	}
	if !opaque {
		pdfImg.Alpha = alpha
	}
	return pdfImg, nil
}

// HasAlpha returns true if the image needs a soft mask.
func (img *PDFImage) HasAlpha() bool {
	return len(img.Alpha) > 0
}

// GetAlphaMask returns the soft mask as a gray PDFImage, or nil.
func (img *PDFImage) GetAlphaMask() *PDFImage {
	if !img.HasAlpha() {
		return nil
	}

	return &PDFImage{
		Width:            img.Width,
		Height:           img.Height,
		BitsPerComponent: 8,
		ColorSpace:       ColorSpaceGray,
		Components:       1,
		Data:             img.Alpha,
	}
}

// detectFormat detects the image format from the file header.
func detectFormat(data []byte) ImageFormat {
	if len(data) < 8 {
		return ""
	}

	if bytes.Equal(data[0:8], []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}) {
		return FormatPNG
	}

	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return FormatJPEG
	}

	return ""
}

// GetImageDimensions returns the dimensions of an encoded image without
// decoding the samples.
func GetImageDimensions(data []byte) (width, height int, err error) {
	if detectFormat(data) == FormatPNG {
		if len(data) < 24 {
			return 0, 0, ErrInvalidImage
		}
		// IHDR follows the signature directly.
		width = int(binary.BigEndian.Uint32(data[16:20]))
		height = int(binary.BigEndian.Uint32(data[20:24]))
		return width, height, nil
	}

	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return config.Width, config.Height, nil
}
