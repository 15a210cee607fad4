// Package document is the editable PDF model used to stamp signatures.
//
// It wraps a pdfcpu context and exposes the few operations the composer
// needs: page geometry, embedding a raster image, drawing that image into a
// rectangle on a page, and serializing the result.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/georgepadayatti/firma/pdf/images"
	"github.com/georgepadayatti/firma/placement"
)

// Common errors
var (
	ErrNoPages      = errors.New("document has no pages")
	ErrPageRange    = errors.New("page number out of range")
	ErrNilImage     = errors.New("image handle is nil")
	ErrForeignImage = errors.New("image handle belongs to another document")
)

// letter is used when a page declares no MediaBox at all.
var letter = placement.PageSize{Width: 612, Height: 792}

func init() {
	// pdfcpu would otherwise create a configuration directory in the
	// user's home on first use.
	api.DisableConfigDir()
}

// Document is a parsed PDF that can be modified and written back.
type Document struct {
	ctx     *model.Context
	sizes   []placement.PageSize
	origins []origin
	counter int
}

// origin is the lower-left corner of a page's MediaBox.
type origin struct {
	x, y float64
}

// Image is a handle to an image XObject embedded in a Document.
type Image struct {
	doc    *Document
	ref    types.IndirectRef
	Width  int
	Height int
}

// Load parses PDF bytes. The input slice is only read.
func Load(data []byte) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("invalid PDF: %w", err)
	}
	if ctx.PageCount < 1 {
		return nil, ErrNoPages
	}

	doc := &Document{ctx: ctx}
	if err := doc.readPageSizes(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) readPageSizes() error {
	d.sizes = make([]placement.PageSize, d.ctx.PageCount)
	d.origins = make([]origin, d.ctx.PageCount)
	for i := 1; i <= d.ctx.PageCount; i++ {
		_, _, attrs, err := d.ctx.PageDict(i, false)
		if err != nil {
			return fmt.Errorf("failed to get page %d: %w", i, err)
		}
		size := letter
		if attrs != nil && attrs.MediaBox != nil {
			size = placement.PageSize{Width: attrs.MediaBox.Width(), Height: attrs.MediaBox.Height()}
			d.origins[i-1] = origin{x: attrs.MediaBox.LL.X, y: attrs.MediaBox.LL.Y}
		}
		d.sizes[i-1] = size
	}
	return nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.sizes)
}

// PageSize returns the MediaBox size of a 1-based page.
func (d *Document) PageSize(page int) (placement.PageSize, error) {
	if page < 1 || page > len(d.sizes) {
		return placement.PageSize{}, fmt.Errorf("%w: %d not in [1, %d]", ErrPageRange, page, len(d.sizes))
	}
	return d.sizes[page-1], nil
}

// EmbedPNG decodes an encoded raster and adds it as an image XObject, with a
// soft mask when the raster is transparent.
func (d *Document) EmbedPNG(data []byte) (*Image, error) {
	img, err := images.NewPDFImageFromBytes(data)
	if err != nil {
		return nil, err
	}
	return d.EmbedImage(img)
}

// EmbedImage adds already decoded samples as an image XObject.
func (d *Document) EmbedImage(img *images.PDFImage) (*Image, error) {
	dict := imageDict(img)

	if mask := img.GetAlphaMask(); mask != nil {
		maskRef, err := d.addStream(imageDict(mask), mask.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to add soft mask: %w", err)
		}
		dict["SMask"] = *maskRef
	}

	ref, err := d.addStream(dict, img.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to add image: %w", err)
	}

	return &Image{doc: d, ref: *ref, Width: img.Width, Height: img.Height}, nil
}

func imageDict(img *images.PDFImage) types.Dict {
	return types.Dict{
		"Type":             types.Name("XObject"),
		"Subtype":          types.Name("Image"),
		"Width":            types.Integer(img.Width),
		"Height":           types.Integer(img.Height),
		"ColorSpace":       types.Name(string(img.ColorSpace)),
		"BitsPerComponent": types.Integer(img.BitsPerComponent),
	}
}

// addStream flate-encodes content into a new stream object.
func (d *Document) addStream(dict types.Dict, content []byte) (*types.IndirectRef, error) {
	sd := &types.StreamDict{
		Dict:           dict,
		Content:        content,
		FilterPipeline: []types.PDFFilter{{Name: filter.Flate, DecodeParms: nil}},
	}
	sd.InsertName("Filter", filter.Flate)
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return d.ctx.IndRefForNewObject(*sd)
}

// DrawImage paints img into rect on a 1-based page. rect is relative to the
// lower-left corner of the page's MediaBox. The existing page content is
// wrapped in q/Q so that a graphics state left dirty by the page cannot
// distort the image.
func (d *Document) DrawImage(page int, img *Image, rect placement.Rect) error {
	if img == nil {
		return ErrNilImage
	}
	if img.doc != d {
		return ErrForeignImage
	}
	if _, err := d.PageSize(page); err != nil {
		return err
	}

	pageDict, _, _, err := d.ctx.PageDict(page, false)
	if err != nil {
		return fmt.Errorf("failed to get page %d: %w", page, err)
	}

	name, err := d.registerXObject(pageDict, img.ref)
	if err != nil {
		return err
	}

	prefix, err := d.addStream(types.Dict{}, []byte("q\n"))
	if err != nil {
		return err
	}
	o := d.origins[page-1]
	paint := "Q\nq\n" + formatMatrix(rect.Width, rect.Height, rect.X+o.x, rect.Y+o.y) + " cm\n/" + name + " Do\nQ\n"
	suffix, err := d.addStream(types.Dict{}, []byte(paint))
	if err != nil {
		return err
	}

	existing, err := d.contentRefs(pageDict)
	if err != nil {
		return err
	}
	contents := make(types.Array, 0, len(existing)+2)
	contents = append(contents, *prefix)
	contents = append(contents, existing...)
	contents = append(contents, *suffix)
	pageDict["Contents"] = contents

	return nil
}

// registerXObject adds ref under a fresh name to the page's XObject
// resources and returns the name.
func (d *Document) registerXObject(pageDict types.Dict, ref types.IndirectRef) (string, error) {
	res, err := d.pageResources(pageDict)
	if err != nil {
		return "", err
	}

	// The XObject dictionary itself may be an indirect object shared with
	// other pages, so it is replaced rather than modified.
	xobjects := types.Dict{}
	if obj, found := res.Find("XObject"); found {
		old, err := d.ctx.DereferenceDict(obj)
		if err != nil {
			return "", fmt.Errorf("failed to resolve XObject resources: %w", err)
		}
		for k, v := range old {
			xobjects[k] = v
		}
	}

	var name string
	for {
		d.counter++
		name = "Sig" + strconv.Itoa(d.counter)
		if _, taken := xobjects[name]; !taken {
			break
		}
	}
	xobjects[name] = ref
	res["XObject"] = xobjects
	return name, nil
}

// pageResources returns a resource dictionary owned by the page. Indirect
// and inherited resources may be shared with other pages, so they are
// copied into a direct dictionary on the page first.
func (d *Document) pageResources(pageDict types.Dict) (types.Dict, error) {
	var (
		shared types.Dict
		err    error
	)
	obj, found := pageDict.Find("Resources")
	if found {
		shared, err = d.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve page resources: %w", err)
		}
		if shared != nil && !isIndirect(obj) {
			return shared, nil
		}
	}
	if shared == nil {
		shared, err = d.inheritedResources(pageDict)
		if err != nil {
			return nil, err
		}
	}

	res := types.Dict{}
	for k, v := range shared {
		res[k] = v
	}
	pageDict["Resources"] = res
	return res, nil
}

func isIndirect(obj types.Object) bool {
	switch obj.(type) {
	case types.IndirectRef, *types.IndirectRef:
		return true
	}
	return false
}

func (d *Document) inheritedResources(pageDict types.Dict) (types.Dict, error) {
	node := pageDict
	for depth := 0; depth < 64; depth++ {
		parentObj, found := node.Find("Parent")
		if !found {
			return nil, nil
		}
		parent, err := d.ctx.DereferenceDict(parentObj)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve page tree node: %w", err)
		}
		if parent == nil {
			return nil, nil
		}
		if obj, found := parent.Find("Resources"); found {
			return d.ctx.DereferenceDict(obj)
		}
		node = parent
	}
	return nil, errors.New("page tree too deep")
}

// contentRefs returns the page's content streams as a flat array.
func (d *Document) contentRefs(pageDict types.Dict) (types.Array, error) {
	obj, found := pageDict.Find("Contents")
	if !found || obj == nil {
		return nil, nil
	}

	switch v := obj.(type) {
	case types.Array:
		return v, nil
	case types.IndirectRef:
		target, err := d.ctx.Dereference(v)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve page contents: %w", err)
		}
		if arr, ok := target.(types.Array); ok {
			return arr, nil
		}
		return types.Array{v}, nil
	case *types.IndirectRef:
		return d.contentRefs(types.Dict{"Contents": *v})
	default:
		return nil, fmt.Errorf("unexpected page contents of type %T", obj)
	}
}

// Bytes serializes the document into a new buffer.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(d.ctx, &buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func formatMatrix(a, d, e, f float64) string {
	return formatNum(a) + " 0 0 " + formatNum(d) + " " + formatNum(e) + " " + formatNum(f)
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
