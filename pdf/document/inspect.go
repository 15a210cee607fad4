package document

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/georgepadayatti/firma/placement"
)

// Placement describes an image XObject painted on a page.
type Placement struct {
	// Name is the resource name used by the Do operator.
	Name string
	// Rect is the area covered by the image, relative to the lower-left
	// corner of the page's MediaBox.
	Rect placement.Rect
	// Width and Height are the image's pixel dimensions.
	Width, Height int
}

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m x n, the result of applying m first and then n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// unitSquare returns the bounding box of the unit square under m.
func (m matrix) unitSquare() placement.Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range [4][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := m.apply(c[0], c[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return placement.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Images lists the image XObjects painted directly by the content of a
// 1-based page, in painting order. Form XObjects are not descended into.
func (d *Document) Images(page int) ([]Placement, error) {
	if _, err := d.PageSize(page); err != nil {
		return nil, err
	}

	pageDict, _, _, err := d.ctx.PageDict(page, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get page %d: %w", page, err)
	}

	content, err := d.pageContent(pageDict)
	if err != nil {
		return nil, err
	}

	xobjects, err := d.xobjectResources(pageDict)
	if err != nil {
		return nil, err
	}

	var (
		result   []Placement
		operands []string
		ctm      = identity
		stack    []matrix
	)
	for _, tok := range strings.Fields(content) {
		switch tok {
		case "q":
			stack = append(stack, ctm)
		case "Q":
			if n := len(stack); n > 0 {
				ctm = stack[n-1]
				stack = stack[:n-1]
			}
		case "cm":
			if m, ok := parseMatrix(operands); ok {
				ctm = m.mul(ctm)
			}
		case "Do":
			if len(operands) > 0 && strings.HasPrefix(operands[len(operands)-1], "/") {
				name := operands[len(operands)-1][1:]
				if p, ok := d.imagePlacement(xobjects, name, ctm); ok {
					o := d.origins[page-1]
					p.Rect.X -= o.x
					p.Rect.Y -= o.y
					result = append(result, p)
				}
			}
		default:
			operands = append(operands, tok)
			continue
		}
		operands = operands[:0]
	}

	return result, nil
}

func parseMatrix(operands []string) (matrix, bool) {
	if len(operands) < 6 {
		return matrix{}, false
	}
	var m matrix
	for i, s := range operands[len(operands)-6:] {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return matrix{}, false
		}
		m[i] = v
	}
	return m, true
}

func (d *Document) imagePlacement(xobjects types.Dict, name string, ctm matrix) (Placement, bool) {
	obj, found := xobjects.Find(name)
	if !found {
		return Placement{}, false
	}
	sd, _, err := d.ctx.DereferenceStreamDict(obj)
	if err != nil || sd == nil {
		return Placement{}, false
	}
	if subtype, ok := sd.Dict["Subtype"].(types.Name); !ok || subtype != "Image" {
		return Placement{}, false
	}
	return Placement{
		Name:   name,
		Rect:   ctm.unitSquare(),
		Width:  intEntry(sd.Dict, "Width"),
		Height: intEntry(sd.Dict, "Height"),
	}, true
}

func intEntry(dict types.Dict, key string) int {
	if v, ok := dict[key].(types.Integer); ok {
		return int(v)
	}
	return 0
}

// xobjectResources returns the XObject resources visible to a page without
// modifying the page.
func (d *Document) xobjectResources(pageDict types.Dict) (types.Dict, error) {
	var (
		res types.Dict
		err error
	)
	if obj, found := pageDict.Find("Resources"); found {
		res, err = d.ctx.DereferenceDict(obj)
	} else {
		res, err = d.inheritedResources(pageDict)
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return types.Dict{}, nil
	}
	obj, found := res.Find("XObject")
	if !found {
		return types.Dict{}, nil
	}
	xobjects, err := d.ctx.DereferenceDict(obj)
	if err != nil {
		return nil, err
	}
	if xobjects == nil {
		return types.Dict{}, nil
	}
	return xobjects, nil
}

// pageContent concatenates the decoded content streams of a page.
func (d *Document) pageContent(pageDict types.Dict) (string, error) {
	refs, err := d.contentRefs(pageDict)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, ref := range refs {
		sd, _, err := d.ctx.DereferenceStreamDict(ref)
		if err != nil {
			return "", fmt.Errorf("failed to resolve content stream: %w", err)
		}
		if sd == nil {
			continue
		}
		if err := sd.Decode(); err != nil {
			return "", fmt.Errorf("failed to decode content stream: %w", err)
		}
		b.Write(sd.Content)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
