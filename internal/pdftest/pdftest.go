// Package pdftest builds small, well-formed PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
)

// Letter is a US Letter page in points.
var Letter = Size{Width: 612, Height: 792}

// A4 is an ISO A4 page in points.
var A4 = Size{Width: 595, Height: 842}

// Size is a page size in points. X and Y move the lower-left corner of the
// MediaBox away from the origin.
type Size struct {
	Width, Height float64
	X, Y          float64
}

func (s Size) mediaBox() string {
	return fmt.Sprintf("/MediaBox [%s %s %s %s]", num(s.X), num(s.Y), num(s.X+s.Width), num(s.Y+s.Height))
}

// Options controls the generated file.
type Options struct {
	// Pages lists the MediaBox of every page. Defaults to one Letter page.
	Pages []Size
	// InheritResources places the Resources dictionary on the page tree node
	// instead of on each page.
	InheritResources bool
	// InheritMediaBox places the first page's MediaBox on the page tree node
	// and omits it from the pages.
	InheritMediaBox bool
	// SharedResources makes every page refer to one indirect Resources
	// dictionary. Ignored when InheritResources is set.
	SharedResources bool
}

// SinglePage returns a one-page PDF of the given size.
func SinglePage(size Size) []byte {
	return Build(Options{Pages: []Size{size}})
}

// Build returns a complete PDF file with a classic cross-reference table.
func Build(opts Options) []byte {
	pages := opts.Pages
	if len(pages) == 0 {
		pages = []Size{Letter}
	}

	// Object numbers: 1 catalog, 2 page tree, then a page and a content
	// stream per page.
	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := new(bytes.Buffer)
	for i := range pages {
		fmt.Fprintf(kids, "%d 0 R ", 3+2*i)
	}
	tree := fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d", bytes.TrimSpace(kids.Bytes()), len(pages))
	if opts.InheritResources {
		tree += " /Resources << /ProcSet [/PDF] >>"
	}
	if opts.InheritMediaBox {
		tree += " " + pages[0].mediaBox()
	}
	tree += " >>"
	objects = append(objects, tree)

	for i, p := range pages {
		page := "<< /Type /Page /Parent 2 0 R"
		if !opts.InheritMediaBox {
			page += " " + p.mediaBox()
		}
		switch {
		case opts.InheritResources:
		case opts.SharedResources:
			page += fmt.Sprintf(" /Resources %d 0 R", 3+2*len(pages))
		default:
			page += " /Resources << /ProcSet [/PDF] >>"
		}
		page += fmt.Sprintf(" /Contents %d 0 R >>", 4+2*i)
		objects = append(objects, page)

		content := fmt.Sprintf("q 0.5 w 36 36 m %s %s l S Q\n", num(p.Width-36), num(p.Height-36))
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content))
	}

	if opts.SharedResources && !opts.InheritResources {
		objects = append(objects, "<< /ProcSet [/PDF] >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func num(v float64) string {
	return fmt.Sprintf("%g", v)
}
