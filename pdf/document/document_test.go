package document

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/georgepadayatti/firma/internal/pdftest"
	"github.com/georgepadayatti/firma/placement"
)

func signaturePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 1; x < w-1; x++ {
		img.Set(x, h/2, color.NRGBA{A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func mustLoad(t *testing.T, data []byte) *Document {
	t.Helper()
	doc, err := Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return doc
}

var approx = cmpopts.EquateApprox(0, 1e-6)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		opts  pdftest.Options
		sizes []placement.PageSize
	}{
		{
			name:  "single letter page",
			opts:  pdftest.Options{},
			sizes: []placement.PageSize{{Width: 612, Height: 792}},
		},
		{
			name:  "mixed sizes",
			opts:  pdftest.Options{Pages: []pdftest.Size{pdftest.Letter, pdftest.A4, {Width: 80, Height: 40}}},
			sizes: []placement.PageSize{{Width: 612, Height: 792}, {Width: 595, Height: 842}, {Width: 80, Height: 40}},
		},
		{
			name:  "inherited media box",
			opts:  pdftest.Options{Pages: []pdftest.Size{pdftest.A4, pdftest.A4}, InheritMediaBox: true},
			sizes: []placement.PageSize{{Width: 595, Height: 842}, {Width: 595, Height: 842}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustLoad(t, pdftest.Build(tt.opts))
			if doc.PageCount() != len(tt.sizes) {
				t.Fatalf("PageCount() = %d, want %d", doc.PageCount(), len(tt.sizes))
			}
			for i, want := range tt.sizes {
				got, err := doc.PageSize(i + 1)
				if err != nil {
					t.Fatalf("PageSize(%d) failed: %v", i+1, err)
				}
				if diff := cmp.Diff(want, got, approx); diff != "" {
					t.Errorf("PageSize(%d) mismatch (-want +got):\n%s", i+1, diff)
				}
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	inputs := map[string][]byte{
		"empty":     nil,
		"garbage":   []byte("this is not a pdf at all"),
		"truncated": pdftest.SinglePage(pdftest.Letter)[:20],
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPageSizeRange(t *testing.T) {
	doc := mustLoad(t, pdftest.SinglePage(pdftest.Letter))
	for _, page := range []int{0, -1, 2} {
		if _, err := doc.PageSize(page); !errors.Is(err, ErrPageRange) {
			t.Errorf("PageSize(%d): got %v, want ErrPageRange", page, err)
		}
	}
}

func TestEmbedPNGDecodeError(t *testing.T) {
	doc := mustLoad(t, pdftest.SinglePage(pdftest.Letter))
	if _, err := doc.EmbedPNG([]byte("not a png")); err == nil {
		t.Error("expected decode error")
	}
}

func TestDrawImageRejectsBadHandles(t *testing.T) {
	doc := mustLoad(t, pdftest.SinglePage(pdftest.Letter))
	other := mustLoad(t, pdftest.SinglePage(pdftest.Letter))

	foreign, err := other.EmbedPNG(signaturePNG(t, 20, 10))
	if err != nil {
		t.Fatal(err)
	}

	rect := placement.Rect{X: 10, Y: 10, Width: 100, Height: 50}
	if err := doc.DrawImage(1, nil, rect); !errors.Is(err, ErrNilImage) {
		t.Errorf("nil image: got %v", err)
	}
	if err := doc.DrawImage(1, foreign, rect); !errors.Is(err, ErrForeignImage) {
		t.Errorf("foreign image: got %v", err)
	}

	own, err := doc.EmbedPNG(signaturePNG(t, 20, 10))
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.DrawImage(2, own, rect); !errors.Is(err, ErrPageRange) {
		t.Errorf("page 2: got %v", err)
	}
}

func stampAndReload(t *testing.T, data []byte, page int, rect placement.Rect) *Document {
	t.Helper()
	doc := mustLoad(t, data)
	img, err := doc.EmbedPNG(signaturePNG(t, 64, 32))
	if err != nil {
		t.Fatalf("EmbedPNG failed: %v", err)
	}
	if img.Width != 64 || img.Height != 32 {
		t.Errorf("image handle is %dx%d, want 64x32", img.Width, img.Height)
	}
	if err := doc.DrawImage(page, img, rect); err != nil {
		t.Fatalf("DrawImage failed: %v", err)
	}
	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	return mustLoad(t, out)
}

func TestDrawImageRoundTrip(t *testing.T) {
	rect := placement.Rect{X: 256, Y: 371, Width: 100, Height: 50}
	doc := stampAndReload(t, pdftest.SinglePage(pdftest.Letter), 1, rect)

	if doc.PageCount() != 1 {
		t.Fatalf("PageCount() = %d, want 1", doc.PageCount())
	}

	got, err := doc.Images(1)
	if err != nil {
		t.Fatalf("Images failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("found %d images, want 1", len(got))
	}
	if diff := cmp.Diff(rect, got[0].Rect, approx); diff != "" {
		t.Errorf("image rect mismatch (-want +got):\n%s", diff)
	}
	if got[0].Width != 64 || got[0].Height != 32 {
		t.Errorf("image is %dx%d, want 64x32", got[0].Width, got[0].Height)
	}
}

func TestDrawImageOtherPagesUntouched(t *testing.T) {
	data := pdftest.Build(pdftest.Options{Pages: []pdftest.Size{pdftest.Letter, pdftest.Letter, pdftest.Letter}})
	doc := stampAndReload(t, data, 2, placement.Rect{X: 1, Y: 2, Width: 100, Height: 50})

	for page, want := range map[int]int{1: 0, 2: 1, 3: 0} {
		got, err := doc.Images(page)
		if err != nil {
			t.Fatalf("Images(%d) failed: %v", page, err)
		}
		if len(got) != want {
			t.Errorf("page %d has %d images, want %d", page, len(got), want)
		}
	}
}

func TestDrawImageInheritedResources(t *testing.T) {
	data := pdftest.Build(pdftest.Options{
		Pages:            []pdftest.Size{pdftest.A4, pdftest.A4},
		InheritResources: true,
	})
	rect := placement.Rect{X: 0, Y: 0, Width: 100, Height: 50}
	doc := stampAndReload(t, data, 1, rect)

	first, err := doc.Images(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 {
		t.Fatalf("page 1 has %d images, want 1", len(first))
	}
	if diff := cmp.Diff(rect, first[0].Rect, approx); diff != "" {
		t.Errorf("rect mismatch (-want +got):\n%s", diff)
	}

	second, err := doc.Images(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 0 {
		t.Errorf("page 2 has %d images, want 0", len(second))
	}
}

func TestDrawImageSharedResources(t *testing.T) {
	data := pdftest.Build(pdftest.Options{
		Pages:           []pdftest.Size{pdftest.Letter, pdftest.Letter},
		SharedResources: true,
	})
	doc := mustLoad(t, data)
	img, err := doc.EmbedPNG(signaturePNG(t, 8, 4))
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.DrawImage(1, img, placement.Rect{Width: 100, Height: 50}); err != nil {
		t.Fatal(err)
	}

	for page, want := range map[int]bool{1: true, 2: false} {
		pageDict, _, _, err := doc.ctx.PageDict(page, false)
		if err != nil {
			t.Fatal(err)
		}
		xobjects, err := doc.xobjectResources(pageDict)
		if err != nil {
			t.Fatal(err)
		}
		_, found := xobjects["Sig1"]
		if found != want {
			t.Errorf("page %d has Sig1: %v, want %v", page, found, want)
		}
	}

	out, err := doc.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	reloaded := mustLoad(t, out)
	for page, want := range map[int]int{1: 1, 2: 0} {
		got, err := reloaded.Images(page)
		if err != nil {
			t.Fatalf("Images(%d) failed: %v", page, err)
		}
		if len(got) != want {
			t.Errorf("page %d has %d images, want %d", page, len(got), want)
		}
	}
}

func TestDrawImageMediaBoxOrigin(t *testing.T) {
	data := pdftest.SinglePage(pdftest.Size{Width: 612, Height: 792, X: 9, Y: 9})
	rect := placement.Rect{X: 0, Y: 0, Width: 100, Height: 50}
	doc := stampAndReload(t, data, 1, rect)

	size, err := doc.PageSize(1)
	if err != nil {
		t.Fatal(err)
	}
	if size.Width != 612 || size.Height != 792 {
		t.Errorf("PageSize(1) = %gx%g, want 612x792", size.Width, size.Height)
	}

	pageDict, _, _, err := doc.ctx.PageDict(1, false)
	if err != nil {
		t.Fatal(err)
	}
	content, err := doc.pageContent(pageDict)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(content, "100 0 0 50 9 9 cm") {
		t.Errorf("content does not paint at the MediaBox origin:\n%s", content)
	}

	got, err := doc.Images(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("found %d images, want 1", len(got))
	}
	if diff := cmp.Diff(rect, got[0].Rect, approx); diff != "" {
		t.Errorf("rect mismatch (-want +got):\n%s", diff)
	}
}

func TestDrawImageTwice(t *testing.T) {
	doc := mustLoad(t, pdftest.SinglePage(pdftest.Letter))
	img, err := doc.EmbedPNG(signaturePNG(t, 8, 4))
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range []float64{0, 200} {
		if err := doc.DrawImage(1, img, placement.Rect{X: x, Y: 0, Width: 100, Height: 50}); err != nil {
			t.Fatal(err)
		}
	}
	out, err := doc.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	got, err := mustLoad(t, out).Images(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("found %d images, want 2", len(got))
	}
	if got[0].Name == got[1].Name {
		t.Errorf("both draws used resource name %q", got[0].Name)
	}
}

func TestMatrix(t *testing.T) {
	scale := matrix{100, 0, 0, 50, 0, 0}
	move := matrix{1, 0, 0, 1, 10, 20}

	got := scale.mul(move).unitSquare()
	want := placement.Rect{X: 10, Y: 20, Width: 100, Height: 50}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("scale then move (-want +got):\n%s", diff)
	}

	got = move.mul(scale).unitSquare()
	want = placement.Rect{X: 1000, Y: 1000, Width: 100, Height: 50}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("move then scale (-want +got):\n%s", diff)
	}

	rot := matrix{0, 1, -1, 0, 0, 0}
	r := rot.unitSquare()
	if math.Abs(r.Width-1) > 1e-9 || math.Abs(r.X+1) > 1e-9 {
		t.Errorf("rotated square = %+v", r)
	}
}

func TestParseMatrix(t *testing.T) {
	if _, ok := parseMatrix([]string{"1", "0", "0"}); ok {
		t.Error("short operand list accepted")
	}
	if _, ok := parseMatrix([]string{"1", "0", "0", "1", "x", "0"}); ok {
		t.Error("non-numeric operand accepted")
	}
	m, ok := parseMatrix([]string{"/Foo", "2", "0", "0", "3", "4.5", "-6"})
	if !ok {
		t.Fatal("valid operands rejected")
	}
	if m != (matrix{2, 0, 0, 3, 4.5, -6}) {
		t.Errorf("got %v", m)
	}
}

func TestFormatMatrix(t *testing.T) {
	if got := formatMatrix(100, 50, 256, 371.5); got != "100 0 0 50 256 371.5" {
		t.Errorf("formatMatrix = %q", got)
	}
}
