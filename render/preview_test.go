package render

import (
	"context"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/georgepadayatti/firma/internal/pdftest"
	"github.com/georgepadayatti/firma/placement"
)

func TestPreviewPageSizes(t *testing.T) {
	tests := []struct {
		name string
		opts pdftest.Options
		want []placement.PageSize
	}{
		{
			name: "letter",
			opts: pdftest.Options{},
			want: []placement.PageSize{{Width: 612, Height: 792}},
		},
		{
			name: "mixed",
			opts: pdftest.Options{Pages: []pdftest.Size{pdftest.A4, pdftest.Letter}},
			want: []placement.PageSize{{Width: 595, Height: 842}, {Width: 612, Height: 792}},
		},
		{
			name: "inherited",
			opts: pdftest.Options{Pages: []pdftest.Size{pdftest.A4, pdftest.A4}, InheritMediaBox: true},
			want: []placement.PageSize{{Width: 595, Height: 842}, {Width: 595, Height: 842}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Preview{}.Open(pdftest.Build(tt.opts))
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			var got []placement.PageSize
			for i := 1; i <= src.PageCount(); i++ {
				size, err := src.PageSize(i)
				if err != nil {
					t.Fatal(err)
				}
				got = append(got, size)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("page sizes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPreviewOpenError(t *testing.T) {
	if _, err := (Preview{}).Open([]byte("not a pdf")); err == nil {
		t.Error("expected error")
	}
	if _, err := (Preview{}).Open(nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestPreviewRender(t *testing.T) {
	src, err := Preview{Background: color.White, Border: color.Black}.Open(pdftest.SinglePage(pdftest.Letter))
	if err != nil {
		t.Fatal(err)
	}

	img, err := src.RenderPage(context.Background(), 1, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	if b.Dx() != 306 || b.Dy() != 396 {
		t.Fatalf("raster is %dx%d, want 306x396", b.Dx(), b.Dy())
	}
	if r, g, bl, _ := img.At(150, 200).RGBA(); r != 0xffff || g != 0xffff || bl != 0xffff {
		t.Error("page interior should be background")
	}
	if r, _, _, _ := img.At(0, 200).RGBA(); r != 0 {
		t.Error("border missing on left edge")
	}

	if _, err := src.RenderPage(context.Background(), 2, 1); err == nil {
		t.Error("expected error for page 2")
	}
	if _, err := src.RenderPage(context.Background(), 1, 0); err == nil {
		t.Error("expected error for zero scale")
	}
}

func TestPreviewWithView(t *testing.T) {
	v := NewView(Preview{}, WithZoomRange(0.5, 2, 0.5), WithPixelsPerPoint(2))
	if err := v.Load(context.Background(), pdftest.SinglePage(pdftest.A4)); err != nil {
		t.Fatal(err)
	}
	if b := v.Surface().Image.Bounds(); b.Dx() != 1190 || b.Dy() != 1684 {
		t.Errorf("surface is %v", b)
	}
	<-v.ZoomIn(context.Background())
	if v.Zoom() != 1.5 {
		t.Errorf("zoom = %v, want 1.5", v.Zoom())
	}
}
