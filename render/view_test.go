package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/georgepadayatti/firma/placement"
)

// fakeSource renders blank images. Renders at a scale listed in gates block
// until the gate channel is closed.
type fakeSource struct {
	pages int
	size  placement.PageSize
	fail  map[int]error

	mu    sync.Mutex
	gates map[float64]chan struct{}
	calls int
}

func (s *fakeSource) PageCount() int { return s.pages }

func (s *fakeSource) PageSize(page int) (placement.PageSize, error) {
	if page < 1 || page > s.pages {
		return placement.PageSize{}, errors.New("out of range")
	}
	return s.size, nil
}

func (s *fakeSource) RenderPage(ctx context.Context, page int, scale float64) (image.Image, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gates[scale]
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err := s.fail[page]; err != nil {
		return nil, err
	}
	w := int(s.size.Width * scale)
	h := int(s.size.Height * scale)
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

type fakeRenderer struct {
	src *fakeSource
	err error
}

func (r fakeRenderer) Open([]byte) (PageSource, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.src, nil
}

func newSource(pages int) *fakeSource {
	return &fakeSource{
		pages: pages,
		size:  placement.PageSize{Width: 200, Height: 100},
		gates: map[float64]chan struct{}{},
	}
}

func TestViewLoad(t *testing.T) {
	v := NewView(fakeRenderer{src: newSource(3)})
	if v.PageCount() != 0 {
		t.Errorf("PageCount before Load = %d", v.PageCount())
	}
	if err := v.Load(context.Background(), nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v.PageCount() != 3 || v.Page() != 1 || v.Zoom() != 1 {
		t.Errorf("got pages=%d page=%d zoom=%v", v.PageCount(), v.Page(), v.Zoom())
	}
	s := v.Surface()
	if s == nil {
		t.Fatal("no surface after Load")
	}
	if b := s.Image.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("surface is %v", b)
	}
	if v.Degraded() {
		t.Error("view should not be degraded")
	}
}

func TestViewZoom(t *testing.T) {
	v := NewView(fakeRenderer{src: newSource(1)})
	ctx := context.Background()
	if err := v.Load(ctx, nil); err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		op   func(context.Context) <-chan error
		want float64
	}{
		{v.ZoomIn, 1.25},
		{v.ZoomIn, 1.5},
		{v.ResetZoom, 1},
		{v.ZoomOut, 0.75},
		{v.ZoomOut, 0.5},
		{v.ZoomOut, 0.5},
	}
	for i, s := range steps {
		if err := <-s.op(ctx); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if v.Zoom() != s.want {
			t.Errorf("step %d: zoom = %v, want %v", i, v.Zoom(), s.want)
		}
		if got := v.Surface().Zoom; got != s.want {
			t.Errorf("step %d: surface zoom = %v, want %v", i, got, s.want)
		}
	}

	for i := 0; i < 20; i++ {
		<-v.ZoomIn(ctx)
	}
	if v.Zoom() != 3 {
		t.Errorf("zoom = %v, want max 3", v.Zoom())
	}
	if b := v.Surface().Image.Bounds(); b.Dx() != 600 {
		t.Errorf("surface width at zoom 3 = %d", b.Dx())
	}
}

func TestViewPages(t *testing.T) {
	v := NewView(fakeRenderer{src: newSource(3)})
	ctx := context.Background()
	if err := v.Load(ctx, nil); err != nil {
		t.Fatal(err)
	}

	<-v.NextPage(ctx)
	<-v.NextPage(ctx)
	<-v.NextPage(ctx)
	if v.Page() != 3 {
		t.Errorf("page = %d, want 3", v.Page())
	}
	if v.Surface().Page != 3 {
		t.Errorf("surface page = %d", v.Surface().Page)
	}
	<-v.SetPage(ctx, -4)
	if v.Page() != 1 {
		t.Errorf("page = %d, want 1", v.Page())
	}
	<-v.PrevPage(ctx)
	if v.Page() != 1 {
		t.Errorf("page = %d, want 1", v.Page())
	}
}

func TestViewStaleRenderDropped(t *testing.T) {
	src := newSource(1)
	v := NewView(fakeRenderer{src: src})
	ctx := context.Background()
	if err := v.Load(ctx, nil); err != nil {
		t.Fatal(err)
	}

	slow := make(chan struct{})
	src.mu.Lock()
	src.gates[1.25] = slow
	src.mu.Unlock()

	first := v.ZoomIn(ctx)  // 1.25, blocked
	second := v.ZoomIn(ctx) // 1.5, runs freely
	if err := <-second; err != nil {
		t.Fatalf("second render: %v", err)
	}
	if got := v.Surface().Zoom; got != 1.5 {
		t.Fatalf("surface zoom = %v, want 1.5", got)
	}

	close(slow)
	if err := <-first; !errors.Is(err, ErrStale) {
		t.Errorf("first render: got %v, want ErrStale", err)
	}
	if got := v.Surface().Zoom; got != 1.5 {
		t.Errorf("stale render overwrote the surface: zoom %v", got)
	}
	v.Wait()
}

func TestViewInOrderRendersBothApply(t *testing.T) {
	v := NewView(fakeRenderer{src: newSource(1)})
	ctx := context.Background()
	if err := v.Load(ctx, nil); err != nil {
		t.Fatal(err)
	}
	a := v.Surface().Generation
	if err := v.Render(ctx); err != nil {
		t.Fatal(err)
	}
	if b := v.Surface().Generation; b <= a {
		t.Errorf("generation did not advance: %d -> %d", a, b)
	}
}

func TestViewDegradedOnOpen(t *testing.T) {
	v := NewView(fakeRenderer{err: errors.New("boom")})
	err := v.Load(context.Background(), []byte("x"))

	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("got %v, want RenderError", err)
	}
	if renderErr.Page != 0 {
		t.Errorf("Page = %d, want 0", renderErr.Page)
	}
	if !v.Degraded() || v.Err() == nil {
		t.Error("view should be degraded")
	}
	if v.PageCount() != 1 {
		t.Errorf("degraded PageCount = %d, want 1", v.PageCount())
	}
	if _, err := v.Click(placement.Point{X: 1, Y: 1}, placement.Surface{Width: 10, Height: 10}); !errors.Is(err, ErrNoPreview) {
		t.Errorf("Click: got %v, want ErrNoPreview", err)
	}
	if err := v.Render(context.Background()); !errors.As(err, &renderErr) {
		t.Errorf("Render in degraded mode: got %v", err)
	}
	if _, err := v.Marker(placement.Position{Page: 1}, color.Black); !errors.Is(err, ErrNoPreview) {
		t.Errorf("Marker: got %v", err)
	}
}

func TestViewDegradedOnRender(t *testing.T) {
	src := newSource(2)
	src.fail = map[int]error{2: errors.New("bad page")}
	v := NewView(fakeRenderer{src: src})
	ctx := context.Background()
	if err := v.Load(ctx, nil); err != nil {
		t.Fatal(err)
	}

	var renderErr *RenderError
	if err := <-v.NextPage(ctx); !errors.As(err, &renderErr) || renderErr.Page != 2 {
		t.Fatalf("got %v, want RenderError for page 2", err)
	}
	if !v.Degraded() || v.Surface() != nil {
		t.Error("failed render should leave the view degraded")
	}
	if v.PageCount() != 2 {
		t.Errorf("PageCount = %d, want 2", v.PageCount())
	}

	if err := <-v.PrevPage(ctx); err != nil {
		t.Fatalf("page 1 render: %v", err)
	}
	if v.Degraded() {
		t.Error("successful render should leave degraded mode")
	}
}

func TestViewLoadDropsOldRenders(t *testing.T) {
	src := newSource(1)
	v := NewView(fakeRenderer{src: src})
	ctx := context.Background()
	if err := v.Load(ctx, nil); err != nil {
		t.Fatal(err)
	}

	slow := make(chan struct{})
	src.mu.Lock()
	src.gates[1.25] = slow
	src.mu.Unlock()
	pending := v.ZoomIn(ctx)

	v.Close()
	close(slow)
	if err := <-pending; !errors.Is(err, ErrStale) {
		t.Errorf("got %v, want ErrStale", err)
	}
	if v.Surface() != nil || v.PageCount() != 0 {
		t.Error("render for a closed document was applied")
	}
}

func TestViewClick(t *testing.T) {
	v := NewView(fakeRenderer{src: newSource(2)})
	ctx := context.Background()
	if _, err := v.Click(placement.Point{}, placement.Surface{Width: 1, Height: 1}); !errors.Is(err, ErrNoPreview) {
		t.Errorf("click before load: got %v", err)
	}
	if err := v.Load(ctx, nil); err != nil {
		t.Fatal(err)
	}
	<-v.NextPage(ctx)

	for _, zoom := range []func(context.Context) <-chan error{v.ResetZoom, v.ZoomIn, v.ZoomIn, v.ZoomOut} {
		<-zoom(ctx)
		bounds := v.Surface().Bounds()
		bounds.Left, bounds.Top = 40, 70
		center := placement.Point{X: 40 + bounds.Width/2, Y: 70 + bounds.Height/2}

		pos, err := v.Click(center, bounds)
		if err != nil {
			t.Fatal(err)
		}
		if pos.X != 50 || pos.Y != 50 || pos.Page != 2 {
			t.Errorf("zoom %v: center click mapped to %+v", v.Zoom(), pos)
		}
	}
}

func TestViewClickDuringPageChange(t *testing.T) {
	src := newSource(2)
	v := NewView(fakeRenderer{src: src})
	ctx := context.Background()
	if err := v.Load(ctx, nil); err != nil {
		t.Fatal(err)
	}

	slow := make(chan struct{})
	src.mu.Lock()
	src.gates[1] = slow
	src.mu.Unlock()

	pending := v.NextPage(ctx)
	if v.Page() != 2 {
		t.Fatalf("requested page = %d, want 2", v.Page())
	}

	surface := v.Surface()
	if surface.Page != 1 {
		t.Fatalf("surface shows page %d before the render finished", surface.Page)
	}
	pos, err := v.Click(placement.Point{X: 100, Y: 50}, surface.Bounds())
	if err != nil {
		t.Fatal(err)
	}
	if pos.Page != 1 {
		t.Errorf("click on the displayed page mapped to page %d, want 1", pos.Page)
	}

	close(slow)
	if err := <-pending; err != nil {
		t.Fatalf("page render: %v", err)
	}
	pos, err = v.Click(placement.Point{X: 100, Y: 50}, v.Surface().Bounds())
	if err != nil {
		t.Fatal(err)
	}
	if pos.Page != 2 {
		t.Errorf("click after the render mapped to page %d, want 2", pos.Page)
	}
	v.Wait()
}

func TestViewMarker(t *testing.T) {
	src := newSource(1)
	src.size = placement.PageSize{Width: 612, Height: 792}
	v := NewView(fakeRenderer{src: src})
	if err := v.Load(context.Background(), nil); err != nil {
		t.Fatal(err)
	}

	red := color.RGBA{255, 0, 0, 255}
	img, err := v.Marker(placement.Position{X: 50, Y: 50, Page: 1}, red)
	if err != nil {
		t.Fatal(err)
	}
	// Footprint spans x 256..356 and, flipped, y 371..421 in pixels.
	if _, _, _, a := img.At(256, 396).RGBA(); a == 0 {
		t.Error("left edge of marker missing")
	}
	if _, _, _, a := img.At(306, 396).RGBA(); a != 0 {
		t.Error("marker interior should be untouched")
	}
	if _, _, _, a := img.At(10, 10).RGBA(); a != 0 {
		t.Error("outside the marker should be untouched")
	}

	other, err := v.Marker(placement.Position{X: 50, Y: 50, Page: 2}, red)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, a := other.At(256, 396).RGBA(); a != 0 {
		t.Error("marker for another page was drawn")
	}
}
