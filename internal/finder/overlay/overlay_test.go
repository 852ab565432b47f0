package overlay

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chunkfinder.ai/internal/finder"
	"chunkfinder.ai/internal/finder/scan"
)

type flatWorld struct{ min, max int }

func (w flatWorld) MinElevation() int { return w.min }
func (w flatWorld) MaxElevation() int { return w.max }

func TestProjectEmptySet(t *testing.T) {
	p := Projector{ColumnSize: 16, World: flatWorld{-64, 320}}
	got := p.Project(scan.NewMatchSet(), finder.Vec3{X: 1, Y: 2, Z: 3})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if got := p.Project(nil, finder.Vec3{}); len(got) != 0 {
		t.Fatalf("nil set produced %d boxes", len(got))
	}
}

func TestProjectWorkedExample(t *testing.T) {
	p := Projector{ColumnSize: 16, World: flatWorld{-64, 320}}
	got := p.Project(scan.NewMatchSet(finder.ColumnKey{CX: 1, CZ: 1}), finder.Vec3{X: 16, Y: 64, Z: 16})
	want := []AABB{{
		Min: finder.Vec3{X: 0, Y: -128, Z: 0},
		Max: finder.Vec3{X: 16, Y: 256, Z: 16},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("boxes mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectOneBoxPerColumn(t *testing.T) {
	p := Projector{ColumnSize: 16, World: flatWorld{0, 256}}
	set := scan.NewMatchSet(
		finder.ColumnKey{CX: -2, CZ: 0},
		finder.ColumnKey{CX: 0, CZ: 0},
		finder.ColumnKey{CX: 3, CZ: -1},
	)
	got := p.Project(set, finder.Vec3{})
	sort.Slice(got, func(i, j int) bool { return got[i].Min.X < got[j].Min.X })
	want := []AABB{
		{Min: finder.Vec3{X: -32, Y: 0, Z: 0}, Max: finder.Vec3{X: -16, Y: 256, Z: 16}},
		{Min: finder.Vec3{X: 0, Y: 0, Z: 0}, Max: finder.Vec3{X: 16, Y: 256, Z: 16}},
		{Min: finder.Vec3{X: 48, Y: 0, Z: -16}, Max: finder.Vec3{X: 64, Y: 256, Z: 0}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("boxes mismatch (-want +got):\n%s", diff)
	}
}

// Far from the origin the camera-relative corners must keep sub-block precision.
func TestProjectKeepsPrecisionFarFromOrigin(t *testing.T) {
	p := Projector{ColumnSize: 16, World: flatWorld{0, 16}}
	const cx = 1_875_000 // x = 30,000,000
	cam := finder.Vec3{X: 30_000_000.125, Y: 8.5, Z: 0.75}
	got := p.Project(scan.NewMatchSet(finder.ColumnKey{CX: cx, CZ: 0}), cam)
	if len(got) != 1 {
		t.Fatalf("expected 1 box, got %d", len(got))
	}
	if got[0].Min.X != -0.125 || got[0].Max.X != 15.875 {
		t.Fatalf("x corners lost precision: %+v", got[0])
	}
	if got[0].Min.Z != -0.75 || got[0].Min.Y != -8.5 {
		t.Fatalf("y/z corners wrong: %+v", got[0])
	}
}

type recordingSink struct {
	frames []Frame
	err    error
}

func (s *recordingSink) Submit(f Frame) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, f)
	return nil
}

type fixedSource struct{ set *scan.MatchSet }

func (f fixedSource) Current() *scan.MatchSet { return f.set }

type fixedCamera struct {
	pos finder.Vec3
	ok  bool
}

func (c fixedCamera) CurrentPosition() (finder.Vec3, bool) { return c.pos, c.ok }

func TestRenderFrame(t *testing.T) {
	sink := &recordingSink{}
	r := &Renderer{
		Source:    fixedSource{set: scan.NewMatchSet(finder.ColumnKey{}, finder.ColumnKey{CX: 1})},
		Camera:    fixedCamera{ok: true},
		Projector: Projector{ColumnSize: 16, World: flatWorld{0, 64}},
		Style:     DefaultStyle(),
		Sink:      sink,
	}
	n, err := r.RenderFrame()
	if err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if n != 2 || len(sink.frames) != 1 || len(sink.frames[0].Boxes) != 2 {
		t.Fatalf("submitted=%d frames=%d", n, len(sink.frames))
	}
	if sink.frames[0].Style != DefaultStyle() {
		t.Fatalf("style not forwarded: %+v", sink.frames[0].Style)
	}
}

func TestRenderFrameWithoutCameraIsNoop(t *testing.T) {
	sink := &recordingSink{}
	r := &Renderer{
		Source:    fixedSource{set: scan.NewMatchSet(finder.ColumnKey{})},
		Camera:    fixedCamera{ok: false},
		Projector: Projector{ColumnSize: 16, World: flatWorld{0, 64}},
		Sink:      sink,
	}
	n, err := r.RenderFrame()
	if err != nil || n != 0 || len(sink.frames) != 0 {
		t.Fatalf("expected no-op, got n=%d err=%v frames=%d", n, err, len(sink.frames))
	}
}

func TestRenderFrameSinkError(t *testing.T) {
	boom := errors.New("boom")
	r := &Renderer{
		Source:    fixedSource{set: scan.NewMatchSet(finder.ColumnKey{})},
		Camera:    fixedCamera{ok: true},
		Projector: Projector{ColumnSize: 16, World: flatWorld{0, 64}},
		Sink:      &recordingSink{err: boom},
	}
	if _, err := r.RenderFrame(); !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
}
