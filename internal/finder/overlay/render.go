package overlay

import (
	"chunkfinder.ai/internal/finder"
	"chunkfinder.ai/internal/finder/scan"
)

// Frame is one submission to a Sink. Boxes are valid for this frame only.
type Frame struct {
	Generation uint64
	Boxes      []AABB
	Style      Style
}

// Sink is the rendering backend.
type Sink interface {
	Submit(f Frame) error
}

type Source interface {
	Current() *scan.MatchSet
}

// Renderer joins the latest published match set with the camera for one frame.
type Renderer struct {
	Source    Source
	Camera    finder.CameraQuery
	Projector Projector
	Style     Style
	Sink      Sink
}

// RenderFrame projects and submits the current match set. Without a camera position
// nothing is submitted.
func (r *Renderer) RenderFrame() (submitted int, err error) {
	cam, ok := r.Camera.CurrentPosition()
	if !ok {
		return 0, nil
	}
	set := r.Source.Current()
	f := Frame{Boxes: r.Projector.Project(set, cam), Style: r.Style}
	if set != nil {
		f.Generation = set.Generation
	}
	if err := r.Sink.Submit(f); err != nil {
		return 0, err
	}
	return len(f.Boxes), nil
}
