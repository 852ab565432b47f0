package host

import (
	"sync/atomic"

	"chunkfinder.ai/internal/finder"
)

// Pose is a position written by one goroutine and read by others. The zero value
// has no position.
type Pose struct {
	p atomic.Pointer[finder.Vec3]
}

func (p *Pose) Set(v finder.Vec3) { p.p.Store(&v) }
func (p *Pose) Clear()            { p.p.Store(nil) }

func (p *Pose) CurrentPosition() (finder.Vec3, bool) {
	v := p.p.Load()
	if v == nil {
		return finder.Vec3{}, false
	}
	return *v, true
}

// Observer is the entity the scan is centred on.
type Observer struct {
	Pose
	radius int
}

func NewObserver(radius int) *Observer {
	return &Observer{radius: radius}
}

func (o *Observer) ScanRadius() int { return o.radius }

var (
	_ finder.ObserverQuery = (*Observer)(nil)
	_ finder.CameraQuery   = (*Pose)(nil)
)
