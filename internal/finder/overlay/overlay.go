package overlay

import (
	"chunkfinder.ai/internal/finder"
	"chunkfinder.ai/internal/finder/scan"
)

// AABB is an axis-aligned box in camera-relative coordinates.
type AABB struct {
	Min finder.Vec3
	Max finder.Vec3
}

type RGBA struct {
	R, G, B, A float32
}

type Style struct {
	Fill    RGBA
	Outline RGBA
}

func DefaultStyle() Style {
	return Style{
		Fill:    RGBA{R: 0, G: 1, B: 0, A: 0.25},
		Outline: RGBA{R: 0, G: 1, B: 0, A: 0.9},
	}
}

// Projector turns columns into camera-relative boxes spanning the world's full height.
type Projector struct {
	ColumnSize int
	World      finder.Elevation
}

// Project returns one box per column in set. Order is unspecified and the result
// shares no memory with set.
func (p Projector) Project(set *scan.MatchSet, cam finder.Vec3) []AABB {
	if set.Len() == 0 {
		return []AABB{}
	}
	minY := float64(p.World.MinElevation())
	maxY := float64(p.World.MaxElevation())
	size := int64(p.ColumnSize)

	out := make([]AABB, 0, set.Len())
	set.Each(func(k finder.ColumnKey) bool {
		x0 := int64(k.CX) * size
		z0 := int64(k.CZ) * size
		world := AABB{
			Min: finder.Vec3{X: float64(x0), Y: minY, Z: float64(z0)},
			Max: finder.Vec3{X: float64(x0 + size), Y: maxY, Z: float64(z0 + size)},
		}
		out = append(out, AABB{
			Min: world.Min.Sub(cam),
			Max: world.Max.Sub(cam),
		})
		return true
	})
	return out
}
