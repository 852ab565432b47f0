// Package finder holds the value types and host-facing contracts shared by the
// region scanner and the overlay projector.
package finder

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"chunkfinder.ai/internal/logic/mathx"
)

var (
	ErrEmptyTargets   = errors.New("finder: target material set is empty")
	ErrBadColumnSize  = errors.New("finder: column size must be positive")
	ErrBadBand        = errors.New("finder: scan band min_y must not exceed max_y")
	ErrBadRadius      = errors.New("finder: scan radius must be positive")
	ErrUnknownTargets = errors.New("finder: unknown target material")
)

// Material is a palette id as handed out by the host block registry.
type Material uint16

// ColumnKey identifies a vertical column of the world grid in column units.
type ColumnKey struct {
	CX int
	CZ int
}

// ColumnOf returns the column containing world position (x, z). ok is false when
// either coordinate is not finite or lies outside ±mathx.MaxCoordinate.
func ColumnOf(x, z float64, columnSize int) (k ColumnKey, ok bool) {
	cx, okX := mathx.FloorDivFloat(x, columnSize)
	cz, okZ := mathx.FloorDivFloat(z, columnSize)
	if !okX || !okZ {
		return ColumnKey{}, false
	}
	return ColumnKey{CX: cx, CZ: cz}, true
}

func SortColumns(keys []ColumnKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
}

type Vec3 struct {
	X, Y, Z float64
}

// Valid reports whether every component is finite and within ±mathx.MaxCoordinate.
func (v Vec3) Valid() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.Abs(c) >= mathx.MaxCoordinate {
			return false
		}
	}
	return true
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// TargetSet is the read-only set of materials a scan looks for.
type TargetSet struct {
	ids map[Material]struct{}
}

func NewTargetSet(ids ...Material) (TargetSet, error) {
	if len(ids) == 0 {
		return TargetSet{}, ErrEmptyTargets
	}
	m := make(map[Material]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return TargetSet{ids: m}, nil
}

func (t TargetSet) Has(m Material) bool {
	_, ok := t.ids[m]
	return ok
}

func (t TargetSet) Len() int { return len(t.ids) }

func (t TargetSet) IDs() []Material {
	out := make([]Material, 0, len(t.ids))
	for id := range t.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Band is an inclusive vertical range of voxel levels.
type Band struct {
	MinY int
	MaxY int
}

func (b Band) Height() int {
	if b.MaxY < b.MinY {
		return 0
	}
	return b.MaxY - b.MinY + 1
}

// Clamp intersects b with the world's [min, max) elevation range.
func (b Band) Clamp(worldMin, worldMax int) Band {
	out := b
	if out.MinY < worldMin {
		out.MinY = worldMin
	}
	if out.MaxY > worldMax-1 {
		out.MaxY = worldMax - 1
	}
	return out
}

// Geometry is the static grid configuration shared by scanner and projector.
type Geometry struct {
	ColumnSize int
	Band       Band
}

func (g Geometry) Validate() error {
	if g.ColumnSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrBadColumnSize, g.ColumnSize)
	}
	if g.Band.MinY > g.Band.MaxY {
		return fmt.Errorf("%w: got [%d, %d]", ErrBadBand, g.Band.MinY, g.Band.MaxY)
	}
	return nil
}

// WorldQuery is the host's voxel lookup. MaterialAt reports loaded=false when the
// voxel's column is not resident; callers must not wait for it.
// MaxElevation is exclusive.
type WorldQuery interface {
	MaterialAt(x, y, z int) (m Material, loaded bool)
	Elevation
}

type Elevation interface {
	MinElevation() int
	MaxElevation() int
}

// ObserverQuery reports ok=false when there is no active world or observer.
type ObserverQuery interface {
	CurrentPosition() (pos Vec3, ok bool)
	ScanRadius() int
}

type CameraQuery interface {
	CurrentPosition() (pos Vec3, ok bool)
}
