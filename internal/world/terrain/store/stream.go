package store

import (
	"errors"
	"sort"

	"chunkfinder.ai/internal/logic/mathx"
)

// Wanted lists the chunks of the square of the given radius around center, nearest
// (manhattan) first, ties broken by coordinates.
func Wanted(center ChunkKey, radius int) []ChunkKey {
	if radius < 0 {
		radius = 0
	}
	type item struct {
		k    ChunkKey
		dist int
	}
	items := make([]item, 0, (2*radius+1)*(2*radius+1))
	for dz := -radius; dz <= radius; dz++ {
		for dx := -radius; dx <= radius; dx++ {
			items = append(items, item{
				k:    ChunkKey{CX: center.CX + dx, CZ: center.CZ + dz},
				dist: mathx.AbsInt(dx) + mathx.AbsInt(dz),
			})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].dist != items[j].dist {
			return items[i].dist < items[j].dist
		}
		if items[i].k.CX != items[j].k.CX {
			return items[i].k.CX < items[j].k.CX
		}
		return items[i].k.CZ < items[j].k.CZ
	})
	out := make([]ChunkKey, 0, len(items))
	for _, it := range items {
		out = append(out, it.k)
	}
	return out
}

type StreamStats struct {
	Loaded   int
	Unloaded int
	Pending  int // wanted chunks left for a later call because of the budget
}

// LoadAround loads up to budget missing chunks around center (nearest first) and
// unloads chunks farther than radius+1. A budget <= 0 loads everything. Errors from
// the backing store are joined; the affected chunks are still generated.
func (s *ChunkStore) LoadAround(center ChunkKey, radius, budget int) (StreamStats, error) {
	var st StreamStats
	var errs []error

	for _, k := range Wanted(center, radius) {
		if s.Loaded(k.CX, k.CZ) {
			continue
		}
		if budget > 0 && st.Loaded >= budget {
			st.Pending++
			continue
		}
		if _, err := s.LoadChunk(k.CX, k.CZ); err != nil {
			errs = append(errs, err)
		}
		st.Loaded++
	}

	keep := radius + 1
	for _, k := range s.LoadedChunkKeys() {
		if mathx.AbsInt(k.CX-center.CX) <= keep && mathx.AbsInt(k.CZ-center.CZ) <= keep {
			continue
		}
		if err := s.Unload(k.CX, k.CZ); err != nil {
			errs = append(errs, err)
		}
		st.Unloaded++
	}
	return st, errors.Join(errs...)
}
