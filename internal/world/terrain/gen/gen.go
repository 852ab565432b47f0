package gen

import "chunkfinder.ai/internal/logic/mathx"

const SeaLevel = 62

func FloorDiv(a, b int) int {
	return mathx.FloorDiv(a, b)
}

func Mod(a, b int) int {
	return mathx.Mod(a, b)
}

func Hash2(seed int64, x, z int) uint64 {
	return mathx.Hash2(seed, x, z)
}

func Hash3(seed int64, x, y, z int) uint64 {
	return mathx.Hash3(seed, x, y, z)
}

// Palette carries the block ids the generator emits.
type Palette struct {
	Air              uint16
	Bedrock          uint16
	Deepslate        uint16
	CobbledDeepslate uint16
	CrackedDeepslate uint16
	DeepslateIronOre uint16
	Stone            uint16
	Gravel           uint16
	CoalOre          uint16
	IronOre          uint16
	Dirt             uint16
	Grass            uint16
	Water            uint16
}

type Params struct {
	Seed   int64
	MinY   int
	Height int

	// Deepslate pockets pushed up into the stone layer (y in [2, 6]).
	PocketGrid         int
	PocketRadius       int
	PocketProbPermille int
}

func (p Params) MaxY() int { return p.MinY + p.Height }

func ClampPermille(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}

func InCluster(seed int64, x, z, grid, radius int, probPermille uint64) bool {
	if grid <= 0 || radius <= 0 || probPermille == 0 {
		return false
	}
	gx := FloorDiv(x, grid)
	gz := FloorDiv(z, grid)
	r2 := radius * radius

	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgz := gz + dz
			h := Hash2(seed, cgx, cgz)
			if h%1000 >= probPermille {
				continue
			}

			ox := int((h >> 10) % uint64(grid))
			oz := int((h >> 20) % uint64(grid))
			cx := cgx*grid + ox
			cz := cgz*grid + oz

			ddx := x - cx
			ddz := z - cz
			if ddx*ddx+ddz*ddz <= r2 {
				return true
			}
		}
	}
	return false
}

// SurfaceY is the grass level of column (x, z), averaged over an 8-block grid so
// neighbouring columns differ by at most a few blocks.
func SurfaceY(seed int64, x, z int) int {
	gx := FloorDiv(x, 8)
	gz := FloorDiv(z, 8)
	sum := 0
	for dz := 0; dz <= 1; dz++ {
		for dx := 0; dx <= 1; dx++ {
			sum += int(Hash2(seed+7, gx+dx, gz+dz) % 13)
		}
	}
	return 56 + sum/4
}

// Column fills out (len Height) with the blocks of world column (x, z), bottom first.
func Column(p Params, pal Palette, x, z int, out []uint16) {
	surface := SurfaceY(p.Seed, x, z)
	pocket := InCluster(p.Seed+501, x, z, p.PocketGrid, p.PocketRadius, uint64(ClampPermille(p.PocketProbPermille)))

	for i := range out {
		y := p.MinY + i
		out[i] = blockAt(p, pal, x, y, z, surface, pocket)
	}
}

func blockAt(p Params, pal Palette, x, y, z, surface int, pocket bool) uint16 {
	switch {
	case y == p.MinY:
		return pal.Bedrock
	case y < 0:
		roll := Hash3(p.Seed+11, x, y, z) % 1000
		switch {
		case roll < 6:
			return pal.DeepslateIronOre
		default:
			return pal.Deepslate
		}
	case pocket && y >= 2 && y <= 6:
		roll := Hash3(p.Seed+13, x, y, z) % 100
		switch {
		case roll < 10:
			return pal.CrackedDeepslate
		case roll < 35:
			return pal.CobbledDeepslate
		default:
			return pal.Deepslate
		}
	case y < surface-3:
		roll := Hash3(p.Seed+17, x, y, z) % 1000
		switch {
		case roll < 12:
			return pal.CoalOre
		case roll < 18:
			return pal.IronOre
		case roll < 30:
			return pal.Gravel
		default:
			return pal.Stone
		}
	case y < surface:
		return pal.Dirt
	case y == surface:
		if surface < SeaLevel {
			return pal.Dirt
		}
		return pal.Grass
	case y <= SeaLevel:
		return pal.Water
	default:
		return pal.Air
	}
}
