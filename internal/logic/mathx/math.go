package mathx

import "math"

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// MaxCoordinate bounds the magnitude of float positions converted to grid cells.
// Every integer below it is exact in a float64, and cell*size stays far from int
// overflow.
const MaxCoordinate = 1 << 52

// FloorDivFloat returns floor(v / b) as an int. Positions arrive as float64 from the
// host; truncating toward zero would put x=-0.5 in column 0 instead of -1.
// ok is false for NaN, infinities and |v| >= MaxCoordinate.
func FloorDivFloat(v float64, b int) (q int, ok bool) {
	if math.IsNaN(v) || math.Abs(v) >= MaxCoordinate {
		return 0, false
	}
	return int(math.Floor(v / float64(b))), true
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func Hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

func Hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}
