package store

import (
	"crypto/sha256"
	"encoding/binary"

	genpkg "chunkfinder.ai/internal/world/terrain/gen"
)

type ChunkKey struct {
	CX int
	CZ int
}

// Chunk is one column of the world: Size*Size footprint, Height levels from MinY.
type Chunk struct {
	CX, CZ int
	Size   int
	MinY   int
	Height int
	Blocks []uint16 // len = Size*Size*Height, index x + z*Size + (y-MinY)*Size*Size

	dirty bool
}

func NewChunk(cx, cz, size, minY, height int) *Chunk {
	return &Chunk{
		CX:     cx,
		CZ:     cz,
		Size:   size,
		MinY:   minY,
		Height: height,
		Blocks: make([]uint16, size*size*height),
	}
}

func (c *Chunk) index(x, y, z int) int {
	return x + z*c.Size + (y-c.MinY)*c.Size*c.Size
}

func (c *Chunk) Get(x, y, z int) uint16 {
	return c.Blocks[c.index(x, y, z)]
}

func (c *Chunk) Set(x, y, z int, b uint16) {
	i := c.index(x, y, z)
	if c.Blocks[i] == b {
		return
	}
	c.Blocks[i] = b
	c.dirty = true
}

// Dirty reports whether the chunk changed since it was last loaded or saved.
func (c *Chunk) Dirty() bool { return c.dirty }

func (c *Chunk) MarkClean() { c.dirty = false }

func (c *Chunk) Digest() [32]byte {
	h := sha256.New()
	var tmp [2]byte
	for _, v := range c.Blocks {
		binary.LittleEndian.PutUint16(tmp[:], v)
		h.Write(tmp[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

type WorldGen struct {
	genpkg.Params
	Palette genpkg.Palette
}

// Shape is the grid layout every chunk of a store shares.
type Shape struct {
	Size   int
	MinY   int
	Height int
}

func (sh Shape) Voxels() int { return sh.Size * sh.Size * sh.Height }

func (c *Chunk) Shape() Shape { return Shape{Size: c.Size, MinY: c.MinY, Height: c.Height} }

// Backing persists chunks outside the store. LoadChunk reports ok=false when the
// chunk was never saved, and an error when the stored chunk does not have shape want.
type Backing interface {
	LoadChunk(cx, cz int, want Shape) (ch *Chunk, ok bool, err error)
	SaveChunk(ch *Chunk) error
}

// ChunkStore is the host world. It is owned by the runtime goroutine and is not
// safe for concurrent use.
type ChunkStore struct {
	Gen     WorldGen
	Size    int
	Chunks  map[ChunkKey]*Chunk
	Backing Backing
}

func (s *ChunkStore) Shape() Shape {
	return Shape{Size: s.Size, MinY: s.Gen.MinY, Height: s.Gen.Height}
}

func NewChunkStore(gen WorldGen, size int) *ChunkStore {
	return &ChunkStore{
		Gen:    gen,
		Size:   size,
		Chunks: map[ChunkKey]*Chunk{},
	}
}
