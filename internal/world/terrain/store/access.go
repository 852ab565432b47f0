package store

import (
	"fmt"
	"sort"

	"chunkfinder.ai/internal/finder"
	"chunkfinder.ai/internal/logic/mathx"
	genpkg "chunkfinder.ai/internal/world/terrain/gen"
)

func (s *ChunkStore) InBounds(y int) bool {
	return y >= s.Gen.MinY && y < s.Gen.MaxY()
}

func (s *ChunkStore) MinElevation() int { return s.Gen.MinY }
func (s *ChunkStore) MaxElevation() int { return s.Gen.MaxY() }

// MaterialAt implements finder.WorldQuery. Voxels in chunks that are not loaded
// report loaded=false; levels outside the world report air.
func (s *ChunkStore) MaterialAt(x, y, z int) (finder.Material, bool) {
	ch, ok := s.Chunks[ChunkKey{CX: mathx.FloorDiv(x, s.Size), CZ: mathx.FloorDiv(z, s.Size)}]
	if !ok {
		return 0, false
	}
	if !s.InBounds(y) {
		return finder.Material(s.Gen.Palette.Air), true
	}
	return finder.Material(ch.Get(mathx.Mod(x, s.Size), y, mathx.Mod(z, s.Size))), true
}

func (s *ChunkStore) Loaded(cx, cz int) bool {
	_, ok := s.Chunks[ChunkKey{CX: cx, CZ: cz}]
	return ok
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

// GetBlock returns air for unloaded chunks and out-of-range levels.
func (s *ChunkStore) GetBlock(x, y, z int) uint16 {
	m, ok := s.MaterialAt(x, y, z)
	if !ok {
		return s.Gen.Palette.Air
	}
	return uint16(m)
}

// SetBlock edits a loaded chunk; writes to unloaded chunks are dropped.
func (s *ChunkStore) SetBlock(x, y, z int, b uint16) bool {
	if !s.InBounds(y) {
		return false
	}
	ch, ok := s.Chunks[ChunkKey{CX: mathx.FloorDiv(x, s.Size), CZ: mathx.FloorDiv(z, s.Size)}]
	if !ok {
		return false
	}
	ch.Set(mathx.Mod(x, s.Size), y, mathx.Mod(z, s.Size), b)
	return true
}

func (s *ChunkStore) GenerateChunk(ch *Chunk) {
	col := make([]uint16, ch.Height)
	for z := 0; z < ch.Size; z++ {
		for x := 0; x < ch.Size; x++ {
			genpkg.Column(s.Gen.Params, s.Gen.Palette, ch.CX*ch.Size+x, ch.CZ*ch.Size+z, col)
			for i, b := range col {
				ch.Blocks[ch.index(x, ch.MinY+i, z)] = b
			}
		}
	}
}

// Put inserts a chunk read from elsewhere, replacing any loaded copy.
func (s *ChunkStore) Put(ch *Chunk) error {
	if want := s.Shape(); ch.Shape() != want {
		return fmt.Errorf("chunk %d,%d shape mismatch: %+v want %+v", ch.CX, ch.CZ, ch.Shape(), want)
	}
	if len(ch.Blocks) != ch.Shape().Voxels() {
		return fmt.Errorf("chunk %d,%d blocks length mismatch: got %d want %d", ch.CX, ch.CZ, len(ch.Blocks), ch.Shape().Voxels())
	}
	s.Chunks[ChunkKey{CX: ch.CX, CZ: ch.CZ}] = ch
	return nil
}

// LoadChunk returns the loaded chunk, reading it from the backing store or
// generating it when needed.
func (s *ChunkStore) LoadChunk(cx, cz int) (*Chunk, error) {
	k := ChunkKey{CX: cx, CZ: cz}
	if ch, ok := s.Chunks[k]; ok {
		return ch, nil
	}
	var loadErr error
	if s.Backing != nil {
		ch, ok, err := s.Backing.LoadChunk(cx, cz, s.Shape())
		switch {
		case err != nil:
			loadErr = fmt.Errorf("load chunk %d,%d: %w", cx, cz, err)
		case ok:
			if err := s.Put(ch); err != nil {
				loadErr = err
				break
			}
			return ch, nil
		}
	}
	ch := NewChunk(cx, cz, s.Size, s.Gen.MinY, s.Gen.Height)
	s.GenerateChunk(ch)
	ch.dirty = true
	s.Chunks[k] = ch
	return ch, loadErr
}

// Unload drops a chunk, saving it first when it has unsaved changes.
func (s *ChunkStore) Unload(cx, cz int) error {
	k := ChunkKey{CX: cx, CZ: cz}
	ch, ok := s.Chunks[k]
	if !ok {
		return nil
	}
	delete(s.Chunks, k)
	return s.save(ch)
}

// Flush saves every dirty loaded chunk.
func (s *ChunkStore) Flush() error {
	for _, k := range s.LoadedChunkKeys() {
		if err := s.save(s.Chunks[k]); err != nil {
			return err
		}
	}
	return nil
}

func (s *ChunkStore) save(ch *Chunk) error {
	if s.Backing == nil || !ch.Dirty() {
		return nil
	}
	if err := s.Backing.SaveChunk(ch); err != nil {
		return fmt.Errorf("save chunk %d,%d: %w", ch.CX, ch.CZ, err)
	}
	ch.MarkClean()
	return nil
}
