package store

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chunkfinder.ai/internal/finder"
	genpkg "chunkfinder.ai/internal/world/terrain/gen"
)

var testPal = genpkg.Palette{
	Air: 0, Bedrock: 1, Deepslate: 2, CobbledDeepslate: 3, CrackedDeepslate: 4,
	DeepslateIronOre: 5, Stone: 6, Gravel: 7, CoalOre: 8, IronOre: 9,
	Dirt: 10, Grass: 11, Water: 12,
}

func testStore() *ChunkStore {
	return NewChunkStore(WorldGen{
		Params:  genpkg.Params{Seed: 7, MinY: -4, Height: 80},
		Palette: testPal,
	}, 4)
}

type memBacking struct {
	chunks  map[ChunkKey]*Chunk
	saved   []ChunkKey
	loadErr error
}

func (b *memBacking) LoadChunk(cx, cz int, _ Shape) (*Chunk, bool, error) {
	if b.loadErr != nil {
		return nil, false, b.loadErr
	}
	ch, ok := b.chunks[ChunkKey{CX: cx, CZ: cz}]
	return ch, ok, nil
}

func (b *memBacking) SaveChunk(ch *Chunk) error {
	b.chunks[ChunkKey{CX: ch.CX, CZ: ch.CZ}] = ch
	b.saved = append(b.saved, ChunkKey{CX: ch.CX, CZ: ch.CZ})
	return nil
}

func TestMaterialAtLoadedAndUnloaded(t *testing.T) {
	s := testStore()
	if _, ok := s.MaterialAt(0, 0, 0); ok {
		t.Fatalf("expected unloaded before LoadChunk")
	}
	if _, err := s.LoadChunk(0, 0); err != nil {
		t.Fatalf("LoadChunk: %v", err)
	}
	m, ok := s.MaterialAt(1, -4, 2)
	if !ok || m != finder.Material(testPal.Bedrock) {
		t.Fatalf("MaterialAt bottom = %d,%v want bedrock", m, ok)
	}
	if m, ok := s.MaterialAt(1, 500, 2); !ok || m != finder.Material(testPal.Air) {
		t.Fatalf("above world = %d,%v want air/loaded", m, ok)
	}
	if _, ok := s.MaterialAt(-1, 0, 0); ok {
		t.Fatalf("neighbour chunk -1,0 should be unloaded")
	}
	if s.MinElevation() != -4 || s.MaxElevation() != 76 {
		t.Fatalf("elevation=%d..%d", s.MinElevation(), s.MaxElevation())
	}
}

func TestSetBlockMarksDirty(t *testing.T) {
	s := testStore()
	ch, _ := s.LoadChunk(-1, 0)
	ch.MarkClean()
	if !s.SetBlock(-3, 10, 2, testPal.CobbledDeepslate) {
		t.Fatalf("SetBlock on loaded chunk failed")
	}
	if got := s.GetBlock(-3, 10, 2); got != testPal.CobbledDeepslate {
		t.Fatalf("GetBlock=%d", got)
	}
	if !ch.Dirty() {
		t.Fatalf("chunk not dirty after edit")
	}
	if s.SetBlock(100, 10, 0, testPal.Stone) {
		t.Fatalf("SetBlock on unloaded chunk succeeded")
	}
	if s.SetBlock(-3, 200, 2, testPal.Stone) {
		t.Fatalf("SetBlock above world succeeded")
	}
}

func TestWantedOrder(t *testing.T) {
	got := Wanted(ChunkKey{CX: 5, CZ: 5}, 1)
	if len(got) != 9 {
		t.Fatalf("len=%d want 9", len(got))
	}
	if got[0] != (ChunkKey{CX: 5, CZ: 5}) {
		t.Fatalf("center must come first: %+v", got[0])
	}
	want := []ChunkKey{{4, 5}, {5, 4}, {5, 6}, {6, 5}}
	if diff := cmp.Diff(want, got[1:5]); diff != "" {
		t.Fatalf("ring 1 mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadAroundBudgetAndUnload(t *testing.T) {
	s := testStore()
	st, err := s.LoadAround(ChunkKey{}, 2, 10)
	if err != nil {
		t.Fatalf("LoadAround: %v", err)
	}
	if st.Loaded != 10 || st.Pending != 15 {
		t.Fatalf("stats=%+v", st)
	}
	st, _ = s.LoadAround(ChunkKey{}, 2, 0)
	if st.Loaded != 15 || len(s.Chunks) != 25 {
		t.Fatalf("stats=%+v loaded=%d", st, len(s.Chunks))
	}

	st, _ = s.LoadAround(ChunkKey{CX: 10}, 2, 0)
	if st.Unloaded != 25 || len(s.Chunks) != 25 {
		t.Fatalf("after move stats=%+v loaded=%d", st, len(s.Chunks))
	}
	if s.Loaded(0, 0) || !s.Loaded(10, 0) {
		t.Fatalf("wrong chunks resident")
	}
}

func TestBackingRoundTrip(t *testing.T) {
	b := &memBacking{chunks: map[ChunkKey]*Chunk{}}
	s := testStore()
	s.Backing = b

	s.LoadChunk(0, 0)
	s.SetBlock(1, 1, 1, testPal.CrackedDeepslate)
	if err := s.Unload(0, 0); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if diff := cmp.Diff([]ChunkKey{{0, 0}}, b.saved); diff != "" {
		t.Fatalf("saved mismatch (-want +got):\n%s", diff)
	}

	s2 := testStore()
	s2.Backing = b
	if _, err := s2.LoadChunk(0, 0); err != nil {
		t.Fatalf("LoadChunk: %v", err)
	}
	if got := s2.GetBlock(1, 1, 1); got != testPal.CrackedDeepslate {
		t.Fatalf("edit lost across backing: %d", got)
	}
	if err := s2.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(b.saved) != 1 {
		t.Fatalf("clean chunk saved again: %v", b.saved)
	}
}

func TestBackingErrorFallsBackToGenerate(t *testing.T) {
	boom := errors.New("disk gone")
	s := testStore()
	s.Backing = &memBacking{chunks: map[ChunkKey]*Chunk{}, loadErr: boom}
	ch, err := s.LoadChunk(3, 3)
	if !errors.Is(err, boom) {
		t.Fatalf("expected backing error, got %v", err)
	}
	if ch == nil || !s.Loaded(3, 3) {
		t.Fatalf("chunk not generated after backing error")
	}
}

func TestPutRejectsShapeMismatch(t *testing.T) {
	s := testStore()
	if err := s.Put(NewChunk(0, 0, 16, -4, 80)); err == nil {
		t.Fatalf("expected size mismatch error")
	}
	bad := NewChunk(0, 0, 4, -4, 80)
	bad.Blocks = bad.Blocks[:10]
	if err := s.Put(bad); err == nil {
		t.Fatalf("expected blocks length error")
	}
}

func TestDigestTracksContent(t *testing.T) {
	s := testStore()
	ch, _ := s.LoadChunk(0, 0)
	before := ch.Digest()
	ch.Set(0, 0, 0, testPal.Water)
	if ch.Digest() == before {
		t.Fatalf("digest unchanged after edit")
	}
}
