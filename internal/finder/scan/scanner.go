package scan

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"chunkfinder.ai/internal/finder"
)

type Config struct {
	Geometry finder.Geometry
	Targets  finder.TargetSet

	Logger *log.Logger
	// Debug logs per-pass counts of columns skipped because they were not loaded.
	Debug bool
}

func (c Config) Validate() error {
	if err := c.Geometry.Validate(); err != nil {
		return err
	}
	if c.Targets.Len() == 0 {
		return finder.ErrEmptyTargets
	}
	return nil
}

// Stats describes one Scan call.
type Stats struct {
	Generation uint64
	Skipped    bool // no observer position; nothing was published
	Center     finder.ColumnKey
	Radius     int
	Band       finder.Band

	ColumnsVisited  int
	ColumnsUnloaded int
	VoxelsExamined  int
	Matches         int
	Duration        time.Duration
}

// Scanner walks the columns around the observer and publishes the set of columns
// holding at least one target material. Scan is meant to be called from a single
// goroutine; Current may be called from any goroutine at any time.
type Scanner struct {
	cfg      Config
	world    finder.WorldQuery
	observer finder.ObserverQuery
	log      *log.Logger

	gen       atomic.Uint64
	published atomic.Pointer[MatchSet]
}

func New(cfg Config, world finder.WorldQuery, observer finder.ObserverQuery) (*Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if world == nil || observer == nil {
		return nil, fmt.Errorf("scan: world and observer are required")
	}
	s := &Scanner{
		cfg:      cfg,
		world:    world,
		observer: observer,
		log:      cfg.Logger,
	}
	s.published.Store(emptyMatchSet())
	return s, nil
}

// Current returns the most recently published match set. It is never nil.
func (s *Scanner) Current() *MatchSet {
	return s.published.Load()
}

// Scan runs one full pass. Without an observer position, or with one whose column
// cannot be represented, it returns immediately and the previous match set stays
// published.
func (s *Scanner) Scan() Stats {
	pos, ok := s.observer.CurrentPosition()
	if !ok {
		return Stats{Skipped: true, Generation: s.gen.Load()}
	}
	size := s.cfg.Geometry.ColumnSize
	center, ok := finder.ColumnOf(pos.X, pos.Z, size)
	if !ok {
		if s.cfg.Debug && s.log != nil {
			s.log.Printf("scan: observer position %v,%v is off the grid; keeping gen=%d", pos.X, pos.Z, s.gen.Load())
		}
		return Stats{Skipped: true, Generation: s.gen.Load()}
	}
	start := time.Now()

	r := s.observer.ScanRadius()
	if r < 0 {
		r = 0
	}
	band := s.cfg.Geometry.Band.Clamp(s.world.MinElevation(), s.world.MaxElevation())

	st := Stats{Center: center, Radius: r, Band: band}
	working := make(map[finder.ColumnKey]struct{})
	for cx := center.CX - r; cx <= center.CX+r; cx++ {
		for cz := center.CZ - r; cz <= center.CZ+r; cz++ {
			k := finder.ColumnKey{CX: cx, CZ: cz}
			st.ColumnsVisited++
			match, loaded := s.containsTarget(k, band, &st)
			if !loaded {
				st.ColumnsUnloaded++
				continue
			}
			if match {
				working[k] = struct{}{}
			}
		}
	}

	st.Generation = s.gen.Add(1)
	st.Matches = len(working)
	s.published.Store(&MatchSet{
		Generation: st.Generation,
		Center:     center,
		Radius:     r,
		cols:       working,
	})
	st.Duration = time.Since(start)

	if s.cfg.Debug && s.log != nil && st.ColumnsUnloaded > 0 {
		s.log.Printf("scan gen=%d center=%d,%d: skipped %d unloaded columns", st.Generation, center.CX, center.CZ, st.ColumnsUnloaded)
	}
	return st
}

// containsTarget stops at the first target voxel. loaded is false when the column's
// data is not resident, in which case match is always false.
func (s *Scanner) containsTarget(k finder.ColumnKey, band finder.Band, st *Stats) (match, loaded bool) {
	size := s.cfg.Geometry.ColumnSize
	x0 := k.CX * size
	z0 := k.CZ * size
	for dx := 0; dx < size; dx++ {
		for dz := 0; dz < size; dz++ {
			for y := band.MinY; y <= band.MaxY; y++ {
				m, ok := s.world.MaterialAt(x0+dx, y, z0+dz)
				if !ok {
					return false, false
				}
				st.VoxelsExamined++
				if s.cfg.Targets.Has(m) {
					return true, true
				}
			}
		}
	}
	return false, true
}
