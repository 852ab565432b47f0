package host

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"chunkfinder.ai/internal/finder"
	"chunkfinder.ai/internal/finder/scan"
	persistlog "chunkfinder.ai/internal/persistence/log"
	"chunkfinder.ai/internal/world/terrain/store"
)

type ScanTrace interface {
	WriteScan(persistlog.ScanEntry) error
}

type Config struct {
	TickRateHz     int
	ScanEveryTicks int
	// LoadRadius is the chunk radius kept resident around the observer.
	LoadRadius int
	// LoadBudget caps chunks loaded per tick; 0 means unlimited.
	LoadBudget int
}

// Runtime drives the host world and the scanner on the tick cadence. Everything it
// owns except the tick counter is touched only from the goroutine running Run (or
// calling Step).
type Runtime struct {
	cfg      Config
	world    *store.ChunkStore
	scanner  *scan.Scanner
	observer *Observer
	trace    ScanTrace
	log      *log.Logger

	tick      atomic.Uint64
	lastStats scan.Stats
}

func NewRuntime(cfg Config, world *store.ChunkStore, scanner *scan.Scanner, observer *Observer, trace ScanTrace, logger *log.Logger) *Runtime {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	if cfg.ScanEveryTicks <= 0 {
		cfg.ScanEveryTicks = 1
	}
	return &Runtime{
		cfg:      cfg,
		world:    world,
		scanner:  scanner,
		observer: observer,
		trace:    trace,
		log:      logger,
	}
}

func (r *Runtime) Scanner() *scan.Scanner { return r.scanner }
func (r *Runtime) CurrentTick() uint64    { return r.tick.Load() }
func (r *Runtime) LastStats() scan.Stats  { return r.lastStats }

// Run ticks until ctx is done, then flushes dirty chunks.
func (r *Runtime) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(r.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := r.world.Flush(); err != nil {
				r.logf("flush chunks: %v", err)
			}
			return ctx.Err()
		case <-ticker.C:
			r.Step()
		}
	}
}

// Step advances one tick: keeps chunks streamed around the observer and runs a scan
// pass every ScanEveryTicks ticks.
func (r *Runtime) Step() {
	tick := r.tick.Add(1)

	if pos, ok := r.observer.CurrentPosition(); ok {
		if center, ok := finder.ColumnOf(pos.X, pos.Z, r.world.Size); ok {
			if _, err := r.world.LoadAround(store.ChunkKey{CX: center.CX, CZ: center.CZ}, r.cfg.LoadRadius, r.cfg.LoadBudget); err != nil {
				r.logf("tick=%d stream chunks: %v", tick, err)
			}
		}
	}

	if tick%uint64(r.cfg.ScanEveryTicks) != 0 {
		return
	}
	st := r.scanner.Scan()
	r.lastStats = st
	if r.trace != nil {
		if err := r.trace.WriteScan(persistlog.EntryFromStats(tick, st)); err != nil {
			r.logf("tick=%d scan trace: %v", tick, err)
		}
	}
}

func (r *Runtime) logf(format string, args ...any) {
	if r.log != nil {
		r.log.Printf(format, args...)
	}
}
