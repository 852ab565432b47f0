package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"chunkfinder.ai/internal/catalogs"
	"chunkfinder.ai/internal/config/tuning"
	"chunkfinder.ai/internal/finder"
	"chunkfinder.ai/internal/finder/overlay"
	"chunkfinder.ai/internal/host"
	"chunkfinder.ai/internal/logic/mathx"
	"chunkfinder.ai/internal/persistence/chunkdb"
	persistlog "chunkfinder.ai/internal/persistence/log"
	"chunkfinder.ai/internal/transport/overlayws"
)

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "keep chunks in memory only (no sqlite chunk store)")
		noTrace    = flag.Bool("disable_scan_log", false, "do not write the scan trace")
		loadBudget = flag.Int("load_budget", 16, "max chunks loaded per tick (0 = unlimited)")
		observerAt = flag.String("observer", "", "initial observer position x,y,z (optional; clients may move it)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[chunkfinder] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
		if err := tuning.ApplyEnv(&tune); err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
		if err := tune.Validate(); err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
	}
	if tune.World.LoadRadius < tune.ScanRadius {
		logger.Printf("world.load_radius=%d < scan_radius=%d; outer columns will always be skipped as unloaded", tune.World.LoadRadius, tune.ScanRadius)
	}

	world, err := host.NewWorld(tune, &cats.Blocks)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	if !*disableDB {
		db, err := chunkdb.Open(filepath.Join(*dataDir, "chunks.sqlite"))
		if err != nil {
			logger.Fatalf("open chunk db: %v", err)
		}
		defer db.Close()
		world.Backing = db
		if n, err := db.Count(context.Background()); err == nil {
			logger.Printf("chunk db: %d stored chunks", n)
		}
	}

	observer := host.NewObserver(tune.ScanRadius)
	if s := strings.TrimSpace(*observerAt); s != "" {
		pos, err := parseVec3(s)
		if err != nil {
			logger.Fatalf("-observer: %v", err)
		}
		observer.Set(pos)
	}

	scanner, err := host.NewScanner(tune, &cats.Blocks, world, observer, logger)
	if err != nil {
		logger.Fatalf("scanner: %v", err)
	}

	var trace host.ScanTrace
	if !*noTrace {
		scanLog := persistlog.NewScanLogger(*dataDir)
		defer scanLog.Close()
		trace = scanLog
	}

	rt := host.NewRuntime(host.Config{
		TickRateHz:     tune.TickRateHz,
		ScanEveryTicks: tune.ScanEveryTicks,
		LoadRadius:     tune.World.LoadRadius,
		LoadBudget:     *loadBudget,
	}, world, scanner, observer, trace, logger)

	style := host.Style(tune)
	ovSrv, err := overlayws.NewServer(scanner, observer, rt, overlay.Projector{ColumnSize: tune.ColumnSize, World: world}, overlayws.Options{
		FrameRateHz: tune.FrameRateHz,
		PoseRateHz:  tune.PoseRateHz,
		Style:       style,
		Info:        host.BootstrapInfo(tune, &cats.Blocks, world),
	}, logger)
	if err != nil {
		logger.Fatalf("overlay server: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		set := scanner.Current()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP chunkfinder_tick Current host tick.\n")
		fmt.Fprintf(rw, "# TYPE chunkfinder_tick gauge\n")
		fmt.Fprintf(rw, "chunkfinder_tick %d\n", rt.CurrentTick())

		fmt.Fprintf(rw, "# HELP chunkfinder_scan_generation Generation of the published match set.\n")
		fmt.Fprintf(rw, "# TYPE chunkfinder_scan_generation counter\n")
		fmt.Fprintf(rw, "chunkfinder_scan_generation %d\n", set.Generation)

		fmt.Fprintf(rw, "# HELP chunkfinder_matched_columns Columns in the published match set.\n")
		fmt.Fprintf(rw, "# TYPE chunkfinder_matched_columns gauge\n")
		fmt.Fprintf(rw, "chunkfinder_matched_columns %d\n", set.Len())
	})
	mux.HandleFunc("/overlay/v1/bootstrap", ovSrv.BootstrapHandler())
	mux.HandleFunc("/overlay/v1/ws", ovSrv.WSHandler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := rt.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("runtime: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		return srv.Shutdown(ctx2)
	})
	g.Go(func() error {
		logger.Printf("listening on %s (scan radius=%d band=[%d,%d] targets=%s)", *addr, tune.ScanRadius, tune.ScanBand.MinY, tune.ScanBand.MaxY, strings.Join(tune.Targets, ","))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ListenAndServe: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Printf("stopped: %v", err)
		return
	}
	logger.Printf("stopped")
}

func parseVec3(s string) (finder.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return finder.Vec3{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return finder.Vec3{}, fmt.Errorf("component %d: %w", i, err)
		}
		v[i] = f
	}
	pos := finder.Vec3{X: v[0], Y: v[1], Z: v[2]}
	if !pos.Valid() {
		return finder.Vec3{}, fmt.Errorf("%q is not a finite position within ±%d", s, int64(mathx.MaxCoordinate))
	}
	return pos, nil
}
