package host

import (
	"fmt"
	"log"
	"strings"

	"chunkfinder.ai/internal/catalogs"
	"chunkfinder.ai/internal/config/tuning"
	"chunkfinder.ai/internal/finder"
	"chunkfinder.ai/internal/finder/overlay"
	"chunkfinder.ai/internal/finder/scan"
	"chunkfinder.ai/internal/overlayproto"
	"chunkfinder.ai/internal/world/terrain/gen"
	"chunkfinder.ai/internal/world/terrain/store"
)

func PaletteFrom(b *catalogs.BlockCatalog) (gen.Palette, error) {
	var missing []string
	id := func(name string) uint16 {
		v, ok := b.ID(name)
		if !ok {
			missing = append(missing, name)
		}
		return v
	}
	pal := gen.Palette{
		Air:              id("AIR"),
		Bedrock:          id("BEDROCK"),
		Deepslate:        id("DEEPSLATE"),
		CobbledDeepslate: id("COBBLED_DEEPSLATE"),
		CrackedDeepslate: id("CRACKED_DEEPSLATE"),
		DeepslateIronOre: id("DEEPSLATE_IRON_ORE"),
		Stone:            id("STONE"),
		Gravel:           id("GRAVEL"),
		CoalOre:          id("COAL_ORE"),
		IronOre:          id("IRON_ORE"),
		Dirt:             id("DIRT"),
		Grass:            id("GRASS"),
		Water:            id("WATER"),
	}
	if len(missing) > 0 {
		return pal, fmt.Errorf("blocks.json: missing %s", strings.Join(missing, ", "))
	}
	return pal, nil
}

// NewWorld builds the reference host world described by t.
func NewWorld(t tuning.Tuning, b *catalogs.BlockCatalog) (*store.ChunkStore, error) {
	pal, err := PaletteFrom(b)
	if err != nil {
		return nil, err
	}
	return store.NewChunkStore(store.WorldGen{
		Params: gen.Params{
			Seed:               t.World.Seed,
			MinY:               t.World.MinY,
			Height:             t.World.Height,
			PocketGrid:         t.World.PocketGrid,
			PocketRadius:       t.World.PocketRadius,
			PocketProbPermille: t.World.PocketProbPermille,
		},
		Palette: pal,
	}, t.ColumnSize), nil
}

func NewScanner(t tuning.Tuning, b *catalogs.BlockCatalog, world finder.WorldQuery, observer finder.ObserverQuery, logger *log.Logger) (*scan.Scanner, error) {
	targets, err := b.Targets(t.Targets)
	if err != nil {
		return nil, err
	}
	return scan.New(scan.Config{
		Geometry: t.Geometry(),
		Targets:  targets,
		Logger:   logger,
		Debug:    t.Debug,
	}, world, observer)
}

func Style(t tuning.Tuning) overlay.Style {
	rgba := func(c [4]float32) overlay.RGBA {
		return overlay.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
	}
	return overlay.Style{Fill: rgba(t.Style.Fill), Outline: rgba(t.Style.Outline)}
}

// BootstrapInfo is the static part of the overlay bootstrap response.
func BootstrapInfo(t tuning.Tuning, b *catalogs.BlockCatalog, world finder.Elevation) overlayproto.BootstrapResponse {
	targets := make([]string, len(t.Targets))
	for i, name := range t.Targets {
		targets[i] = strings.ToUpper(strings.TrimSpace(name))
	}
	return overlayproto.BootstrapResponse{
		ProtocolVersion: overlayproto.Version,
		ColumnSize:      t.ColumnSize,
		ScanRadius:      t.ScanRadius,
		ScanBand:        [2]int{t.ScanBand.MinY, t.ScanBand.MaxY},
		Elevation:       [2]int{world.MinElevation(), world.MaxElevation()},
		Targets:         targets,
		BlockPalette:    append([]string(nil), b.Palette...),
	}
}
