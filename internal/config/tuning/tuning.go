package tuning

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"chunkfinder.ai/internal/finder"
)

type Tuning struct {
	TickRateHz     int `yaml:"tick_rate_hz" env:"CHUNKFINDER_TICK_RATE_HZ"`
	FrameRateHz    int `yaml:"frame_rate_hz" env:"CHUNKFINDER_FRAME_RATE_HZ"`
	ScanEveryTicks int `yaml:"scan_every_ticks" env:"CHUNKFINDER_SCAN_EVERY_TICKS"`

	ColumnSize int      `yaml:"column_size" env:"CHUNKFINDER_COLUMN_SIZE"`
	ScanRadius int      `yaml:"scan_radius" env:"CHUNKFINDER_SCAN_RADIUS"`
	ScanBand   Band     `yaml:"scan_band"`
	Targets    []string `yaml:"targets" env:"CHUNKFINDER_TARGETS" envSeparator:","`
	Debug      bool     `yaml:"debug" env:"CHUNKFINDER_DEBUG"`

	World WorldGen `yaml:"world"`
	Style Style    `yaml:"style"`

	PoseRateHz int `yaml:"pose_rate_hz" env:"CHUNKFINDER_POSE_RATE_HZ"`
}

type Band struct {
	MinY int `yaml:"min_y" env:"CHUNKFINDER_SCAN_MIN_Y"`
	MaxY int `yaml:"max_y" env:"CHUNKFINDER_SCAN_MAX_Y"`
}

// WorldGen configures the reference world used when no chunk database is supplied.
type WorldGen struct {
	Seed       int64 `yaml:"seed" env:"CHUNKFINDER_WORLD_SEED"`
	MinY       int   `yaml:"min_y"`
	Height     int   `yaml:"height"`
	LoadRadius int   `yaml:"load_radius" env:"CHUNKFINDER_WORLD_LOAD_RADIUS"`

	PocketGrid         int `yaml:"pocket_grid"`
	PocketRadius       int `yaml:"pocket_radius"`
	PocketProbPermille int `yaml:"pocket_prob_permille"`
}

type Style struct {
	Fill    [4]float32 `yaml:"fill"`
	Outline [4]float32 `yaml:"outline"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:     20,
		FrameRateHz:    30,
		ScanEveryTicks: 20,
		ColumnSize:     16,
		ScanRadius:     8,
		ScanBand:       Band{MinY: 0, MaxY: 64},
		Targets:        []string{"DEEPSLATE", "COBBLED_DEEPSLATE", "CRACKED_DEEPSLATE"},
		World: WorldGen{
			Seed:               1337,
			MinY:               -64,
			Height:             384,
			LoadRadius:         9,
			PocketGrid:         64,
			PocketRadius:       6,
			PocketProbPermille: 350,
		},
		Style: Style{
			Fill:    [4]float32{0, 1, 0, 0.25},
			Outline: [4]float32{0, 1, 0, 0.9},
		},
		PoseRateHz: 30,
	}
}

// Load reads path on top of Defaults and then applies CHUNKFINDER_* environment
// overrides. The result is validated.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := ApplyEnv(&t); err != nil {
		return t, err
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func ApplyEnv(t *Tuning) error {
	if err := env.Parse(t); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (t Tuning) Geometry() finder.Geometry {
	return finder.Geometry{
		ColumnSize: t.ColumnSize,
		Band:       finder.Band{MinY: t.ScanBand.MinY, MaxY: t.ScanBand.MaxY},
	}
}

func (t Tuning) Validate() error {
	var errs []error
	if err := t.Geometry().Validate(); err != nil {
		errs = append(errs, err)
	}
	if t.ScanRadius <= 0 {
		errs = append(errs, fmt.Errorf("%w: got %d", finder.ErrBadRadius, t.ScanRadius))
	}
	if len(t.Targets) == 0 {
		errs = append(errs, finder.ErrEmptyTargets)
	}
	if t.TickRateHz <= 0 || t.FrameRateHz <= 0 || t.PoseRateHz <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate_hz, frame_rate_hz and pose_rate_hz must be positive"))
	}
	if t.ScanEveryTicks <= 0 {
		errs = append(errs, fmt.Errorf("scan_every_ticks must be positive"))
	}
	if t.World.Height <= 0 {
		errs = append(errs, fmt.Errorf("world.height must be positive"))
	}
	return errors.Join(errs...)
}
