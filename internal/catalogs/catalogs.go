package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"chunkfinder.ai/internal/finder"
)

type Catalogs struct {
	Blocks BlockCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID    string `json:"id"`
	Solid bool   `json:"solid"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return parseBlocks(raw, out)
}

func parseBlocks(raw []byte, out *BlockCatalog) error {
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("blocks.json: duplicate id %q", d.ID)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		if id != "AIR" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	// AIR is always palette id 0.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids = append([]string{"AIR"}, ids...)
	if len(ids) > 1<<16 {
		return fmt.Errorf("blocks.json: %d blocks exceed palette capacity", len(ids))
	}

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

// ID returns the palette id of a block name; names are matched case-insensitively.
func (b *BlockCatalog) ID(name string) (uint16, bool) {
	id, ok := b.Index[strings.ToUpper(strings.TrimSpace(name))]
	return id, ok
}

// Targets resolves configured block names into a target set.
func (b *BlockCatalog) Targets(names []string) (finder.TargetSet, error) {
	ids := make([]finder.Material, 0, len(names))
	var unknown []string
	for _, n := range names {
		id, ok := b.ID(n)
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		ids = append(ids, finder.Material(id))
	}
	if len(unknown) > 0 {
		return finder.TargetSet{}, fmt.Errorf("%w: %s", finder.ErrUnknownTargets, strings.Join(unknown, ", "))
	}
	return finder.NewTargetSet(ids...)
}
