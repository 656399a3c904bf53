package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

type Catalogs struct {
	Blocks BlockCatalog
	Items  ItemCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	Tags          map[string]map[string]struct{} // tag -> block ids
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID        string   `json:"id"`
	Solid     bool     `json:"solid"`
	Container bool     `json:"container,omitempty"`
	Slots     int      `json:"slots,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

type ItemCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID   string `json:"id"`
	Kind string `json:"kind"` // "BLOCK","MATERIAL","TOOL"
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	return &c, nil
}

// HasTag reports whether block id carries tag.
func (b *BlockCatalog) HasTag(id, tag string) bool {
	ids := b.Tags[tag]
	if ids == nil {
		return false
	}
	_, ok := ids[id]
	return ok
}

func (b *BlockCatalog) Known(id string) bool {
	_, ok := b.Defs[id]
	return ok
}

func (i *ItemCatalog) Known(id string) bool {
	_, ok := i.Defs[id]
	return ok
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// FromDefs builds catalogs from already parsed definitions.
func FromDefs(blocks []BlockDef, items []ItemDef) (*Catalogs, error) {
	var c Catalogs
	if err := buildBlocks(blocks, &c.Blocks); err != nil {
		return nil, err
	}
	if err := buildItems(items, &c.Items); err != nil {
		return nil, err
	}
	return &c, nil
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	if err := buildBlocks(defs, out); err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)
	return nil
}

func buildBlocks(defs []BlockDef, out *BlockCatalog) error {
	out.Defs = map[string]BlockDef{}
	out.Tags = map[string]map[string]struct{}{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		if d.Container && d.Slots <= 0 {
			return fmt.Errorf("blocks.json: container %s needs slots", d.ID)
		}
		out.Defs[d.ID] = d
		for _, tag := range d.Tags {
			m := out.Tags[tag]
			if m == nil {
				m = map[string]struct{}{}
				out.Tags[tag] = m
			}
			m[d.ID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Ensure AIR exists and is palette id 0.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	if out.DefsDigest == "" {
		defsJSON, _ := json.Marshal(defs)
		out.DefsDigest = sha256Hex(defsJSON)
	}
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	if err := buildItems(defs, out); err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)
	return nil
}

func buildItems(defs []ItemDef, out *ItemCatalog) error {
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	if out.DefsDigest == "" {
		defsJSON, _ := json.Marshal(defs)
		out.DefsDigest = sha256Hex(defsJSON)
	}
	return nil
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
