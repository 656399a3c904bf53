package multiworld

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"lapiswarps.ai/internal/sim/tuning"
)

type Config struct {
	DefaultWorldID string      `yaml:"default_world_id"`
	Worlds         []WorldSpec `yaml:"worlds"`
}

type WorldSpec struct {
	ID         string `yaml:"id"`
	SeedOffset int64  `yaml:"seed_offset"`
	// Spawn defaults to (0, 64, 0).
	Spawn *[3]int `yaml:"spawn,omitempty"`
	// Rules override the tuning.yaml rules for this world only.
	Rules tuning.Rules `yaml:"rules,omitempty"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	cfg = Config{}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("worlds.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("worlds.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		DefaultWorldID: "OVERWORLD",
		Worlds:         []WorldSpec{{ID: "OVERWORLD"}},
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	for i := range c.Worlds {
		c.Worlds[i].ID = strings.TrimSpace(c.Worlds[i].ID)
		if c.Worlds[i].Spawn == nil {
			c.Worlds[i].Spawn = &[3]int{0, 64, 0}
		}
	}
	c.DefaultWorldID = strings.TrimSpace(c.DefaultWorldID)
	if c.DefaultWorldID == "" && len(c.Worlds) > 0 {
		c.DefaultWorldID = c.Worlds[0].ID
	}
}

func (c Config) Validate() error {
	if len(c.Worlds) == 0 {
		return fmt.Errorf("worlds must not be empty")
	}
	seen := map[string]bool{}
	for _, w := range c.Worlds {
		if strings.TrimSpace(w.ID) == "" {
			return fmt.Errorf("world id must not be empty")
		}
		if strings.ContainsAny(w.ID, `/\.`) {
			return fmt.Errorf("world id %q: must not contain path separators or dots", w.ID)
		}
		if seen[w.ID] {
			return fmt.Errorf("duplicate world id: %s", w.ID)
		}
		seen[w.ID] = true
	}
	if c.DefaultWorldID == "" {
		return fmt.Errorf("default_world_id must not be empty")
	}
	if !seen[c.DefaultWorldID] {
		return fmt.Errorf("default_world_id %q not found in worlds", c.DefaultWorldID)
	}
	return nil
}

// Manifest lists world ids in config order.
func (c Config) Manifest() []string {
	out := make([]string, 0, len(c.Worlds))
	for _, w := range c.Worlds {
		out = append(out, w.ID)
	}
	return out
}

func (c Config) WorldSpecByID(id string) (WorldSpec, bool) {
	for _, w := range c.Worlds {
		if w.ID == id {
			return w, true
		}
	}
	return WorldSpec{}, false
}
