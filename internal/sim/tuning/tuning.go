package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int   `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int   `yaml:"snapshot_every_ticks"`
	Seed               int64 `yaml:"seed"`

	Rules Rules `yaml:"rules"`
}

// Rules are the per-world game rules. Unset rules take their default.
type Rules struct {
	LapisWarpsCreateLightning *bool `yaml:"lapis_warps_create_lightning,omitempty"`
}

// CreateLightning defaults to true.
func (r Rules) CreateLightning() bool {
	if r.LapisWarpsCreateLightning == nil {
		return true
	}
	return *r.LapisWarpsCreateLightning
}

// Merge returns r with every rule set in o taking precedence.
func (r Rules) Merge(o Rules) Rules {
	if o.LapisWarpsCreateLightning != nil {
		v := *o.LapisWarpsCreateLightning
		r.LapisWarpsCreateLightning = &v
	}
	return r
}

func Bool(v bool) *bool { return &v }

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         20,
		SnapshotEveryTicks: 6000,
		Seed:               1337,
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 || t.TickRateHz > 1000 {
		return fmt.Errorf("tick_rate_hz out of range: %d", t.TickRateHz)
	}
	if t.SnapshotEveryTicks < 0 {
		return fmt.Errorf("snapshot_every_ticks must be >= 0")
	}
	return nil
}
