package multiworld

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_WorldsYAML(t *testing.T) {
	cfg, err := Load("../../../configs/worlds.yaml")
	if err != nil {
		t.Fatalf("load worlds.yaml: %v", err)
	}
	if cfg.DefaultWorldID != "OVERWORLD" {
		t.Fatalf("default world: %q", cfg.DefaultWorldID)
	}
	nether, ok := cfg.WorldSpecByID("NETHER")
	if !ok {
		t.Fatalf("NETHER missing")
	}
	if nether.Rules.LapisWarpsCreateLightning == nil || *nether.Rules.LapisWarpsCreateLightning {
		t.Fatalf("NETHER should disable lightning: %+v", nether.Rules)
	}
	over, _ := cfg.WorldSpecByID("OVERWORLD")
	if over.Rules.LapisWarpsCreateLightning != nil {
		t.Fatalf("OVERWORLD should inherit the tuning rule")
	}
	if over.Spawn == nil || *over.Spawn != [3]int{0, 64, 0} {
		t.Fatalf("default spawn: %v", over.Spawn)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Worlds) != 1 || cfg.DefaultWorldID != "OVERWORLD" {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestConfigValidate_Rejects(t *testing.T) {
	cases := map[string]string{
		"duplicate":    "default_world_id: A\nworlds:\n  - id: A\n  - id: A\n",
		"missing":      "default_world_id: Z\nworlds:\n  - id: A\n",
		"path":         "worlds:\n  - id: ../A\n",
		"empty worlds": "default_world_id: A\nworlds: []\n",
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), "worlds.yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
