package main

import (
	"path/filepath"
	"testing"

	persistlog "lapiswarps.ai/internal/persistence/log"
	"lapiswarps.ai/internal/protocol"
	"lapiswarps.ai/internal/sim/tuning"
	"lapiswarps.ai/internal/sim/voxel"
	"lapiswarps.ai/internal/sim/world"
	"lapiswarps.ai/internal/sim/worldtest"
)

func TestReplay_ReproducesDigests(t *testing.T) {
	cats := worldtest.DefaultCatalogs(t)
	cfg := world.WorldConfig{
		ID:         "OVERWORLD",
		TickRateHz: 20,
		Seed:       99,
		Spawn:      voxel.Vec3i{X: 0, Y: 64, Z: 0},
		Rules:      tuning.Rules{LapisWarpsCreateLightning: tuning.Bool(false)},
	}

	live, err := world.New(cfg, cats, nil, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	live.StepOnce(nil, nil, nil)
	base := live.ExportSnapshot(0)

	worldDir := t.TempDir()
	ticks := persistlog.NewTickLogger(worldDir)
	live.SetTickSink(ticks)

	h := worldtest.NewHarnessWithWorld(t, live, cats, "walker")
	a := voxel.Vec3i{X: 0, Y: 64, Z: 10}
	b := voxel.Vec3i{X: 10, Y: 64, Z: 10}
	c := voxel.Vec3i{X: 20, Y: 64, Z: 10}
	for _, p := range []voxel.Vec3i{a, b, c} {
		h.BuildPortal(p, voxel.North, "LAPIS_BLOCK", nil)
	}
	h.UseDoor(b, 0)
	h.UseDoor(c, 0)
	warped := 0
	for i := 0; i < 6; i++ {
		warped += len(worldtest.EventsOfType(h.UseDoor(a, 0), protocol.EventWarp))
		h.UseDoor(a, 0)
	}
	if warped != 6 {
		t.Fatalf("warped=%d want 6", warped)
	}
	_ = ticks.Close()

	w2, err := world.New(cfg, cats, nil, nil)
	if err != nil {
		t.Fatalf("world2: %v", err)
	}
	if err := w2.ImportSnapshot(base); err != nil {
		t.Fatalf("import: %v", err)
	}
	checked, err := replay(w2, filepath.Join(worldDir, "events"), 0)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked < 15 {
		t.Fatalf("checked=%d ticks", checked)
	}
	if w2.CurrentTick() != live.CurrentTick() {
		t.Fatalf("tick=%d want %d", w2.CurrentTick(), live.CurrentTick())
	}
}
