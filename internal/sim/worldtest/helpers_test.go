package worldtest

import (
	"testing"

	"lapiswarps.ai/internal/protocol"
	"lapiswarps.ai/internal/sim/catalogs"
	"lapiswarps.ai/internal/sim/tuning"
	"lapiswarps.ai/internal/sim/voxel"
	"lapiswarps.ai/internal/sim/warps"
	world "lapiswarps.ai/internal/sim/world"
)

var (
	anchorA = voxel.Vec3i{X: 0, Y: 64, Z: 0}
	anchorB = voxel.Vec3i{X: 10, Y: 64, Z: 0}
	anchorC = voxel.Vec3i{X: 20, Y: 64, Z: 0}
)

func testConfig(lightning bool) world.WorldConfig {
	return world.WorldConfig{
		ID:         "test",
		TickRateHz: 20,
		Seed:       42,
		Spawn:      voxel.Vec3i{X: 5, Y: 64, Z: 5},
		Rules:      tuning.Rules{LapisWarpsCreateLightning: tuning.Bool(lightning)},
	}
}

func loadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func onlyEvent(t *testing.T, msg protocol.EventMsg, typ string) protocol.Event {
	t.Helper()
	evs := EventsOfType(msg, typ)
	if len(evs) != 1 {
		t.Fatalf("want one %s event, got %d: %+v", typ, len(evs), msg.Events)
	}
	return evs[0]
}

func posOf(t *testing.T, e protocol.Event, key string) voxel.Vec3i {
	t.Helper()
	raw, ok := e[key].([]any)
	if !ok || len(raw) != 3 {
		t.Fatalf("event %v: bad %s", e, key)
	}
	var out [3]int
	for i, v := range raw {
		f, ok := v.(float64)
		if !ok {
			t.Fatalf("event %v: bad %s", e, key)
		}
		out[i] = int(f)
	}
	return voxel.FromArray(out)
}

type warpRecorder struct {
	entries []world.WarpLogEntry
}

func (r *warpRecorder) WriteWarp(e world.WarpLogEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func frameFor(anchor voxel.Vec3i, doorFacing voxel.Direction) [8]voxel.Vec3i {
	return warps.FrameOffsets(anchor, doorFacing.Opposite())
}
