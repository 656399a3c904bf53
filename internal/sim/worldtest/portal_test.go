package worldtest

import (
	"testing"

	"lapiswarps.ai/internal/protocol"
	"lapiswarps.ai/internal/sim/voxel"
	"lapiswarps.ai/internal/sim/warps"
)

func TestPortal_PairAndWarp(t *testing.T) {
	h := NewHarness(t, testConfig(true), loadCatalogs(t), "walker")
	rec := &warpRecorder{}
	h.W.AddWarpSink(rec)

	h.BuildPortal(anchorA, voxel.North, "LAPIS_BLOCK", nil)
	h.BuildPortal(anchorB, voxel.South, "OBSIDIAN", nil)

	msg := h.UseDoor(anchorA, 30)
	reg := onlyEvent(t, msg, protocol.EventRegister)
	if reg["channel"] != float64(0) || posOf(t, reg, "anchor") != anchorA {
		t.Fatalf("register event: %v", reg)
	}
	if len(EventsOfType(msg, protocol.EventWarp)) != 0 {
		t.Fatalf("lone portal should not warp: %+v", msg.Events)
	}

	msg = h.UseDoor(anchorB, 30)
	warp := onlyEvent(t, msg, protocol.EventWarp)
	if posOf(t, warp, "from") != anchorB || posOf(t, warp, "to") != anchorA {
		t.Fatalf("warp event: %v", warp)
	}
	// Door B faces south, door A north: 180 - 0 + 30.
	if warp["yaw"] != float64(210) {
		t.Fatalf("warp yaw: %v", warp["yaw"])
	}
	if got := msg.Player.Pos; got != [3]float64{0.5, 64, 0.5} || msg.Player.Yaw != 210 {
		t.Fatalf("player after warp: %+v", msg.Player)
	}
	if !h.W.Block(anchorA).Open || !h.W.Block(anchorA.Up(1)).Open || !h.W.Block(anchorB).Open {
		t.Fatalf("both doors should end open")
	}
	if n := len(EventsOfType(msg, protocol.EventEffect)); n != 2 {
		t.Fatalf("effects=%d: %+v", n, msg.Events)
	}
	for _, e := range EventsOfType(msg, protocol.EventEffect) {
		if e["effect"] != "LIGHTNING" || e["cosmetic"] != true {
			t.Fatalf("effect: %v", e)
		}
	}
	if h.W.Portals().Len() != 2 {
		t.Fatalf("registry len=%d", h.W.Portals().Len())
	}

	if len(rec.entries) != 2 || rec.entries[1].Outcome != "MATCHED" || rec.entries[1].Partner == nil || *rec.entries[1].Partner != anchorA.ToArray() {
		t.Fatalf("warp log: %+v", rec.entries)
	}
}

func TestPortal_SoundWhenLightningRuleOff(t *testing.T) {
	h := NewHarness(t, testConfig(false), loadCatalogs(t), "walker")
	h.BuildPortal(anchorA, voxel.North, "LAPIS_BLOCK", nil)
	h.BuildPortal(anchorB, voxel.North, "LAPIS_BLOCK", nil)
	h.UseDoor(anchorA, 0)
	msg := h.UseDoor(anchorB, 0)

	effects := EventsOfType(msg, protocol.EventEffect)
	if len(effects) != 2 {
		t.Fatalf("effects: %+v", msg.Events)
	}
	for _, e := range effects {
		if e["effect"] != "SOUND" || e["sound"] != warps.SoundTeleport {
			t.Fatalf("effect: %v", e)
		}
	}
}

func TestPortal_EffectsReachOtherPlayers(t *testing.T) {
	h := NewHarness(t, testConfig(true), loadCatalogs(t), "walker")
	watcher := h.Join("watcher")
	h.BuildPortal(anchorA, voxel.North, "LAPIS_BLOCK", nil)
	h.BuildPortal(anchorB, voxel.North, "LAPIS_BLOCK", nil)
	h.UseDoor(anchorA, 0)
	h.UseDoor(anchorB, 0)

	msg := h.LastFor(watcher)
	if n := len(EventsOfType(msg, protocol.EventEffect)); n != 2 {
		t.Fatalf("watcher effects=%d", n)
	}
	if len(EventsOfType(msg, protocol.EventWarp)) != 0 {
		t.Fatalf("watcher should not see the warp itself")
	}
}

func TestPortal_ClosingDoorDoesNothing(t *testing.T) {
	h := NewHarness(t, testConfig(true), loadCatalogs(t), "walker")
	h.BuildPortal(anchorA, voxel.North, "LAPIS_BLOCK", nil)
	h.BuildPortal(anchorB, voxel.North, "LAPIS_BLOCK", nil)
	h.UseDoor(anchorA, 0)
	h.UseDoor(anchorB, 0) // warps to A; B stays open

	msg := h.UseDoor(anchorB, 0) // closes B
	if len(EventsOfType(msg, protocol.EventWarp)) != 0 {
		t.Fatalf("closing a door should not warp: %+v", msg.Events)
	}
	if h.W.Block(anchorB).Open || h.W.Block(anchorB.Up(1)).Open {
		t.Fatalf("door B should be closed")
	}
}

func TestPortal_PlayerOutsideDoorPasses(t *testing.T) {
	h := NewHarness(t, testConfig(true), loadCatalogs(t), "walker")
	h.BuildPortal(anchorA, voxel.North, "LAPIS_BLOCK", nil)

	msg := h.Step(protocol.Action{Type: protocol.ActUse, Pos: anchorA.ToArray()})
	if len(EventsOfType(msg, protocol.EventRegister)) != 0 {
		t.Fatalf("use from spawn should not register: %+v", msg.Events)
	}
	if !h.W.Block(anchorA).Open {
		t.Fatalf("door should still toggle open")
	}
	if h.W.Portals().Len() != 0 {
		t.Fatalf("registry should be empty")
	}
}

func TestPortal_UpperHalfUsesLowerAnchor(t *testing.T) {
	h := NewHarness(t, testConfig(true), loadCatalogs(t), "walker")
	h.BuildPortal(anchorA, voxel.East, "LAPIS_BLOCK", nil)

	msg := h.Step(
		protocol.Action{Type: protocol.ActMove, Pos: anchorA.ToArray()},
		protocol.Action{Type: protocol.ActUse, Pos: anchorA.Up(1).ToArray()},
	)
	reg := onlyEvent(t, msg, protocol.EventRegister)
	if posOf(t, reg, "anchor") != anchorA {
		t.Fatalf("register anchor: %v", reg)
	}
}

func TestPortal_IncompleteFrameNotRegistered(t *testing.T) {
	h := NewHarness(t, testConfig(true), loadCatalogs(t), "walker")
	h.BuildPortal(anchorA, voxel.North, "LAPIS_BLOCK", nil)
	h.Step(protocol.Action{Type: protocol.ActBreak, Pos: anchorA.Up(2).ToArray()})

	msg := h.UseDoor(anchorA, 0)
	if len(EventsOfType(msg, protocol.EventRegister)) != 0 || h.W.Portals().Len() != 0 {
		t.Fatalf("broken frame registered: %+v", msg.Events)
	}
}

func TestPortal_DifferentChannelsDoNotMatch(t *testing.T) {
	h := NewHarness(t, testConfig(true), loadCatalogs(t), "walker")
	h.BuildPortal(anchorA, voxel.North, "LAPIS_BLOCK", []string{"DIAMOND"})
	h.BuildPortal(anchorB, voxel.North, "LAPIS_BLOCK", []string{"EMERALD"})
	h.UseDoor(anchorA, 0)

	msg := h.UseDoor(anchorB, 0)
	if len(EventsOfType(msg, protocol.EventWarp)) != 0 {
		t.Fatalf("different channels warped: %+v", msg.Events)
	}
	if h.W.Portals().Len() != 2 || len(h.W.Portals().Channels()) != 2 {
		t.Fatalf("registry: %+v", h.W.Portals().Entries())
	}
}

func TestPortal_PrunesBrokenPartner(t *testing.T) {
	h := NewHarness(t, testConfig(true), loadCatalogs(t), "walker")
	rec := &warpRecorder{}
	h.W.AddWarpSink(rec)
	h.BuildPortal(anchorA, voxel.North, "LAPIS_BLOCK", nil)
	h.BuildPortal(anchorB, voxel.North, "LAPIS_BLOCK", nil)
	h.UseDoor(anchorA, 0)
	h.Step(protocol.Action{Type: protocol.ActBreak, Pos: anchorA.Down(1).ToArray()})

	msg := h.UseDoor(anchorB, 0)
	prune := onlyEvent(t, msg, protocol.EventPrune)
	if posOf(t, prune, "anchor") != anchorA {
		t.Fatalf("prune event: %v", prune)
	}
	if len(EventsOfType(msg, protocol.EventWarp)) != 0 {
		t.Fatalf("pruned partner should not warp")
	}
	if msg.Player.Pos != [3]float64{10.5, 64, 0.5} {
		t.Fatalf("player moved: %+v", msg.Player)
	}
	reg := h.W.Portals()
	if reg.Contains(anchorA) || !reg.Contains(anchorB) {
		t.Fatalf("registry after prune: %+v", reg.Entries())
	}
	if last := rec.entries[len(rec.entries)-1]; last.Outcome != "PRUNED" || !last.Registered {
		t.Fatalf("warp log: %+v", last)
	}
}

func TestPortal_RewireMovesAnchorToNewChannel(t *testing.T) {
	h := NewHarness(t, testConfig(true), loadCatalogs(t), "walker")
	h.BuildPortal(anchorA, voxel.North, "LAPIS_BLOCK", []string{})
	h.UseDoor(anchorA, 0)
	h.UseDoor(anchorA, 0) // close

	chest := warps.ChannelContainerPos(anchorA, voxel.South)
	h.Step(protocol.Action{Type: protocol.ActSetContainer, Pos: chest.ToArray(), Slots: []string{"DIAMOND", "", "DIAMOND"}})

	msg := h.UseDoor(anchorA, 0)
	rewire := onlyEvent(t, msg, protocol.EventRewire)
	want := warps.ComputeChannel(h.W, anchorA, voxel.South)
	if want == 0 || rewire["channel"] != float64(want) {
		t.Fatalf("rewire event %v, want channel %d", rewire, want)
	}
	if got, ok := h.W.Portals().ChannelOf(anchorA); !ok || got != want {
		t.Fatalf("ChannelOf=%d,%v want %d", got, ok, want)
	}
	if len(h.W.Portals().Channels()) != 1 {
		t.Fatalf("old channel should be dropped: %v", h.W.Portals().Channels())
	}
}

func TestPortal_RandomPartnerIsDeterministicPerSeed(t *testing.T) {
	run := func() []voxel.Vec3i {
		h := NewHarness(t, testConfig(true), loadCatalogs(t), "walker")
		h.BuildPortal(anchorA, voxel.North, "LAPIS_BLOCK", nil)
		h.BuildPortal(anchorB, voxel.North, "LAPIS_BLOCK", nil)
		h.BuildPortal(anchorC, voxel.North, "LAPIS_BLOCK", nil)
		h.UseDoor(anchorB, 0)
		h.UseDoor(anchorC, 0)
		var seen []voxel.Vec3i
		for i := 0; i < 12; i++ {
			msg := h.UseDoor(anchorA, 0)
			seen = append(seen, posOf(t, onlyEvent(t, msg, protocol.EventWarp), "to"))
			h.UseDoor(anchorA, 0) // close again
		}
		return seen
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("run mismatch at %d: %v vs %v", i, a, b)
		}
		if a[i] != anchorB && a[i] != anchorC {
			t.Fatalf("unexpected partner %v", a[i])
		}
	}
}
