package worldtest

import (
	"testing"

	"lapiswarps.ai/internal/protocol"
	"lapiswarps.ai/internal/sim/voxel"
)

func TestActions_Errors(t *testing.T) {
	h := NewHarness(t, testConfig(true), loadCatalogs(t), "walker")
	door := voxel.Vec3i{X: 3, Y: 64, Z: 3}
	h.Step(protocol.Action{Type: protocol.ActSetBlock, Pos: door.Up(1).ToArray(), Block: "STONE"})

	cases := []struct {
		name string
		act  protocol.Action
		code string
	}{
		{"unknown block", protocol.Action{Type: protocol.ActSetBlock, Pos: [3]int{0, 0, 0}, Block: "NOPE"}, protocol.ErrUnknownBlock},
		{"door blocked", protocol.Action{Type: protocol.ActSetBlock, Pos: door.ToArray(), Block: "OAK_DOOR"}, protocol.ErrBlocked},
		{"vertical door", protocol.Action{Type: protocol.ActSetBlock, Pos: [3]int{9, 64, 9}, Block: "OAK_DOOR", Facing: "UP"}, protocol.ErrBadRequest},
		{"break air", protocol.Action{Type: protocol.ActBreak, Pos: [3]int{0, 0, 0}}, protocol.ErrInvalidTarget},
		{"no container", protocol.Action{Type: protocol.ActSetContainer, Pos: [3]int{0, 0, 0}}, protocol.ErrInvalidTarget},
		{"use non-door", protocol.Action{Type: protocol.ActUse, Pos: door.Up(1).ToArray()}, protocol.ErrInvalidTarget},
		{"unknown action", protocol.Action{Type: "JUMP"}, protocol.ErrBadRequest},
	}
	for _, tc := range cases {
		msg := h.Step(tc.act)
		e := onlyEvent(t, msg, protocol.EventError)
		if e["code"] != tc.code {
			t.Fatalf("%s: code=%v want %s", tc.name, e["code"], tc.code)
		}
	}
}

func TestActions_ContainerRejectsUnknownItem(t *testing.T) {
	h := NewHarness(t, testConfig(true), loadCatalogs(t), "walker")
	pos := [3]int{2, 64, 2}
	h.Step(protocol.Action{Type: protocol.ActSetBlock, Pos: pos, Block: "CHEST"})

	msg := h.Step(protocol.Action{Type: protocol.ActSetContainer, Pos: pos, Slots: []string{"DIAMOND", "BOGUS"}})
	if e := onlyEvent(t, msg, protocol.EventError); e["code"] != protocol.ErrUnknownItem {
		t.Fatalf("error: %v", e)
	}
}

func TestActions_BreakingDoorClearsBothHalves(t *testing.T) {
	h := NewHarness(t, testConfig(true), loadCatalogs(t), "walker")
	door := voxel.Vec3i{X: 3, Y: 64, Z: 3}
	h.Step(protocol.Action{Type: protocol.ActSetBlock, Pos: door.ToArray(), Block: "OAK_DOOR", Facing: "EAST"})
	if h.W.Block(door.Up(1)).Half != voxel.Upper {
		t.Fatalf("upper half missing")
	}

	msg := h.Step(protocol.Action{Type: protocol.ActBreak, Pos: door.Up(1).ToArray()})
	if n := len(EventsOfType(msg, protocol.EventBlock)); n != 2 {
		t.Fatalf("block events=%d", n)
	}
	if !h.W.Block(door).IsAir() || !h.W.Block(door.Up(1)).IsAir() {
		t.Fatalf("door not cleared")
	}
}
