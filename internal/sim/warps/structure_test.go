package warps

import (
	"testing"

	"lapiswarps.ai/internal/sim/voxel"
)

func TestIsStructureValid_AllFacings(t *testing.T) {
	for _, f := range voxel.Horizontals {
		h := newFakeHost(1)
		anchor := voxel.Vec3i{X: 3, Y: 64, Z: -2}
		h.buildPortal(anchor, f, nil)
		if !IsStructureValid(h, anchor, f.Opposite()) {
			t.Fatalf("facing %s: complete frame reported invalid", f)
		}
		if !IsValidPortal(h, anchor.Up(1)) {
			t.Fatalf("facing %s: upper half should resolve to a valid portal", f)
		}
	}
}

func TestIsStructureValid_EachMissingBlockBreaksFrame(t *testing.T) {
	anchor := voxel.Vec3i{Y: 64}
	for i, p := range FrameOffsets(anchor, voxel.South) {
		h := newFakeHost(1)
		h.buildPortal(anchor, voxel.North, nil)
		delete(h.blocks, p)
		if IsStructureValid(h, anchor, voxel.South) {
			t.Fatalf("offset %d (%s) removed but frame still valid", i, p)
		}
	}
}

func TestIsValidPortal_RequiresDoor(t *testing.T) {
	h := newFakeHost(1)
	anchor := voxel.Vec3i{Y: 64}
	h.buildPortal(anchor, voxel.East, nil)
	h.blocks[anchor] = voxel.BlockState{ID: "STONE"}
	if IsValidPortal(h, anchor) {
		t.Fatalf("non-door block must not be a valid portal")
	}
}

func TestComputeChannel(t *testing.T) {
	h := newFakeHost(1)
	a := voxel.Vec3i{Y: 64}
	b := voxel.Vec3i{X: 10, Y: 64}
	c := voxel.Vec3i{X: 20, Y: 64}
	d := voxel.Vec3i{X: 30, Y: 64}
	h.buildPortal(a, voxel.North, []string{"DIAMOND", "", "GOLD_INGOT", "DIAMOND"})
	h.buildPortal(b, voxel.South, []string{"DIAMOND", "GOLD_INGOT"})
	h.buildPortal(c, voxel.West, []string{"GOLD_INGOT", "DIAMOND"})
	h.buildPortal(d, voxel.East, nil)

	ca := ComputeChannel(h, a, voxel.South)
	if ca != ComputeChannel(h, a, voxel.South) {
		t.Fatalf("channel not stable")
	}
	if ca == 0 {
		t.Fatalf("expected non-zero channel")
	}
	if cb := ComputeChannel(h, b, voxel.North); cb != ca {
		t.Fatalf("same distinct ids in same order: %d != %d", cb, ca)
	}
	if cc := ComputeChannel(h, c, voxel.East); cc == ca {
		t.Fatalf("order must matter: both %d", cc)
	}
	if cd := ComputeChannel(h, d, voxel.West); cd != 0 {
		t.Fatalf("no container: channel=%d want 0", cd)
	}

	h.inv[ChannelContainerPos(a, voxel.South)] = []string{"", "", ""}
	if got := ComputeChannel(h, a, voxel.South); got != 0 {
		t.Fatalf("empty container: channel=%d want 0", got)
	}
}

func TestChannelHash_Stable(t *testing.T) {
	cases := []struct {
		in   string
		want int32
	}{
		{"", 0},
		{"a", 97},
		{"ab", 3105},
		{"hello", 99162322},
		{"minecraft:diamond", 441337991},
	}
	for _, c := range cases {
		if got := channelHash(c.in); got != c.want {
			t.Fatalf("channelHash(%q)=%d want %d", c.in, got, c.want)
		}
	}
}

func TestLowerAnchorOf(t *testing.T) {
	p := voxel.Vec3i{X: 1, Y: 65, Z: 1}
	if got := LowerAnchorOf(p, voxel.Lower); got != p {
		t.Fatalf("lower: %s", got)
	}
	if got := LowerAnchorOf(p, voxel.Upper); got != (voxel.Vec3i{X: 1, Y: 64, Z: 1}) {
		t.Fatalf("upper: %s", got)
	}
}
