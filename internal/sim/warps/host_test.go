package warps

import (
	"math/rand"

	"lapiswarps.ai/internal/sim/voxel"
)

const (
	testDoor  = "OAK_DOOR"
	testFrame = "LAPIS_BLOCK"
	testChest = "CHEST"
)

type teleportCall struct {
	PlayerID            string
	X, Y, Z, Yaw, Pitch float64
}

type effectCall struct {
	Lightning bool
	Sound     string
	Pos       voxel.Vec3i
	X, Y, Z   float64
}

// fakeHost is a map-backed world for exercising the warp logic without a server.
type fakeHost struct {
	blocks    map[voxel.Vec3i]voxel.BlockState
	inv       map[voxel.Vec3i][]string
	rules     map[string]bool
	rng       *rand.Rand
	teleports []teleportCall
	effects   []effectCall
}

func newFakeHost(seed int64) *fakeHost {
	return &fakeHost{
		blocks: map[voxel.Vec3i]voxel.BlockState{},
		inv:    map[voxel.Vec3i][]string{},
		rules:  map[string]bool{RuleCreateLightning: true},
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (h *fakeHost) Block(pos voxel.Vec3i) voxel.BlockState { return h.blocks[pos] }

func (h *fakeHost) InTag(s voxel.BlockState, tag string) bool {
	switch tag {
	case TagDoors:
		return s.ID == testDoor
	case TagPortalBlocks:
		return s.ID == testFrame
	}
	return false
}

func (h *fakeHost) Inventory(pos voxel.Vec3i) ([]string, bool) {
	slots, ok := h.inv[pos]
	return slots, ok
}

func (h *fakeHost) Intn(n int) int { return h.rng.Intn(n) }

func (h *fakeHost) SetBlock(pos voxel.Vec3i, s voxel.BlockState) {
	h.blocks[pos] = s
	if s.ID == testDoor {
		other := pos.Up(1)
		if s.Half == voxel.Upper {
			other = pos.Down(1)
		}
		if o, ok := h.blocks[other]; ok && o.ID == testDoor {
			h.blocks[other] = o.WithOpen(s.Open)
		}
	}
}

func (h *fakeHost) Teleport(playerID string, x, y, z, yaw, pitch float64) {
	h.teleports = append(h.teleports, teleportCall{PlayerID: playerID, X: x, Y: y, Z: z, Yaw: yaw, Pitch: pitch})
}

func (h *fakeHost) SpawnLightning(x, y, z float64, cosmetic bool) {
	h.effects = append(h.effects, effectCall{Lightning: cosmetic, X: x, Y: y, Z: z})
}

func (h *fakeHost) PlaySound(pos voxel.Vec3i, sound string) {
	h.effects = append(h.effects, effectCall{Sound: sound, Pos: pos})
}

func (h *fakeHost) BoolRule(name string) bool { return h.rules[name] }

// buildPortal places a closed door facing doorFacing at anchor, its frame, and a
// chest holding items (no chest when items is nil).
func (h *fakeHost) buildPortal(anchor voxel.Vec3i, doorFacing voxel.Direction, items []string) {
	for _, p := range FrameOffsets(anchor, doorFacing.Opposite()) {
		h.blocks[p] = voxel.BlockState{ID: testFrame}
	}
	h.blocks[anchor] = voxel.BlockState{ID: testDoor, Facing: doorFacing, Half: voxel.Lower}
	h.blocks[anchor.Up(1)] = voxel.BlockState{ID: testDoor, Facing: doorFacing, Half: voxel.Upper}
	if items != nil {
		pos := ChannelContainerPos(anchor, doorFacing.Opposite())
		h.blocks[pos] = voxel.BlockState{ID: testChest}
		h.inv[pos] = append([]string(nil), items...)
	}
}

func (h *fakeHost) setOpen(anchor voxel.Vec3i, open bool) {
	h.SetBlock(anchor, h.blocks[anchor].WithOpen(open))
}

// use opens the door at anchor and runs the protocol with the player standing in it.
func (h *fakeHost) use(p *Plugin, reg *Registry, anchor voxel.Vec3i, yaw float64) Outcome {
	h.setOpen(anchor, true)
	return p.HandleDoorInteraction(h, reg, Interaction{
		PlayerID:  "P1",
		PlayerPos: anchor,
		Yaw:       yaw,
		Pitch:     12,
		Pos:       anchor,
	})
}
