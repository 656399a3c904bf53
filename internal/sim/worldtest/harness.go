package worldtest

import (
	"encoding/json"
	"testing"

	"lapiswarps.ai/internal/persistence/snapshot"
	"lapiswarps.ai/internal/protocol"
	"lapiswarps.ai/internal/sim/catalogs"
	"lapiswarps.ai/internal/sim/voxel"
	"lapiswarps.ai/internal/sim/warps"
	world "lapiswarps.ai/internal/sim/world"
)

// Harness drives a world through its exported API only:
// - Join() issues a JoinRequest via StepOnce()
// - Step()/StepFor() issue ACT via StepOnce()
// - per-player Out channels carry EVENT JSON
//
// Portals are built with ordinary SET_BLOCK/SET_CONTAINER actions.
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	W    *world.World

	DefaultPlayerID string

	sessions map[string]*session
}

type session struct {
	PlayerID string
	Out      chan []byte
	last     protocol.EventMsg
}

func NewHarness(t *testing.T, cfg world.WorldConfig, cats *catalogs.Catalogs, playerName string) *Harness {
	t.Helper()
	w, err := world.New(cfg, cats, nil, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return NewHarnessWithWorld(t, w, cats, playerName)
}

// NewHarnessWithWorld is like NewHarness, but uses an already-constructed world.
// Snapshot round-trip tests import into the world before the first join.
func NewHarnessWithWorld(t *testing.T, w *world.World, cats *catalogs.Catalogs, playerName string) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	h := &Harness{
		T:        t,
		Cats:     cats,
		W:        w,
		sessions: map[string]*session{},
	}
	h.DefaultPlayerID = h.Join(playerName)
	return h
}

func (h *Harness) Join(name string) string {
	h.T.Helper()
	out := make(chan []byte, 16)
	resp := make(chan world.JoinResponse, 1)
	_, _ = h.W.StepOnce([]world.JoinRequest{{Name: name, Out: out, Resp: resp}}, nil, nil)
	jr := <-resp
	if jr.Welcome.PlayerID == "" {
		h.T.Fatalf("join returned empty player id")
	}
	s := &session{PlayerID: jr.Welcome.PlayerID, Out: out}
	h.sessions[s.PlayerID] = s
	h.drainAll()
	return s.PlayerID
}

// Step applies actions for the default player and returns the EVENT message it
// received this tick (zero value when there was nothing to report).
func (h *Harness) Step(actions ...protocol.Action) protocol.EventMsg {
	return h.StepFor(h.DefaultPlayerID, actions...)
}

func (h *Harness) StepFor(playerID string, actions ...protocol.Action) protocol.EventMsg {
	h.T.Helper()
	act := protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		PlayerID:        playerID,
		Tick:            h.W.CurrentTick(),
		Actions:         actions,
	}
	_, _ = h.W.StepOnce(nil, nil, []world.ActionEnvelope{{PlayerID: playerID, Act: act}})
	h.drainAll()
	return h.LastFor(playerID)
}

func (h *Harness) Last() protocol.EventMsg { return h.LastFor(h.DefaultPlayerID) }

func (h *Harness) LastFor(playerID string) protocol.EventMsg {
	h.T.Helper()
	s := h.sessions[playerID]
	if s == nil {
		h.T.Fatalf("unknown player id: %q", playerID)
	}
	return s.last
}

// Snapshot exports at the last completed tick, so an import resumes at CurrentTick.
func (h *Harness) Snapshot() (tick uint64, snap snapshot.SnapshotV1) {
	cur := h.W.CurrentTick()
	if cur == 0 {
		return 0, h.W.ExportSnapshot(0)
	}
	return cur - 1, h.W.ExportSnapshot(cur - 1)
}

// BuildPortal places a closed door facing doorFacing with its lower half at
// anchor, the frame around it, and a chest holding items above the frame.
// A nil items slice skips the chest.
func (h *Harness) BuildPortal(anchor voxel.Vec3i, doorFacing voxel.Direction, frame string, items []string) {
	h.T.Helper()
	dir := doorFacing.Opposite()
	acts := []protocol.Action{{
		Type:   protocol.ActSetBlock,
		Pos:    anchor.ToArray(),
		Block:  "OAK_DOOR",
		Facing: doorFacing.String(),
	}}
	for _, p := range warps.FrameOffsets(anchor, dir) {
		acts = append(acts, protocol.Action{Type: protocol.ActSetBlock, Pos: p.ToArray(), Block: frame})
	}
	if items != nil {
		pos := warps.ChannelContainerPos(anchor, dir)
		acts = append(acts,
			protocol.Action{Type: protocol.ActSetBlock, Pos: pos.ToArray(), Block: "CHEST"},
			protocol.Action{Type: protocol.ActSetContainer, Pos: pos.ToArray(), Slots: items},
		)
	}
	msg := h.Step(acts...)
	for _, e := range msg.Events {
		if e["type"] == protocol.EventError {
			h.T.Fatalf("build portal at %s: %v", anchor, e)
		}
	}
}

// UseDoor moves the default player into the door at anchor and uses it.
func (h *Harness) UseDoor(anchor voxel.Vec3i, yaw float64) protocol.EventMsg {
	return h.UseDoorFor(h.DefaultPlayerID, anchor, yaw)
}

func (h *Harness) UseDoorFor(playerID string, anchor voxel.Vec3i, yaw float64) protocol.EventMsg {
	h.T.Helper()
	return h.StepFor(playerID,
		protocol.Action{Type: protocol.ActMove, Pos: anchor.ToArray(), Yaw: yaw},
		protocol.Action{Type: protocol.ActUse, Pos: anchor.ToArray()},
	)
}

// EventsOfType filters msg's events by type.
func EventsOfType(msg protocol.EventMsg, typ string) []protocol.Event {
	var out []protocol.Event
	for _, e := range msg.Events {
		if e["type"] == typ {
			out = append(out, e)
		}
	}
	return out
}

func (h *Harness) drainAll() {
	h.T.Helper()
	for _, s := range h.sessions {
		h.drainOne(s)
	}
}

func (h *Harness) drainOne(s *session) {
	h.T.Helper()
	s.last = protocol.EventMsg{}
	var last []byte
	for {
		select {
		case b := <-s.Out:
			last = b
			continue
		default:
		}
		break
	}
	if len(last) == 0 {
		return
	}
	if err := json.Unmarshal(last, &s.last); err != nil {
		h.T.Fatalf("unmarshal EVENT: %v", err)
	}
}
