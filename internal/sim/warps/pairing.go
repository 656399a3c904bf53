package warps

import (
	"go.uber.org/zap"

	"lapiswarps.ai/internal/sim/voxel"
)

// Interaction is a player using (clicking) a block.
type Interaction struct {
	PlayerID string
	// PlayerPos is the block the player stands in.
	PlayerPos  voxel.Vec3i
	Yaw, Pitch float64
	// Pos is the block that was used.
	Pos voxel.Vec3i
}

type OutcomeKind int

const (
	// OutcomePass: not an open door the player stands in; nothing happened.
	OutcomePass OutcomeKind = iota
	// OutcomeNotPortal: an open door without a complete frame; registry untouched.
	OutcomeNotPortal
	// OutcomeNoPartner: no other portal on the channel.
	OutcomeNoPartner
	// OutcomeMatched: the player was teleported to Partner.
	OutcomeMatched
	// OutcomePruned: Partner no longer qualified and was removed from the registry.
	OutcomePruned
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePass:
		return "PASS"
	case OutcomeNotPortal:
		return "NOT_PORTAL"
	case OutcomeNoPartner:
		return "NO_PARTNER"
	case OutcomeMatched:
		return "MATCHED"
	case OutcomePruned:
		return "PRUNED"
	}
	return "UNKNOWN"
}

// Outcome describes what one door interaction did.
type Outcome struct {
	Kind    OutcomeKind
	Channel int32
	Anchor  voxel.Vec3i
	Partner voxel.Vec3i

	// Registered is set when the anchor was newly added under Channel;
	// Purged counts the other channels it was removed from.
	Registered bool
	Purged     int

	// Teleport target, set for OutcomeMatched.
	X, Y, Z    float64
	Yaw, Pitch float64
}

// Plugin runs the pairing protocol for door interactions.
type Plugin struct {
	log *zap.Logger
}

func NewPlugin(logger *zap.Logger) *Plugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Plugin{log: logger}
}

// HandleDoorInteraction runs the pairing protocol for one interaction against
// reg, the registry of the world h belongs to. It never fails: every branch is
// either a pass-through, a pruning, or a match.
func (p *Plugin) HandleDoorInteraction(h Host, reg *Registry, in Interaction) Outcome {
	state := h.Block(in.Pos)
	if !h.InTag(state, TagDoors) || !state.Open {
		return Outcome{Kind: OutcomePass}
	}
	anchor := LowerAnchorOf(in.Pos, state.Half)
	if anchor != in.PlayerPos {
		return Outcome{Kind: OutcomePass}
	}
	dir := state.Facing.Opposite()
	if !IsStructureValid(h, anchor, dir) {
		return Outcome{Kind: OutcomeNotPortal, Anchor: anchor}
	}

	// Computed once; reused for the lookup and the final registration.
	channel := ComputeChannel(h, anchor, dir)
	out := Outcome{Kind: OutcomeNoPartner, Channel: channel, Anchor: anchor}

	candidate, found := reg.LookupPartner(channel, anchor, h)
	if found {
		out.Partner = candidate
		if IsValidPortal(h, candidate) && ComputeChannel(h, candidate, h.Block(candidate).Facing.Opposite()) == channel {
			p.teleport(h, in, state, anchor, candidate, &out)
		} else {
			reg.Unregister(channel, candidate)
			out.Kind = OutcomePruned
		}
	}

	out.Purged = reg.PurgeAnchorFromOtherChannels(channel, anchor)
	if !reg.Contains(anchor) {
		out.Registered = reg.Register(channel, anchor)
	}

	p.log.Debug("door interaction",
		zap.String("outcome", out.Kind.String()),
		zap.Int32("channel", channel),
		zap.Stringer("anchor", anchor),
		zap.Bool("registered", out.Registered),
		zap.Int("purged", out.Purged),
	)
	return out
}

func (p *Plugin) teleport(h Host, in Interaction, state voxel.BlockState, anchor, partner voxel.Vec3i, out *Outcome) {
	partnerState := h.Block(partner)
	h.SetBlock(partner, partnerState.WithOpen(true))

	fromYaw, _ := state.Facing.Opposite().Yaw()
	toYaw, _ := partnerState.Facing.Opposite().Yaw()
	x, y, z := partner.Center()
	yaw := fromYaw - toYaw + in.Yaw
	h.Teleport(in.PlayerID, x, y, z, yaw, in.Pitch)

	TriggerEffects(h, anchor)
	TriggerEffects(h, partner)

	out.Kind = OutcomeMatched
	out.X, out.Y, out.Z = x, y, z
	out.Yaw, out.Pitch = yaw, in.Pitch

	p.log.Info("warp",
		zap.String("player", in.PlayerID),
		zap.Int32("channel", out.Channel),
		zap.Stringer("from", anchor),
		zap.Stringer("to", partner),
	)
}
