package world

import (
	"go.uber.org/zap"

	"lapiswarps.ai/internal/protocol"
	"lapiswarps.ai/internal/sim/warps"
)

// WarpLogEntry records one door interaction that reached the portal logic.
type WarpLogEntry struct {
	Tick       uint64  `json:"tick"`
	WorldID    string  `json:"world_id"`
	PlayerID   string  `json:"player_id"`
	Outcome    string  `json:"outcome"`
	Channel    int32   `json:"channel"`
	Anchor     [3]int  `json:"anchor"`
	Partner    *[3]int `json:"partner,omitempty"`
	Registered bool    `json:"registered,omitempty"`
	Purged     int     `json:"purged,omitempty"`
	Yaw        float64 `json:"yaw,omitempty"`
}

func (w *World) recordWarp(p *Player, out warps.Outcome, nowTick uint64) {
	if out.Kind == warps.OutcomePass {
		return
	}
	entry := WarpLogEntry{
		Tick:       nowTick,
		WorldID:    w.cfg.ID,
		PlayerID:   p.ID,
		Outcome:    out.Kind.String(),
		Channel:    out.Channel,
		Anchor:     out.Anchor.ToArray(),
		Registered: out.Registered,
		Purged:     out.Purged,
	}

	switch out.Kind {
	case warps.OutcomeMatched:
		partner := out.Partner.ToArray()
		entry.Partner = &partner
		entry.Yaw = out.Yaw
		p.AddEvent(protocol.Event{
			"t":       nowTick,
			"type":    protocol.EventWarp,
			"channel": out.Channel,
			"from":    out.Anchor.ToArray(),
			"to":      partner,
			"yaw":     out.Yaw,
			"pitch":   out.Pitch,
		})
	case warps.OutcomePruned:
		partner := out.Partner.ToArray()
		entry.Partner = &partner
		p.AddEvent(protocol.Event{
			"t":       nowTick,
			"type":    protocol.EventPrune,
			"channel": out.Channel,
			"anchor":  partner,
		})
	}

	if out.Registered {
		typ := protocol.EventRegister
		if out.Purged > 0 {
			typ = protocol.EventRewire
		}
		p.AddEvent(protocol.Event{
			"t":       nowTick,
			"type":    typ,
			"channel": out.Channel,
			"anchor":  out.Anchor.ToArray(),
		})
	}

	for _, s := range w.warpSinks {
		if err := s.WriteWarp(entry); err != nil {
			w.log.Warn("warp sink", zap.Error(err))
		}
	}
}
