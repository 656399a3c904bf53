package world

import (
	"fmt"

	"go.uber.org/zap"

	"lapiswarps.ai/internal/protocol"
)

// TickSink receives the inputs of every tick that had any, plus the state
// digest after the tick. Replaying the entries over the snapshot they
// follow must reproduce the digests.
type TickSink interface {
	WriteTick(TickLogEntry) error
}

type TickLogEntry struct {
	Tick    uint64           `json:"tick"`
	Joins   []RecordedJoin   `json:"joins,omitempty"`
	Leaves  []string         `json:"leaves,omitempty"`
	Actions []RecordedAction `json:"actions,omitempty"`
	Digest  string           `json:"digest"`
}

type RecordedJoin struct {
	Name string `json:"name"`
}

type RecordedAction struct {
	PlayerID string          `json:"player_id"`
	Act      protocol.ActMsg `json:"act"`
}

func (w *World) SetTickSink(s TickSink) { w.tickSink = s }

func (w *World) recordTick(nowTick uint64, joins []JoinRequest, leaves []string, actions []ActionEnvelope) {
	if w.tickSink == nil || (len(joins) == 0 && len(leaves) == 0 && len(actions) == 0) {
		return
	}
	e := TickLogEntry{
		Tick:   nowTick,
		Leaves: append([]string(nil), leaves...),
		Digest: w.stateDigest(nowTick),
	}
	for _, j := range joins {
		e.Joins = append(e.Joins, RecordedJoin{Name: j.Name})
	}
	for _, a := range actions {
		act := a.Act
		act.PlayerID = a.PlayerID
		e.Actions = append(e.Actions, RecordedAction{PlayerID: a.PlayerID, Act: act})
	}
	if err := w.tickSink.WriteTick(e); err != nil {
		w.log.Warn("tick sink", zap.Uint64("tick", nowTick), zap.Error(err))
	}
}

// Replay feeds a recorded entry back through the tick loop. Ticks between the
// current one and the entry's are stepped empty. It returns the digest after
// the entry's tick.
func (w *World) Replay(e TickLogEntry) (string, error) {
	if e.Tick < w.tick.Load() {
		return "", fmt.Errorf("entry tick %d is behind world tick %d", e.Tick, w.tick.Load())
	}
	for w.tick.Load() < e.Tick {
		w.step(nil, nil, nil)
	}
	joins := make([]JoinRequest, 0, len(e.Joins))
	for _, j := range e.Joins {
		joins = append(joins, JoinRequest{Name: j.Name})
	}
	acts := make([]ActionEnvelope, 0, len(e.Actions))
	for _, a := range e.Actions {
		acts = append(acts, ActionEnvelope{PlayerID: a.PlayerID, Act: a.Act})
	}
	_, digest := w.StepOnce(joins, e.Leaves, acts)
	return digest, nil
}
