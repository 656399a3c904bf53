package world

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"lapiswarps.ai/internal/persistence/snapshot"
	"lapiswarps.ai/internal/protocol"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingActions []ActionEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case req := <-w.snapReqs:
			req.resp <- w.ExportSnapshot(w.tick.Load())
		case env := <-w.inbox:
			pendingActions = append(pendingActions, env)
		case <-ticker.C:
			w.step(pendingJoins, pendingLeaves, pendingActions)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingActions = pendingActions[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// RequestSnapshot asks the running world loop for a snapshot of its current state.
func (w *World) RequestSnapshot(ctx context.Context) (snapshot.SnapshotV1, error) {
	req := snapshotReq{resp: make(chan snapshot.SnapshotV1, 1)}
	select {
	case w.snapReqs <- req:
	case <-ctx.Done():
		return snapshot.SnapshotV1{}, ctx.Err()
	}
	select {
	case snap := <-req.resp:
		return snap, nil
	case <-ctx.Done():
		return snapshot.SnapshotV1{}, ctx.Err()
	}
}

// StepOnce advances the world by a single tick using the same ordering semantics as the server.
// It is intended for tests and offline tools.
func (w *World) StepOnce(joins []JoinRequest, leaves []string, actions []ActionEnvelope) (tick uint64, digest string) {
	tick = w.tick.Load()
	w.step(joins, leaves, actions)
	return tick, w.stateDigest(tick)
}

func (w *World) step(joins []JoinRequest, leaves []string, actions []ActionEnvelope) {
	nowTick := w.tick.Load()
	w.effects = w.effects[:0]
	w.rng = nil

	for _, id := range leaves {
		delete(w.players, id)
	}
	for _, req := range joins {
		resp := w.joinPlayer(req.Name, req.Out, nowTick)
		if req.Resp != nil {
			req.Resp <- resp
		}
	}

	// Apply actions in receive order.
	for _, env := range actions {
		p := w.players[env.PlayerID]
		if p == nil {
			continue
		}
		env.Act.PlayerID = env.PlayerID // trust session identity
		w.applyAct(p, env.Act, nowTick)
	}

	players := w.sortedPlayers()
	for _, p := range players {
		for _, e := range w.effects {
			p.AddEvent(e)
		}
		w.flushEvents(p, nowTick)
	}

	w.recordTick(nowTick, joins, leaves, actions)

	if w.snapshotSink != nil && w.cfg.SnapshotEveryTicks > 0 && nowTick > 0 && nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		snap := w.ExportSnapshot(nowTick)
		select {
		case w.snapshotSink <- snap:
		default:
			w.log.Warn("snapshot sink full; dropping snapshot", zap.Uint64("tick", nowTick))
		}
	}

	w.tick.Add(1)
}

func (w *World) joinPlayer(name string, out chan []byte, nowTick uint64) JoinResponse {
	w.nextPlayer++
	id := fmt.Sprintf("P%d", w.nextPlayer)
	if name == "" {
		name = "player"
	}
	p := &Player{ID: id, Name: name, Out: out}
	p.MoveTo(w.cfg.Spawn)
	w.players[id] = p
	w.log.Info("player joined", zap.String("player", id), zap.String("name", name))

	return JoinResponse{Welcome: protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        id,
		WorldID:         w.cfg.ID,
		Tick:            nowTick,
		Spawn:           w.cfg.Spawn.ToArray(),
		Rules:           protocol.RulesInfo{LapisWarpsCreateLightning: w.cfg.Rules.CreateLightning()},
		Catalogs: protocol.CatalogDigests{
			BlockPalette: protocol.PaletteInfo{Digest: w.catalogs.Blocks.PaletteDigest, Count: len(w.catalogs.Blocks.Palette)},
			ItemPalette:  protocol.PaletteInfo{Digest: w.catalogs.Items.PaletteDigest, Count: len(w.catalogs.Items.Palette)},
		},
	}}
}

func (w *World) flushEvents(p *Player, nowTick uint64) {
	if len(p.Events) == 0 {
		return
	}
	msg := protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		WorldID:         w.cfg.ID,
		Tick:            nowTick,
		Player:          p.State(),
		Events:          p.Events,
	}
	p.Events = nil
	if p.Out == nil {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		w.log.Error("marshal event", zap.Error(err))
		return
	}
	sendLatest(p.Out, b)
}

func (w *World) sortedPlayers() []*Player {
	out := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Player returns a copy of the player's state.
func (w *World) Player(id string) (Player, bool) {
	p := w.players[id]
	if p == nil {
		return Player{}, false
	}
	return *p, true
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
