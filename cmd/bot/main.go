package main

import (
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lapiswarps.ai/internal/logging"
	"lapiswarps.ai/internal/protocol"
	"lapiswarps.ai/internal/sim/voxel"
	"lapiswarps.ai/internal/sim/warps"
)

// The bot builds two portals keyed by the same item next to spawn, walks
// through the first one and logs what the server reports.
func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name    = flag.String("name", "bot", "player name")
		worldID = flag.String("world", "", "preferred world (optional)")
		frame   = flag.String("frame", "LAPIS_BLOCK", "frame block id")
		items   = flag.String("items", "DIAMOND", "comma separated chest slots keying the channel")
		gap     = flag.Int("gap", 10, "x distance between the two portals")
	)
	flag.Parse()

	logger, closeLog, err := logging.New(logging.Options{Level: "info"})
	if err != nil {
		os.Exit(2)
	}
	defer func() { _ = closeLog() }()
	logger = logger.Named("bot")

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatal("dial", zap.Error(err))
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      *name,
		WorldID:         *worldID,
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 8},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatal("send HELLO", zap.Error(err))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	b := &bot{conn: conn, log: logger, frame: *frame, items: strings.Split(*items, ","), gap: *gap}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Info("WELCOME",
				zap.String("player", w.PlayerID),
				zap.String("world", w.WorldID),
				zap.Uint64("tick", w.Tick),
				zap.Bool("lightning", w.Rules.LapisWarpsCreateLightning),
			)
			b.welcome(w)

		case protocol.TypeEvent:
			var ev protocol.EventMsg
			if err := json.Unmarshal(msg, &ev); err != nil {
				continue
			}
			if done := b.onEvent(ev); done {
				return
			}
		}
	}
}

type bot struct {
	conn  *websocket.Conn
	log   *zap.Logger
	frame string
	items []string
	gap   int

	playerID string
	a, b     voxel.Vec3i
	used     bool
}

func (b *bot) welcome(w protocol.WelcomeMsg) {
	b.playerID = w.PlayerID
	spawn := voxel.FromArray(w.Spawn)
	b.a = spawn.Add(voxel.Vec3i{X: 3})
	b.b = spawn.Add(voxel.Vec3i{X: 3 + b.gap})

	acts := append(portalActions(b.a, voxel.North, b.frame, b.items), portalActions(b.b, voxel.North, b.frame, b.items)...)
	b.send(w.Tick, acts...)
}

func (b *bot) onEvent(ev protocol.EventMsg) bool {
	for _, e := range ev.Events {
		switch e["type"] {
		case protocol.EventError:
			b.log.Warn("ERROR", zap.Any("event", e))
		case protocol.EventRegister, protocol.EventRewire, protocol.EventPrune:
			b.log.Info(e["type"].(string), zap.Any("event", e))
		case protocol.EventWarp:
			b.log.Info("WARP", zap.Any("event", e), zap.Float64s("pos", ev.Player.Pos[:]))
			return true
		}
	}
	if !b.used && b.playerID != "" {
		b.used = true
		b.send(ev.Tick,
			protocol.Action{Type: protocol.ActMove, Pos: b.a.ToArray(), Yaw: 180},
			protocol.Action{Type: protocol.ActUse, Pos: b.a.ToArray()},
		)
	}
	return false
}

func (b *bot) send(tick uint64, acts ...protocol.Action) {
	act := protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		PlayerID:        b.playerID,
		Tick:            tick,
		Actions:         acts,
	}
	if err := b.conn.WriteJSON(act); err != nil {
		b.log.Warn("send ACT", zap.Error(err))
	}
}

// portalActions places a closed door at anchor facing doorFacing, the eight
// frame blocks behind it and a chest holding items.
func portalActions(anchor voxel.Vec3i, doorFacing voxel.Direction, frame string, items []string) []protocol.Action {
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
	pos := warps.ChannelContainerPos(anchor, dir)
	return append(acts,
		protocol.Action{Type: protocol.ActSetBlock, Pos: pos.ToArray(), Block: "CHEST"},
		protocol.Action{Type: protocol.ActSetContainer, Pos: pos.ToArray(), Slots: items},
	)
}
