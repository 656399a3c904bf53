package world

import (
	"fmt"
	"math/rand"
	"sync/atomic"

	"go.uber.org/zap"

	"lapiswarps.ai/internal/persistence/snapshot"
	"lapiswarps.ai/internal/protocol"
	"lapiswarps.ai/internal/sim/catalogs"
	"lapiswarps.ai/internal/sim/tuning"
	"lapiswarps.ai/internal/sim/voxel"
	"lapiswarps.ai/internal/sim/warps"
)

type WorldConfig struct {
	ID                 string
	TickRateHz         int
	Seed               int64
	SnapshotEveryTicks int
	Spawn              voxel.Vec3i
	Rules              tuning.Rules
}

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

type ActionEnvelope struct {
	PlayerID string
	Act      protocol.ActMsg
}

type snapshotReq struct {
	resp chan snapshot.SnapshotV1
}

// WarpSink receives one entry per door interaction that reached the portal logic.
type WarpSink interface {
	WriteWarp(WarpLogEntry) error
}

// World is a single-threaded in-memory voxel world hosting the warp plugin.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	log      *zap.Logger

	tick atomic.Uint64
	// rng is seeded from Seed and the tick on first use within a tick, so
	// draws depend only on the seed, the tick and the order of draws in it.
	rng *rand.Rand

	blocks     map[voxel.Vec3i]voxel.BlockState
	containers map[voxel.Vec3i]*Container
	players    map[string]*Player

	portals *warps.Registry
	plugin  *warps.Plugin

	nextPlayer uint64

	// Per-tick scratch, reset in step.
	effects []protocol.Event

	warpSinks    []WarpSink
	tickSink     TickSink
	snapshotSink chan<- snapshot.SnapshotV1

	inbox    chan ActionEnvelope
	join     chan JoinRequest
	leave    chan string
	snapReqs chan snapshotReq
	stop     chan struct{}
}

// New builds an empty world. portals is the world's registry, usually taken
// from a warps.Registries table; nil gets a fresh one.
func New(cfg WorldConfig, cats *catalogs.Catalogs, portals *warps.Registry, logger *zap.Logger) (*World, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("world: empty id")
	}
	if cats == nil {
		return nil, fmt.Errorf("world %s: nil catalogs", cfg.ID)
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	if portals == nil {
		portals = warps.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("world", cfg.ID))
	return &World{
		cfg:        cfg,
		catalogs:   cats,
		log:        logger,
		blocks:     map[voxel.Vec3i]voxel.BlockState{},
		containers: map[voxel.Vec3i]*Container{},
		players:    map[string]*Player{},
		portals:    portals,
		plugin:     warps.NewPlugin(logger.Named("warps")),
		inbox:      make(chan ActionEnvelope, 1024),
		join:       make(chan JoinRequest, 64),
		leave:      make(chan string, 64),
		snapReqs:   make(chan snapshotReq, 4),
		stop:       make(chan struct{}),
	}, nil
}

func (w *World) AddWarpSink(s WarpSink) { w.warpSinks = append(w.warpSinks, s) }

func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) Inbox() chan<- ActionEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest     { return w.join }
func (w *World) Leave() chan<- string         { return w.leave }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.TickRateHz
}

// Portals exposes the world's registry. Callers off the world goroutine may
// only use its read methods.
func (w *World) Portals() *warps.Registry { return w.portals }

func (w *World) Rules() tuning.Rules { return w.cfg.Rules }
