package multiworld

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"lapiswarps.ai/internal/protocol"
	"lapiswarps.ai/internal/sim/catalogs"
	"lapiswarps.ai/internal/sim/tuning"
	"lapiswarps.ai/internal/sim/voxel"
	"lapiswarps.ai/internal/sim/warps"
	"lapiswarps.ai/internal/sim/world"
)

type Session struct {
	PlayerID     string
	CurrentWorld string
	Out          chan []byte
}

type Runtime struct {
	Spec  WorldSpec
	World *world.World
}

const (
	worldRequestTimeout   = 3 * time.Second
	worldLeaveSendTimeout = 300 * time.Millisecond
)

// ErrWorldBusy is returned when a world's inbox stays full past the request timeout.
var ErrWorldBusy = errors.New("world inbox busy")

var ErrWorldNotFound = errors.New("world not found")

// Manager owns one world runtime per configured world and the table of their
// portal registries. Portals only pair within a world.
type Manager struct {
	mu sync.RWMutex

	runtimes   map[string]*Runtime
	registries *warps.Registries
	manifest   []string
	defaultID  string
	log        *zap.Logger
}

// BuildWorlds creates a world per spec. Each world's seed is the tuning seed
// plus its offset and its rules are the tuning rules merged with the world's own.
// Registries are taken from (and stay attached to) regs.
func BuildWorlds(cfg Config, tune tuning.Tuning, cats *catalogs.Catalogs, regs *warps.Registries, logger *zap.Logger) (map[string]*Runtime, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	out := make(map[string]*Runtime, len(cfg.Worlds))
	for _, spec := range cfg.Worlds {
		w, err := world.New(world.WorldConfig{
			ID:                 spec.ID,
			TickRateHz:         tune.TickRateHz,
			Seed:               tune.Seed + spec.SeedOffset,
			SnapshotEveryTicks: tune.SnapshotEveryTicks,
			Spawn:              voxel.FromArray(*spec.Spawn),
			Rules:              tune.Rules.Merge(spec.Rules),
		}, cats, regs.For(spec.ID), logger)
		if err != nil {
			return nil, fmt.Errorf("world %s: %w", spec.ID, err)
		}
		out[spec.ID] = &Runtime{Spec: spec, World: w}
	}
	return out, nil
}

func NewManager(cfg Config, runtimes map[string]*Runtime, regs *warps.Registries, logger *zap.Logger) (*Manager, error) {
	if len(runtimes) == 0 {
		return nil, fmt.Errorf("empty runtimes")
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, spec := range cfg.Worlds {
		rt := runtimes[spec.ID]
		if rt == nil || rt.World == nil {
			return nil, fmt.Errorf("missing runtime for world %s", spec.ID)
		}
	}
	if regs == nil {
		regs = warps.NewRegistries()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		runtimes:   runtimes,
		registries: regs,
		manifest:   cfg.Manifest(),
		defaultID:  cfg.DefaultWorldID,
		log:        logger.Named("multiworld"),
	}, nil
}

func (m *Manager) WorldIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.runtimes))
	for id := range m.runtimes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) Runtime(id string) *Runtime {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runtimes[id]
}

func (m *Manager) Registries() *warps.Registries { return m.registries }

func (m *Manager) Manifest() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.manifest...)
}

// Run runs every world loop until ctx is done and returns the first error
// other than cancellation.
func (m *Manager) Run(ctx context.Context) error {
	ids := m.WorldIDs()
	errCh := make(chan error, len(ids))
	var wg sync.WaitGroup
	for _, id := range ids {
		rt := m.Runtime(id)
		wg.Add(1)
		go func(rt *Runtime) {
			defer wg.Done()
			if err := rt.World.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("world %s: %w", rt.Spec.ID, err)
			}
		}(rt)
	}
	wg.Wait()
	close(errCh)
	return <-errCh
}

// Join places a new player in the preferred world, or the default world when
// the preference is empty or unknown.
func (m *Manager) Join(name string, out chan []byte, worldPreference string) (Session, world.JoinResponse, error) {
	target := m.pickWorld(worldPreference)
	rt := m.Runtime(target)
	if rt == nil {
		return Session{}, world.JoinResponse{}, fmt.Errorf("default world not found: %s", target)
	}

	req := world.JoinRequest{
		Name: name,
		Out:  out,
		Resp: make(chan world.JoinResponse, 1),
	}
	ctx, cancel := m.requestCtx(context.Background())
	defer cancel()
	resp, err := m.sendJoinRequest(ctx, rt, req)
	if err != nil {
		return Session{}, world.JoinResponse{}, fmt.Errorf("join request failed: %w", err)
	}
	if resp.Welcome.PlayerID == "" {
		return Session{}, world.JoinResponse{}, fmt.Errorf("join failed")
	}
	resp.Welcome.WorldManifest = m.Manifest()

	m.log.Info("session joined", zap.String("player", resp.Welcome.PlayerID), zap.String("world", target))
	return Session{PlayerID: resp.Welcome.PlayerID, CurrentWorld: target, Out: out}, resp, nil
}

func (m *Manager) Leave(s Session) {
	rt := m.Runtime(s.CurrentWorld)
	if rt == nil {
		return
	}
	timer := time.NewTimer(worldLeaveSendTimeout)
	defer timer.Stop()
	select {
	case rt.World.Leave() <- s.PlayerID:
	case <-timer.C:
		m.log.Warn("leave dropped", zap.String("player", s.PlayerID), zap.String("world", s.CurrentWorld))
	}
}

// RouteAct forwards an ACT to the session's world.
func (m *Manager) RouteAct(ctx context.Context, s *Session, act protocol.ActMsg) error {
	if s == nil {
		return errors.New("nil session")
	}
	rt := m.Runtime(s.CurrentWorld)
	if rt == nil {
		return fmt.Errorf("%w: %s", ErrWorldNotFound, s.CurrentWorld)
	}
	reqCtx, cancel := m.requestCtx(ctx)
	defer cancel()
	select {
	case rt.World.Inbox() <- world.ActionEnvelope{PlayerID: s.PlayerID, Act: act}:
		return nil
	case <-reqCtx.Done():
		return ErrWorldBusy
	}
}

func (m *Manager) requestCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, worldRequestTimeout)
}

func (m *Manager) sendJoinRequest(ctx context.Context, rt *Runtime, req world.JoinRequest) (world.JoinResponse, error) {
	select {
	case rt.World.Join() <- req:
	case <-ctx.Done():
		return world.JoinResponse{}, ctx.Err()
	}
	select {
	case resp := <-req.Resp:
		return resp, nil
	case <-ctx.Done():
		return world.JoinResponse{}, ctx.Err()
	}
}

func (m *Manager) pickWorld(pref string) string {
	if pref == "" {
		return m.defaultID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.runtimes[pref]; ok {
		return pref
	}
	return m.defaultID
}
