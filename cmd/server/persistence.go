package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"lapiswarps.ai/internal/persistence/indexdb"
	persistlog "lapiswarps.ai/internal/persistence/log"
	"lapiswarps.ai/internal/persistence/snapshot"
	"lapiswarps.ai/internal/sim/catalogs"
	"lapiswarps.ai/internal/sim/tuning"
	"lapiswarps.ai/internal/sim/world"
)

// worldStore wires one world to its directory: snapshots, the warp log and
// the optional index db.
type worldStore struct {
	dir    string
	w      *world.World
	log    *zap.Logger
	warps  *persistlog.WarpLogger
	ticks  *persistlog.TickLogger
	idx    *indexdb.SQLiteIndex
	snapCh chan snapshot.SnapshotV1
	done   chan struct{}
}

func worldDir(dataDir, worldID string) string {
	return filepath.Join(dataDir, "worlds", worldID)
}

func openWorldStore(dataDir string, w *world.World, disableDB bool, logger *zap.Logger) (*worldStore, error) {
	dir := worldDir(dataDir, w.ID())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	st := &worldStore{
		dir:    dir,
		w:      w,
		log:    logger.With(zap.String("world", w.ID())),
		warps:  persistlog.NewWarpLogger(dir),
		ticks:  persistlog.NewTickLogger(dir),
		snapCh: make(chan snapshot.SnapshotV1, 2),
		done:   make(chan struct{}),
	}
	w.AddWarpSink(st.warps)
	w.SetTickSink(st.ticks)
	if !disableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(dir, "index.db"))
		if err != nil {
			_ = st.warps.Close()
			_ = st.ticks.Close()
			return nil, fmt.Errorf("open index db: %w", err)
		}
		st.idx = idx
		w.AddWarpSink(idx)
	}
	w.SetSnapshotSink(st.snapCh)
	return st, nil
}

// resume imports the newest snapshot in the world directory, if any.
func (st *worldStore) resume() error {
	path := latestSnapshot(st.dir)
	if path == "" {
		st.log.Info("fresh world")
		return nil
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", path, err)
	}
	if err := st.w.ImportSnapshot(snap); err != nil {
		return fmt.Errorf("import snapshot %s: %w", path, err)
	}
	// Sessions do not survive a restart.
	st.w.DropOfflinePlayers()
	st.log.Info("resumed from snapshot",
		zap.String("snapshot", filepath.Base(path)),
		zap.Uint64("tick", st.w.CurrentTick()),
		zap.Int("portals", st.w.Portals().Len()),
	)
	return nil
}

func (st *worldStore) upsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) {
	if st.idx == nil {
		return
	}
	if err := st.idx.UpsertCatalogs(configDir, cats, tune); err != nil {
		st.log.Warn("index db upsert catalogs", zap.Error(err))
	}
}

// runWriter writes snapshots emitted by the world loop until ctx is done.
func (st *worldStore) runWriter(ctx context.Context) {
	defer close(st.done)
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-st.snapCh:
			st.write(snap)
		}
	}
}

func (st *worldStore) write(snap snapshot.SnapshotV1) (string, error) {
	path := filepath.Join(st.dir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		st.log.Error("snapshot write", zap.Error(err))
		return "", err
	}
	st.idx.RecordSnapshot(path, snap)
	st.log.Debug("snapshot written", zap.Uint64("tick", snap.Header.Tick))
	return path, nil
}

// finalSnapshot must run after the world loop has stopped.
func (st *worldStore) finalSnapshot() {
	<-st.done
	tick := st.w.CurrentTick()
	if tick > 0 {
		tick--
	}
	if path, err := st.write(st.w.ExportSnapshot(tick)); err == nil {
		st.log.Info("final snapshot", zap.String("path", path))
	}
}

func (st *worldStore) Close() {
	if err := st.warps.Close(); err != nil {
		st.log.Warn("close warp log", zap.Error(err))
	}
	if err := st.ticks.Close(); err != nil {
		st.log.Warn("close event log", zap.Error(err))
	}
	if st.idx != nil {
		if err := st.idx.Close(); err != nil {
			st.log.Warn("close index db", zap.Error(err))
		}
	}
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}
