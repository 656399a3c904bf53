package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed     int64  `json:"seed"`
	TickRate int    `json:"tick_rate_hz"`
	Spawn    [3]int `json:"spawn"`

	Blocks     []BlockV1         `json:"blocks"`
	Containers []ContainerV1     `json:"containers"`
	Portals    []PortalChannelV1 `json:"portals"`
	Players    []PlayerV1        `json:"players,omitempty"`

	Counters CountersV1 `json:"counters"`
}

type BlockV1 struct {
	Pos    [3]int `json:"pos"`
	ID     string `json:"id"`
	Facing uint8  `json:"facing,omitempty"`
	Half   uint8  `json:"half,omitempty"`
	Open   bool   `json:"open,omitempty"`
}

type ContainerV1 struct {
	Type  string   `json:"type"`
	Pos   [3]int   `json:"pos"`
	Slots []string `json:"slots"`
}

// PortalChannelV1 is one channel of the portal registry.
type PortalChannelV1 struct {
	Channel int32    `json:"channel"`
	Anchors [][3]int `json:"anchors"`
}

// PlayerV1 is a player's position at snapshot time. Sessions are not saved.
type PlayerV1 struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Pos   [3]float64 `json:"pos"`
	Yaw   float64    `json:"yaw"`
	Pitch float64    `json:"pitch"`
}

type CountersV1 struct {
	NextPlayer uint64 `json:"next_player"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is for tools; gob carries it too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader reads only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
