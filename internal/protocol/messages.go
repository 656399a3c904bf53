package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	PlayerName      string            `json:"player_name"`
	WorldID         string            `json:"world_id,omitempty"`
	Capabilities    HelloCapabilities `json:"capabilities,omitempty"`
}

type HelloCapabilities struct {
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	PlayerID        string         `json:"player_id"`
	WorldID         string         `json:"world_id"`
	Tick            uint64         `json:"tick"`
	Spawn           [3]int         `json:"spawn"`
	Rules           RulesInfo      `json:"rules"`
	Catalogs        CatalogDigests `json:"catalogs"`
	WorldManifest   []string       `json:"world_manifest,omitempty"`
}

type RulesInfo struct {
	LapisWarpsCreateLightning bool `json:"lapis_warps_create_lightning"`
}

type CatalogDigests struct {
	BlockPalette PaletteInfo `json:"block_palette"`
	ItemPalette  PaletteInfo `json:"item_palette"`
}

type PaletteInfo struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// ACT (client -> server)
type ActMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	PlayerID        string   `json:"player_id"`
	Tick            uint64   `json:"tick,omitempty"`
	Actions         []Action `json:"actions"`
}

// Action types.
const (
	ActSetBlock     = "SET_BLOCK"
	ActBreak        = "BREAK"
	ActSetContainer = "SET_CONTAINER"
	ActMove         = "MOVE"
	ActUse          = "USE"
)

type Action struct {
	Type string `json:"type"`
	Pos  [3]int `json:"pos"`

	// SET_BLOCK
	Block  string `json:"block,omitempty"`
	Facing string `json:"facing,omitempty"`
	Half   string `json:"half,omitempty"`
	Open   bool   `json:"open,omitempty"`

	// SET_CONTAINER: item id per slot, "" for empty.
	Slots []string `json:"slots,omitempty"`

	// MOVE
	Yaw   float64 `json:"yaw,omitempty"`
	Pitch float64 `json:"pitch,omitempty"`
}

// EVENT (server -> client), one per tick with anything to report.
type EventMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Tick            uint64      `json:"tick"`
	Player          PlayerState `json:"player"`
	Events          []Event     `json:"events"`
}

type PlayerState struct {
	ID    string     `json:"id"`
	Pos   [3]float64 `json:"pos"`
	Yaw   float64    `json:"yaw"`
	Pitch float64    `json:"pitch"`
}

// Event is a loosely typed entry; "type" and "t" are always set.
type Event map[string]any

// Event types.
const (
	EventBlock    = "BLOCK"
	EventWarp     = "WARP"
	EventPrune    = "PRUNE"
	EventRegister = "REGISTER"
	EventRewire   = "REWIRE"
	EventEffect   = "EFFECT"
	EventError    = "ERROR"
)
