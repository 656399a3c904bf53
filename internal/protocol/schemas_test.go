package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"lapiswarps.ai/internal/protocol"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func validateValue(t *testing.T, s *jsonschema.Schema, v any) {
	t.Helper()
	// Round-trip through JSON so structs validate as the wire sees them.
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(doc); err != nil {
		t.Fatalf("validate %s: %v", b, err)
	}
}

func TestSchemas_ValidateSamples(t *testing.T) {
	helloSchema := compileSchema(t, "hello.schema.json")
	welcomeSchema := compileSchema(t, "welcome.schema.json")
	actSchema := compileSchema(t, "act.schema.json")
	eventSchema := compileSchema(t, "event.schema.json")

	validateValue(t, helloSchema, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      "steve",
		WorldID:         "OVERWORLD",
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 8},
	})

	validateValue(t, welcomeSchema, protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        "P1",
		WorldID:         "OVERWORLD",
		Spawn:           [3]int{0, 64, 0},
		Rules:           protocol.RulesInfo{LapisWarpsCreateLightning: true},
		Catalogs: protocol.CatalogDigests{
			BlockPalette: protocol.PaletteInfo{Digest: "deadbeef", Count: 11},
			ItemPalette:  protocol.PaletteInfo{Digest: "deadbeef", Count: 11},
		},
		WorldManifest: []string{"OVERWORLD", "NETHER"},
	})

	validateValue(t, actSchema, protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		PlayerID:        "P1",
		Actions: []protocol.Action{
			{Type: protocol.ActSetBlock, Pos: [3]int{0, 64, 0}, Block: "OAK_DOOR", Facing: "NORTH"},
			{Type: protocol.ActSetContainer, Pos: [3]int{0, 66, -1}, Slots: []string{"DIAMOND", ""}},
			{Type: protocol.ActMove, Pos: [3]int{0, 64, 0}, Yaw: 180, Pitch: 10},
			{Type: protocol.ActUse, Pos: [3]int{0, 64, 0}},
		},
	})

	validateValue(t, eventSchema, protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		WorldID:         "OVERWORLD",
		Tick:            12,
		Player:          protocol.PlayerState{ID: "P1", Pos: [3]float64{10.5, 64, 0.5}, Yaw: 210},
		Events: []protocol.Event{
			{"t": 12, "type": protocol.EventWarp, "from": [3]int{0, 64, 0}, "to": [3]int{10, 64, 0}},
			protocol.ErrorEvent(12, protocol.ErrBadRequest, "bad"),
		},
	})
}

func TestSchemas_RejectBadAction(t *testing.T) {
	actSchema := compileSchema(t, "act.schema.json")
	var doc any
	_ = json.Unmarshal([]byte(`{
	  "type":"ACT",
	  "protocol_version":"1.0",
	  "player_id":"P1",
	  "actions":[{"type":"TELEPORT","pos":[0,0]}]
	}`), &doc)
	if err := actSchema.Validate(doc); err == nil {
		t.Fatalf("expected validation error")
	}
}
