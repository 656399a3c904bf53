package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// World routing/state.
	ErrWorldBusy     = "E_WORLD_BUSY"
	ErrWorldNotFound = "E_WORLD_NOT_FOUND"

	// Action layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrUnknownBlock  = "E_UNKNOWN_BLOCK"
	ErrUnknownItem   = "E_UNKNOWN_ITEM"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrBlocked       = "E_BLOCKED"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrWorldBusy:       {},
	ErrWorldNotFound:   {},
	ErrBadRequest:      {},
	ErrUnknownBlock:    {},
	ErrUnknownItem:     {},
	ErrInvalidTarget:   {},
	ErrBlocked:         {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// ErrorEvent builds the ERROR event reported back for a rejected action.
func ErrorEvent(tick uint64, code, message string) Event {
	return Event{
		"t":       tick,
		"type":    EventError,
		"code":    code,
		"message": message,
	}
}
