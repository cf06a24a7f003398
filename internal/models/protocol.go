package models

// Client message types for the device connection.
const (
	MessageAck        = "ack"
	MessageCleanupAck = "cleanup_ack"
)

// Handshake is the first frame a device sends after opening its connection.
// LastSeenPosition is the device's best-known cursor; the hub treats it as a
// hint only and never lets it move replay past the durably stored cursor.
type Handshake struct {
	Token            string `json:"token"`
	DeviceID         string `json:"deviceId"`
	LastSeenPosition string `json:"lastSeenPosition,omitempty"`
}

// ClientMessage is any frame a device sends after the handshake: an ack
// advancing its cursor, or a cleanup ack confirming a completed side effect.
type ClientMessage struct {
	Type     string `json:"type"`
	Position string `json:"position,omitempty"`
	EntityID string `json:"entityId,omitempty"`
}
