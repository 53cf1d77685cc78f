package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeSpotStatusChanged MessageType = "spot.status_changed"
	TypeClaimGranted      MessageType = "claim.granted"
	TypeClaimReleased     MessageType = "claim.released"
	TypeVehicleEvicted    MessageType = "vehicle.evicted"
	TypeZoneChanged       MessageType = "zone.changed"
	TypeSweepCompleted    MessageType = "sweep.completed"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// SpotStatusPayload is the payload for spot.status_changed events.
type SpotStatusPayload struct {
	SpotNumber string `json:"spot_number"`
	LotName    string `json:"lot_name"`
	ZoneName   string `json:"zone_name"`
	Occupied   bool   `json:"occupied"`
	Active     bool   `json:"active"`
}

// ClaimPayload is the payload for claim.granted and claim.released events.
type ClaimPayload struct {
	Plate      string    `json:"plate"`
	SpotNumber string    `json:"spot_number"`
	LotName    string    `json:"lot_name"`
	ZoneName   string    `json:"zone_name,omitempty"`
	At         time.Time `json:"at"`
}

// EvictionPayload is the payload for vehicle.evicted events.
type EvictionPayload struct {
	Plate      string    `json:"plate"`
	SpotNumber string    `json:"spot_number"`
	LotName    string    `json:"lot_name"`
	Reason     string    `json:"reason"`
	ArrivedAt  time.Time `json:"arrived_at"`
	EvictedAt  time.Time `json:"evicted_at"`
}

// ZoneChangePayload is the payload for zone.changed events.
type ZoneChangePayload struct {
	LotName  string `json:"lot_name"`
	ZoneName string `json:"zone_name"`
}

// SweepPayload is the payload for sweep.completed events.
type SweepPayload struct {
	Evicted int `json:"evicted"`
	Pruned  int `json:"pruned,omitempty"`
}
