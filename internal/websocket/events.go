package websocket

import (
	"log"
	"time"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastSpotStatusChanged sends a spot.status_changed event.
func (b *EventBroadcaster) BroadcastSpotStatusChanged(spotNumber, lotName, zoneName string, occupied, active bool) {
	msg := NewMessage(TypeSpotStatusChanged, SpotStatusPayload{
		SpotNumber: spotNumber,
		LotName:    lotName,
		ZoneName:   zoneName,
		Occupied:   occupied,
		Active:     active,
	})
	b.broadcast(msg)
}

// BroadcastClaimGranted sends a claim.granted event.
func (b *EventBroadcaster) BroadcastClaimGranted(plate, spotNumber, lotName, zoneName string, at time.Time) {
	msg := NewMessage(TypeClaimGranted, ClaimPayload{
		Plate:      plate,
		SpotNumber: spotNumber,
		LotName:    lotName,
		ZoneName:   zoneName,
		At:         at,
	})
	b.broadcast(msg)
}

// BroadcastClaimReleased sends a claim.released event.
func (b *EventBroadcaster) BroadcastClaimReleased(plate, spotNumber, lotName string, at time.Time) {
	msg := NewMessage(TypeClaimReleased, ClaimPayload{
		Plate:      plate,
		SpotNumber: spotNumber,
		LotName:    lotName,
		At:         at,
	})
	b.broadcast(msg)
}

// BroadcastVehicleEvicted sends a vehicle.evicted event.
func (b *EventBroadcaster) BroadcastVehicleEvicted(plate, spotNumber, lotName, reason string, arrivedAt, evictedAt time.Time) {
	msg := NewMessage(TypeVehicleEvicted, EvictionPayload{
		Plate:      plate,
		SpotNumber: spotNumber,
		LotName:    lotName,
		Reason:     reason,
		ArrivedAt:  arrivedAt,
		EvictedAt:  evictedAt,
	})
	b.broadcast(msg)
}

// BroadcastZoneChanged sends a zone.changed event after a lot's zone flip.
func (b *EventBroadcaster) BroadcastZoneChanged(lotName, zoneName string) {
	msg := NewMessage(TypeZoneChanged, ZoneChangePayload{
		LotName:  lotName,
		ZoneName: zoneName,
	})
	b.broadcast(msg)
}

// BroadcastSweepCompleted sends a sweep.completed event.
func (b *EventBroadcaster) BroadcastSweepCompleted(evicted, pruned int) {
	msg := NewMessage(TypeSweepCompleted, SweepPayload{
		Evicted: evicted,
		Pruned:  pruned,
	})
	b.broadcast(msg)
}

// broadcast serializes and sends a message through the hub.
func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Failed to serialize WebSocket message: %v", err)
		return
	}
	b.hub.Broadcast(data)
}
