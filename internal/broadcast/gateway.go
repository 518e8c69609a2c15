// Package broadcast fans room events out to subscribed viewers.
// Delivery is best-effort and independent per listener; a slow viewer
// never blocks the session that emitted the event.
package broadcast

import (
	"sync"

	"github.com/kellyg78/vu-music-sala/internal/domain"
	"github.com/rs/zerolog/log"
)

// Listener is anything that can receive an event without blocking.
// TrySend must return immediately; returning an error only marks the
// event as dropped for that listener.
type Listener interface {
	TrySend(ev domain.Event) error
}

// Gateway keeps the room → subscriber mapping. Subscriber sets are
// mutated from connect/disconnect traffic and read on every publish.
type Gateway struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]map[Listener]struct{}
}

func NewGateway() *Gateway {
	return &Gateway{
		rooms: make(map[domain.RoomID]map[Listener]struct{}),
	}
}

func (g *Gateway) Subscribe(room domain.RoomID, l Listener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	subs, ok := g.rooms[room]
	if !ok {
		subs = make(map[Listener]struct{})
		g.rooms[room] = subs
	}
	subs[l] = struct{}{}
	log.Debug().Str("module", "broadcast").Str("room", string(room)).Int("subs", len(subs)).Msg("subscribed")
}

// Unsubscribe is idempotent; removing an absent listener is a no-op.
// Empty rooms are pruned so the map does not grow with room ids.
func (g *Gateway) Unsubscribe(room domain.RoomID, l Listener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	subs, ok := g.rooms[room]
	if !ok {
		return
	}
	delete(subs, l)
	if len(subs) == 0 {
		delete(g.rooms, room)
	}
}

// Publish delivers ev to every current subscriber of the room. Events
// published for one room keep the order they were emitted in; failed
// deliveries are counted and dropped.
func (g *Gateway) Publish(room domain.RoomID, ev domain.Event) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	dropped := 0
	for l := range g.rooms[room] {
		if err := l.TrySend(ev); err != nil {
			dropped++
		}
	}
	if dropped > 0 {
		log.Warn().Str("module", "broadcast").Str("room", string(room)).Str("kind", string(ev.Kind)).Int("dropped", dropped).Msg("publish dropped listeners")
	}
}

// Subscribers reports the current subscriber count of a room.
func (g *Gateway) Subscribers(room domain.RoomID) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms[room])
}
