package broadcast

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kellyg78/vu-music-sala/internal/domain"
)

type stubListener struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (s *stubListener) TrySend(ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *stubListener) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func event(room domain.RoomID, kind domain.EventKind) domain.Event {
	return domain.Event{Owner: "u1", Room: room, Kind: kind, At: time.Now()}
}

func TestGatewayPublishReachesAllSubscribers(t *testing.T) {
	g := NewGateway()
	a, b := &stubListener{}, &stubListener{}
	g.Subscribe("r1", a)
	g.Subscribe("r1", b)

	g.Publish("r1", event("r1", domain.EventPlaying))

	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}

func TestGatewayRoomsAreIsolated(t *testing.T) {
	g := NewGateway()
	a, b := &stubListener{}, &stubListener{}
	g.Subscribe("r1", a)
	g.Subscribe("r2", b)

	g.Publish("r1", event("r1", domain.EventPlaying))

	assert.Equal(t, 1, a.count())
	assert.Equal(t, 0, b.count())
}

func TestGatewayFailingListenerDoesNotBlockOthers(t *testing.T) {
	g := NewGateway()
	bad := &stubListener{err: errors.New("full buffer")}
	good := &stubListener{}
	g.Subscribe("r1", bad)
	g.Subscribe("r1", good)

	g.Publish("r1", event("r1", domain.EventPaused))

	assert.Equal(t, 1, good.count())
}

func TestGatewayUnsubscribeIdempotent(t *testing.T) {
	g := NewGateway()
	a := &stubListener{}
	g.Subscribe("r1", a)

	g.Unsubscribe("r1", a)
	g.Unsubscribe("r1", a)
	g.Unsubscribe("never-existed", a)

	g.Publish("r1", event("r1", domain.EventSkipped))
	assert.Equal(t, 0, a.count())
	// Empty rooms are pruned.
	assert.Equal(t, 0, g.Subscribers("r1"))
}

func TestGatewayPerRoomOrdering(t *testing.T) {
	g := NewGateway()
	a := &stubListener{}
	g.Subscribe("r1", a)

	kinds := []domain.EventKind{
		domain.EventJoined,
		domain.EventPlaying,
		domain.EventPaused,
		domain.EventResumed,
		domain.EventSkipped,
	}
	for _, k := range kinds {
		g.Publish("r1", event("r1", k))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for i, ev := range a.events {
		assert.Equal(t, kinds[i], ev.Kind)
	}
}

func TestGatewayConcurrentSubscribePublish(t *testing.T) {
	g := NewGateway()

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room := domain.RoomID(fmt.Sprintf("r%d", i%3))
			l := &stubListener{}
			g.Subscribe(room, l)
			g.Publish(room, event(room, domain.EventPlaying))
			g.Unsubscribe(room, l)
		}(i)
	}
	wg.Wait()

	for _, room := range []domain.RoomID{"r0", "r1", "r2"} {
		assert.Equal(t, 0, g.Subscribers(room))
	}
}
