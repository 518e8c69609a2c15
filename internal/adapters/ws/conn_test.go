package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kellyg78/vu-music-sala/internal/domain"
)

func TestTrySendEncodesEnvelope(t *testing.T) {
	c := newViewerConn(nil)

	at := time.Now()
	err := c.TrySend(domain.Event{
		Owner:   "u1",
		Room:    "r1",
		Kind:    domain.EventPlaying,
		Payload: map[string]string{"id": "abc"},
		At:      at,
	})
	require.NoError(t, err)

	var env eventEnvelope
	require.NoError(t, json.Unmarshal(<-c.send, &env))
	assert.Equal(t, "playing", env.Type)
	assert.Equal(t, "r1", env.Room)
	assert.Equal(t, "u1", env.Owner)
}

func TestTrySendDropsWhenBufferFull(t *testing.T) {
	c := newViewerConn(nil)
	ev := domain.Event{Owner: "u1", Room: "r1", Kind: domain.EventMessage, At: time.Now()}

	for i := 0; i < cap(c.send); i++ {
		require.NoError(t, c.TrySend(ev))
	}
	assert.ErrorIs(t, c.TrySend(ev), ErrBackpressure)

	// Draining one slot makes room again.
	<-c.send
	assert.NoError(t, c.TrySend(ev))
}

func TestTrySendAfterClose(t *testing.T) {
	c := newViewerConn(nil)
	// Close touches the underlying socket only when one exists.
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	err := c.TrySend(domain.Event{Kind: domain.EventLeft, At: time.Now()})
	assert.Error(t, err)
}

func TestSetRoomReturnsPrevious(t *testing.T) {
	c := newViewerConn(nil)

	assert.Equal(t, domain.RoomID(""), c.setRoom("r1"))
	assert.Equal(t, domain.RoomID("r1"), c.setRoom("r2"))
	assert.Equal(t, domain.RoomID("r2"), c.currentRoom())
}
