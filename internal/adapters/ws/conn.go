// Package ws is the viewer transport: browsers subscribe to a room
// over a websocket and receive every event the broadcast gateway
// publishes for it.
package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kellyg78/vu-music-sala/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type eventEnvelope struct {
	Type  string    `json:"type"`
	Room  string    `json:"room"`
	Owner string    `json:"owner"`
	Data  any       `json:"data,omitempty"`
	At    time.Time `json:"at"`
}

// ViewerConn is one subscribed browser. It implements
// broadcast.Listener; a full send buffer drops the event for this
// viewer only.
type ViewerConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
	room   domain.RoomID
}

func newViewerConn(conn *websocket.Conn) *ViewerConn {
	return &ViewerConn{
		conn: conn,
		send: make(chan []byte, 32),
	}
}

func (c *ViewerConn) TrySend(ev domain.Event) error {
	b, err := json.Marshal(eventEnvelope{
		Type:  string(ev.Kind),
		Room:  string(ev.Room),
		Owner: string(ev.Owner),
		Data:  ev.Payload,
		At:    ev.At,
	})
	if err != nil {
		return err
	}
	return c.enqueue(b)
}

func (c *ViewerConn) enqueue(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *ViewerConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// setRoom swaps the subscription marker and returns the previous room.
func (c *ViewerConn) setRoom(room domain.RoomID) domain.RoomID {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.room
	c.room = room
	return prev
}

func (c *ViewerConn) currentRoom() domain.RoomID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}
