package relay

import (
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket connection. The read goroutine pushes
// inbound frames into the hub; the write goroutine drains the send channel
// back to the socket. Separating read and write keeps one slow browser from
// blocking the rest.
//
// userID and userName are written and read only by the hub goroutine.
type Client struct {
	id     string
	hub    *Hub
	socket *websocket.Conn
	send   chan []byte

	userID   string
	userName string

	writeTimeout time.Duration
	pongTimeout  time.Duration
}

// ID returns the connection identifier.
func (c *Client) ID() string { return c.id }

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.socket.Close()
	}()

	_ = c.socket.SetReadDeadline(time.Now().Add(c.pongTimeout))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(c.pongTimeout))
	})

	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			return
		}
		c.hub.inbound <- inboundFrame{client: c, data: data}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pongTimeout * 8 / 10)
	defer func() {
		ticker.Stop()
		_ = c.socket.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
