// Package stream pushes simulation frames to browser clients over
// WebSocket. A Hub is a pipe.Sink for snapshots, so an Engine can emit to
// it directly without ever blocking on a slow client.
package stream

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/flocksim/internal/analysis"
	"github.com/san-kum/flocksim/internal/logging"
	"github.com/san-kum/flocksim/internal/pipe"
	"github.com/san-kum/flocksim/internal/sim"
)

const (
	broadcastBuffer = 64
	clientBuffer    = 16
)

// Frame is the wire form of a snapshot.
type Frame struct {
	Step       uint64       `json:"step"`
	Time       float64      `json:"time"`
	Order      float64      `json:"order"`
	Positions  [][3]float64 `json:"positions"`
	Velocities [][3]float64 `json:"velocities"`
}

func NewFrame(s sim.Snapshot) Frame {
	f := Frame{
		Step:       s.Step,
		Time:       s.Time,
		Order:      analysis.OrderParameter(s.Particles),
		Positions:  make([][3]float64, len(s.Particles)),
		Velocities: make([][3]float64, len(s.Particles)),
	}
	for i, p := range s.Particles {
		f.Positions[i] = [3]float64{p.Position.X, p.Position.Y, p.Position.Z}
		f.Velocities[i] = [3]float64{p.Velocity.X, p.Velocity.Y, p.Velocity.Z}
	}
	return f
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of connected clients and fans frames out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	log        logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logging.OrDiscard(log).WithField("component", "stream"),
	}
}

// Run is the hub's main loop. It returns when ctx is done, disconnecting
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("stream hub shutting down")
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.log.WithField("clients", n).Info("client connected")
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.log.Info("client disconnected")
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// too slow to keep up
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Send encodes s and queues it for broadcast. A full backlog drops the
// frame and reports pipe.ErrDisconnected; a stopped hub reports
// pipe.ErrClosed.
func (h *Hub) Send(s sim.Snapshot) error {
	select {
	case <-h.done:
		return pipe.ErrClosed
	default:
	}

	payload, err := json.Marshal(NewFrame(s))
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- payload:
		return nil
	default:
		return pipe.ErrDisconnected
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) attach(conn *websocket.Conn) (*Client, bool) {
	c := &Client{hub: h, conn: conn, send: make(chan []byte, clientBuffer)}
	select {
	case h.register <- c:
		return c, true
	case <-h.done:
		return nil, false
	}
}

func (h *Hub) detach(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
