package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/google/uuid"
)

// Client is one live socket of an authenticated user.
type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Name   string
	Image  *string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Bool

	room *roomRef // guarded by Hub.mu
}

type roomRef struct {
	id   uuid.UUID
	code string
}

// NewClient creates a client with a send buffer of the given size.
func NewClient(user models.User, buffer int) *Client {
	return &Client{
		ID:     uuid.New(),
		UserID: user.ID,
		Name:   user.Name,
		Image:  user.Image,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

// Send yields encoded frames to write to the socket, in order.
func (c *Client) Send() <-chan []byte { return c.send }

// Done is closed once the hub has removed the client.
func (c *Client) Done() <-chan struct{} { return c.done }

// Dropped reports whether the hub closed the client because its buffer filled up.
func (c *Client) Dropped() bool { return c.dropped.Load() }

// enqueue never blocks; it reports false when the buffer is full.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}
