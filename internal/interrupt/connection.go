package interrupt

import (
	"github.com/google/uuid"
)

// Connection is the handle for one subscription to a register. Disposing it
// releases the subscription and every hook it holds.
type Connection struct {
	id       string
	category Category
	release  func(c *Connection)
	disposed bool
}

// newConnection creates a connection that runs release on disposal.
func newConnection(category Category, release func(c *Connection)) *Connection {
	return &Connection{
		id:       uuid.New().String(),
		category: category,
		release:  release,
	}
}

// ID returns the unique connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Category returns the hook category the connection subscribes to.
func (c *Connection) Category() Category {
	return c.category
}

// Disposed reports whether Dispose has been called.
func (c *Connection) Disposed() bool {
	return c.disposed
}

// Dispose releases the subscription. The release runs exactly once;
// disposing a connection twice panics with an InvariantError.
func (c *Connection) Dispose() {
	if c.disposed {
		violate("Connection.Dispose", "connection %s disposed twice", c.id)
	}
	c.disposed = true

	release := c.release
	c.release = nil
	release(c)
}
