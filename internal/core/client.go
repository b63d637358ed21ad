package core

// Client is one live push connection as seen by the core layer.
type Client struct {
	// ID is the opaque, server-assigned connection id.
	ID string
	// Subject is the authenticated user behind the connection. Empty means unauthenticated,
	// in which case any room may be joined.
	Subject  string
	Commands chan *Command
	Events   chan *Event

	// userID is bound once by the first successful join and owned by the hub goroutine.
	userID string
	done   chan struct{}
}

const defaultClientBuffer = 64

// NewClient constructs a client with initialized channels.
func NewClient(id, subject string, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &Client{
		ID:       id,
		Subject:  subject,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, buffer),
		done:     make(chan struct{}),
	}
}

// Done is closed once the hub has released the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
