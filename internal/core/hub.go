package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/docflow-server/internal/log"
)

// Hub owns presence and room state. All mutation happens on the goroutine running Run,
// so Presence and Router need no locking.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	publish    chan delivery
	snapshots  chan chan []string

	ready chan struct{}
	done  chan struct{}

	clients  map[*Client]struct{}
	presence *Presence
	router   *Router
	log      *zerolog.Logger
}

type inbound struct {
	client *Client
	cmd    *Command
}

// delivery is an event addressed to one room, or to everybody when broadcast is set.
type delivery struct {
	room      string
	broadcast bool
	event     *Event
}

// NewHub creates a new hub instance. A nil logger disables hub logging.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound, 64),
		publish:    make(chan delivery, 256),
		snapshots:  make(chan chan []string),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		presence:   NewPresence(),
		router:     NewRouter(),
		log:        log.OrNop(logger),
	}
}

// Run processes hub events until ctx is cancelled. It must be called exactly once.
func (h *Hub) Run(ctx context.Context) {
	close(h.ready)
	defer close(h.done)
	defer h.shutdown()

	h.log.Info().Msg("hub started")
	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("hub stopping")
			return
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case in := <-h.inbound:
			h.handleCommand(in.client, in.cmd)
		case d := <-h.publish:
			h.handleDelivery(d)
		case reply := <-h.snapshots:
			reply <- h.presence.Snapshot()
		}
	}
}

// Ready is closed once Run has started.
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// RegisterClient adds a client to the hub and starts forwarding its commands.
// It blocks until the hub accepts the client or stops.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient removes a client, releases its presence and closes its Events channel.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// EmitToRoom queues event for every connection joined to the room of userID.
func (h *Hub) EmitToRoom(ctx context.Context, userID string, event *Event) error {
	return h.enqueue(ctx, delivery{room: userID, event: event})
}

// Broadcast queues event for every connected client.
func (h *Hub) Broadcast(ctx context.Context, event *Event) error {
	return h.enqueue(ctx, delivery{broadcast: true, event: event})
}

// ActiveUsers returns the presence snapshot.
func (h *Hub) ActiveUsers(ctx context.Context) ([]string, error) {
	if err := h.checkRunning(); err != nil {
		return nil, err
	}
	reply := make(chan []string, 1)
	select {
	case h.snapshots <- reply:
	case <-h.done:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case users := <-reply:
		return users, nil
	case <-h.done:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) enqueue(ctx context.Context, d delivery) error {
	if err := h.checkRunning(); err != nil {
		return err
	}
	select {
	case h.publish <- d:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) checkRunning() error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case <-h.ready:
		return nil
	default:
		return ErrHubNotReady
	}
}

func (h *Hub) handleRegister(c *Client) {
	if _, exists := h.clients[c]; exists {
		return
	}
	h.clients[c] = struct{}{}
	h.router.Connect(c)
	go h.pump(c)

	h.log.Debug().Str("conn_id", c.ID).Str("subject", c.Subject).Msg("client registered")
}

func (h *Hub) handleUnregister(c *Client) {
	if _, exists := h.clients[c]; !exists {
		return
	}
	h.release(c)

	if c.userID == "" {
		return
	}
	userID, gone := h.presence.Leave(c.ID)
	h.log.Debug().
		Str("conn_id", c.ID).
		Str("user_id", userID).
		Bool("user_gone", gone).
		Msg("client left")
	if gone {
		h.broadcastPresence()
	}
}

// release forgets c and closes its channels. Presence is left to the caller.
func (h *Hub) release(c *Client) {
	delete(h.clients, c)
	h.router.Disconnect(c)
	close(c.done)
	close(c.Events)
}

func (h *Hub) handleCommand(c *Client, cmd *Command) {
	if _, exists := h.clients[c]; !exists || cmd == nil {
		return
	}

	switch cmd.Kind {
	case CommandJoinRoom:
		h.handleJoin(c, cmd.UserID)
	default:
		h.sendError(c, ErrCodeInvalidMessage, "unknown command")
	}
}

func (h *Hub) handleJoin(c *Client, userID string) {
	switch {
	case userID == "":
		h.sendError(c, ErrCodeBadRequest, "user id is required")
		return
	case c.Subject != "" && userID != c.Subject:
		h.sendError(c, ErrCodeForbidden, "cannot join another user's room")
		return
	case c.userID != "" && c.userID != userID:
		h.sendError(c, ErrCodeAlreadyJoined, "connection already joined a room")
		return
	}

	c.userID = userID
	h.router.JoinRoom(c, userID)
	added := h.presence.Join(c.ID, userID)

	h.log.Debug().
		Str("conn_id", c.ID).
		Str("user_id", userID).
		Bool("user_added", added).
		Int("connections", h.presence.Connections(userID)).
		Msg("client joined")

	// Every join republishes the full set so the joining connection learns it too.
	h.broadcastPresence()
}

func (h *Hub) handleDelivery(d delivery) {
	if d.event == nil {
		return
	}

	var delivered, dropped int
	if d.broadcast {
		delivered, dropped = h.router.Broadcast(d.event)
	} else {
		delivered, dropped = h.router.EmitToRoom(d.room, d.event)
	}

	if dropped > 0 {
		h.log.Warn().
			Str("event", d.event.Kind.String()).
			Str("room", d.room).
			Int("dropped", dropped).
			Msg("slow consumers dropped event")
	}
	h.log.Debug().
		Str("event", d.event.Kind.String()).
		Str("room", d.room).
		Bool("broadcast", d.broadcast).
		Int("delivered", delivered).
		Msg("event delivered")
}

func (h *Hub) broadcastPresence() {
	h.handleDelivery(delivery{broadcast: true, event: ActiveUsersEvent(h.presence.Snapshot())})
}

func (h *Hub) sendError(c *Client, code, msg string) {
	if !deliver(c, errorEvent(code, msg)) {
		h.log.Warn().Str("conn_id", c.ID).Str("code", code).Msg("dropped error event")
	}
}

// pump forwards client commands into the hub loop until the client is released.
func (h *Hub) pump(c *Client) {
	for {
		select {
		case cmd, ok := <-c.Commands:
			if !ok {
				return
			}
			select {
			case h.inbound <- inbound{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-h.done:
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *Hub) shutdown() {
	for c := range h.clients {
		h.release(c)
	}
	h.log.Info().Msg("hub stopped")
}
