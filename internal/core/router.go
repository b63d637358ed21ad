package core

// Router maps user ids to rooms and tracks every connected client for broadcasts.
// Like Presence it is owned by the hub goroutine.
type Router struct {
	rooms map[string]*Room
	conns map[*Client]struct{}
}

// NewRouter returns a router with no connections.
func NewRouter() *Router {
	return &Router{
		rooms: make(map[string]*Room),
		conns: make(map[*Client]struct{}),
	}
}

// Connect makes c reachable by Broadcast.
func (r *Router) Connect(c *Client) {
	r.conns[c] = struct{}{}
}

// JoinRoom binds c to the room named userID, creating the room on first use.
func (r *Router) JoinRoom(c *Client, userID string) bool {
	room, ok := r.rooms[userID]
	if !ok {
		room = NewRoom(userID)
		r.rooms[userID] = room
	}
	return room.AddClient(c)
}

// Disconnect drops every binding of c. Rooms left without members are forgotten.
func (r *Router) Disconnect(c *Client) {
	delete(r.conns, c)
	if c.userID == "" {
		return
	}
	if room, ok := r.rooms[c.userID]; ok {
		room.RemoveClient(c)
		if room.Empty() {
			delete(r.rooms, c.userID)
		}
	}
}

// EmitToRoom delivers event to every connection bound to userID.
// An unknown or empty room is not an error; the event is simply not delivered.
func (r *Router) EmitToRoom(userID string, event *Event) (delivered, dropped int) {
	room, ok := r.rooms[userID]
	if !ok {
		return 0, 0
	}
	return room.Broadcast(event)
}

// Broadcast delivers event to every connection regardless of room.
func (r *Router) Broadcast(event *Event) (delivered, dropped int) {
	for c := range r.conns {
		if deliver(c, event) {
			delivered++
		} else {
			dropped++
		}
	}
	return delivered, dropped
}

// Members returns the number of connections bound to userID.
func (r *Router) Members(userID string) int {
	if room, ok := r.rooms[userID]; ok {
		return room.Len()
	}
	return 0
}
