package core

import "slices"

// Presence is the registry of user ids with at least one joined connection.
// A user stays present until its last connection leaves, so closing one of several
// tabs does not mark the user absent.
//
// Presence is not safe for concurrent use; the hub goroutine owns it.
type Presence struct {
	byUser map[string]map[string]struct{}
	byConn map[string]string
	order  []string
}

// NewPresence returns an empty registry.
func NewPresence() *Presence {
	return &Presence{
		byUser: make(map[string]map[string]struct{}),
		byConn: make(map[string]string),
	}
}

// Join registers connID as a live connection of userID. It is idempotent and
// reports whether userID became present.
func (p *Presence) Join(connID, userID string) bool {
	if prev, ok := p.byConn[connID]; ok {
		if prev == userID {
			return false
		}
		p.Leave(connID)
	}

	conns, present := p.byUser[userID]
	if !present {
		conns = make(map[string]struct{})
		p.byUser[userID] = conns
		p.order = append(p.order, userID)
	}
	conns[connID] = struct{}{}
	p.byConn[connID] = userID
	return !present
}

// Leave releases connID. It returns the user the connection belonged to and whether
// that user is no longer present. Unknown connections are ignored.
func (p *Presence) Leave(connID string) (string, bool) {
	userID, ok := p.byConn[connID]
	if !ok {
		return "", false
	}
	delete(p.byConn, connID)

	conns := p.byUser[userID]
	delete(conns, connID)
	if len(conns) > 0 {
		return userID, false
	}

	delete(p.byUser, userID)
	if i := slices.Index(p.order, userID); i >= 0 {
		p.order = slices.Delete(p.order, i, i+1)
	}
	return userID, true
}

// Snapshot returns the present user ids in the order they first joined.
// The slice is a copy and safe to hand to other goroutines.
func (p *Presence) Snapshot() []string {
	return slices.Clone(p.order)
}

// Contains reports whether userID is present.
func (p *Presence) Contains(userID string) bool {
	_, ok := p.byUser[userID]
	return ok
}

// Connections returns the number of joined connections for userID.
func (p *Presence) Connections(userID string) int {
	return len(p.byUser[userID])
}

// Len returns the number of present users.
func (p *Presence) Len() int {
	return len(p.order)
}
