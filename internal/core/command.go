package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom binds the connection to the room named after a user id.
	CommandJoinRoom CommandKind = iota
)

// Command represents an action requested by a client.
type Command struct {
	Kind   CommandKind
	UserID string
}
