package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	// InboundTypeJoinRoom carries the user id, encoded as a JSON string.
	InboundTypeJoinRoom = "joinRoom"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Server to client event names.
const (
	EventActiveUsers      = "activeUsers"
	EventDocumentUploaded = "document:uploaded"
	EventDocumentUpdated  = "document:updated"
	EventDocumentDeleted  = "document:deleted"
	EventNotificationNew  = "notification:new"
	EventCategoryCreated  = "category:created"
)

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// RawOutbound is Outbound as seen by a decoder that dispatches on Event before parsing Data.
type RawOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// Category is the wire form of a document category.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is the wire form of document metadata.
type Document struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CategoryID  *string   `json:"category_id,omitempty"`
	Category    *Category `json:"category,omitempty"`
	StorageKey  string    `json:"storage_key"`
	StorageURL  string    `json:"storage_url,omitempty"`
	FileSize    int64     `json:"file_size"`
	FileType    string    `json:"file_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// DocumentDeleted only identifies the removed document.
type DocumentDeleted struct {
	ID string `json:"id"`
}

// Notification is the wire form of a durable notification.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	EntityID  string    `json:"entity_id,omitempty"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// User is the public view of an account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
