package core

import "github.com/vovakirdan/docflow-server/internal/store"

// EventKind is a notification the core emits to clients.
// The set is closed: every kind has exactly one constructor and one payload field.
type EventKind int

const (
	// EventActiveUsers replaces the receiver's presence list.
	EventActiveUsers EventKind = iota
	// EventDocumentUploaded announces a new document to its owner.
	EventDocumentUploaded
	// EventDocumentUpdated carries the updated document.
	EventDocumentUpdated
	// EventDocumentDeleted carries only the id of the removed document.
	EventDocumentDeleted
	// EventNotificationNew echoes a freshly persisted notification.
	EventNotificationNew
	// EventCategoryCreated is broadcast to every connection.
	EventCategoryCreated
	// EventError notifies a single client about a rejected command.
	EventError
)

var eventNames = [...]string{
	EventActiveUsers:      "activeUsers",
	EventDocumentUploaded: "document:uploaded",
	EventDocumentUpdated:  "document:updated",
	EventDocumentDeleted:  "document:deleted",
	EventNotificationNew:  "notification:new",
	EventCategoryCreated:  "category:created",
	EventError:            "error",
}

// String returns the wire name of the kind.
func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Event is sent to clients to describe what happened in the system.
// Only the field matching Kind is set; events are shared between recipients and must not be mutated.
type Event struct {
	Kind         EventKind
	ActiveUsers  []string
	Document     *store.Document
	DocumentID   string
	Notification *store.Notification
	Category     *store.Category
	Error        *CoreError
}

// ActiveUsersEvent builds a full presence replacement.
func ActiveUsersEvent(users []string) *Event {
	return &Event{Kind: EventActiveUsers, ActiveUsers: users}
}

// DocumentUploadedEvent builds a document:uploaded event.
func DocumentUploadedEvent(doc *store.Document) *Event {
	return &Event{Kind: EventDocumentUploaded, Document: doc}
}

// DocumentUpdatedEvent builds a document:updated event.
func DocumentUpdatedEvent(doc *store.Document) *Event {
	return &Event{Kind: EventDocumentUpdated, Document: doc}
}

// DocumentDeletedEvent builds a document:deleted event.
func DocumentDeletedEvent(id string) *Event {
	return &Event{Kind: EventDocumentDeleted, DocumentID: id}
}

// NotificationNewEvent builds a notification:new event.
func NotificationNewEvent(n *store.Notification) *Event {
	return &Event{Kind: EventNotificationNew, Notification: n}
}

// CategoryCreatedEvent builds a category:created event.
func CategoryCreatedEvent(c *store.Category) *Event {
	return &Event{Kind: EventCategoryCreated, Category: c}
}

func errorEvent(code, msg string) *Event {
	return &Event{Kind: EventError, Error: coreError(code, msg)}
}
