package client

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/docflow-server/internal/log"
	"github.com/vovakirdan/docflow-server/internal/proto"
)

// Level classifies a toast.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Toast is a user-facing popup raised by an incoming event.
type Toast struct {
	Level   Level
	Event   string
	Message string
}

// Notifier shows toasts. Implementations must not block.
type Notifier interface {
	Notify(Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Toast)

func (f NotifierFunc) Notify(t Toast) { f(t) }

// Consumer keeps the local view of one session and applies server events to it.
// Changes are optimistic: an event never triggers a re-fetch.
type Consumer struct {
	mu            sync.Mutex
	documents     []proto.Document
	notifications []proto.Notification
	categories    []proto.Category
	activeUsers   []string
	editing       string

	ledger   *Ledger
	notifier Notifier
	log      *zerolog.Logger
}

// NewConsumer returns a consumer that checks ledger before raising toasts.
// A nil notifier discards toasts; a nil ledger suppresses nothing.
func NewConsumer(ledger *Ledger, notifier Notifier, logger *zerolog.Logger) *Consumer {
	if ledger == nil {
		ledger = NewLedger()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(Toast) {})
	}
	return &Consumer{ledger: ledger, notifier: notifier, log: log.OrNop(logger)}
}

// Ledger returns the suppression ledger the consumer consults.
func (c *Consumer) Ledger() *Ledger { return c.ledger }

// HandleRaw decodes one frame and applies it. Malformed frames are logged and dropped.
func (c *Consumer) HandleRaw(data []byte) {
	var out proto.RawOutbound
	if err := json.Unmarshal(data, &out); err != nil {
		c.log.Warn().Err(err).Msg("dropping undecodable frame")
		return
	}
	c.HandleOutbound(out)
}

// HandleOutbound applies an already framed message.
func (c *Consumer) HandleOutbound(out proto.RawOutbound) {
	ev, err := Decode(out)
	if err != nil {
		c.log.Warn().Err(err).Str("event", out.Event).Msg("dropping event")
		return
	}
	c.Handle(ev)
}

// Handle applies a decoded event to the local state.
func (c *Consumer) Handle(ev Event) {
	var toasts []Toast

	c.mu.Lock()
	switch e := ev.(type) {
	case ActiveUsers:
		c.activeUsers = slices.Clone(e.Users)
	case DocumentUploaded:
		toasts = c.onUploaded(e.Document)
	case DocumentUpdated:
		toasts = c.onUpdated(e.Document)
	case DocumentDeleted:
		toasts = c.onDeleted(e.ID)
	case NotificationNew:
		c.onNotification(e.Notification)
	case CategoryCreated:
		if !slices.ContainsFunc(c.categories, func(cat proto.Category) bool { return cat.ID == e.Category.ID }) {
			c.categories = append(c.categories, e.Category)
		}
	case ServerError:
		toasts = append(toasts, Toast{Level: LevelError, Event: e.Name(), Message: fmt.Sprintf("%s: %s", e.Code, e.Message)})
	}
	c.mu.Unlock()

	// Toasts are raised outside the lock so a notifier may read state back.
	for _, t := range toasts {
		c.notifier.Notify(t)
	}
}

func (c *Consumer) onUploaded(doc proto.Document) []Toast {
	c.documents = slices.DeleteFunc(c.documents, func(d proto.Document) bool { return d.ID == doc.ID })
	c.documents = slices.Insert(c.documents, 0, doc)

	if c.ledger.IsSuppressed(KindUpload, doc.ID) {
		return nil
	}
	return []Toast{{Level: LevelSuccess, Event: proto.EventDocumentUploaded, Message: "Document uploaded: " + doc.Name}}
}

func (c *Consumer) onUpdated(doc proto.Document) []Toast {
	if i := c.indexOf(doc.ID); i >= 0 {
		c.documents[i] = doc
	}
	if c.editing == doc.ID {
		c.editing = ""
	}

	if c.ledger.IsSuppressed(KindUpdate, doc.ID) {
		return nil
	}
	c.addPlaceholder(proto.EventDocumentUpdated, doc.ID, "Document updated")
	return []Toast{{Level: LevelSuccess, Event: proto.EventDocumentUpdated, Message: "Document updated"}}
}

func (c *Consumer) onDeleted(id string) []Toast {
	c.documents = slices.DeleteFunc(c.documents, func(d proto.Document) bool { return d.ID == id })
	if c.editing == id {
		c.editing = ""
	}

	if c.ledger.IsSuppressed(KindDelete, id) {
		return nil
	}
	c.addPlaceholder(proto.EventDocumentDeleted, id, "Document deleted")
	return []Toast{{Level: LevelSuccess, Event: proto.EventDocumentDeleted, Message: "Document deleted"}}
}

func (c *Consumer) onNotification(n proto.Notification) {
	if kind, ok := kindOf(n.Type); ok && n.EntityID != "" && c.ledger.IsSuppressed(kind, n.EntityID) {
		c.log.Debug().Str("notification_id", n.ID).Str("entity_id", n.EntityID).Msg("notification suppressed")
		return
	}

	c.notifications = slices.DeleteFunc(c.notifications, func(x proto.Notification) bool { return x.ID == n.ID })
	if n.EntityID != "" {
		if i := slices.IndexFunc(c.notifications, func(x proto.Notification) bool {
			return x.ID == PlaceholderID(n.Type, n.EntityID)
		}); i >= 0 {
			c.notifications[i] = n
			return
		}
	}
	c.notifications = slices.Insert(c.notifications, 0, n)
}

func (c *Consumer) addPlaceholder(eventType, entityID, label string) {
	id := PlaceholderID(eventType, entityID)
	if slices.ContainsFunc(c.notifications, func(n proto.Notification) bool { return n.ID == id }) {
		return
	}
	c.notifications = slices.Insert(c.notifications, 0, proto.Notification{
		ID:       id,
		Type:     eventType,
		EntityID: entityID,
		Message:  fmt.Sprintf("%s (ID: %s...)", label, shortID(entityID)),
	})
}

func (c *Consumer) indexOf(id string) int {
	return slices.IndexFunc(c.documents, func(d proto.Document) bool { return d.ID == id })
}

// PlaceholderID names the transient notification shown until the durable one arrives.
func PlaceholderID(eventType, entityID string) string {
	switch eventType {
	case proto.EventDocumentUpdated:
		return "tmp-update-" + entityID
	case proto.EventDocumentDeleted:
		return "tmp-delete-" + entityID
	default:
		return "tmp-" + entityID
	}
}

// IsPlaceholder reports whether n has not been reconciled with a stored notification yet.
func IsPlaceholder(n proto.Notification) bool {
	return n.ID == PlaceholderID(n.Type, n.EntityID)
}

func kindOf(eventType string) (Kind, bool) {
	switch eventType {
	case proto.EventDocumentUploaded:
		return KindUpload, true
	case proto.EventDocumentUpdated:
		return KindUpdate, true
	case proto.EventDocumentDeleted:
		return KindDelete, true
	default:
		return "", false
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// SetDocuments replaces the document list, typically after a REST fetch.
func (c *Consumer) SetDocuments(docs []proto.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.documents = slices.Clone(docs)
}

// SetNotifications replaces the notification feed.
func (c *Consumer) SetNotifications(ns []proto.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = slices.Clone(ns)
}

// SetCategories replaces the category list.
func (c *Consumer) SetCategories(cats []proto.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories = slices.Clone(cats)
}

// Edit opens the edit view on a document. An empty id closes it.
func (c *Consumer) Edit(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = id
}

// Editing returns the id of the document being edited, if any.
func (c *Consumer) Editing() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editing
}

func (c *Consumer) Documents() []proto.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.documents)
}

func (c *Consumer) Notifications() []proto.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.notifications)
}

func (c *Consumer) Categories() []proto.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.categories)
}

func (c *Consumer) ActiveUsers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.activeUsers)
}
