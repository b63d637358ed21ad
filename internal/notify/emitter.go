// Package notify persists lifecycle notifications and pushes them to connected clients.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/docflow-server/internal/core"
	"github.com/vovakirdan/docflow-server/internal/log"
	"github.com/vovakirdan/docflow-server/internal/store"
)

// Publisher delivers events to live connections. *core.Hub implements it.
type Publisher interface {
	EmitToRoom(ctx context.Context, userID string, event *core.Event) error
	Broadcast(ctx context.Context, event *core.Event) error
}

// Emitter turns domain mutations into durable notifications and push events.
// Push is best effort: failures are logged and never reach the caller.
type Emitter struct {
	pub   Publisher
	notes store.NotificationStore
	log   *zerolog.Logger
}

// NewEmitter builds an emitter. pub may be nil until the realtime transport is up.
func NewEmitter(pub Publisher, notes store.NotificationStore, logger *zerolog.Logger) *Emitter {
	return &Emitter{pub: pub, notes: notes, log: log.OrNop(logger)}
}

// Publish pushes event to every connection of userID.
func (e *Emitter) Publish(ctx context.Context, userID string, event *core.Event) {
	if e.pub == nil {
		e.log.Warn().Str("event", event.Kind.String()).Str("user_id", userID).Msg("realtime transport not ready, event dropped")
		return
	}
	if err := e.pub.EmitToRoom(ctx, userID, event); err != nil {
		e.logPublishError(err, event, userID)
	}
}

// PublishAll pushes event to every connection.
func (e *Emitter) PublishAll(ctx context.Context, event *core.Event) {
	if e.pub == nil {
		e.log.Warn().Str("event", event.Kind.String()).Msg("realtime transport not ready, broadcast dropped")
		return
	}
	if err := e.pub.Broadcast(ctx, event); err != nil {
		e.logPublishError(err, event, "")
	}
}

func (e *Emitter) logPublishError(err error, event *core.Event, userID string) {
	lvl := e.log.Error()
	if errors.Is(err, core.ErrHubNotReady) || errors.Is(err, core.ErrHubStopped) {
		lvl = e.log.Warn()
	}
	lvl.Err(err).Str("event", event.Kind.String()).Str("user_id", userID).Msg("publish failed")
}

// DocumentUploaded records and announces a new document to its owner.
func (e *Emitter) DocumentUploaded(ctx context.Context, doc *store.Document) {
	e.documentEvent(ctx, doc, store.NotificationDocumentUploaded, "Document uploaded: %s", core.DocumentUploadedEvent(doc))
}

// DocumentUpdated records and announces an edit.
func (e *Emitter) DocumentUpdated(ctx context.Context, doc *store.Document) {
	e.documentEvent(ctx, doc, store.NotificationDocumentUpdated, "Document updated: %s", core.DocumentUpdatedEvent(doc))
}

// DocumentDeleted records and announces a removal. doc is the last known state of the document.
func (e *Emitter) DocumentDeleted(ctx context.Context, doc *store.Document) {
	e.documentEvent(ctx, doc, store.NotificationDocumentDeleted, "Document deleted: %s", core.DocumentDeletedEvent(doc.ID))
}

// The notification row is written before anything is pushed, so a client that
// refetches on notification:new always finds it.
func (e *Emitter) documentEvent(ctx context.Context, doc *store.Document, typ store.NotificationType, format string, event *core.Event) {
	n := &store.Notification{
		UserID:   doc.OwnerID,
		Type:     typ,
		EntityID: doc.ID,
		Message:  fmt.Sprintf(format, doc.Name),
	}
	if err := e.notes.CreateNotification(ctx, n); err != nil {
		e.log.Error().Err(err).Str("document_id", doc.ID).Str("type", string(typ)).Msg("create notification failed")
		n = nil
	}

	e.Publish(ctx, doc.OwnerID, event)
	if n != nil {
		e.Publish(ctx, doc.OwnerID, core.NotificationNewEvent(n))
	}
}

// CategoryCreated announces a category to every connection. No notification row is stored.
func (e *Emitter) CategoryCreated(ctx context.Context, cat *store.Category) {
	e.PublishAll(ctx, core.CategoryCreatedEvent(cat))
}

// List returns the durable notifications of userID, newest first.
func (e *Emitter) List(ctx context.Context, userID string) ([]*store.Notification, error) {
	return e.notes.ListNotifications(ctx, userID)
}

// MarkRead flags a notification of userID as read.
func (e *Emitter) MarkRead(ctx context.Context, id, userID string) error {
	return e.notes.MarkNotificationRead(ctx, id, userID)
}
