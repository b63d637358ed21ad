package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vovakirdan/docflow-server/internal/proto"
)

// ErrMalformed is returned for frames whose payload lacks a required field.
var ErrMalformed = errors.New("malformed event")

// Event is one decoded server frame. The set of implementations is closed.
type Event interface {
	Name() string
	isEvent()
}

type (
	// ActiveUsers replaces the presence list.
	ActiveUsers struct{ Users []string }
	// DocumentUploaded carries a new document of this user.
	DocumentUploaded struct{ Document proto.Document }
	// DocumentUpdated carries the new state of a document.
	DocumentUpdated struct{ Document proto.Document }
	// DocumentDeleted identifies a removed document.
	DocumentDeleted struct{ ID string }
	// NotificationNew is the durable record of a lifecycle event.
	NotificationNew struct{ Notification proto.Notification }
	// CategoryCreated announces a category to everybody.
	CategoryCreated struct{ Category proto.Category }
	// ServerError reports a rejected command.
	ServerError struct{ Code, Message string }
)

func (ActiveUsers) Name() string      { return proto.EventActiveUsers }
func (DocumentUploaded) Name() string { return proto.EventDocumentUploaded }
func (DocumentUpdated) Name() string  { return proto.EventDocumentUpdated }
func (DocumentDeleted) Name() string  { return proto.EventDocumentDeleted }
func (NotificationNew) Name() string  { return proto.EventNotificationNew }
func (CategoryCreated) Name() string  { return proto.EventCategoryCreated }
func (ServerError) Name() string      { return proto.OutboundTypeError }

func (ActiveUsers) isEvent()      {}
func (DocumentUploaded) isEvent() {}
func (DocumentUpdated) isEvent()  {}
func (DocumentDeleted) isEvent()  {}
func (NotificationNew) isEvent()  {}
func (CategoryCreated) isEvent()  {}
func (ServerError) isEvent()      {}

// Decode turns a raw frame into a typed event. Unknown event names are reported as errors.
func Decode(out proto.RawOutbound) (Event, error) {
	if out.Type == proto.OutboundTypeError {
		if out.Error == nil {
			return nil, fmt.Errorf("%w: error frame without body", ErrMalformed)
		}
		return ServerError{Code: out.Error.Code, Message: out.Error.Msg}, nil
	}

	switch out.Event {
	case proto.EventActiveUsers:
		var users []string
		if err := unmarshal(out, &users); err != nil {
			return nil, err
		}
		return ActiveUsers{Users: users}, nil
	case proto.EventDocumentUploaded, proto.EventDocumentUpdated:
		var doc proto.Document
		if err := unmarshal(out, &doc); err != nil {
			return nil, err
		}
		if doc.ID == "" {
			return nil, fmt.Errorf("%w: %s without id", ErrMalformed, out.Event)
		}
		if out.Event == proto.EventDocumentUploaded {
			return DocumentUploaded{Document: doc}, nil
		}
		return DocumentUpdated{Document: doc}, nil
	case proto.EventDocumentDeleted:
		var del proto.DocumentDeleted
		if err := unmarshal(out, &del); err != nil {
			return nil, err
		}
		if del.ID == "" {
			return nil, fmt.Errorf("%w: %s without id", ErrMalformed, out.Event)
		}
		return DocumentDeleted{ID: del.ID}, nil
	case proto.EventNotificationNew:
		var n proto.Notification
		if err := unmarshal(out, &n); err != nil {
			return nil, err
		}
		if n.ID == "" {
			return nil, fmt.Errorf("%w: %s without id", ErrMalformed, out.Event)
		}
		return NotificationNew{Notification: n}, nil
	case proto.EventCategoryCreated:
		var cat proto.Category
		if err := unmarshal(out, &cat); err != nil {
			return nil, err
		}
		if cat.ID == "" {
			return nil, fmt.Errorf("%w: %s without id", ErrMalformed, out.Event)
		}
		return CategoryCreated{Category: cat}, nil
	default:
		return nil, fmt.Errorf("unknown event %q", out.Event)
	}
}

func unmarshal(out proto.RawOutbound, v any) error {
	if len(out.Data) == 0 {
		return fmt.Errorf("%w: %s without data", ErrMalformed, out.Event)
	}
	if err := json.Unmarshal(out.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, out.Event, err)
	}
	return nil
}
