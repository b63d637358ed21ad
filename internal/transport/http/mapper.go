package http

import (
	"encoding/json"
	"strings"

	"github.com/vovakirdan/docflow-server/internal/core"
	"github.com/vovakirdan/docflow-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoinRoom:
		var userID string
		if err := json.Unmarshal(inbound.Data, &userID); err != nil {
			return nil, nil, err
		}
		userID = strings.TrimSpace(userID)
		if userID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "user id is required"}, nil
		}
		return &core.Command{Kind: core.CommandJoinRoom, UserID: userID}, nil, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventActiveUsers:
		users := event.ActiveUsers
		if users == nil {
			users = []string{}
		}
		return eventOutbound(proto.EventActiveUsers, users)
	case core.EventDocumentUploaded:
		return eventOutbound(proto.EventDocumentUploaded, documentDTO(event.Document))
	case core.EventDocumentUpdated:
		return eventOutbound(proto.EventDocumentUpdated, documentDTO(event.Document))
	case core.EventDocumentDeleted:
		return eventOutbound(proto.EventDocumentDeleted, proto.DocumentDeleted{ID: event.DocumentID})
	case core.EventNotificationNew:
		return eventOutbound(proto.EventNotificationNew, notificationDTO(event.Notification))
	case core.EventCategoryCreated:
		return eventOutbound(proto.EventCategoryCreated, categoryDTO(event.Category))
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventOutbound(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}
