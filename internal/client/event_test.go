package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/docflow-server/internal/proto"
)

func frame(event, data string) proto.RawOutbound {
	return proto.RawOutbound{Type: proto.OutboundTypeEvent, Event: event, Data: json.RawMessage(data)}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   proto.RawOutbound
		want Event
	}{
		{"active users", frame(proto.EventActiveUsers, `["u1","u2"]`), ActiveUsers{Users: []string{"u1", "u2"}}},
		{"uploaded", frame(proto.EventDocumentUploaded, `{"id":"d1","name":"a.txt"}`), DocumentUploaded{Document: proto.Document{ID: "d1", Name: "a.txt"}}},
		{"updated", frame(proto.EventDocumentUpdated, `{"id":"d1","name":"b.txt"}`), DocumentUpdated{Document: proto.Document{ID: "d1", Name: "b.txt"}}},
		{"deleted", frame(proto.EventDocumentDeleted, `{"id":"d1"}`), DocumentDeleted{ID: "d1"}},
		{"notification", frame(proto.EventNotificationNew, `{"id":"n1","type":"document:deleted","entity_id":"d1","message":"m"}`),
			NotificationNew{Notification: proto.Notification{ID: "n1", Type: proto.EventDocumentDeleted, EntityID: "d1", Message: "m"}}},
		{"category", frame(proto.EventCategoryCreated, `{"id":"c1","name":"Finance"}`), CategoryCreated{Category: proto.Category{ID: "c1", Name: "Finance"}}},
		{"error", proto.RawOutbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "forbidden", Msg: "no"}}, ServerError{Code: "forbidden", Message: "no"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   proto.RawOutbound
	}{
		{"deleted without id", frame(proto.EventDocumentDeleted, `{}`)},
		{"updated without id", frame(proto.EventDocumentUpdated, `{"name":"x"}`)},
		{"notification without id", frame(proto.EventNotificationNew, `{"message":"x"}`)},
		{"category without id", frame(proto.EventCategoryCreated, `{"name":"x"}`)},
		{"missing data", frame(proto.EventDocumentDeleted, ``)},
		{"wrong shape", frame(proto.EventActiveUsers, `{"users":1}`)},
		{"error without body", proto.RawOutbound{Type: proto.OutboundTypeError}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.in)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}

	_, err := Decode(frame("document:archived", `{}`))
	assert.Error(t, err)
}
