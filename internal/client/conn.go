package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/docflow-server/internal/proto"
)

// Conn is one push-channel connection.
type Conn struct {
	ws *websocket.Conn
}

// Dial opens the socket at wsURL, authenticating with token.
func Dial(ctx context.Context, wsURL, token string) (*Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", wsURL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	ws.SetReadLimit(1 << 20)
	return &Conn{ws: ws}, nil
}

// Join binds the connection to the room of userID.
func (c *Conn) Join(ctx context.Context, userID string) error {
	data, err := json.Marshal(userID)
	if err != nil {
		return err
	}
	return wsjson.Write(ctx, c.ws, proto.Inbound{Type: proto.InboundTypeJoinRoom, Data: data})
}

// Next blocks for the next frame.
func (c *Conn) Next(ctx context.Context) (proto.RawOutbound, error) {
	var out proto.RawOutbound
	_, data, err := c.ws.Read(ctx)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

// Run feeds frames to consumer until ctx ends or the socket closes.
// A normal closure or cancelled context returns nil.
func (c *Conn) Run(ctx context.Context, consumer *Consumer) error {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}
		consumer.HandleRaw(data)
	}
}

// Close performs a normal closure.
func (c *Conn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "bye")
}
