// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package session

import (
	"context"

	"nhooyr.io/websocket"
)

// wsCarrier adapts a nhooyr.io/websocket connection to the Carrier
// interface, matching spec.md §6's carrier URL/origin and
// binary-messages-only requirement.
type wsCarrier struct {
	conn *websocket.Conn
}

// Dial connects to the WhatsApp Web carrier endpoint.
func Dial(ctx context.Context) (Carrier, error) {
	conn, _, err := websocket.Dial(ctx, CarrierURL, &websocket.DialOptions{
		HTTPHeader: map[string][]string{"Origin": {CarrierOrigin}},
	})
	if err != nil {
		return nil, err
	}
	return &wsCarrier{conn: conn}, nil
}

func (c *wsCarrier) Read(ctx context.Context) ([]byte, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	if typ != websocket.MessageBinary {
		return c.Read(ctx)
	}
	return data, nil
}

func (c *wsCarrier) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageBinary, data)
}

func (c *wsCarrier) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "closing")
}
