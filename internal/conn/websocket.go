// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package conn

import (
	"context"
	"net/http"

	"github.com/samber/oops"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// maxFrameBytes bounds a single inbound event frame.
const maxFrameBytes = 1 << 20

// WebsocketTransport dials the game server over a websocket carrying one JSON
// envelope per text frame.
type WebsocketTransport struct {
	url    string
	header http.Header
}

// NewWebsocketTransport creates a transport for a ws:// or wss:// URL.
func NewWebsocketTransport(url string, header http.Header) *WebsocketTransport {
	return &WebsocketTransport{url: url, header: header}
}

// Dial opens a websocket to the server.
func (t *WebsocketTransport) Dial(ctx context.Context) (Stream, error) {
	c, resp, err := websocket.Dial(ctx, t.url, &websocket.DialOptions{HTTPHeader: t.header})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, oops.With("url", t.url).Wrapf(err, "websocket dial failed")
	}
	c.SetReadLimit(maxFrameBytes)
	return &wsStream{conn: c}, nil
}

type wsStream struct {
	conn *websocket.Conn
}

func (s *wsStream) Read(ctx context.Context) (Envelope, error) {
	var env Envelope
	if err := wsjson.Read(ctx, s.conn, &env); err != nil {
		if isNormalClose(err) {
			return Envelope{}, ErrClosed()
		}
		return Envelope{}, oops.Wrapf(err, "websocket read failed")
	}
	return env, nil
}

func (s *wsStream) Write(ctx context.Context, env Envelope) error {
	if err := wsjson.Write(ctx, s.conn, env); err != nil {
		return oops.With("event", env.Event).Wrapf(err, "websocket write failed")
	}
	return nil
}

func (s *wsStream) Close() error {
	err := s.conn.Close(websocket.StatusNormalClosure, "client disconnect")
	if err != nil && !isNormalClose(err) {
		return oops.Wrapf(err, "websocket close failed")
	}
	return nil
}

func isNormalClose(err error) bool {
	status := websocket.CloseStatus(err)
	return status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway
}
