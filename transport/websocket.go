// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Subprotocols offered during the WebSocket upgrade.
var Subprotocols = []string{"v10.stomp", "v11.stomp", "v12.stomp"}

// WebSocketTransport is a Transport over a WebSocket connection.
//
// Pong frames are handed to the caller like data frames, and ping frames are
// answered with a pong and then handed to the caller as well. A close frame
// is acknowledged and reported as an empty payload; from then on Receive
// returns ErrConnectionClosed.
type WebSocketTransport struct {
	// conn is kept for Close once socket has been invalidated.
	conn      Socket
	socket    Socket
	lock      sync.Mutex
	alive     int32
	keepAlive *keepAlive
	logger    *logrus.Entry
	closeOnce sync.Once
}

// NewWebSocketTransport wraps socket and starts its keepalive pinger.
func NewWebSocketTransport(socket Socket, opts ...Option) (*WebSocketTransport, error) {
	if socket == nil {
		return nil, fmt.Errorf("cannot create transport, socket is nil")
	}
	o := newOptions("websocket-transport", opts)
	t := &WebSocketTransport{
		conn:   socket,
		socket: socket,
		alive:  1,
		logger: o.logger,
	}

	var err error
	t.keepAlive, err = startKeepAlive(o.keepAlive, t.logger, t.ping)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DialWebSocket opens a WebSocket connection to url and wraps it in a transport.
func DialWebSocket(ctx context.Context, url string, header http.Header, opts ...Option) (*WebSocketTransport, error) {
	dialer := *websocket.DefaultDialer
	dialer.Subprotocols = Subprotocols

	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to endpoint '%s': %w", url, err)
	}
	return NewWebSocketTransport(NewGorillaSocket(conn), opts...)
}

func (t *WebSocketTransport) currentSocket() Socket {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.socket
}

func (t *WebSocketTransport) invalidate() {
	t.lock.Lock()
	t.socket = nil
	t.lock.Unlock()
}

// markClosed flips liveness once and stops the pinger with it.
func (t *WebSocketTransport) markClosed() {
	if atomic.CompareAndSwapInt32(&t.alive, 1, 0) {
		t.keepAlive.stop()
		t.logger.Debug("websocket connection observed closed")
	}
}

func (t *WebSocketTransport) Receive() ([]byte, error) {
	socket := t.currentSocket()
	if socket == nil {
		if !t.Alive() {
			return nil, ErrConnectionClosed
		}
		return nil, ErrTransportInvalid
	}

	op, payload, err := socket.ReceiveFrame()
	if err != nil {
		if errors.Is(err, ErrConnectionClosed) {
			t.markClosed()
			return nil, err
		}
		t.invalidate()
		return nil, err
	}

	switch op {
	case OpText, OpBinary, OpPong:
		return payload, nil
	case OpClose:
		if err := socket.SendClose(); err != nil {
			t.logger.WithError(err).Debug("cannot acknowledge close frame")
		}
		t.invalidate()
		t.markClosed()
		return nil, nil
	case OpPing:
		if err := socket.Pong(payload); err != nil {
			t.logger.WithError(err).Debug("cannot answer ping")
		}
		return payload, nil
	}
	return nil, fmt.Errorf("unexpected websocket opcode %d", op)
}

func (t *WebSocketTransport) Send(payload []byte) error {
	socket := t.currentSocket()
	if socket == nil {
		return ErrTransportInvalid
	}
	return socket.Send(payload)
}

func (t *WebSocketTransport) Alive() bool {
	return atomic.LoadInt32(&t.alive) == 1
}

// Close stops the pinger and closes the socket. The transport is not alive
// afterwards.
func (t *WebSocketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.keepAlive.stop()
		t.markClosed()
		err = t.conn.Close()
	})
	return err
}

func (t *WebSocketTransport) ping() error {
	socket := t.currentSocket()
	if socket == nil {
		return ErrTransportInvalid
	}
	return socket.Ping(nil)
}
