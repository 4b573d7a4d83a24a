// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

// Package transport carries raw STOMP payloads over a byte oriented connection.
package transport

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vmware/webstomp-go/log"
)

const (
	// DefaultKeepAliveInterval is how often a transport probes its connection.
	DefaultKeepAliveInterval = 10 * time.Second

	writeWait = 10 * time.Second
)

const (
	ErrConnectionClosed = transportError("connection closed")
	ErrTransportInvalid = transportError("transport handle is no longer valid")
)

type transportError string

func (e transportError) Error() string {
	return string(e)
}

// Transport moves raw frame payloads to and from a broker.
type Transport interface {
	// Receive blocks until the next payload arrives. An empty payload carries
	// no frame (keepalive or close) and should be ignored by the caller.
	// ErrConnectionClosed is returned once the connection has been observed closed.
	Receive() ([]byte, error)
	// Send writes one payload.
	Send(payload []byte) error
	// Alive reports false once the underlying connection was observed closed.
	Alive() bool
	// Close stops the keepalive and releases the underlying connection.
	Close() error
}

// OpCode identifies the kind of a WebSocket frame.
type OpCode int

const (
	OpText   OpCode = 1
	OpBinary OpCode = 2
	OpClose  OpCode = 8
	OpPing   OpCode = 9
	OpPong   OpCode = 10
)

func (op OpCode) String() string {
	switch op {
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	}
	return "unknown"
}

// Socket is the frame level WebSocket connection a WebSocketTransport speaks through.
type Socket interface {
	// ReceiveFrame blocks until one frame arrives. Implementations return an
	// error wrapping ErrConnectionClosed when the connection has gone away.
	ReceiveFrame() (OpCode, []byte, error)
	Send(payload []byte) error
	SendClose() error
	Ping(payload []byte) error
	Pong(payload []byte) error
	Close() error
}

// Option configures a transport.
type Option func(*options)

type options struct {
	keepAlive time.Duration
	logger    *logrus.Entry
}

// WithKeepAlive sets the keepalive interval. Values below one second are
// rounded up to one second, zero or less disables the keepalive.
func WithKeepAlive(interval time.Duration) Option {
	return func(o *options) {
		o.keepAlive = interval
	}
}

// WithLogger replaces the transport's logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(component string, opts []Option) *options {
	o := &options{
		keepAlive: DefaultKeepAliveInterval,
		logger:    log.ForComponent(component),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
