// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/vmware/webstomp-go/log"
	"github.com/vmware/webstomp-go/transport"
)

// BrokerConnector dials a broker and performs the STOMP handshake.
type BrokerConnector interface {
	Connect(ctx context.Context, config *ConnectionConfig) (*Connection, error)
}

type brokerConnector struct{}

// NewBrokerConnector creates a BrokerConnector.
func NewBrokerConnector() BrokerConnector {
	return &brokerConnector{}
}

// Connect dials config.URL and returns a handshaken Connection. A failed
// handshake closes the transport before returning.
func (bc *brokerConnector) Connect(ctx context.Context, config *ConnectionConfig) (*Connection, error) {
	u, err := checkConfig(config)
	if err != nil {
		return nil, err
	}
	t, err := bc.dial(ctx, u, config)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot reach %s: %v", ErrConnectFailed, u.Redacted(), err)
	}

	conn, err := NewConnection(t)
	if err != nil {
		t.Close()
		return nil, err
	}

	opts := []ConnectOption{ConnectOpt.Timeout(config.ConnectTimeout)}
	if config.Login != "" {
		opts = append(opts, ConnectOpt.Login(config.Login))
	}
	if config.Passcode != "" {
		opts = append(opts, ConnectOpt.Passcode(config.Passcode))
	}
	if config.Host != "" {
		opts = append(opts, ConnectOpt.Host(config.Host))
	}
	if _, err := conn.Connect(ctx, opts...); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func (bc *brokerConnector) dial(ctx context.Context, u *url.URL, config *ConnectionConfig) (transport.Transport, error) {
	opts := []transport.Option{transport.WithLogger(log.ForComponent("transport").WithField("broker", u.Host))}
	if config.KeepAliveInterval != 0 {
		opts = append(opts, transport.WithKeepAlive(config.KeepAliveInterval))
	}

	switch u.Scheme {
	case "tcp":
		return transport.DialTCP(ctx, u.Host, opts...)
	default:
		header := http.Header{}
		for k, v := range config.Headers {
			header.Set(k, v)
		}
		return transport.DialWebSocket(ctx, u.String(), header, opts...)
	}
}
