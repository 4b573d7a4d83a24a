// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package bridge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/go-stomp/stomp/v3"
	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vmware/webstomp-go/codec"
	"github.com/vmware/webstomp-go/log"
	"github.com/vmware/webstomp-go/transport"
)

// Connection is a STOMP session with a broker over one Transport. Creating a
// Connection starts its receive loop; Close stops it.
type Connection struct {
	Id             *uuid.UUID
	transport      transport.Transport
	receiver       *receiver
	cancel         context.CancelFunc
	sendLock       sync.Mutex
	connLock       sync.RWMutex
	frameConnected *frame.Frame
	logger         *logrus.Entry
	closeOnce      sync.Once
}

// NewConnection takes ownership of t and starts receiving from it.
func NewConnection(t transport.Transport) (*Connection, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot create connection, transport is nil")
	}
	id := uuid.New()
	logger := log.ForComponent("connection").WithField("connection", id.String())
	ctx, cancel := context.WithCancel(context.Background())

	c := &Connection{
		Id:        &id,
		transport: t,
		receiver:  newReceiver(t, logger),
		cancel:    cancel,
		logger:    logger,
	}
	logger.Info("new webstomp connection initializing, starting receiver")
	go c.receiver.run(ctx)
	return c, nil
}

// Connect sends CONNECT and waits for the broker's answer. The CONNECTED frame
// is stored and returned; any other answer fails with ErrConnectFailed. When
// ctx expires or the Timeout option elapses first, ErrTimeout is returned.
func (c *Connection) Connect(ctx context.Context, opts ...ConnectOption) (*frame.Frame, error) {
	o := &connectOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	f := frame.New(frame.CONNECT, frame.AcceptVersion, string(stomp.V11))
	if o.login != nil {
		f.Header.Add(frame.Login, *o.login)
	}
	if o.passcode != nil {
		f.Header.Add(frame.Passcode, *o.passcode)
	}
	if o.host != "" {
		f.Header.Add(frame.Host, o.host)
	}

	responses := c.receiver.expectHandshake()
	if err := c.sendFrame(f); err != nil {
		c.receiver.abandonHandshake(responses)
		return nil, err
	}

	select {
	case resp := <-responses:
		return c.acceptHandshake(resp)
	case <-c.receiver.done:
		c.receiver.abandonHandshake(responses)
		select {
		case resp := <-responses:
			return c.acceptHandshake(resp)
		default:
		}
		err := c.receiver.Err()
		if err == nil {
			err = ErrConnectionClosed
		}
		return nil, fmt.Errorf("handshake aborted: %w", err)
	case <-ctx.Done():
		c.receiver.abandonHandshake(responses)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

func (c *Connection) acceptHandshake(resp *frame.Frame) (*frame.Frame, error) {
	if resp.Command != frame.CONNECTED {
		c.logger.Errorf("handshake rejected: %s", codec.Describe(resp))
		if msg, ok := resp.Header.Contains(frame.Message); ok {
			return nil, fmt.Errorf("%w: %s %s", ErrConnectFailed, resp.Command, msg)
		}
		return nil, fmt.Errorf("%w: %s", ErrConnectFailed, resp.Command)
	}
	c.connLock.Lock()
	c.frameConnected = resp
	c.connLock.Unlock()
	c.logger.Info("connection successfully initialized")
	return resp, nil
}

// Send publishes body to destination.
func (c *Connection) Send(destination string, body []byte, opts ...SendOption) error {
	if destination == "" {
		return ErrNoDestination
	}
	o := &sendOptions{contentType: DefaultContentType}
	for _, opt := range opts {
		opt(o)
	}

	f := frame.New(frame.SEND,
		frame.Destination, destination,
		frame.ContentType, o.contentType)
	if o.contentLength != nil {
		f.Header.Add(frame.ContentLength, strconv.Itoa(*o.contentLength))
	}
	for i := 0; i+1 < len(o.headers); i += 2 {
		f.Header.Add(o.headers[i], o.headers[i+1])
	}
	f.Body = body
	return c.sendFrame(f)
}

// Subscribe to messages under destination. id must be unique per subscription.
func (c *Connection) Subscribe(destination, id string) error {
	if destination == "" {
		return ErrNoDestination
	}
	if id == "" {
		return ErrNoId
	}
	c.logger.Infof("subscribing to destination %s", destination)
	return c.sendFrame(frame.New(frame.SUBSCRIBE,
		frame.Destination, destination,
		frame.Id, id))
}

// Unsubscribe ends the subscription registered under id.
func (c *Connection) Unsubscribe(id string) error {
	if id == "" {
		return ErrNoId
	}
	c.logger.Infof("unsubscribing %s", id)
	return c.sendFrame(frame.New(frame.UNSUBSCRIBE, frame.Id, id))
}

// Disconnect sends DISCONNECT and closes the connection.
func (c *Connection) Disconnect() error {
	err := c.sendFrame(frame.New(frame.DISCONNECT))
	if closeErr := c.Close(); err == nil {
		err = closeErr
	}
	return err
}

// AddListener registers l with the receive loop. It becomes active once the
// loop receives its next payload.
func (c *Connection) AddListener(l Listener) {
	if l == nil {
		return
	}
	c.logger.Infof("adding listener %T", l)
	c.receiver.addListener(l)
}

// AddDestinationListener registers l for MESSAGE frames whose destination
// matches pattern, see NewDestinationListener.
func (c *Connection) AddDestinationListener(pattern string, l Listener) error {
	dl, err := NewDestinationListener(pattern, l)
	if err != nil {
		return err
	}
	c.AddListener(dl)
	return nil
}

// Alive reports whether the transport still considers the connection open.
func (c *Connection) Alive() bool {
	return c.transport.Alive()
}

// ConnectedFrame returns the CONNECTED frame of the last successful handshake.
func (c *Connection) ConnectedFrame() *frame.Frame {
	c.connLock.RLock()
	defer c.connLock.RUnlock()
	return c.frameConnected
}

// Done is closed when the receive loop has exited.
func (c *Connection) Done() <-chan struct{} {
	return c.receiver.done
}

// Err returns the error that ended the receive loop, if any.
func (c *Connection) Err() error {
	return c.receiver.Err()
}

// Close stops the receive loop and the transport's keepalive and closes the
// transport. It waits for the receive loop to exit, except when a listener is
// running on the loop at that moment: then it returns at once and the loop
// exits as soon as the listener returns. Use Done to wait for that.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.transport.Close()
		if !c.receiver.inListener() {
			<-c.receiver.done
		}
		c.logger.Info("connection closed")
	})
	return err
}

func (c *Connection) sendFrame(f *frame.Frame) error {
	payload, err := codec.Encode(f)
	if err != nil {
		return err
	}
	c.logger.Debugf("sending frame to server: %s", codec.Describe(f))

	c.sendLock.Lock()
	defer c.sendLock.Unlock()
	if err := c.transport.Send(payload); err != nil {
		return fmt.Errorf("cannot send %s frame: %w", f.Command, err)
	}
	framesSent.WithLabelValues(f.Command).Inc()
	return nil
}
