// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var heartBeat = []byte{'\n'}

// TCPTransport is a Transport over a plain stream connection. Frames are
// delimited by their NUL terminator and EOL heart-beats between frames are
// dropped. The keepalive writes an EOL heart-beat.
type TCPTransport struct {
	conn      net.Conn
	reader    *bufio.Reader
	writeLock sync.Mutex
	alive     int32
	keepAlive *keepAlive
	logger    *logrus.Entry
	closeOnce sync.Once
}

// NewTCPTransport wraps conn and starts its keepalive.
func NewTCPTransport(conn net.Conn, opts ...Option) (*TCPTransport, error) {
	if conn == nil {
		return nil, fmt.Errorf("cannot create transport, connection is nil")
	}
	o := newOptions("tcp-transport", opts)
	t := &TCPTransport{
		conn:   conn,
		reader: bufio.NewReader(conn),
		alive:  1,
		logger: o.logger,
	}

	var err error
	t.keepAlive, err = startKeepAlive(o.keepAlive, t.logger, func() error {
		return t.Send(heartBeat)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DialTCP connects to addr and wraps the connection in a transport.
func DialTCP(ctx context.Context, addr string, opts ...Option) (*TCPTransport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to '%s': %w", addr, err)
	}
	return NewTCPTransport(conn, opts...)
}

func (t *TCPTransport) Receive() ([]byte, error) {
	if !t.Alive() {
		return nil, ErrConnectionClosed
	}

	payload, err := t.reader.ReadBytes(0)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
			t.markClosed()
			return nil, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
		}
		return nil, err
	}
	return bytes.TrimLeft(payload, "\r\n"), nil
}

func (t *TCPTransport) Send(payload []byte) error {
	t.writeLock.Lock()
	defer t.writeLock.Unlock()
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	_, err := t.conn.Write(payload)
	return err
}

func (t *TCPTransport) Alive() bool {
	return atomic.LoadInt32(&t.alive) == 1
}

func (t *TCPTransport) markClosed() {
	if atomic.CompareAndSwapInt32(&t.alive, 1, 0) {
		t.keepAlive.stop()
		t.logger.Debug("tcp connection observed closed")
	}
}

// Close stops the keepalive and closes the connection.
func (t *TCPTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.keepAlive.stop()
		t.markClosed()
		err = t.conn.Close()
	})
	return err
}
