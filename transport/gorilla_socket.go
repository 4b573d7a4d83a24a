// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type socketFrame struct {
	op      OpCode
	payload []byte
	err     error
}

// gorillaSocket exposes a gorilla connection frame by frame. gorilla consumes
// control frames inside its read calls, so a read pump forwards data frames
// and the ping, pong and close handlers into one ordered stream.
type gorillaSocket struct {
	conn      *websocket.Conn
	frames    chan socketFrame
	done      chan struct{}
	writeLock sync.Mutex
	closeOnce sync.Once
}

// NewGorillaSocket adapts conn to the Socket interface. The default ping and
// close handlers are replaced, answering them is left to the transport.
func NewGorillaSocket(conn *websocket.Conn) Socket {
	s := &gorillaSocket{
		conn:   conn,
		frames: make(chan socketFrame, 16),
		done:   make(chan struct{}),
	}
	conn.SetPingHandler(func(data string) error {
		s.push(socketFrame{op: OpPing, payload: []byte(data)})
		return nil
	})
	conn.SetPongHandler(func(data string) error {
		s.push(socketFrame{op: OpPong, payload: []byte(data)})
		return nil
	})
	conn.SetCloseHandler(func(code int, text string) error {
		s.push(socketFrame{op: OpClose, payload: websocket.FormatCloseMessage(code, text)})
		return nil
	})
	go s.readPump()
	return s
}

func (s *gorillaSocket) push(f socketFrame) bool {
	select {
	case s.frames <- f:
		return true
	case <-s.done:
		return false
	}
}

func (s *gorillaSocket) readPump() {
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.push(socketFrame{err: err})
			return
		}
		op := OpText
		if messageType == websocket.BinaryMessage {
			op = OpBinary
		}
		if !s.push(socketFrame{op: op, payload: data}) {
			return
		}
	}
}

func (s *gorillaSocket) ReceiveFrame() (OpCode, []byte, error) {
	select {
	case f := <-s.frames:
		if f.err != nil {
			return 0, nil, classifyReadError(f.err)
		}
		return f.op, f.payload, nil
	case <-s.done:
		return 0, nil, ErrConnectionClosed
	}
}

// classifyReadError maps errors meaning the peer or the local side closed the
// connection onto ErrConnectionClosed.
func classifyReadError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return err
}

func (s *gorillaSocket) Send(payload []byte) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *gorillaSocket) SendClose() error {
	err := s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func (s *gorillaSocket) Ping(payload []byte) error {
	return s.conn.WriteControl(websocket.PingMessage, payload, time.Now().Add(writeWait))
}

func (s *gorillaSocket) Pong(payload []byte) error {
	return s.conn.WriteControl(websocket.PongMessage, payload, time.Now().Add(writeWait))
}

func (s *gorillaSocket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}
