// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/vmware/webstomp-go/transport"
)

// MockTransport feeds payloads pushed on incoming to Receive and records
// everything sent. Closing incoming simulates the peer going away.
type MockTransport struct {
	incoming  chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	dead      int32

	lock    sync.Mutex
	sent    []string
	onSend  func(payload string)
	sendErr error
}

func newMockTransport() *MockTransport {
	return &MockTransport{
		incoming: make(chan []byte, 16),
		closed:   make(chan struct{}),
	}
}

func (m *MockTransport) Receive() ([]byte, error) {
	select {
	case p, ok := <-m.incoming:
		if !ok {
			atomic.StoreInt32(&m.dead, 1)
			return nil, transport.ErrConnectionClosed
		}
		return p, nil
	case <-m.closed:
		return nil, transport.ErrConnectionClosed
	}
}

func (m *MockTransport) Send(payload []byte) error {
	m.lock.Lock()
	if m.sendErr != nil {
		m.lock.Unlock()
		return m.sendErr
	}
	m.sent = append(m.sent, string(payload))
	hook := m.onSend
	m.lock.Unlock()
	if hook != nil {
		hook(string(payload))
	}
	return nil
}

func (m *MockTransport) Alive() bool {
	return atomic.LoadInt32(&m.dead) == 0
}

func (m *MockTransport) Close() error {
	m.closeOnce.Do(func() {
		atomic.StoreInt32(&m.dead, 1)
		close(m.closed)
	})
	return nil
}

func (m *MockTransport) Sent() []string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]string{}, m.sent...)
}

func (m *MockTransport) push(payload string) {
	m.incoming <- []byte(payload)
}

// respondTo pushes response whenever a frame with the given command is sent.
func (m *MockTransport) respondTo(command, response string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.onSend = func(payload string) {
		if len(payload) > len(command) && payload[:len(command)+1] == command+"\n" {
			m.push(response)
		}
	}
}
