// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package bridge

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/go-stomp/stomp/v3/frame"
	"github.com/sirupsen/logrus"
	"github.com/vmware/webstomp-go/codec"
	"github.com/vmware/webstomp-go/transport"
)

// receiver is the receive loop of a Connection. It is the only reader of the
// transport and the only owner of the active listener list.
type receiver struct {
	transport transport.Transport
	logger    *logrus.Entry

	// handshake is the hand-off channel of the Connect call currently
	// waiting, nil when none is. Each call gets its own channel.
	handshakeLock sync.Mutex
	handshake     chan *frame.Frame

	// dispatching is set while a listener runs on the loop.
	dispatching int32

	pendingLock sync.Mutex
	pending     *queue.Queue
	listeners   []Listener

	done chan struct{}
	err  error
}

func newReceiver(t transport.Transport, logger *logrus.Entry) *receiver {
	return &receiver{
		transport: t,
		logger:    logger,
		pending:   queue.New(),
		done:      make(chan struct{}),
	}
}

// addListener queues l; the loop activates it when it next receives a payload.
func (r *receiver) addListener(l Listener) {
	r.pendingLock.Lock()
	r.pending.Add(l)
	r.pendingLock.Unlock()
}

func (r *receiver) absorbListeners() {
	r.pendingLock.Lock()
	defer r.pendingLock.Unlock()
	for r.pending.Length() > 0 {
		l := r.pending.Remove().(Listener)
		r.listeners = append(r.listeners, l)
		listenersActive.Inc()
		r.logger.Debugf("listener %T registered in receiver", l)
	}
}

// expectHandshake arms a fresh hand-off channel that receives the next
// decoded frame. A channel armed by an earlier call is replaced and never
// written afterwards.
func (r *receiver) expectHandshake() <-chan *frame.Frame {
	ch := make(chan *frame.Frame, 1)
	r.handshakeLock.Lock()
	r.handshake = ch
	r.handshakeLock.Unlock()
	return ch
}

func (r *receiver) abandonHandshake(ch <-chan *frame.Frame) {
	r.handshakeLock.Lock()
	if r.handshake == ch {
		r.handshake = nil
	}
	r.handshakeLock.Unlock()
}

// inListener reports whether a listener is running on the loop right now.
func (r *receiver) inListener() bool {
	return atomic.LoadInt32(&r.dispatching) == 1
}

// Err returns the error that ended the loop, nil while it runs or when it
// was stopped by its connection.
func (r *receiver) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

func (r *receiver) run(ctx context.Context) {
	defer close(r.done)
	defer func() {
		listenersActive.Sub(float64(len(r.listeners)))
	}()

	for {
		if ctx.Err() != nil {
			r.logger.Debug("receiver stopped")
			return
		}

		payload, err := r.transport.Receive()
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Debug("receiver stopped")
				return
			}
			if errors.Is(err, transport.ErrConnectionClosed) {
				r.logger.Error("connection closed unexpectedly")
			} else {
				r.logger.WithError(err).Error("cannot read from transport")
			}
			r.err = err
			return
		}

		r.absorbListeners()

		payload = bytes.TrimLeft(payload, "\r\n")
		if len(payload) == 0 {
			continue
		}

		f, err := codec.Decode(payload)
		if err != nil {
			framesMalformed.Inc()
			r.logger.WithError(err).Errorf("received non-STOMP payload: %q", payload)
			continue
		}
		framesReceived.WithLabelValues(f.Command).Inc()
		r.logger.Debugf("received STOMP frame %s", codec.Describe(f))
		r.deliver(f)
	}
}

func (r *receiver) deliver(f *frame.Frame) {
	r.handshakeLock.Lock()
	if r.handshake != nil {
		r.handshake <- f
		r.handshake = nil
	}
	r.handshakeLock.Unlock()

	for _, l := range r.listeners {
		r.invoke(l, f)
	}
}

func (r *receiver) invoke(l Listener, f *frame.Frame) {
	atomic.StoreInt32(&r.dispatching, 1)
	defer func() {
		atomic.StoreInt32(&r.dispatching, 0)
		if p := recover(); p != nil {
			r.logger.Errorf("listener %T panicked handling %s frame: %v", l, f.Command, p)
		}
	}()
	l.OnMessage(f)
}
