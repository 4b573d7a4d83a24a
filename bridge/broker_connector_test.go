// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package bridge

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/go-stomp/stomp/v3/server"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmware/webstomp-go/transport"
)

var upgrader = websocket.Upgrader{Subprotocols: transport.Subprotocols}

// websocketBroker answers CONNECT, and replies to SUBSCRIBE with a single
// MESSAGE on the subscribed destination.
func websocketBroker(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()
	for {
		mt, message, err := c.ReadMessage()
		if err != nil {
			break
		}

		f, err := frame.NewReader(bytes.NewReader(message)).Read()
		if err != nil || f == nil {
			continue
		}

		var reply *frame.Frame
		switch f.Command {
		case frame.CONNECT:
			if f.Header.Get(frame.Login) != "guest" {
				reply = frame.New(frame.ERROR, frame.Message, "access refused")
			} else {
				reply = frame.New(frame.CONNECTED, frame.Version, "1.1")
			}
		case frame.SUBSCRIBE:
			reply = frame.New(frame.MESSAGE,
				frame.Destination, f.Header.Get(frame.Destination),
				frame.Subscription, f.Header.Get(frame.Id),
				frame.ContentType, "text/plain")
			reply.Body = []byte("happy baby melody!")
		default:
			continue
		}

		var bb bytes.Buffer
		if err := frame.NewWriter(&bb).Write(reply); err != nil {
			break
		}
		if err := c.WriteMessage(mt, bb.Bytes()); err != nil {
			break
		}
	}
}

func runWebSocketBroker(t *testing.T) string {
	r := mux.NewRouter()
	r.HandleFunc("/ws", websocketBroker)
	s := httptest.NewServer(r)
	t.Cleanup(s.Close)
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

func runStompBroker(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	go server.Serve(l)
	return "tcp://" + l.Addr().String()
}

func TestBrokerConnector_BadConfig(t *testing.T) {
	bc := NewBrokerConnector()
	c, err := bc.Connect(context.Background(), &ConnectionConfig{URL: "http://somewhere"})
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	c, err = bc.Connect(context.Background(), nil)
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestBrokerConnector_ConnectWebSocket(t *testing.T) {
	config := &ConnectionConfig{
		URL:            runWebSocketBroker(t),
		Login:          "guest",
		Passcode:       "guest",
		ConnectTimeout: 2 * time.Second,
		Headers:        map[string]string{"X-Client": "webstomp-test"},
	}

	c, err := NewBrokerConnector().Connect(context.Background(), config)
	require.NoError(t, err)
	defer c.Close()
	assert.True(t, c.Alive())
	assert.Equal(t, "1.1", c.ConnectedFrame().Header.Get(frame.Version))

	var lock sync.Mutex
	var bodies []string
	require.NoError(t, c.AddDestinationListener("/topic/**", ListenerFunc(func(f *frame.Frame) {
		lock.Lock()
		defer lock.Unlock()
		bodies = append(bodies, string(f.Body))
	})))
	require.NoError(t, c.Subscribe("/topic/melody", "sub-1"))

	assert.Eventually(t, func() bool {
		lock.Lock()
		defer lock.Unlock()
		return len(bodies) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "happy baby melody!", bodies[0])

	assert.NoError(t, c.Disconnect())
	assert.False(t, c.Alive())
}

func TestBrokerConnector_ConnectWebSocketRefused(t *testing.T) {
	config := &ConnectionConfig{
		URL:            runWebSocketBroker(t),
		Login:          "intruder",
		ConnectTimeout: 2 * time.Second,
	}

	c, err := NewBrokerConnector().Connect(context.Background(), config)
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, ErrConnectFailed))
	assert.Contains(t, err.Error(), "access refused")
}

func TestBrokerConnector_ConnectTCP(t *testing.T) {
	config := &ConnectionConfig{
		URL:            runStompBroker(t),
		Login:          "guest",
		Passcode:       "guest",
		ConnectTimeout: 2 * time.Second,

		KeepAliveInterval: -1,
	}

	c, err := NewBrokerConnector().Connect(context.Background(), config)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, frame.CONNECTED, c.ConnectedFrame().Command)

	messages := make(chan *frame.Frame, 1)
	require.NoError(t, c.AddDestinationListener("/queue/test", ListenerFunc(func(f *frame.Frame) {
		messages <- f
	})))
	require.NoError(t, c.Subscribe("/queue/test", "sub-0"))
	require.NoError(t, c.Send("/queue/test", []byte("hello")))

	select {
	case f := <-messages:
		assert.Equal(t, "/queue/test", f.Header.Get(frame.Destination))
		assert.Equal(t, "hello", strings.TrimSpace(string(f.Body)))
	case <-time.After(2 * time.Second):
		t.Fatal("no message received from broker")
	}
}

func TestBrokerConnector_ConnectUnreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	for _, url := range []string{"ws://" + addr + "/ws", "tcp://" + addr} {
		c, err := NewBrokerConnector().Connect(context.Background(), &ConnectionConfig{
			URL:            url,
			ConnectTimeout: time.Second,
		})
		assert.Nil(t, c)
		assert.True(t, errors.Is(err, ErrConnectFailed), url)
	}
}
