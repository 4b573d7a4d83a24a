// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package bridge

import (
	"testing"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDestinationListener(t *testing.T) {
	tt := []struct {
		pattern     string
		destination string
		match       bool
	}{
		{"/topic/prices", "/topic/prices", true},
		{"/topic/prices", "/topic/prices/eu", false},
		{"/topic/*", "/topic/prices", true},
		{"/topic/*", "/topic/prices/eu", false},
		{"/topic/**", "/topic/prices/eu", true},
		{"/queue/{a,b}", "/queue/b", true},
		{"/queue/{a,b}", "/queue/c", false},
	}

	for _, tc := range tt {
		t.Run(tc.pattern+" "+tc.destination, func(t *testing.T) {
			var got []*frame.Frame
			l, err := NewDestinationListener(tc.pattern, ListenerFunc(func(f *frame.Frame) {
				got = append(got, f)
			}))
			require.NoError(t, err)

			l.OnMessage(frame.New(frame.MESSAGE, frame.Destination, tc.destination))
			if tc.match {
				assert.Len(t, got, 1)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestDestinationListener_OnlyMessages(t *testing.T) {
	called := false
	l, err := NewDestinationListener("/topic/**", ListenerFunc(func(*frame.Frame) { called = true }))
	require.NoError(t, err)

	l.OnMessage(frame.New(frame.RECEIPT, frame.Destination, "/topic/a"))
	l.OnMessage(frame.New(frame.ERROR, frame.Destination, "/topic/a"))
	assert.False(t, called)
}

func TestNewDestinationListener_Invalid(t *testing.T) {
	_, err := NewDestinationListener("/topic/*", nil)
	assert.Error(t, err)

	_, err = NewDestinationListener("/topic/[", ListenerFunc(func(*frame.Frame) {}))
	assert.Error(t, err)
}
