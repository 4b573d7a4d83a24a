// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package bridge

import (
	"fmt"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gobwas/glob"
)

// Listener is invoked by the receive loop for every frame decoded after the
// listener was registered. Frames are shared between listeners and must be
// treated as read-only.
type Listener interface {
	OnMessage(f *frame.Frame)
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(f *frame.Frame)

func (fn ListenerFunc) OnMessage(f *frame.Frame) {
	fn(f)
}

type destinationListener struct {
	pattern  string
	matcher  glob.Glob
	listener Listener
}

// NewDestinationListener wraps l so that it only sees MESSAGE frames whose
// destination matches pattern. Patterns are globs with '/' as separator:
// "/topic/*" matches "/topic/a" but not "/topic/a/b", "/topic/**" matches both.
func NewDestinationListener(pattern string, l Listener) (Listener, error) {
	if l == nil {
		return nil, fmt.Errorf("cannot create destination listener, listener is nil")
	}
	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid destination pattern '%s': %w", pattern, err)
	}
	return &destinationListener{pattern: pattern, matcher: matcher, listener: l}, nil
}

func (dl *destinationListener) OnMessage(f *frame.Frame) {
	if f.Command != frame.MESSAGE {
		return
	}
	if dl.matcher.Match(f.Header.Get(frame.Destination)) {
		dl.listener.OnMessage(f)
	}
}
