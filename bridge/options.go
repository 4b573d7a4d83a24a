// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package bridge

import "time"

// DefaultContentType is sent with SEND frames unless SendOpt.ContentType overrides it.
const DefaultContentType = "text/plain"

// ConnectOption customizes the CONNECT frame and the handshake wait.
type ConnectOption func(*connectOptions)

type connectOptions struct {
	login    *string
	passcode *string
	host     string
	timeout  time.Duration
}

// ConnectOpt groups the options accepted by Connection.Connect.
var ConnectOpt = struct {
	// Login sets the login header used to authenticate against a secured broker.
	Login func(login string) ConnectOption
	// Passcode sets the passcode header.
	Passcode func(passcode string) ConnectOption
	// Host sets the host header, the virtual host to connect to.
	Host func(host string) ConnectOption
	// Timeout bounds the wait for CONNECTED. Without it Connect waits until
	// its context is done.
	Timeout func(timeout time.Duration) ConnectOption
}{
	Login: func(login string) ConnectOption {
		return func(o *connectOptions) {
			o.login = &login
		}
	},
	Passcode: func(passcode string) ConnectOption {
		return func(o *connectOptions) {
			o.passcode = &passcode
		}
	},
	Host: func(host string) ConnectOption {
		return func(o *connectOptions) {
			o.host = host
		}
	},
	Timeout: func(timeout time.Duration) ConnectOption {
		return func(o *connectOptions) {
			o.timeout = timeout
		}
	},
}

// SendOption customizes a SEND frame.
type SendOption func(*sendOptions)

type sendOptions struct {
	contentType   string
	contentLength *int
	headers       []string
}

// SendOpt groups the options accepted by Connection.Send.
var SendOpt = struct {
	ContentType   func(contentType string) SendOption
	ContentLength func(length int) SendOption
	// Header appends an extra header after the standard ones.
	Header func(key, value string) SendOption
}{
	ContentType: func(contentType string) SendOption {
		return func(o *sendOptions) {
			o.contentType = contentType
		}
	},
	ContentLength: func(length int) SendOption {
		return func(o *sendOptions) {
			o.contentLength = &length
		}
	},
	Header: func(key, value string) SendOption {
		return func(o *sendOptions) {
			o.headers = append(o.headers, key, value)
		}
	},
}
