// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package bridge

import "github.com/vmware/webstomp-go/transport"

const (
	ErrConnectFailed = bridgeError("did not receive a valid CONNECTED response")
	ErrTimeout       = bridgeError("timed out waiting for CONNECTED response")
	ErrNoDestination = bridgeError("no destination specified")
	ErrNoId          = bridgeError("no id specified")
	ErrInvalidConfig = bridgeError("config invalid")
)

// ErrConnectionClosed is reported once the transport observed the connection closed.
const ErrConnectionClosed = transport.ErrConnectionClosed

type bridgeError string

func (e bridgeError) Error() string {
	return string(e)
}
