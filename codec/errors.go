// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package codec

const (
	ErrMalformedFrame = codecError("malformed frame")
	ErrInvalidHeader  = codecError("invalid frame header")
	ErrBodyNotJSON    = codecError("frame body is not JSON")
)

type codecError string

func (e codecError) Error() string {
	return string(e)
}
