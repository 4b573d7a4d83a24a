// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

// Package codec converts STOMP frames to and from the minimal wire form spoken
// by the webstomp client:
//
//	COMMAND\n
//	key1:value1\n
//	key2:value2\n
//	\n
//	[body]\n
//	\0
//
// Header values are written verbatim, no STOMP 1.1 escaping is applied. Frames
// are represented by go-stomp's *frame.Frame so the header list keeps its
// insertion order and duplicate keys.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/mitchellh/mapstructure"
)

const (
	newline    = byte('\n')
	colon      = byte(':')
	terminator = byte(0)
)

// Encode renders f in wire form. The blank line closing the header section and
// the NUL terminator are always written. A nil body writes no body line, so the
// frame ends "\n\n\0"; a non-nil body, even an empty one, is followed by "\n\0".
//
// Header keys may not contain ':' and neither keys nor values may contain line
// breaks or NUL bytes. Such headers cannot be decoded unambiguously, so they
// are rejected with ErrInvalidHeader instead of being silently truncated.
func Encode(f *frame.Frame) ([]byte, error) {
	if f == nil || f.Command == "" {
		return nil, fmt.Errorf("%w: missing command", ErrMalformedFrame)
	}
	if strings.ContainsAny(f.Command, "\r\n\x00:") {
		return nil, fmt.Errorf("%w: invalid command %q", ErrMalformedFrame, f.Command)
	}

	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte(newline)
	if f.Header != nil {
		for i := 0; i < f.Header.Len(); i++ {
			key, value := f.Header.GetAt(i)
			if err := checkHeader(key, value); err != nil {
				return nil, err
			}
			buf.WriteString(key)
			buf.WriteByte(colon)
			buf.WriteString(value)
			buf.WriteByte(newline)
		}
	}
	buf.WriteByte(newline)
	if f.Body != nil {
		buf.Write(f.Body)
		buf.WriteByte(newline)
	}
	buf.WriteByte(terminator)
	return buf.Bytes(), nil
}

func checkHeader(key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidHeader)
	}
	if strings.ContainsAny(key, "\r\n\x00:") {
		return fmt.Errorf("%w: key %q", ErrInvalidHeader, key)
	}
	if strings.ContainsAny(value, "\r\n\x00") {
		return fmt.Errorf("%w: value of %q contains a line break or NUL", ErrInvalidHeader, key)
	}
	return nil
}

// Decode parses a single frame out of payload.
//
// The first line is the command, every following line up to the first empty
// line is a header split on its first ':'. The body runs from after the empty
// line to the NUL terminator; a single '\n' right before the NUL is the frame's
// own delimiter and is not part of the body. When the frame carries a
// content-length that points exactly at a NUL byte, that length is used
// instead, allowing bodies with embedded NUL bytes. The returned body is
// never nil.
func Decode(payload []byte) (*frame.Frame, error) {
	rest := bytes.TrimLeft(payload, "\r\n")
	if len(rest) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedFrame)
	}

	command, rest, ok := nextLine(rest)
	if !ok {
		return nil, fmt.Errorf("%w: no blank line after headers", ErrMalformedFrame)
	}
	if command == "" || strings.IndexByte(command, terminator) >= 0 {
		return nil, fmt.Errorf("%w: missing command", ErrMalformedFrame)
	}

	f := frame.New(command)
	for {
		var line string
		line, rest, ok = nextLine(rest)
		if !ok {
			return nil, fmt.Errorf("%w: no blank line after headers", ErrMalformedFrame)
		}
		if line == "" {
			break
		}
		idx := strings.IndexByte(line, colon)
		if idx < 0 {
			return nil, fmt.Errorf("%w: header line %q has no ':'", ErrMalformedFrame, line)
		}
		f.Header.Add(line[:idx], line[idx+1:])
	}

	end, sized := bodyEnd(f.Header, rest)
	if end < 0 {
		return nil, fmt.Errorf("%w: missing NUL terminator", ErrMalformedFrame)
	}
	if len(bytes.TrimLeft(rest[end+1:], "\r\n")) > 0 {
		return nil, fmt.Errorf("%w: trailing data after NUL terminator", ErrMalformedFrame)
	}

	body := rest[:end]
	if !sized {
		body = bytes.TrimSuffix(body, []byte{newline})
	}
	f.Body = append([]byte{}, body...)
	return f, nil
}

// bodyEnd returns the index of the NUL byte terminating the body in rest, or
// -1, and whether that index was taken from the content-length header.
func bodyEnd(header *frame.Header, rest []byte) (int, bool) {
	if n, ok, err := header.ContentLength(); ok && err == nil && n >= 0 && n < len(rest) && rest[n] == terminator {
		return n, true
	}
	return bytes.IndexByte(rest, terminator), false
}

func nextLine(b []byte) (string, []byte, bool) {
	i := bytes.IndexByte(b, newline)
	if i < 0 {
		return "", b, false
	}
	return strings.TrimSuffix(string(b[:i]), "\r"), b[i+1:], true
}

// AsJSON parses the body of f as JSON text.
func AsJSON(f *frame.Frame) (interface{}, error) {
	if f == nil || len(f.Body) == 0 {
		return nil, fmt.Errorf("%w: body is empty", ErrBodyNotJSON)
	}
	var v interface{}
	if err := json.Unmarshal(f.Body, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBodyNotJSON, err)
	}
	return v, nil
}

// CastBodyToType decodes the JSON body of f into the object typ points to.
func CastBodyToType(f *frame.Frame, typ interface{}) error {
	typVal := reflect.ValueOf(typ)
	if typVal.Kind() != reflect.Ptr {
		return fmt.Errorf("CastBodyToType: invalid argument. argument should be the address of an object")
	}
	if typVal.IsNil() {
		return fmt.Errorf("CastBodyToType: cannot cast to nil")
	}

	v, err := AsJSON(f)
	if err != nil {
		return err
	}
	return mapstructure.Decode(v, typ)
}

// Describe renders f for log output.
func Describe(f *frame.Frame) string {
	if f == nil {
		return "<Frame nil>"
	}
	var headers []string
	if f.Header != nil {
		for i := 0; i < f.Header.Len(); i++ {
			k, v := f.Header.GetAt(i)
			headers = append(headers, k+":"+v)
		}
	}
	return fmt.Sprintf("<Frame command=%q headers=%q body=%d bytes>", f.Command, headers, len(f.Body))
}
