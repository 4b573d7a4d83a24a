// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/go-stomp/stomp/v3/frame"
	prettyjson "github.com/hokaccha/go-prettyjson"
	"github.com/tidwall/gjson"
	"github.com/vmware/webstomp-go/codec"
)

var (
	InfoHeaderf  = color.New(color.FgHiBlue).Add(color.Bold).PrintfFunc()
	Infof        = color.New(color.FgHiCyan).PrintfFunc()
	ErrorHeaderf = color.New(color.FgHiRed).Add(color.Bold).PrintfFunc()
	Errorf       = color.New(color.FgHiRed).PrintfFunc()
	Successf     = color.New(color.FgHiGreen).PrintfFunc()
)

// formatBody renders a frame body for the terminal. JSON bodies are
// pretty-printed, narrowed to the gjson path selector when one is given.
// Anything else is printed verbatim.
func formatBody(f *frame.Frame, selector string) string {
	if selector != "" {
		if !gjson.ValidBytes(f.Body) {
			return string(f.Body)
		}
		result := gjson.GetBytes(f.Body, selector)
		if !result.Exists() {
			return ""
		}
		if result.IsObject() || result.IsArray() {
			if pretty, err := prettyjson.Format([]byte(result.Raw)); err == nil {
				return string(pretty)
			}
		}
		return result.String()
	}

	v, err := codec.AsJSON(f)
	if err != nil {
		return string(f.Body)
	}
	pretty, err := prettyjson.Marshal(v)
	if err != nil {
		return string(f.Body)
	}
	return string(pretty)
}

func printFrame(f *frame.Frame, selector string) {
	InfoHeaderf("%s", f.Command)
	for i := 0; i < f.Header.Len(); i++ {
		k, v := f.Header.GetAt(i)
		Infof(" %s=%s", k, v)
	}
	fmt.Println()
	fmt.Println(formatBody(f, selector))
}
