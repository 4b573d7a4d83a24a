// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package log

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestForComponent(t *testing.T) {
	e := ForComponent("receiver")
	assert.Equal(t, "receiver", e.Data["component"])
}

func TestSetDebug(t *testing.T) {
	defer SetDebug(false)
	SetDebug(true)
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	SetDebug(false)
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
}

func TestConfigure(t *testing.T) {
	defer func() {
		Log.SetOutput(os.Stderr)
		Log.SetFormatter(&logrus.TextFormatter{})
		SetDebug(false)
	}()

	path := filepath.Join(t.TempDir(), "webstomp.log")
	err := Configure(&LogConfig{
		OutputLog:     path,
		Debug:         true,
		FormatOptions: &LogFormatOption{DisableColors: true, FullTimestamp: true},
	})
	assert.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())

	ForComponent("test").Info("written to file")
	b, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Contains(t, string(b), "written to file")
	assert.Contains(t, string(b), "component=test")
}

func TestConfigure_Null(t *testing.T) {
	defer Log.SetOutput(os.Stderr)
	assert.NoError(t, Configure(&LogConfig{OutputLog: "null"}))
	assert.Equal(t, io.Discard, Log.Out)
	assert.NoError(t, Configure(nil))
}
