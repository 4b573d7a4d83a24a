// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the logger shared by every webstomp package.
var Log = logrus.New()

// LogConfig selects where log output goes and how it is formatted.
type LogConfig struct {
	// OutputLog is "stdout", "stderr", "null" or a file path.
	OutputLog     string           `mapstructure:"output_log"`
	Debug         bool             `mapstructure:"debug"`
	FormatOptions *LogFormatOption `mapstructure:"format_options"`
}

// LogFormatOption is merely a wrapper of logrus.TextFormatter because TextFormatter does not allow serializing
// its public members of the struct
type LogFormatOption struct {
	ForceColors      bool   `mapstructure:"force_colors"`
	DisableColors    bool   `mapstructure:"disable_colors"`
	DisableTimestamp bool   `mapstructure:"disable_timestamp"`
	FullTimestamp    bool   `mapstructure:"full_timestamp"`
	TimestampFormat  string `mapstructure:"timestamp_format"`
	PadLevelText     bool   `mapstructure:"pad_level_text"`
}

// ForComponent returns an entry tagged with the name of the component logging through it.
func ForComponent(name string) *logrus.Entry {
	return Log.WithField("component", name)
}

// SetDebug toggles debug level output.
func SetDebug(debug bool) {
	if debug {
		Log.SetLevel(logrus.DebugLevel)
	} else {
		Log.SetLevel(logrus.InfoLevel)
	}
}

// Configure applies cfg to the shared logger.
func Configure(cfg *LogConfig) error {
	if cfg == nil {
		return nil
	}
	out, err := outputFor(cfg.OutputLog)
	if err != nil {
		return err
	}
	Log.SetOutput(out)
	if cfg.FormatOptions != nil {
		Log.SetFormatter(CreateTextFormatterFromFormatOptions(cfg.FormatOptions))
	}
	SetDebug(cfg.Debug)
	return nil
}

// CreateTextFormatterFromFormatOptions takes *LogFormatOption and returns
// the pointer to a new logrus.TextFormatter instance.
func CreateTextFormatterFromFormatOptions(opts *LogFormatOption) *logrus.TextFormatter {
	return &logrus.TextFormatter{
		ForceColors:      opts.ForceColors,
		DisableColors:    opts.DisableColors,
		DisableTimestamp: opts.DisableTimestamp,
		FullTimestamp:    opts.FullTimestamp,
		TimestampFormat:  opts.TimestampFormat,
		PadLevelText:     opts.PadLevelText,
	}
}

func outputFor(target string) (io.Writer, error) {
	switch target {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "null":
		return io.Discard, nil
	}
	return os.OpenFile(target, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0600)
}
