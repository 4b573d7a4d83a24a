// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package bridge

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultConnectTimeout = 30 * time.Second
	envPrefix             = "webstomp"
)

// ConnectionConfig describes how to reach a broker and authenticate with it.
// URL schemes ws and wss dial a WebSocket, tcp dials a raw socket.
type ConnectionConfig struct {
	URL            string        `mapstructure:"url"`
	Login          string        `mapstructure:"login"`
	Passcode       string        `mapstructure:"passcode"`
	Host           string        `mapstructure:"host"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// KeepAliveInterval of zero selects the transport default, a negative
	// value disables keepalive probes.
	KeepAliveInterval time.Duration     `mapstructure:"keepalive_interval"`
	Headers           map[string]string `mapstructure:"headers"`
}

// LoadConnectionConfig reads the config file at path, if any, and applies
// WEBSTOMP_* environment overrides on top of it.
func LoadConnectionConfig(path string) (*ConnectionConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("url", "")
	v.SetDefault("login", "")
	v.SetDefault("passcode", "")
	v.SetDefault("host", "")
	v.SetDefault("connect_timeout", DefaultConnectTimeout)
	v.SetDefault("keepalive_interval", 10*time.Second)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: cannot read %s: %v", ErrInvalidConfig, path, err)
		}
	}

	config := &ConnectionConfig{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return config, nil
}

func checkConfig(config *ConnectionConfig) (*url.URL, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if config.URL == "" {
		return nil, fmt.Errorf("%w: config missing broker url", ErrInvalidConfig)
	}
	u, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch u.Scheme {
	case "ws", "wss", "tcp":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme '%s'", ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: broker url has no host", ErrInvalidConfig)
	}
	return u, nil
}
