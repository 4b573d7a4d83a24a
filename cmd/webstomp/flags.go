// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"time"

	"github.com/urfave/cli"
	"github.com/vmware/webstomp-go/bridge"
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "config, c",
		Usage:  "path to a connection config file (yaml, json or toml)",
		EnvVar: "WEBSTOMP_CONFIG",
	},
	cli.StringFlag{
		Name:  "url, u",
		Usage: "broker url, ws://, wss:// or tcp://",
	},
	cli.StringFlag{
		Name:  "login, l",
		Usage: "login used to authenticate with the broker",
	},
	cli.StringFlag{
		Name:  "passcode, p",
		Usage: "passcode used to authenticate with the broker",
	},
	cli.StringFlag{
		Name:  "host",
		Usage: "virtual host sent with CONNECT",
	},
	cli.DurationFlag{
		Name:  "timeout, t",
		Usage: "how long to wait for the CONNECTED response",
	},
	cli.BoolFlag{
		Name:   "debug",
		Usage:  "enable debug logging",
		EnvVar: "WEBSTOMP_DEBUG",
	},
	cli.StringFlag{
		Name:   "log-output",
		Usage:  "where logs go: stderr, stdout, null or a file path",
		Value:  "stderr",
		EnvVar: "WEBSTOMP_LOG_OUTPUT",
	},
	cli.StringFlag{
		Name:   "metrics-addr",
		Usage:  "serve prometheus metrics on this address, e.g. :9090",
		EnvVar: "WEBSTOMP_METRICS_ADDR",
	},
}

// configFromContext loads the config file named by --config and the
// WEBSTOMP_* environment, then applies explicit flags on top.
func configFromContext(c *cli.Context) (*bridge.ConnectionConfig, error) {
	config, err := bridge.LoadConnectionConfig(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	if c.GlobalIsSet("url") {
		config.URL = c.GlobalString("url")
	}
	if c.GlobalIsSet("login") {
		config.Login = c.GlobalString("login")
	}
	if c.GlobalIsSet("passcode") {
		config.Passcode = c.GlobalString("passcode")
	}
	if c.GlobalIsSet("host") {
		config.Host = c.GlobalString("host")
	}
	if c.GlobalIsSet("timeout") {
		config.ConnectTimeout = c.GlobalDuration("timeout")
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 30 * time.Second
	}
	return config, nil
}
