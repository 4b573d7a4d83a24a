// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/urfave/cli"
	"github.com/vmware/webstomp-go/bridge"
	"github.com/vmware/webstomp-go/log"
)

var version = "dev"

var logger = log.ForComponent("cli")

func main() {
	app := cli.NewApp()
	app.Name = "webstomp"
	app.Usage = "Talk STOMP to a message broker over WebSocket or TCP"
	app.Version = version
	app.Flags = globalFlags
	app.Before = func(c *cli.Context) error {
		err := log.Configure(&log.LogConfig{
			OutputLog:     c.GlobalString("log-output"),
			Debug:         c.GlobalBool("debug"),
			FormatOptions: &log.LogFormatOption{FullTimestamp: true, PadLevelText: true},
		})
		if err != nil {
			return err
		}
		if addr := c.GlobalString("metrics-addr"); addr != "" {
			go serveMetrics(addr)
		}
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:      "send",
			Usage:     "Send a message to a destination",
			ArgsUsage: "<destination> <message>",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "content-type",
					Usage: "content-type header of the message",
					Value: bridge.DefaultContentType,
				},
			},
			Action: runSend,
		},
		{
			Name:      "subscribe",
			Usage:     "Subscribe to a destination and print every message",
			ArgsUsage: "<destination>",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "id",
					Usage: "subscription id, generated when omitted",
				},
				cli.StringFlag{
					Name:  "select, s",
					Usage: "gjson path applied to JSON message bodies",
				},
			},
			Action: runSubscribe,
		},
	}

	if err := app.Run(os.Args); err != nil {
		ErrorHeaderf("error: ")
		Errorf("%s\n", err.Error())
		os.Exit(1)
	}
}

func connect(c *cli.Context) (*bridge.Connection, error) {
	config, err := configFromContext(c)
	if err != nil {
		return nil, err
	}
	return bridge.NewBrokerConnector().Connect(context.Background(), config)
}

func runSend(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.NewExitError("send expects <destination> <message>", 2)
	}
	conn, err := connect(c)
	if err != nil {
		return err
	}
	defer conn.Close()

	destination := c.Args().Get(0)
	err = conn.Send(destination, []byte(c.Args().Get(1)),
		bridge.SendOpt.ContentType(c.String("content-type")))
	if err != nil {
		return err
	}
	Successf("sent message to %s\n", destination)
	return conn.Disconnect()
}

func runSubscribe(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("subscribe expects <destination>", 2)
	}
	conn, err := connect(c)
	if err != nil {
		return err
	}
	defer conn.Close()

	destination := c.Args().Get(0)
	id := c.String("id")
	if id == "" {
		id = uuid.New().String()
	}
	selector := c.String("select")

	conn.AddListener(bridge.ListenerFunc(func(f *frame.Frame) {
		switch f.Command {
		case frame.MESSAGE:
			if f.Header.Get(frame.Subscription) == id || f.Header.Get(frame.Destination) == destination {
				printFrame(f, selector)
			}
		case frame.ERROR:
			ErrorHeaderf("broker error: ")
			Errorf("%s\n", f.Header.Get(frame.Message))
		}
	}))
	if err := conn.Subscribe(destination, id); err != nil {
		return err
	}
	Successf("subscribed to %s as %s, press ctrl+c to stop\n", destination, id)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
		fmt.Println()
		if err := conn.Unsubscribe(id); err != nil {
			logger.WithError(err).Warn("cannot unsubscribe")
		}
		return conn.Disconnect()
	case <-conn.Done():
		if err := conn.Err(); err != nil {
			return err
		}
		return nil
	}
}
