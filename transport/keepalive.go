// Copyright 2019-2021 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

package transport

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// keepAlive runs probe at a fixed interval until stopped.
type keepAlive struct {
	cronJob  *cron.Cron
	stopOnce sync.Once
	halted   int32
}

func startKeepAlive(interval time.Duration, logger *logrus.Entry, probe func() error) (*keepAlive, error) {
	if interval <= 0 {
		return &keepAlive{}, nil
	}
	if interval < time.Second {
		interval = time.Second
	}

	k := &keepAlive{cronJob: cron.New()}
	_, err := k.cronJob.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if err := probe(); err != nil {
			logger.WithError(err).Debug("keepalive probe failed")
		}
	})
	if err != nil {
		return nil, err
	}
	k.cronJob.Start()
	return k, nil
}

func (k *keepAlive) stop() {
	if k == nil {
		return
	}
	k.stopOnce.Do(func() {
		atomic.StoreInt32(&k.halted, 1)
		if k.cronJob != nil {
			k.cronJob.Stop()
		}
	})
}

func (k *keepAlive) stopped() bool {
	return k == nil || atomic.LoadInt32(&k.halted) == 1
}
