package main

import (
	"context"
	"errors"

	"github.com/veritrust-dev/veritrust-node/pkg/network/quicnet"
	"github.com/veritrust-dev/veritrust-node/pkg/util/logger"
)

func initNetwork(c *cfg) {
	c.cfgNetwork.client = quicnet.NewClient(
		quicnet.WithClientLogger(c.log),
	)

	c.cfgNetwork.server = quicnet.NewServer(c.cfgNetwork.listenAddress,
		quicnet.WithServerLogger(c.log),
	)
}

func serveNetwork(c *cfg) {
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		err := c.cfgNetwork.server.Serve(c.ctx, c.cfgReputation.responder.Handle)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.log.Error("listener failure",
				logger.FieldError(err))
		}
	}()
}
