package main

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	metricsconfig "github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config/metrics"
	"github.com/veritrust-dev/veritrust-node/pkg/metrics"
	httputil "github.com/veritrust-dev/veritrust-node/pkg/util/http"
	"github.com/veritrust-dev/veritrust-node/pkg/util/logger"
)

func initMetrics(c *cfg) {
	c.metrics = metrics.NewNodeMetrics()

	addr := metricsconfig.Address(c.appCfg)
	if addr == "" {
		return
	}

	c.metricsSrv = httputil.New(httputil.Prm{
		Address: addr,
		Handler: promhttp.Handler(),
	},
		httputil.WithShutdownTimeout(metricsconfig.ShutdownTimeout(c.appCfg)),
	)
}

func serveMetrics(c *cfg) {
	if c.metricsSrv == nil {
		return
	}

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if err := c.metricsSrv.Serve(); err != nil {
			c.log.Error("metrics server failure",
				logger.FieldError(err))
		}
	}()
}
