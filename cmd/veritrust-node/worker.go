package main

import (
	"context"
	"time"

	"github.com/veritrust-dev/veritrust-node/pkg/reputation/manager"
	"github.com/veritrust-dev/veritrust-node/pkg/util/logger"
)

type worker interface {
	Run(context.Context)
}

func startWorkers(c *cfg) {
	for _, wrk := range c.workers {
		c.wg.Add(1)

		go func(w worker) {
			w.Run(c.ctx)
			c.wg.Done()
		}(wrk)
	}
}

// epochWorker drives the epoch rounds: one BeginEpoch call per interval
// tick, strictly sequential.
type epochWorker struct {
	log *logger.Logger

	mgr *manager.Manager

	interval time.Duration
}

func newEpochWorker(c *cfg) *epochWorker {
	return &epochWorker{
		log:      c.log,
		mgr:      c.cfgReputation.mgr,
		interval: c.epochInterval,
	}
}

func (w *epochWorker) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		res, err := w.mgr.BeginEpoch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			w.log.Error("epoch failure",
				logger.FieldError(err))

			continue
		}

		w.log.Info("epoch complete",
			logger.FieldUint("epoch", res.Epoch),
			logger.FieldBool("converged", res.Converged),
			logger.FieldUint("iterations", uint64(res.Iterations)),
			logger.FieldInt("excluded", int64(len(res.Excluded))),
			logger.FieldInt("escalated", int64(len(res.Escalated))),
		)
	}
}
