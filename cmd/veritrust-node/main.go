package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/veritrust-dev/veritrust-node/misc"
	"github.com/veritrust-dev/veritrust-node/pkg/util/grace"
	"github.com/veritrust-dev/veritrust-node/pkg/util/logger"
)

var errInvalidKeySize = errors.New("invalid key size, expect ed25519 seed or private key")

func fatalOnErr(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "veritrust-node",
		Short: "Verifiable reputation node",
		Long:  "Participates in epoch-based opinion exchange and computes the global trust vector.",
		Run: func(cmd *cobra.Command, args []string) {
			run(configFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("veritrust-node %s (built %s)\n", misc.Version, misc.Build)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configFile string) {
	c := initCfg(configFile)

	init_(c)

	bootUp(c)

	wait(c)

	shutdown(c)
}

func init_(c *cfg) {
	c.ctx = grace.NewGracefulContext(c.log)

	initNetwork(c)
	initMetrics(c)
	initReputation(c)
}

func bootUp(c *cfg) {
	serveMetrics(c)
	serveNetwork(c)
	startWorkers(c)
}

func wait(c *cfg) {
	<-c.ctx.Done()
}

func shutdown(c *cfg) {
	c.wg.Wait()

	if c.metricsSrv != nil {
		if err := c.metricsSrv.Shutdown(); err != nil {
			c.log.Error("metrics server shutdown failure",
				logger.FieldError(err))
		}
	}

	if err := c.cfgNetwork.client.Close(); err != nil {
		c.log.Error("transport shutdown failure",
			logger.FieldError(err))
	}

	if c.cfgReputation.natsWriter != nil {
		if err := c.cfgReputation.natsWriter.Close(); err != nil {
			c.log.Error("publisher shutdown failure",
				logger.FieldError(err))
		}
	}

	if err := c.cfgReputation.boltDB.Close(); err != nil {
		c.log.Error("storage shutdown failure",
			logger.FieldError(err))
	}

	c.log.Info("node stopped")
}
