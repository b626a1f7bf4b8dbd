package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"sync"
	"time"

	"github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config"
	epochconfig "github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config/epoch"
	loggerconfig "github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config/logger"
	nodeconfig "github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config/node"
	"github.com/veritrust-dev/veritrust-node/pkg/metrics"
	"github.com/veritrust-dev/veritrust-node/pkg/network/quicnet"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/manager"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/opinionstore"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/protocol"
	gnarkproof "github.com/veritrust-dev/veritrust-node/pkg/reputation/proof/gnark"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/publisher"
	httputil "github.com/veritrust-dev/veritrust-node/pkg/util/http"
	"github.com/veritrust-dev/veritrust-node/pkg/util/logger"
	"go.etcd.io/bbolt"
)

type cfg struct {
	ctx context.Context

	appCfg *config.Config

	log *logger.Logger

	wg *sync.WaitGroup

	key ed25519.PrivateKey

	localPeer reputation.PeerID

	epochInterval time.Duration

	cfgNetwork cfgNetwork

	cfgReputation cfgReputation

	metrics *metrics.NodeMetrics

	metricsSrv *httputil.Server

	workers []worker
}

type cfgNetwork struct {
	listenAddress string

	client *quicnet.Client

	server *quicnet.Server
}

type cfgReputation struct {
	boltDB *bbolt.DB

	store *opinionstore.Storage

	backend *gnarkproof.Backend

	mgr *manager.Manager

	responder *protocol.Responder

	natsWriter *publisher.NATSWriter
}

func initCfg(path string) *cfg {
	var p config.Prm

	appCfg := config.New(p, config.WithConfigFile(path))

	lvl, err := logger.ParseLevel(loggerconfig.Level(appCfg))
	fatalOnErr(err)

	log := logger.New(lvl)

	key := readNodeKey(log, nodeconfig.Key(appCfg))

	return &cfg{
		appCfg:        appCfg,
		log:           log,
		wg:            new(sync.WaitGroup),
		key:           key,
		localPeer:     reputation.PeerIDFromPublicKey(key.Public().(ed25519.PublicKey)),
		epochInterval: epochconfig.Interval(appCfg),
		cfgNetwork: cfgNetwork{
			listenAddress: nodeconfig.ListenAddress(appCfg),
		},
	}
}

// readNodeKey reads the ed25519 private key from the file at path: either
// a 32-byte seed or a 64-byte expanded key. With an empty path the node
// runs under an ephemeral identity.
func readNodeKey(log *logger.Logger, path string) ed25519.PrivateKey {
	if path == "" {
		log.Warn("no key configured, using ephemeral identity")

		_, key, err := ed25519.GenerateKey(rand.Reader)
		fatalOnErr(err)

		return key
	}

	data, err := os.ReadFile(path)
	fatalOnErr(err)

	switch len(data) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(data)
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(data)
	default:
		fatalOnErr(errInvalidKeySize)
		return nil
	}
}
