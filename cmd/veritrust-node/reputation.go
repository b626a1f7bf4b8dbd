package main

import (
	"path/filepath"

	"github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config"
	epochconfig "github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config/epoch"
	nodeconfig "github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config/node"
	publisherconfig "github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config/publisher"
	trustconfig "github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config/trust"
	"github.com/veritrust-dev/veritrust-node/pkg/network"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/eigentrust"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/manager"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/opinionstore"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/proof"
	gnarkproof "github.com/veritrust-dev/veritrust-node/pkg/reputation/proof/gnark"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/protocol"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/publisher"
	"github.com/veritrust-dev/veritrust-node/pkg/util"
	"go.etcd.io/bbolt"
)

const (
	calculatorPoolSize = 32

	proofCacheCapacity = 256
)

func initReputation(c *cfg) {
	storagePath := nodeconfig.StoragePath(c.appCfg)

	err := util.MkdirAllX(filepath.Dir(storagePath), 0o700)
	fatalOnErr(err)

	c.cfgReputation.boltDB, err = bbolt.Open(storagePath, 0o600, nil)
	fatalOnErr(err)

	c.cfgReputation.store, err = opinionstore.New(
		opinionstore.WithLogger(c.log),
		opinionstore.WithBoltDB(c.cfgReputation.boltDB),
	)
	fatalOnErr(err)

	pool, err := util.NewWorkerPool(calculatorPoolSize)
	fatalOnErr(err)

	calc := eigentrust.New(eigentrust.Prm{
		Alpha:                trustconfig.Alpha(c.appCfg),
		ConvergenceTolerance: trustconfig.ConvergenceTolerance(c.appCfg),
		MaxIterations:        trustconfig.MaxIterations(c.appCfg),
	},
		eigentrust.WithLogger(c.log),
		eigentrust.WithWorkerPool(pool),
	)

	c.cfgReputation.backend, err = gnarkproof.New()
	fatalOnErr(err)

	verifier, err := proof.NewCachingVerifier(c.cfgReputation.backend, proofCacheCapacity)
	fatalOnErr(err)

	policyKind, quorum, timeout := epochconfig.CompletionPolicy(c.appCfg)

	policy, err := manager.ParseCompletionPolicy(policyKind, quorum, timeout)
	fatalOnErr(err)

	epochWriter := initPublisher(c)

	c.cfgReputation.mgr = manager.New(manager.Prm{
		LocalPeer:  c.localPeer,
		Book:       readAddressBook(c.appCfg),
		Opinions:   c.cfgReputation.store,
		Calculator: calc,
		Transport:  c.cfgNetwork.client,
		Verifier:   verifier,
		PreTrusted: readPreTrusted(c.appCfg),
		Policy:     policy,
	},
		manager.WithLogger(c.log),
		manager.WithMetrics(c.metrics),
		manager.WithPublisher(epochWriter),
		manager.WithWorkerPool(pool),
		manager.WithSessionTimeout(trustconfig.SessionTimeout(c.appCfg)),
		manager.WithResubmissionLimit(trustconfig.ResubmissionLimit(c.appCfg)),
		manager.WithEscalationThreshold(trustconfig.EscalationThreshold(c.appCfg)),
	)

	c.cfgReputation.responder = protocol.NewResponder(protocol.ResponderPrm{
		LocalPeer: c.localPeer,
		Opinions:  c.cfgReputation.store,
		Prover:    c.cfgReputation.backend,
	},
		protocol.WithResponderLogger(c.log),
	)

	c.workers = append(c.workers, newEpochWorker(c))
}

func initPublisher(c *cfg) publisher.Writer {
	endpoint := publisherconfig.NATSEndpoint(c.appCfg)
	if endpoint == "" {
		return publisher.NewLogWriter(c.log)
	}

	w, err := publisher.NewNATSWriter(endpoint)
	fatalOnErr(err)

	c.cfgReputation.natsWriter = w

	return w
}

func readAddressBook(appCfg *config.Config) *manager.StaticAddressBook {
	raw := nodeconfig.Peers(appCfg)

	addrs := make(map[reputation.PeerID]network.Address, len(raw))

	for i := range raw {
		peer, err := reputation.DecodePeerID(raw[i].ID)
		fatalOnErr(err)

		addrs[peer] = network.Address(raw[i].Address)
	}

	return manager.NewStaticAddressBook(addrs)
}

func readPreTrusted(appCfg *config.Config) reputation.GlobalTrustVector {
	raw := trustconfig.PreTrusted(appCfg)
	if len(raw) == 0 {
		return nil
	}

	seed := make(reputation.GlobalTrustVector, len(raw))

	for i := range raw {
		peer, err := reputation.DecodePeerID(raw[i].ID)
		fatalOnErr(err)

		seed[peer] = reputation.TrustValue(raw[i].Weight)
	}

	return seed
}
