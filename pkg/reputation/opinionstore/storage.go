// Package opinionstore implements the storage of local trust opinions: the
// outgoing and incoming trust weights of the peers known to the node.
//
// The store is the only reputation structure mutated concurrently by external
// submissions, so all operations follow a single exclusive-writer discipline.
package opinionstore

import (
	"errors"
	"sync"

	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
	"github.com/veritrust-dev/veritrust-node/pkg/util/logger"
	"go.etcd.io/bbolt"
)

// ErrInvalidWeight is returned on submission of a trust weight which is
// negative or non-finite. Such weights never enter the store.
var ErrInvalidWeight = errors.New("invalid trust weight")

// Storage represents in-memory storage of local trust opinions.
//
// Opinions are stored as a two-level map: trusting peer to the set of
// (trusted peer, weight) pairs. A reverse index of incoming opinions is
// maintained to make peer eviction complete.
//
// For correct operation, Storage must be created using the New constructor.
type Storage struct {
	opts *options

	mtx sync.RWMutex

	// trusting -> trusted -> weight
	outgoing map[reputation.PeerID]map[reputation.PeerID]float64

	// trusted -> set of trusting
	incoming map[reputation.PeerID]map[reputation.PeerID]struct{}
}

// Option sets an optional parameter of Storage.
type Option func(*options)

type options struct {
	log *logger.Logger

	db *bbolt.DB
}

func defaultOpts() *options {
	return &options{
		log: logger.Nop(),
	}
}

// WithLogger returns an option to specify the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithBoltDB returns an option to back the store with a Bolt database.
// Submitted opinions are written through and reloaded by New, so pending
// submissions survive a node restart.
func WithBoltDB(db *bbolt.DB) Option {
	return func(o *options) {
		o.db = db
	}
}

// New creates, initializes and returns the Storage instance.
//
// If a Bolt database is provided (WithBoltDB), previously persisted opinions
// are loaded into memory. Loading problems are reported via error.
func New(opts ...Option) (*Storage, error) {
	o := defaultOpts()
	for i := range opts {
		opts[i](o)
	}

	s := &Storage{
		opts:     o,
		outgoing: make(map[reputation.PeerID]map[reputation.PeerID]float64),
		incoming: make(map[reputation.PeerID]map[reputation.PeerID]struct{}),
	}

	if o.db != nil {
		if err := s.load(); err != nil {
			return nil, err
		}
	}

	return s, nil
}
