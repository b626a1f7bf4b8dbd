package opinionstore

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
	"go.etcd.io/bbolt"
)

var opinionBucket = []byte("opinions")

// persisted key is the concatenation of trusting and trusted peer IDs,
// value is the raw weight as big-endian float bits.
func opinionKey(from, to reputation.PeerID) []byte {
	k := make([]byte, 0, 2*reputation.PeerIDSize)
	k = append(k, from[:]...)
	k = append(k, to[:]...)

	return k
}

func (s *Storage) persist(from, to reputation.PeerID, w float64) error {
	return s.opts.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(opinionBucket)
		if err != nil {
			return err
		}

		val := make([]byte, 8)
		binary.BigEndian.PutUint64(val, math.Float64bits(w))

		return b.Put(opinionKey(from, to), val)
	})
}

func (s *Storage) purge(id reputation.PeerID) error {
	return s.opts.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(opinionBucket)
		if b == nil {
			return nil
		}

		c := b.Cursor()

		var stale [][]byte

		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if len(k) != 2*reputation.PeerIDSize {
				continue
			}

			from, _ := reputation.PeerIDFromBytes(k[:reputation.PeerIDSize])
			to, _ := reputation.PeerIDFromBytes(k[reputation.PeerIDSize:])

			if from == id || to == id {
				stale = append(stale, append([]byte(nil), k...))
			}
		}

		for i := range stale {
			if err := b.Delete(stale[i]); err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *Storage) load() error {
	return s.opts.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(opinionBucket)
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			if len(k) != 2*reputation.PeerIDSize || len(v) != 8 {
				return fmt.Errorf("malformed opinion record, key length %d, value length %d", len(k), len(v))
			}

			from, _ := reputation.PeerIDFromBytes(k[:reputation.PeerIDSize])
			to, _ := reputation.PeerIDFromBytes(k[reputation.PeerIDSize:])
			w := math.Float64frombits(binary.BigEndian.Uint64(v))

			if !reputation.TrustValueFromFloat64(w).IsValid() {
				return fmt.Errorf("%w in persisted record: %v", ErrInvalidWeight, w)
			}

			m := s.outgoing[from]
			if m == nil {
				m = make(map[reputation.PeerID]float64, 1)
				s.outgoing[from] = m
			}

			m[to] = w

			rev := s.incoming[to]
			if rev == nil {
				rev = make(map[reputation.PeerID]struct{}, 1)
				s.incoming[to] = rev
			}

			rev[from] = struct{}{}

			return nil
		})
	})
}
