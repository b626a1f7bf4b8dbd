// Package eigentrust implements the aggregation of verified local trust
// opinions into a global trust vector with the EigenTrust power iteration
// (http://ilpubs.stanford.edu:8090/562/1/2002-56.pdf).
package eigentrust

import (
	"errors"
	"fmt"
	"sort"

	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
)

// ErrMalformedMatrix is returned on an internal invariant violation of the
// trust matrix: a negative or non-finite entry, or a row for an unknown
// peer. It indicates a bug in the calling code, never a peer input problem:
// peer inputs are validated before matrix construction.
var ErrMalformedMatrix = errors.New("malformed trust matrix")

// Matrix is a frozen square matrix of normalized local trust values for one
// epoch. Row i holds the outgoing opinions of the i-th peer in canonical
// order. A zero row represents an opinion-less peer.
//
// Matrix is immutable after Build and is safe for concurrent reads.
type Matrix struct {
	index []reputation.PeerID

	pos map[reputation.PeerID]int

	rows [][]float64
}

// Builder accumulates verified opinion rows and produces a frozen Matrix.
//
// Builder must be created with NewBuilder for a fixed peer set. Every row
// submitted to the Builder is validated and renormalized; rows of peers
// without opinions remain zero.
type Builder struct {
	m *Matrix

	filled map[reputation.PeerID]struct{}
}

// NewBuilder creates a Builder over the given peer set. The set defines the
// canonical index of the resulting matrix; duplicates are ignored.
func NewBuilder(peers []reputation.PeerID) *Builder {
	index := make([]reputation.PeerID, 0, len(peers))
	seen := make(map[reputation.PeerID]struct{}, len(peers))

	for _, id := range peers {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		index = append(index, id)
	}

	sort.Slice(index, func(i, j int) bool {
		return reputation.ComparePeerIDs(index[i], index[j]) < 0
	})

	pos := make(map[reputation.PeerID]int, len(index))
	for i, id := range index {
		pos[id] = i
	}

	rows := make([][]float64, len(index))
	for i := range rows {
		rows[i] = make([]float64, len(index))
	}

	return &Builder{
		m: &Matrix{
			index: index,
			pos:   pos,
			rows:  rows,
		},
		filled: make(map[reputation.PeerID]struct{}, len(index)),
	}
}

// PutRow fills the matrix row of the trusting peer with its opinions.
// Opinions about peers outside the matrix index are skipped: such peers are
// not part of the epoch. The row is renormalized over the remaining entries.
//
// Returns ErrMalformedMatrix if the trusting peer is outside the index, a
// weight is invalid, or the row was already filled.
func (b *Builder) PutRow(from reputation.PeerID, opinions []reputation.Trust) error {
	i, ok := b.m.pos[from]
	if !ok {
		return fmt.Errorf("%w: row peer %s outside the epoch index", ErrMalformedMatrix, from)
	}

	if _, ok := b.filled[from]; ok {
		return fmt.Errorf("%w: duplicate row for peer %s", ErrMalformedMatrix, from)
	}

	row := b.m.rows[i]

	var sum float64

	for _, op := range opinions {
		if !op.Value().IsValid() {
			return fmt.Errorf("%w: invalid weight %s of peer %s", ErrMalformedMatrix, op.Value(), from)
		}

		j, ok := b.m.pos[op.Peer()]
		if !ok {
			continue
		}

		row[j] += op.Value().Float64()
		sum += op.Value().Float64()
	}

	if sum > 0 {
		for j := range row {
			row[j] /= sum
		}
	}

	b.filled[from] = struct{}{}

	return nil
}

// Build finalizes and returns the Matrix. The Builder must not be used
// afterwards.
func (b *Builder) Build() *Matrix {
	m := b.m
	b.m = nil

	return m
}

// Size returns the dimension of the matrix.
func (m *Matrix) Size() int {
	return len(m.index)
}

// Peers returns the canonical peer index of the matrix. The returned slice
// must not be mutated.
func (m *Matrix) Peers() []reputation.PeerID {
	return m.index
}

// Position returns the index of the peer in the canonical order.
func (m *Matrix) Position(id reputation.PeerID) (int, bool) {
	i, ok := m.pos[id]
	return i, ok
}

// At returns the normalized trust of the i-th peer towards the j-th one.
func (m *Matrix) At(i, j int) float64 {
	return m.rows[i][j]
}

func (m *Matrix) validate() error {
	for i := range m.rows {
		for j, v := range m.rows[i] {
			if !reputation.TrustValueFromFloat64(v).IsValid() {
				return fmt.Errorf("%w: entry (%d,%d) is %v", ErrMalformedMatrix, i, j, v)
			}
		}
	}

	return nil
}
