// Package gnarkproof implements the proving backend contract with a
// groth16 zk-SNARK over BN254. The circuit proves that a peer's private
// normalized opinion vector opens the public commitment bound to the peer
// and the epoch.
package gnarkproof

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/proof"
)

// NormalizedOpinionCircuit constrains a private fixed-point opinion vector
// against its public commitment:
//
//   - MiMC(Peer, Epoch, Weights...) == Commitment,
//   - every weight is within [0, Scale],
//   - the weights sum to exactly Scale, or to zero for the defined
//     no-opinions state.
//
// The weights themselves stay private: only the binding digest and its
// (peer, epoch) context are public.
type NormalizedOpinionCircuit struct {
	Commitment frontend.Variable `gnark:",public"`
	Epoch      frontend.Variable `gnark:",public"`
	Peer       frontend.Variable `gnark:",public"`

	Weights [proof.MaxOpinions]frontend.Variable
}

// Define implements frontend.Circuit.
func (c *NormalizedOpinionCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	h.Write(c.Peer)
	h.Write(c.Epoch)
	h.Write(c.Weights[:]...)

	api.AssertIsEqual(c.Commitment, h.Sum())

	sum := frontend.Variable(0)

	for i := range c.Weights {
		api.AssertIsLessOrEqual(c.Weights[i], proof.Scale)
		sum = api.Add(sum, c.Weights[i])
	}

	// sum == 0 (no opinions) or sum == Scale (normalized)
	api.AssertIsEqual(api.Mul(sum, api.Sub(sum, proof.Scale)), 0)

	return nil
}
