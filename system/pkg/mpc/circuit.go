package mpc

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/sync/errgroup"
)

// protocolRounds is the number of openings per evaluation: one for the Beaver
// masks, one for the masked differences.
const protocolRounds = 2

// EqualityCircuit evaluates passport_hash == pan_hash on additive secret shares
// held by n nodes. For every 128-bit limb the nodes compute s·(a−b) for a
// dealer-chosen non-zero s and open only that product, which is zero exactly
// when the limbs are equal.
type EqualityCircuit struct {
	nodes int
	rand  io.Reader

	// beforeRound lets tests inject node faults.
	beforeRound func(node, round int) error
}

func NewEqualityCircuit(nodes int, rand io.Reader) (*EqualityCircuit, error) {
	if nodes < 2 {
		return nil, fmt.Errorf("equality circuit needs at least 2 nodes, got %d", nodes)
	}
	return &EqualityCircuit{nodes: nodes, rand: rand}, nil
}

func (c *EqualityCircuit) Nodes() int {
	return c.nodes
}

// Evaluate returns true iff passport and pan are byte-for-byte equal. Any node
// failure aborts the whole evaluation with ErrAbortedComputation.
func (c *EqualityCircuit) Evaluate(ctx context.Context, passport, pan [32]byte) (bool, error) {
	inputs, err := deal(c.rand, c.nodes, passport, pan)
	if err != nil {
		return false, fmt.Errorf("%w: deal: %v", ErrAbortedComputation, err)
	}

	net := newMesh(c.nodes)
	results := make([]bool, c.nodes)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.nodes; i++ {
		g.Go(func() error {
			equal, err := c.runNode(gctx, net, i, inputs[i])
			results[i] = equal
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrAbortedComputation, err)
	}

	for _, r := range results[1:] {
		if r != results[0] {
			return false, errors.Join(ErrAbortedComputation, ErrNodeDisagreement)
		}
	}
	return results[0], nil
}

func (c *EqualityCircuit) runNode(ctx context.Context, net *mesh, self int, in nodeInput) (bool, error) {
	if err := c.hook(self, 1); err != nil {
		return false, err
	}

	// round 1: open e = d - a and f = s - b for every limb
	masked := make([]fr.Element, 2*limbsPerHash)
	for j := 0; j < limbsPerHash; j++ {
		var d fr.Element
		d.Sub(&in.Passport[j], &in.Pan[j])
		masked[j].Sub(&d, &in.Triples[j].A)
		masked[limbsPerHash+j].Sub(&in.Mask[j], &in.Triples[j].B)
	}
	opened, err := net.open(ctx, self, 1, masked)
	if err != nil {
		return false, err
	}

	if err := c.hook(self, 2); err != nil {
		return false, err
	}

	// round 2: z = c + e·b + f·a (+ e·f on node 0) is a share of s·d
	products := make([]fr.Element, limbsPerHash)
	for j := 0; j < limbsPerHash; j++ {
		e, f := opened[j], opened[limbsPerHash+j]
		t := in.Triples[j]

		var eb, fa fr.Element
		eb.Mul(&e, &t.B)
		fa.Mul(&f, &t.A)
		products[j].Add(&t.C, &eb).Add(&products[j], &fa)
		if self == 0 {
			var ef fr.Element
			ef.Mul(&e, &f)
			products[j].Add(&products[j], &ef)
		}
	}
	masks, err := net.open(ctx, self, 2, products)
	if err != nil {
		return false, err
	}

	for j := range masks {
		if !masks[j].IsZero() {
			return false, nil
		}
	}
	return true, nil
}

func (c *EqualityCircuit) hook(node, round int) error {
	if c.beforeRound == nil {
		return nil
	}
	return c.beforeRound(node, round)
}

// PlainEqual is the reference semantics of the circuit.
func PlainEqual(passport, pan [32]byte) bool {
	return subtle.ConstantTimeCompare(passport[:], pan[:]) == 1
}
