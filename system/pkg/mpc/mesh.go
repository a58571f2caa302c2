package mpc

import (
	"context"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

type envelope struct {
	round  int
	values []fr.Element
}

// mesh is an in-process fully connected network: links[to][from].
type mesh struct {
	n     int
	links [][]chan envelope
}

func newMesh(n int) *mesh {
	m := &mesh{n: n, links: make([][]chan envelope, n)}
	for to := range m.links {
		m.links[to] = make([]chan envelope, n)
		for from := range m.links[to] {
			if from != to {
				m.links[to][from] = make(chan envelope, protocolRounds)
			}
		}
	}
	return m
}

// open broadcasts this node's share vector for a round and returns the
// element-wise sum of every node's vector.
func (m *mesh) open(ctx context.Context, self, round int, values []fr.Element) ([]fr.Element, error) {
	for to := 0; to < m.n; to++ {
		if to == self {
			continue
		}
		select {
		case m.links[to][self] <- envelope{round: round, values: values}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	sum := append([]fr.Element(nil), values...)
	for from := 0; from < m.n; from++ {
		if from == self {
			continue
		}
		select {
		case msg := <-m.links[self][from]:
			if msg.round != round || len(msg.values) != len(values) {
				return nil, fmt.Errorf("node %d: unexpected message from %d in round %d", self, from, round)
			}
			for k := range sum {
				sum[k].Add(&sum[k], &msg.values[k])
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return sum, nil
}
