package mpc

import (
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// limbsPerHash is the number of 128-bit limbs a 32-byte hash is split into.
// Each limb is below the field order, so limb equality is exact.
const limbsPerHash = 2

func hashLimbs(h [32]byte) [limbsPerHash]fr.Element {
	var out [limbsPerHash]fr.Element
	out[0].SetBytes(h[:16])
	out[1].SetBytes(h[16:])
	return out
}

func randomElement(rand io.Reader) (fr.Element, error) {
	k, err := randInt(rand, fr.Modulus())
	if err != nil {
		return fr.Element{}, err
	}
	var e fr.Element
	e.SetBigInt(k)
	return e, nil
}

func randomNonZero(rand io.Reader) (fr.Element, error) {
	for {
		e, err := randomElement(rand)
		if err != nil {
			return e, err
		}
		if !e.IsZero() {
			return e, nil
		}
	}
}

// randInt returns a uniform value in [0, max).
func randInt(rand io.Reader, max *big.Int) (*big.Int, error) {
	byteLen := (max.BitLen() + 7) / 8
	buf := make([]byte, byteLen)
	excess := uint(byteLen*8 - max.BitLen())
	for {
		if _, err := io.ReadFull(rand, buf); err != nil {
			return nil, fmt.Errorf("read randomness: %w", err)
		}
		buf[0] &= byte(0xff >> excess)
		n := new(big.Int).SetBytes(buf)
		if n.Cmp(max) < 0 {
			return n, nil
		}
	}
}

// share splits v into n additive shares.
func share(rand io.Reader, v fr.Element, n int) ([]fr.Element, error) {
	shares := make([]fr.Element, n)
	var sum fr.Element
	for i := 0; i < n-1; i++ {
		r, err := randomElement(rand)
		if err != nil {
			return nil, err
		}
		shares[i] = r
		sum.Add(&sum, &r)
	}
	shares[n-1].Sub(&v, &sum)
	return shares, nil
}

func reconstruct(shares []fr.Element) fr.Element {
	var sum fr.Element
	for i := range shares {
		sum.Add(&sum, &shares[i])
	}
	return sum
}

// triple is one node's share of a Beaver triple (a, b, c = a·b).
type triple struct {
	A, B, C fr.Element
}

func dealTriples(rand io.Reader, n int) ([]triple, error) {
	a, err := randomElement(rand)
	if err != nil {
		return nil, err
	}
	b, err := randomElement(rand)
	if err != nil {
		return nil, err
	}
	var c fr.Element
	c.Mul(&a, &b)

	as, err := share(rand, a, n)
	if err != nil {
		return nil, err
	}
	bs, err := share(rand, b, n)
	if err != nil {
		return nil, err
	}
	cs, err := share(rand, c, n)
	if err != nil {
		return nil, err
	}

	out := make([]triple, n)
	for i := range out {
		out[i] = triple{A: as[i], B: bs[i], C: cs[i]}
	}
	return out, nil
}

// nodeInput is everything the dealer hands to one node for one evaluation.
type nodeInput struct {
	Passport [limbsPerHash]fr.Element
	Pan      [limbsPerHash]fr.Element
	Mask     [limbsPerHash]fr.Element
	Triples  [limbsPerHash]triple
}

// deal secret-shares both hashes, a non-zero random mask per limb and one
// Beaver triple per limb across n nodes.
func deal(rand io.Reader, n int, passport, pan [32]byte) ([]nodeInput, error) {
	inputs := make([]nodeInput, n)
	passportLimbs := hashLimbs(passport)
	panLimbs := hashLimbs(pan)

	for j := 0; j < limbsPerHash; j++ {
		mask, err := randomNonZero(rand)
		if err != nil {
			return nil, err
		}

		for _, item := range []struct {
			value fr.Element
			set   func(i int, v fr.Element)
		}{
			{passportLimbs[j], func(i int, v fr.Element) { inputs[i].Passport[j] = v }},
			{panLimbs[j], func(i int, v fr.Element) { inputs[i].Pan[j] = v }},
			{mask, func(i int, v fr.Element) { inputs[i].Mask[j] = v }},
		} {
			shares, err := share(rand, item.value, n)
			if err != nil {
				return nil, err
			}
			for i := range shares {
				item.set(i, shares[i])
			}
		}

		triples, err := dealTriples(rand, n)
		if err != nil {
			return nil, err
		}
		for i := range triples {
			inputs[i].Triples[j] = triples[i]
		}
	}

	return inputs, nil
}
