package zkp

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	nativemimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// HashEqualityCircuit proves that two secret document hashes are equal and
// that the public commitment is MiMC(passport hash).
type HashEqualityCircuit struct {
	PassportHash frontend.Variable `gnark:",secret"`
	PanHash      frontend.Variable `gnark:",secret"`
	Commitment   frontend.Variable `gnark:",public"`
}

func (circuit *HashEqualityCircuit) Define(api frontend.API) error {
	api.AssertIsEqual(circuit.PassportHash, circuit.PanHash)

	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(circuit.PassportHash)
	api.AssertIsEqual(circuit.Commitment, h.Sum())

	return nil
}

// HashCommitment computes the public input of HashEqualityCircuit off-circuit.
func HashCommitment(hash [ScalarSize]byte) [ScalarSize]byte {
	e := ToFieldScalar(hash)
	b := e.Bytes()

	h := nativemimc.NewMiMC()
	// b is canonical, so Write cannot fail.
	_, _ = h.Write(b[:])

	var c fr.Element
	c.SetBytes(h.Sum(nil))
	return c.Bytes()
}
