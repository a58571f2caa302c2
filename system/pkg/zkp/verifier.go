package zkp

import (
	"errors"
	"fmt"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// PreparePublicInputs maps 32-byte big-endian words to field scalars, keeping order.
func PreparePublicInputs(words [][ScalarSize]byte) []fr.Element {
	out := make([]fr.Element, len(words))
	for i, w := range words {
		out[i] = ToFieldScalar(w)
	}
	return out
}

// Verify runs the Groth16 pairing check
//
//	e(A, B) · e(K0 + Σ xi·Ki+1, -γ) · e(C, -δ) == e(α, β)
//
// false means the proof does not verify; an error means the check could not be
// evaluated at all.
func Verify(vk *VerifyingKey, inputs []fr.Element, proof *Proof) (bool, error) {
	if vk == nil || proof == nil {
		return false, fmt.Errorf("%w: nil key or proof", ErrVerificationRoutineFailed)
	}
	if len(inputs) != vk.NbPublicInputs() {
		return false, fmt.Errorf("%w: got %d, key expects %d", ErrArityMismatch, len(inputs), vk.NbPublicInputs())
	}
	if err := vk.prepare(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrVerificationRoutineFailed, err)
	}

	var kSum bn254.G1Jac
	kSum.FromAffine(&vk.K[0])
	if len(inputs) > 0 {
		var msm bn254.G1Affine
		if _, err := msm.MultiExp(vk.K[1:], inputs, ecc.MultiExpConfig{}); err != nil {
			return false, fmt.Errorf("%w: %v", ErrVerificationRoutineFailed, err)
		}
		kSum.AddMixed(&msm)
	}
	var kSumAff bn254.G1Affine
	kSumAff.FromJacobian(&kSum)

	lhs, err := bn254.Pair(
		[]bn254.G1Affine{proof.Ar, kSumAff, proof.Krs},
		[]bn254.G2Affine{proof.Bs, vk.gammaNeg, vk.deltaNeg},
	)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrVerificationRoutineFailed, err)
	}

	return lhs.Equal(&vk.alphaBeta), nil
}

// VerifyAttestationProof decodes the key and proof, prepares the inputs and
// verifies. A proof that does not verify yields ErrVerificationFailed.
func VerifyAttestationProof(vkBytes, proofBytes []byte, inputs [][ScalarSize]byte) error {
	vk, err := LoadVerifyingKey(vkBytes)
	if err != nil {
		return err
	}
	return VerifyWithKey(vk, proofBytes, inputs)
}

// VerifyWithKey is VerifyAttestationProof for an already decoded key.
func VerifyWithKey(vk *VerifyingKey, proofBytes []byte, inputs [][ScalarSize]byte) error {
	proof, err := LoadProof(proofBytes)
	if err != nil {
		return err
	}

	ok, err := Verify(vk, PreparePublicInputs(inputs), proof)
	if err != nil {
		return err
	}
	if !ok {
		return ErrVerificationFailed
	}
	return nil
}

// Verifier wraps the package functions with metrics. The zero value is usable.
type Verifier struct {
	Metrics *Metrics
}

func NewVerifier(metrics *Metrics) *Verifier {
	return &Verifier{Metrics: metrics}
}

func (v *Verifier) VerifyAttestationProof(vk *VerifyingKey, proofBytes []byte, inputs [][ScalarSize]byte) error {
	start := time.Now()
	err := VerifyWithKey(vk, proofBytes, inputs)
	v.Metrics.observe(outcomeOf(err), time.Since(start))
	return err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "verified"
	case errors.Is(err, ErrVerificationFailed):
		return "rejected"
	case errors.Is(err, ErrVerificationRoutineFailed):
		return "routine_error"
	default:
		return "malformed"
	}
}
