package zkp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
)

// MaxPublicInputs bounds the K vector accepted from untrusted bytes.
const MaxPublicInputs = 1 << 12

// VerifyingKey is a Groth16 verifying key over BN254.
//
// Wire form, all points compressed:
//
//	alpha(G1) | beta(G2) | gamma(G2) | delta(G2) | uint32be(len K) | K[0..n](G1)
type VerifyingKey struct {
	Alpha bn254.G1Affine
	Beta  bn254.G2Affine
	Gamma bn254.G2Affine
	Delta bn254.G2Affine
	K     []bn254.G1Affine

	once      sync.Once
	prepErr   error
	alphaBeta bn254.GT
	gammaNeg  bn254.G2Affine
	deltaNeg  bn254.G2Affine
}

// Proof is a Groth16 proof over BN254: A(G1) | B(G2) | C(G1), compressed.
type Proof struct {
	Ar  bn254.G1Affine
	Bs  bn254.G2Affine
	Krs bn254.G1Affine
}

const ProofSize = 2*bn254.SizeOfG1AffineCompressed + bn254.SizeOfG2AffineCompressed

func NewVerifyingKey(alpha bn254.G1Affine, beta, gamma, delta bn254.G2Affine, k []bn254.G1Affine) *VerifyingKey {
	return &VerifyingKey{
		Alpha: alpha,
		Beta:  beta,
		Gamma: gamma,
		Delta: delta,
		K:     append([]bn254.G1Affine(nil), k...),
	}
}

// NbPublicInputs is the number of inputs a proof against this key must carry.
func (vk *VerifyingKey) NbPublicInputs() int {
	return len(vk.K) - 1
}

func (vk *VerifyingKey) prepare() error {
	vk.once.Do(func() {
		if len(vk.K) == 0 {
			vk.prepErr = errors.New("verifying key has no K points")
			return
		}

		ab, err := bn254.Pair([]bn254.G1Affine{vk.Alpha}, []bn254.G2Affine{vk.Beta})
		if err != nil {
			vk.prepErr = err
			return
		}
		vk.alphaBeta = ab
		vk.gammaNeg.Neg(&vk.Gamma)
		vk.deltaNeg.Neg(&vk.Delta)
	})
	return vk.prepErr
}

func (vk *VerifyingKey) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	enc := bn254.NewEncoder(&buf)
	for _, v := range []interface{}{&vk.Alpha, &vk.Beta, &vk.Gamma, &vk.Delta, vk.K} {
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// LoadVerifyingKey decodes a verifying key. Points are subgroup checked and
// trailing bytes are rejected.
func LoadVerifyingKey(data []byte) (*VerifyingKey, error) {
	if len(data) == 0 {
		return nil, ErrVerificationKeyMissing
	}

	r := bytes.NewReader(data)
	dec := bn254.NewDecoder(r)

	vk := &VerifyingKey{}
	for _, v := range []interface{}{&vk.Alpha, &vk.Beta, &vk.Gamma, &vk.Delta} {
		if err := dec.Decode(v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrVerificationKeyDeserialize, err)
		}
	}

	if err := checkSliceHeader(data[len(data)-r.Len():]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationKeyDeserialize, err)
	}
	if err := dec.Decode(&vk.K); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationKeyDeserialize, err)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrVerificationKeyDeserialize, r.Len())
	}
	if len(vk.K) == 0 {
		return nil, fmt.Errorf("%w: empty K vector", ErrVerificationKeyDeserialize)
	}

	return vk, nil
}

// checkSliceHeader refuses length prefixes that cannot be backed by the
// remaining bytes, before the decoder allocates for them.
func checkSliceHeader(rest []byte) error {
	if len(rest) < 4 {
		return errors.New("missing K length prefix")
	}
	n := binary.BigEndian.Uint32(rest[:4])
	if n > MaxPublicInputs+1 {
		return fmt.Errorf("K length %d exceeds limit", n)
	}
	if uint64(n)*bn254.SizeOfG1AffineCompressed > uint64(len(rest)-4) {
		return fmt.Errorf("K length %d exceeds buffer", n)
	}
	return nil
}

func (p *Proof) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	enc := bn254.NewEncoder(&buf)
	for _, v := range []interface{}{&p.Ar, &p.Bs, &p.Krs} {
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func LoadProof(data []byte) (*Proof, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrProofDeserialize)
	}

	r := bytes.NewReader(data)
	dec := bn254.NewDecoder(r)

	p := &Proof{}
	for _, v := range []interface{}{&p.Ar, &p.Bs, &p.Krs} {
		if err := dec.Decode(v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProofDeserialize, err)
		}
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrProofDeserialize, r.Len())
	}

	return p, nil
}

// FromGnarkVerifyingKey converts a BN254 gnark key. Keys carrying Pedersen
// commitments are not representable and are refused.
func FromGnarkVerifyingKey(vk groth16.VerifyingKey) (*VerifyingKey, error) {
	bvk, ok := vk.(*groth16_bn254.VerifyingKey)
	if !ok {
		return nil, fmt.Errorf("unsupported verifying key type %T", vk)
	}
	if len(bvk.CommitmentKeys) != 0 {
		return nil, errors.New("verifying keys with commitments are not supported")
	}

	return NewVerifyingKey(bvk.G1.Alpha, bvk.G2.Beta, bvk.G2.Gamma, bvk.G2.Delta, bvk.G1.K), nil
}

func FromGnarkProof(proof groth16.Proof) (*Proof, error) {
	bp, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("unsupported proof type %T", proof)
	}
	if len(bp.Commitments) != 0 {
		return nil, errors.New("proofs with commitments are not supported")
	}

	return &Proof{Ar: bp.Ar, Bs: bp.Bs, Krs: bp.Krs}, nil
}
