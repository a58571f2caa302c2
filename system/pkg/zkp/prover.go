package zkp

import (
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// Prover holds the compiled hash-equality circuit and its proving key. It is
// prover tooling; the service itself only verifies.
type Prover struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

func compileHashEquality() (constraint.ConstraintSystem, error) {
	return frontend.Compile(ElipticalCurveID.ScalarField(), r1cs.NewBuilder, &HashEqualityCircuit{})
}

// SetupProver compiles the circuit and runs a fresh (unsafe, single party) setup.
func SetupProver() (*Prover, error) {
	ccs, err := compileHashEquality()
	if err != nil {
		return nil, fmt.Errorf("compile circuit: %w", err)
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}

	return &Prover{ccs: ccs, pk: pk, vk: vk}, nil
}

// LoadProver recompiles the circuit and reads a proving key written by WriteProvingKey.
func LoadProver(pkReader io.Reader) (*Prover, error) {
	ccs, err := compileHashEquality()
	if err != nil {
		return nil, fmt.Errorf("compile circuit: %w", err)
	}

	pk := groth16.NewProvingKey(ElipticalCurveID)
	if _, err := pk.ReadFrom(pkReader); err != nil {
		return nil, fmt.Errorf("read proving key: %w", err)
	}

	return &Prover{ccs: ccs, pk: pk}, nil
}

func (p *Prover) WriteProvingKey(w io.Writer) error {
	_, err := p.pk.WriteTo(w)
	return err
}

// VerifyingKey exports the setup's verifying key. Only available after SetupProver.
func (p *Prover) VerifyingKey() (*VerifyingKey, error) {
	if p.vk == nil {
		return nil, fmt.Errorf("verifying key not available for a loaded prover")
	}
	return FromGnarkVerifyingKey(p.vk)
}

// ProveHashEquality proves passport == pan and returns the proof and its
// single public input, the commitment.
func (p *Prover) ProveHashEquality(passport, pan [ScalarSize]byte) (*Proof, [][ScalarSize]byte, error) {
	commitment := HashCommitment(passport)

	passportScalar := ToFieldScalar(passport)
	panScalar := ToFieldScalar(pan)
	commitmentScalar := ToFieldScalar(commitment)

	assignment := &HashEqualityCircuit{
		PassportHash: passportScalar.BigInt(new(big.Int)),
		PanHash:      panScalar.BigInt(new(big.Int)),
		Commitment:   commitmentScalar.BigInt(new(big.Int)),
	}

	fullWitness, err := frontend.NewWitness(assignment, ElipticalCurveID.ScalarField())
	if err != nil {
		return nil, nil, fmt.Errorf("build witness: %w", err)
	}

	proof, err := groth16.Prove(p.ccs, p.pk, fullWitness)
	if err != nil {
		return nil, nil, fmt.Errorf("prove: %w", err)
	}

	out, err := FromGnarkProof(proof)
	if err != nil {
		return nil, nil, err
	}

	return out, [][ScalarSize]byte{commitment}, nil
}
