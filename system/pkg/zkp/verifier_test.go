package zkp

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type proofFixture struct {
	vkBytes    []byte
	proofBytes []byte
	inputs     [][ScalarSize]byte
}

var (
	fixtureOnce sync.Once
	fixture     proofFixture
	fixtureErr  error
)

func loadFixture(t *testing.T) proofFixture {
	t.Helper()
	fixtureOnce.Do(func() {
		SilenceGnark()

		prover, err := SetupProver()
		if err != nil {
			fixtureErr = err
			return
		}

		hash := sha256.Sum256([]byte("P1234567|ABCDE1234F"))
		proof, inputs, err := prover.ProveHashEquality(hash, hash)
		if err != nil {
			fixtureErr = err
			return
		}

		vk, err := prover.VerifyingKey()
		if err != nil {
			fixtureErr = err
			return
		}

		fixture.vkBytes, fixtureErr = vk.MarshalBinary()
		if fixtureErr != nil {
			return
		}
		fixture.proofBytes, fixtureErr = proof.MarshalBinary()
		fixture.inputs = inputs
	})
	require.NoError(t, fixtureErr)
	return fixture
}

func TestVerifyAttestationProofRoundTrip(t *testing.T) {
	f := loadFixture(t)

	require.Len(t, f.proofBytes, ProofSize)
	require.NoError(t, VerifyAttestationProof(f.vkBytes, f.proofBytes, f.inputs))
}

func TestVerifyingKeyEncodingIsStable(t *testing.T) {
	f := loadFixture(t)

	vk, err := LoadVerifyingKey(f.vkBytes)
	require.NoError(t, err)
	assert.Equal(t, 1, vk.NbPublicInputs())

	again, err := vk.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, f.vkBytes, again)

	proof, err := LoadProof(f.proofBytes)
	require.NoError(t, err)
	proofAgain, err := proof.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, f.proofBytes, proofAgain)
}

func TestLoadVerifyingKeyRejectsMalformedInput(t *testing.T) {
	f := loadFixture(t)

	_, err := LoadVerifyingKey(nil)
	assert.ErrorIs(t, err, ErrVerificationKeyMissing)
	assert.ErrorIs(t, VerifyAttestationProof([]byte{}, f.proofBytes, f.inputs), ErrVerificationKeyMissing)

	_, err = LoadVerifyingKey(f.vkBytes[:len(f.vkBytes)-5])
	assert.ErrorIs(t, err, ErrVerificationKeyDeserialize)

	_, err = LoadVerifyingKey(append(append([]byte(nil), f.vkBytes...), 0))
	assert.ErrorIs(t, err, ErrVerificationKeyDeserialize)

	// length prefix of K sits right after alpha, beta, gamma, delta
	headerOffset := 32 + 3*64
	oversized := append([]byte(nil), f.vkBytes...)
	binary.BigEndian.PutUint32(oversized[headerOffset:], 1<<30)
	_, err = LoadVerifyingKey(oversized)
	assert.ErrorIs(t, err, ErrVerificationKeyDeserialize)

	_, err = LoadVerifyingKey([]byte{0x01, 0x02, 0x03})
	assert.ErrorIs(t, err, ErrVerificationKeyDeserialize)
}

func TestLoadProofRejectsMalformedInput(t *testing.T) {
	f := loadFixture(t)

	_, err := LoadProof(nil)
	assert.ErrorIs(t, err, ErrProofDeserialize)
	_, err = LoadProof(f.proofBytes[:ProofSize-1])
	assert.ErrorIs(t, err, ErrProofDeserialize)
	_, err = LoadProof(append(append([]byte(nil), f.proofBytes...), 0))
	assert.ErrorIs(t, err, ErrProofDeserialize)
}

func TestVerifyRejectsWrongArity(t *testing.T) {
	f := loadFixture(t)

	err := VerifyAttestationProof(f.vkBytes, f.proofBytes, nil)
	assert.ErrorIs(t, err, ErrArityMismatch)

	err = VerifyAttestationProof(f.vkBytes, f.proofBytes, append(f.inputs, f.inputs[0]))
	assert.ErrorIs(t, err, ErrArityMismatch)
}

func TestVerifyRejectsTamperedPublicInput(t *testing.T) {
	f := loadFixture(t)

	for _, bit := range []int{0, 7, 100, 255} {
		tampered := [][ScalarSize]byte{f.inputs[0]}
		tampered[0][ScalarSize-1-bit/8] ^= 1 << (bit % 8)

		err := VerifyAttestationProof(f.vkBytes, f.proofBytes, tampered)
		assert.ErrorIs(t, err, ErrVerificationFailed, "bit %d", bit)
	}
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	f := loadFixture(t)

	for _, pos := range []int{3, 31, 40, 95, 96, 127} {
		tampered := append([]byte(nil), f.proofBytes...)
		tampered[pos] ^= 0x01

		err := VerifyAttestationProof(f.vkBytes, tampered, f.inputs)
		require.Error(t, err, "byte %d", pos)
		assert.True(t,
			errors.Is(err, ErrProofDeserialize) || errors.Is(err, ErrVerificationFailed),
			"byte %d: unexpected error %v", pos, err)
	}
}

func TestVerifyRejectsProofForOtherStatement(t *testing.T) {
	f := loadFixture(t)

	other := sha256.Sum256([]byte("someone else"))
	err := VerifyAttestationProof(f.vkBytes, f.proofBytes, [][ScalarSize]byte{HashCommitment(other)})
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestProverRefusesUnequalHashes(t *testing.T) {
	SilenceGnark()
	prover, err := SetupProver()
	require.NoError(t, err)

	_, _, err = prover.ProveHashEquality(sha256.Sum256([]byte("a")), sha256.Sum256([]byte("b")))
	assert.Error(t, err)
}

func TestVerifyReportsRoutineFailure(t *testing.T) {
	ok, err := Verify(nil, []fr.Element{}, &Proof{})
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrVerificationRoutineFailed)
}

func TestVerifierRecordsMetrics(t *testing.T) {
	f := loadFixture(t)
	reg := prometheus.NewRegistry()
	verifier := NewVerifier(NewMetrics(reg))

	vk, err := LoadVerifyingKey(f.vkBytes)
	require.NoError(t, err)

	require.NoError(t, verifier.VerifyAttestationProof(vk, f.proofBytes, f.inputs))
	tampered := [][ScalarSize]byte{f.inputs[0]}
	tampered[0][0] ^= 0x10
	assert.ErrorIs(t, verifier.VerifyAttestationProof(vk, f.proofBytes, tampered), ErrVerificationFailed)
	assert.ErrorIs(t, verifier.VerifyAttestationProof(vk, []byte{1}, f.inputs), ErrProofDeserialize)

	assert.Equal(t, 1.0, testutil.ToFloat64(verifier.Metrics.verifications.WithLabelValues("verified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(verifier.Metrics.verifications.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(verifier.Metrics.verifications.WithLabelValues("malformed")))
}
