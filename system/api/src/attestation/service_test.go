package attestation

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"sync"
	"testing"
	"time"

	"kyc-attestation/system/api/src/computation"
	"kyc-attestation/system/api/src/model"
	dtocommon "kyc-attestation/system/pkg/dto_common"
	"kyc-attestation/system/pkg/logger"
	"kyc-attestation/system/pkg/mpc"
	reasoncodes "kyc-attestation/system/pkg/reason_codes"
	"kyc-attestation/system/pkg/zkp"

	"github.com/gagliardetto/solana-go"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	programId := solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
	h := newHarness(t, Options{ProgramId: programId})
	subject := newSubject(t)

	record, err := h.svc.Initialize(subject)
	require.NoError(t, err)
	assert.Equal(t, subject, record.SubjectId)
	assert.False(t, record.IsVerified)
	assert.False(t, record.HasAttestation())
	assert.Equal(t, model.StatusUninitialized, record.Status)

	want, _, err := solana.FindProgramAddress([][]byte{[]byte("kyc"), solana.MustPublicKeyFromBase58(subject).Bytes()}, programId)
	require.NoError(t, err)
	assert.Equal(t, want.String(), record.RecordAddress)

	_, err = h.svc.Initialize(subject)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)

	_, err = h.svc.Initialize("not-a-key!")
	assert.ErrorIs(t, err, ErrInvalidSubject)
}

func TestSubmitAttestationRequiresVerification(t *testing.T) {
	h := newHarness(t, Options{})
	subject := h.initialized(t)
	payload := []byte(`{"is_valid": true, "document": "passport"}`)

	_, err := h.svc.SubmitAttestation(subject, payload)
	require.NoError(t, err)

	record, err := h.svc.Get(subject)
	require.NoError(t, err)
	hash := sha256.Sum256(payload)
	assert.Equal(t, hash[:], record.AttestationHash)
	assert.False(t, record.IsVerified)
	assert.Equal(t, model.StatusPending, record.Status)
	assert.Equal(t, model.MethodNone, record.Method)
	assert.Equal(t, int64(1_700_000_000), record.LastUpdated)
	assert.Len(t, h.events.ofType(dtocommon.EventAttestationSubmitted), 1)
}

func TestSubmitAttestationSelfAttested(t *testing.T) {
	h := newHarness(t, Options{AllowSelfAttested: true})

	for _, valid := range []bool{true, false} {
		t.Run(fmt.Sprint(valid), func(t *testing.T) {
			subject := h.initialized(t)
			record, err := h.svc.SubmitAttestation(subject, []byte(fmt.Sprintf(`{"is_valid":%t}`, valid)))
			require.NoError(t, err)
			assert.Equal(t, valid, record.IsVerified)
			assert.Equal(t, model.MethodSelfAttested, record.Method)
		})
	}
}

func TestSubmitAttestationSelfAttestedNeedsIssuerSignature(t *testing.T) {
	signer, issuer := newIssuer(t)
	h := newHarness(t, Options{AllowSelfAttested: true, Issuer: issuer})
	subject := h.initialized(t)

	_, err := h.svc.SubmitAttestation(subject, []byte(`{"is_valid":true}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
	record, err := h.svc.Get(subject)
	require.NoError(t, err)
	assert.False(t, record.IsVerified)
	assert.False(t, record.HasAttestation())

	envelope, err := jws.Sign([]byte(`{"is_valid":true}`), jws.WithKey(jwa.ES256, signer))
	require.NoError(t, err)
	record, err = h.svc.SubmitAttestation(subject, envelope)
	require.NoError(t, err)
	assert.True(t, record.IsVerified)
	assert.Equal(t, model.MethodSelfAttested, record.Method)

	submitted := h.events.ofType(dtocommon.EventAttestationSubmitted)
	require.Len(t, submitted, 1)
	assert.Contains(t, string(submitted[0].payload), `"issuer_signed":true`)
}

func TestSubmitAttestationRejectsMalformedPayload(t *testing.T) {
	h := newHarness(t, Options{AllowSelfAttested: true})
	subject := h.submitted(t)
	before, err := h.svc.Get(subject)
	require.NoError(t, err)

	for _, payload := range []string{
		``,
		`not json`,
		`{"valid": true}`,
		`{"is_valid": "yes"}`,
		`[true]`,
		`{"is_valid": null}`,
	} {
		t.Run(payload, func(t *testing.T) {
			_, err := h.svc.SubmitAttestation(subject, []byte(payload))
			assert.ErrorIs(t, err, ErrInvalidPayload)

			hash := sha256.Sum256([]byte(payload))
			assert.Contains(t, err.Error(), fmt.Sprintf("%x", hash))
		})
	}

	after, err := h.svc.Get(subject)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestOperationsOnMissingRecord(t *testing.T) {
	h := newHarness(t, Options{})
	subject := newSubject(t)

	_, err := h.svc.Get(subject)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = h.svc.SubmitAttestation(subject, []byte(`{"is_valid":true}`))
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = h.svc.VerifyViaMPC(context.Background(), subject, MpcRequest{Offset: 1})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestVerifyViaProof(t *testing.T) {
	f := loadProofFixture(t)
	h := newHarness(t, Options{})
	subject := h.submitted(t)

	h.clock.set(1_700_000_100)
	record, err := h.svc.VerifyViaProof(subject, f.vk, f.proof, f.inputs)
	require.NoError(t, err)
	assert.True(t, record.IsVerified)
	assert.Equal(t, model.StatusVerified, record.Status)
	assert.Equal(t, model.MethodZkProof, record.Method)
	assert.Equal(t, int64(1_700_000_100), record.LastUpdated)
	assert.Len(t, h.events.ofType(dtocommon.EventZkVerified), 1)

	// a new submission needs a new verification
	record, err = h.svc.SubmitAttestation(subject, []byte(`{"is_valid":true,"rev":2}`))
	require.NoError(t, err)
	assert.False(t, record.IsVerified)
}

func TestVerifyViaProofErrorLeavesRecordUnchanged(t *testing.T) {
	f := loadProofFixture(t)
	h := newHarness(t, Options{})
	subject := h.submitted(t)
	before, err := h.svc.Get(subject)
	require.NoError(t, err)

	tampered := append([][zkp.ScalarSize]byte(nil), f.inputs...)
	tampered[0][31] ^= 1

	tests := []struct {
		name   string
		vkRaw  []byte
		proof  []byte
		inputs [][zkp.ScalarSize]byte
		want   error
	}{
		{"empty key", nil, f.proof, f.inputs, zkp.ErrVerificationKeyMissing},
		{"truncated key", f.vkRaw[:len(f.vkRaw)-1], f.proof, f.inputs, zkp.ErrVerificationKeyDeserialize},
		{"truncated proof", f.vkRaw, f.proof[:10], f.inputs, zkp.ErrProofDeserialize},
		{"missing input", f.vkRaw, f.proof, nil, zkp.ErrArityMismatch},
		{"tampered input", f.vkRaw, f.proof, tampered, zkp.ErrVerificationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.VerifyViaProofBytes(subject, tt.vkRaw, tt.proof, tt.inputs)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	after, err := h.svc.Get(subject)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestVerifyViaProofNeedsAttestation(t *testing.T) {
	f := loadProofFixture(t)
	h := newHarness(t, Options{})
	subject := h.initialized(t)

	_, err := h.svc.VerifyViaProof(subject, f.vk, f.proof, f.inputs)
	assert.ErrorIs(t, err, ErrNoAttestation)
}

func TestMpcVerification(t *testing.T) {
	passport := sha256.Sum256([]byte("P1234567"))
	pan := sha256.Sum256([]byte("ABCDE1234F"))

	tests := []struct {
		name     string
		pan      [32]byte
		verified bool
		wantErr  error
	}{
		{"match", passport, true, nil},
		{"mismatch", pan, false, ErrHashMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{})
			subject := h.submitted(t)

			record, err := h.svc.VerifyViaMPC(context.Background(), subject, h.mpcRequest(t, 10, passport, tt.pan))
			require.NoError(t, err)
			require.NotNil(t, record.PendingOffset)
			h.local.Wait()

			record, err = h.svc.Get(subject)
			require.NoError(t, err)
			assert.Nil(t, record.PendingOffset)
			require.NotNil(t, record.MpcOffset)
			assert.Equal(t, uint64(10), *record.MpcOffset)
			assert.False(t, record.IsVerified)
			assert.Len(t, record.MpcNonce, mpc.NonceSize)
			assert.Len(t, h.events.ofType(dtocommon.EventKycMatch), 1)

			record, err = h.svc.ApplyMPCOutcome(subject, 10, h.client)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, model.StatusRejected, record.Status)
				assert.Equal(t, string(reasoncodes.HashMismatch), record.LastError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, model.MethodConfidentialMpc, record.Method)
				assert.Equal(t, model.StatusVerified, record.Status)
			}
			assert.Equal(t, tt.verified, record.IsVerified)

			_, err = h.svc.ApplyMPCOutcome(subject, 10, h.client)
			assert.ErrorIs(t, err, ErrStaleComputation)
		})
	}
}

func TestCallbacksDeliveredInReverseOrder(t *testing.T) {
	h := newHarness(t, Options{})
	h.holdComputations()

	matching := h.submitted(t)
	differing := h.submitted(t)
	a := sha256.Sum256([]byte("a"))
	b := sha256.Sum256([]byte("b"))

	_, err := h.svc.VerifyViaMPC(context.Background(), matching, h.mpcRequest(t, 1, a, a))
	require.NoError(t, err)
	_, err = h.svc.VerifyViaMPC(context.Background(), differing, h.mpcRequest(t, 2, a, b))
	require.NoError(t, err)

	for _, err := range h.runHeld(t, true) {
		require.NoError(t, err)
	}

	record, err := h.svc.ApplyMPCOutcome(matching, 1, h.client)
	require.NoError(t, err)
	assert.True(t, record.IsVerified)

	record, err = h.svc.ApplyMPCOutcome(differing, 2, h.client)
	assert.ErrorIs(t, err, ErrHashMismatch)
	assert.False(t, record.IsVerified)

	_, err = h.svc.ApplyMPCOutcome(matching, 2, h.client)
	assert.ErrorIs(t, err, ErrStaleComputation)
}

func TestResubmissionInvalidatesComputation(t *testing.T) {
	h := newHarness(t, Options{})
	h.holdComputations()
	subject := h.submitted(t)
	hash := sha256.Sum256([]byte("a"))

	_, err := h.svc.VerifyViaMPC(context.Background(), subject, h.mpcRequest(t, 3, hash, hash))
	require.NoError(t, err)
	_, err = h.svc.SubmitAttestation(subject, []byte(`{"is_valid":true,"rev":2}`))
	require.NoError(t, err)

	errs := h.runHeld(t, false)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrStaleComputation)

	record, err := h.svc.Get(subject)
	require.NoError(t, err)
	assert.Nil(t, record.MpcOffset)
	assert.False(t, record.IsVerified)
}

func TestAbortedComputation(t *testing.T) {
	h := newHarness(t, Options{})
	h.holdComputations()
	subject := h.submitted(t)
	hash := sha256.Sum256([]byte("a"))

	_, err := h.svc.VerifyViaMPC(context.Background(), subject, h.mpcRequest(t, 4, hash, hash))
	require.NoError(t, err)

	require.NoError(t, h.gateway.Deliver(context.Background(), mpc.Aborted(4, mpc.KycMatchCallback, "node offline")))

	record, err := h.svc.Get(subject)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, record.Status)
	assert.Equal(t, string(reasoncodes.AbortedComputation), record.LastError)
	assert.False(t, record.IsVerified)
	assert.Nil(t, record.PendingOffset)
	assert.Len(t, h.events.ofType(dtocommon.EventVerificationFailed), 1)

	_, err = h.svc.ApplyMPCOutcome(subject, 4, h.client)
	assert.ErrorIs(t, err, mpc.ErrAbortedComputation)
}

func TestApplyMPCOutcomeRejectsForeignOpener(t *testing.T) {
	h := newHarness(t, Options{})
	subject := h.submitted(t)

	// differing hashes: the stored result opens as 0 for the requesting client
	_, err := h.svc.VerifyViaMPC(context.Background(), subject, h.mpcRequest(t, 6, sha256.Sum256([]byte("a")), sha256.Sum256([]byte("b"))))
	require.NoError(t, err)
	h.local.Wait()

	for i := 0; i < 64; i++ {
		keys, err := mpc.GenerateKeyPair(rand.Reader)
		require.NoError(t, err)
		foreign, err := mpc.NewClient(keys, h.cluster.PublicKey())
		require.NoError(t, err)

		_, err = h.svc.ApplyMPCOutcome(subject, 6, foreign)
		require.ErrorIs(t, err, ErrOpenerMismatch)
	}

	record, err := h.svc.Get(subject)
	require.NoError(t, err)
	assert.False(t, record.IsVerified)
	require.NotNil(t, record.MpcOffset)
	clientKey := h.client.PublicKey()
	assert.Equal(t, clientKey[:], record.MpcPublicKey)

	record, err = h.svc.ApplyMPCOutcome(subject, 6, h.client)
	assert.ErrorIs(t, err, ErrHashMismatch)
	assert.False(t, record.IsVerified)
	assert.Nil(t, record.MpcPublicKey)
}

func TestCallbackRetriedAfterStorageFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.holdComputations()
	subject := h.submitted(t)
	hash := sha256.Sum256([]byte("a"))

	_, err := h.svc.VerifyViaMPC(context.Background(), subject, h.mpcRequest(t, 5, hash, hash))
	require.NoError(t, err)
	request := h.held.requests[0]
	outcome := h.cluster.Execute(context.Background(), request)

	h.repo.failNextSaves(1)
	err = h.gateway.Deliver(context.Background(), outcome)
	require.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, 1, h.gateway.Pending())

	record, err := h.svc.Get(subject)
	require.NoError(t, err)
	require.NotNil(t, record.PendingOffset)
	assert.Nil(t, record.MpcOffset)

	require.NoError(t, h.gateway.Deliver(context.Background(), outcome))
	assert.Zero(t, h.gateway.Pending())

	record, err = h.svc.ApplyMPCOutcome(subject, 5, h.client)
	require.NoError(t, err)
	assert.True(t, record.IsVerified)
}

func TestResumePendingAfterRestart(t *testing.T) {
	h := newHarness(t, Options{})
	h.holdComputations()
	subject := h.submitted(t)
	idle := h.submitted(t)
	hash := sha256.Sum256([]byte("a"))

	_, err := h.svc.VerifyViaMPC(context.Background(), subject, h.mpcRequest(t, 9, hash, hash))
	require.NoError(t, err)

	// a fresh gateway over the same storage knows nothing of offset 9
	restarted := computation.NewGateway(h.held, time.Minute, nil, logger.Nop())
	restarted.RegisterCallback(mpc.KycMatchCallback, h.svc.HandleKycMatch)
	assert.ErrorIs(t, restarted.Deliver(context.Background(), mpc.Aborted(9, mpc.KycMatchCallback, "late")), computation.ErrUnknownOffset)

	resumed, err := h.svc.ResumePending(restarted)
	require.NoError(t, err)
	assert.Equal(t, 1, resumed)
	assert.Equal(t, 1, restarted.Pending())

	resumed, err = h.svc.ResumePending(restarted)
	require.NoError(t, err)
	assert.Zero(t, resumed)

	assert.Equal(t, 1, restarted.SweepExpired(context.Background(), time.Now().Add(2*time.Minute)))
	record, err := h.svc.Get(subject)
	require.NoError(t, err)
	assert.Nil(t, record.PendingOffset)
	assert.Equal(t, string(reasoncodes.AbortedComputation), record.LastError)

	record, err = h.svc.Get(idle)
	require.NoError(t, err)
	assert.Empty(t, record.LastError)
}

func TestVerifyViaMPCRejectsOffsetInFlight(t *testing.T) {
	h := newHarness(t, Options{})
	h.holdComputations()
	first := h.submitted(t)
	second := h.submitted(t)
	hash := sha256.Sum256([]byte("a"))

	_, err := h.svc.VerifyViaMPC(context.Background(), first, h.mpcRequest(t, 8, hash, hash))
	require.NoError(t, err)

	_, err = h.svc.VerifyViaMPC(context.Background(), second, h.mpcRequest(t, 8, hash, hash))
	assert.ErrorIs(t, err, computation.ErrDuplicateOffset)

	record, err := h.svc.Get(second)
	require.NoError(t, err)
	assert.Nil(t, record.PendingOffset)
}

func TestVerifyViaMPCNeedsAttestation(t *testing.T) {
	h := newHarness(t, Options{})
	subject := h.initialized(t)

	_, err := h.svc.VerifyViaMPC(context.Background(), subject, h.mpcRequest(t, 1, [32]byte{}, [32]byte{}))
	assert.ErrorIs(t, err, ErrNoAttestation)
	assert.Zero(t, h.gateway.Pending())
}

func TestLastUpdatedNeverDecreases(t *testing.T) {
	h := newHarness(t, Options{})
	subject := h.submitted(t)

	h.clock.set(1_600_000_000)
	record, err := h.svc.SubmitAttestation(subject, []byte(`{"is_valid":false}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), record.LastUpdated)
}

func TestConcurrentSubmissionsLastWriterWins(t *testing.T) {
	h := newHarness(t, Options{})
	subject := h.initialized(t)

	hashes := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		payload := []byte(fmt.Sprintf(`{"is_valid":true,"n":%d}`, i))
		sum := sha256.Sum256(payload)
		hashes[fmt.Sprintf("%x", sum)] = true

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.SubmitAttestation(subject, payload)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	record, err := h.svc.Get(subject)
	require.NoError(t, err)
	assert.True(t, hashes[record.HashHex()])
	assert.Equal(t, model.StatusPending, record.Status)
	assert.Len(t, h.events.ofType(dtocommon.EventAttestationSubmitted), 16)
}
