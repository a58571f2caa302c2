package attestation

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"kyc-attestation/system/api/src/computation"
	"kyc-attestation/system/api/src/model"
	dtocommon "kyc-attestation/system/pkg/dto_common"
	"kyc-attestation/system/pkg/logger"
	"kyc-attestation/system/pkg/mpc"
	reasoncodes "kyc-attestation/system/pkg/reason_codes"
	"kyc-attestation/system/pkg/utilities"
	"kyc-attestation/system/pkg/utilities/timeutil"
	"kyc-attestation/system/pkg/zkp"

	"github.com/gagliardetto/solana-go"
)

type ProofVerifier interface {
	VerifyAttestationProof(vk *zkp.VerifyingKey, proofBytes []byte, inputs [][zkp.ScalarSize]byte) error
}

type ComputationDispatcher interface {
	Dispatch(ctx context.Context, req mpc.ComputationRequest, tag string) error
}

// PendingTracker re-registers computations dispatched before a restart; the
// gateway satisfies it.
type PendingTracker interface {
	Track(offset uint64, callbackID, tag string) error
}

// EventRecorder stores auditable events; the outbox repository satisfies it.
type EventRecorder interface {
	NewEvent(subjectId string, eventType dtocommon.KycEventType, payload utilities.Serializable, at timeutil.TimeUTC) (string, error)
}

type Options struct {
	// AllowSelfAttested lets a submitted is_valid flag set the verified bit
	// directly. It is a lower assurance mode than proof or MPC verification.
	AllowSelfAttested bool
	ProgramId         solana.PublicKey
	Issuer            *IssuerKey
}

// MpcRequest carries the client encrypted arguments of the equality circuit.
type MpcRequest struct {
	Offset     uint64
	PassportCt [32]byte
	PanCt      [32]byte
	PublicKey  [mpc.KeySize]byte
	Nonce      mpc.Nonce
}

type Service struct {
	repo     Repository
	events   EventRecorder
	verifier ProofVerifier
	gateway  ComputationDispatcher
	clock    timeutil.Clock
	locks    *subjectLocks
	options  Options
	logger   *logger.Logger
}

func NewService(
	repo Repository,
	events EventRecorder,
	verifier ProofVerifier,
	gateway ComputationDispatcher,
	clock timeutil.Clock,
	options Options,
	log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		events:   events,
		verifier: verifier,
		gateway:  gateway,
		clock:    timeutil.NewMonotonicClock(clock),
		locks:    newSubjectLocks(),
		options:  options,
		logger:   log.Named("AttestationService"),
	}
}

func (s *Service) Initialize(subjectId string) (*model.AttestationRecord, error) {
	subject, err := ParseSubject(subjectId)
	if err != nil {
		return nil, err
	}
	addr, err := subject.RecordAddress(s.options.ProgramId)
	if err != nil {
		return nil, err
	}

	record := model.NewAttestationRecord(subject.String(), addr.String(), s.clock.Now().T)
	if err := s.repo.Create(record); err != nil {
		return nil, err
	}
	s.logger.Infof("Initialized attestation record %s for %s", record.RecordAddress, record.SubjectId)
	return record, nil
}

func (s *Service) Get(subjectId string) (*model.AttestationRecord, error) {
	return s.repo.Get(subjectId)
}

// SubmitAttestation replaces the subject's attestation. The verified bit is
// cleared and any computation for the previous attestation is forgotten.
func (s *Service) SubmitAttestation(subjectId string, raw []byte) (*model.AttestationRecord, error) {
	unlock := s.locks.lock(subjectId)
	defer unlock()

	record, err := s.repo.Get(subjectId)
	if err != nil {
		return nil, err
	}

	payload, err := ParsePayload(raw, s.options.Issuer)
	if err != nil {
		return nil, fmt.Errorf("attestation %x: %w", payload.Hash, err)
	}

	now := s.clock.Now()
	record.AttestationHash = payload.Hash[:]
	record.ClearComputation()
	record.LastError = ""
	record.Touch(now.T)

	if s.options.AllowSelfAttested {
		record.IsVerified = payload.IsValid
		record.Method = model.MethodSelfAttested
		record.Status = utilities.Ternary(payload.IsValid, model.StatusVerified, model.StatusRejected)
	} else {
		record.IsVerified = false
		record.Method = model.MethodNone
		record.Status = model.StatusPending
	}

	if err := s.repo.Save(record); err != nil {
		return nil, err
	}

	s.recordEvent(subjectId, dtocommon.EventAttestationSubmitted, dtocommon.AttestationSubmittedDto{
		AttestationHash: record.HashHex(),
		RecordAddress:   record.RecordAddress,
		IssuerSigned:    payload.Signed,
	}, now)
	return record, nil
}

// VerifyViaProof checks a Groth16 proof for the subject's current attestation.
// Any error leaves the record untouched.
func (s *Service) VerifyViaProof(subjectId string, vk *zkp.VerifyingKey, proofBytes []byte, inputs [][zkp.ScalarSize]byte) (*model.AttestationRecord, error) {
	unlock := s.locks.lock(subjectId)
	defer unlock()

	record, err := s.repo.Get(subjectId)
	if err != nil {
		return nil, err
	}
	if !record.HasAttestation() {
		return nil, ErrNoAttestation
	}
	if vk == nil {
		return nil, zkp.ErrVerificationKeyMissing
	}

	if err := s.verifier.VerifyAttestationProof(vk, proofBytes, inputs); err != nil {
		s.logger.Warnf("Proof for %s not accepted: %v", subjectId, err)
		return nil, err
	}

	now := s.clock.Now()
	record.IsVerified = true
	record.Status = model.StatusVerified
	record.Method = model.MethodZkProof
	record.LastError = ""
	record.Touch(now.T)
	if err := s.repo.Save(record); err != nil {
		return nil, err
	}

	s.recordEvent(subjectId, dtocommon.EventZkVerified, dtocommon.ZkVerifiedDto{
		AttestationHash: record.HashHex(),
		PublicInputs:    len(inputs),
	}, now)
	return record, nil
}

// VerifyViaProofBytes decodes vkBytes and verifies as VerifyViaProof does.
func (s *Service) VerifyViaProofBytes(subjectId string, vkBytes, proofBytes []byte, inputs [][zkp.ScalarSize]byte) (*model.AttestationRecord, error) {
	vk, err := zkp.LoadVerifyingKey(vkBytes)
	if err != nil {
		return nil, err
	}
	return s.VerifyViaProof(subjectId, vk, proofBytes, inputs)
}

// VerifyViaMPC queues a confidential equality check and returns without
// waiting for it.
func (s *Service) VerifyViaMPC(ctx context.Context, subjectId string, req MpcRequest) (*model.AttestationRecord, error) {
	unlock := s.locks.lock(subjectId)
	defer unlock()

	record, err := s.repo.Get(subjectId)
	if err != nil {
		return nil, err
	}
	if !record.HasAttestation() {
		return nil, ErrNoAttestation
	}

	err = s.gateway.Dispatch(ctx, mpc.ComputationRequest{
		Offset:     req.Offset,
		CallbackID: mpc.KycMatchCallback,
		PublicKey:  req.PublicKey,
		Nonce:      req.Nonce,
		Args:       [][32]byte{req.PassportCt, req.PanCt},
	}, subjectId)
	if err != nil {
		return nil, err
	}

	offset := req.Offset
	record.PendingOffset = &offset
	record.PendingPublicKey = append([]byte(nil), req.PublicKey[:]...)
	if !record.IsVerified {
		record.Status = model.StatusPending
	}
	record.Touch(s.clock.Now().T)
	if err := s.repo.Save(record); err != nil {
		return nil, err
	}
	return record, nil
}

// HandleKycMatch is the gateway callback for the equality circuit. It stores
// the encrypted result without interpreting it.
func (s *Service) HandleKycMatch(_ context.Context, cb computation.Callback) error {
	subjectId := cb.Tag
	outcome := cb.Outcome

	unlock := s.locks.lock(subjectId)
	defer unlock()

	record, err := s.repo.Get(subjectId)
	if err != nil {
		return err
	}
	if record.PendingOffset == nil || *record.PendingOffset != outcome.Offset {
		return fmt.Errorf("computation %d for %s: %w", outcome.Offset, subjectId, ErrStaleComputation)
	}

	now := s.clock.Now()
	clientKey := record.PendingPublicKey
	record.PendingOffset = nil
	record.PendingPublicKey = nil
	record.Touch(now.T)

	if outcome.Status != mpc.StatusSuccess {
		record.LastError = string(reasoncodes.AbortedComputation)
		if !record.IsVerified {
			record.Status = model.StatusRejected
		}
		if err := s.repo.Save(record); err != nil {
			return err
		}
		s.logger.Warnf("Computation %d for %s aborted: %s", outcome.Offset, subjectId, outcome.Reason)
		s.recordEvent(subjectId, dtocommon.EventVerificationFailed, dtocommon.VerificationFailureDto{
			ReasonCode: reasoncodes.AbortedComputation,
			Error:      fmt.Sprintf("%s: %s", mpc.ErrAbortedComputation, outcome.Reason),
		}, now)
		return nil
	}

	result := outcome.Result()
	offset := outcome.Offset
	record.MpcOffset = &offset
	record.MpcResult = append([]byte(nil), result.Ciphertext[:]...)
	record.MpcNonce = append([]byte(nil), result.Nonce[:]...)
	record.MpcPublicKey = clientKey
	if err := s.repo.Save(record); err != nil {
		return err
	}

	s.recordEvent(subjectId, dtocommon.EventKycMatch, dtocommon.KycMatchDto{
		Offset:     offset,
		Ciphertext: fmt.Sprintf("%x", result.Ciphertext),
		Nonce:      result.Nonce.String(),
	}, now)
	return nil
}

// ApplyMPCOutcome lets the holder of the client secret settle a stored
// result. The opener must hold the key the request was encrypted to. A result
// can be applied once.
func (s *Service) ApplyMPCOutcome(subjectId string, offset uint64, opener mpc.Opener) (*model.AttestationRecord, error) {
	unlock := s.locks.lock(subjectId)
	defer unlock()

	record, err := s.repo.Get(subjectId)
	if err != nil {
		return nil, err
	}
	if record.MpcOffset == nil || *record.MpcOffset != offset {
		if record.LastError == string(reasoncodes.AbortedComputation) && record.MpcOffset == nil {
			return nil, mpc.ErrAbortedComputation
		}
		return nil, fmt.Errorf("computation %d for %s: %w", offset, subjectId, ErrStaleComputation)
	}

	var result mpc.EncryptedResult
	if len(record.MpcResult) != len(result.Ciphertext) || len(record.MpcNonce) != len(result.Nonce) {
		return nil, fmt.Errorf("stored result for computation %d is corrupt: %w", offset, ErrStorage)
	}
	copy(result.Ciphertext[:], record.MpcResult)
	copy(result.Nonce[:], record.MpcNonce)

	openerKey := opener.PublicKey()
	if subtle.ConstantTimeCompare(openerKey[:], record.MpcPublicKey) != 1 {
		return nil, fmt.Errorf("computation %d for %s: %w", offset, subjectId, ErrOpenerMismatch)
	}

	match, err := opener.Open(result)
	if err != nil {
		return nil, fmt.Errorf("open result of computation %d: %w", offset, err)
	}

	record.MpcOffset = nil
	record.MpcResult = nil
	record.MpcNonce = nil
	record.MpcPublicKey = nil
	record.Touch(s.clock.Now().T)

	var outcomeErr error
	if match == 1 {
		record.IsVerified = true
		record.Status = model.StatusVerified
		record.Method = model.MethodConfidentialMpc
		record.LastError = ""
	} else {
		record.IsVerified = false
		record.Status = model.StatusRejected
		record.LastError = string(reasoncodes.HashMismatch)
		outcomeErr = ErrHashMismatch
	}

	if err := s.repo.Save(record); err != nil {
		return nil, err
	}
	return record, outcomeErr
}

// ResumePending hands computations still marked pending in storage back to
// tracker, so that their outcome or timeout settles the record.
func (s *Service) ResumePending(tracker PendingTracker) (int, error) {
	records, err := s.repo.ListPending()
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, record := range records {
		offset := *record.PendingOffset
		err := tracker.Track(offset, mpc.KycMatchCallback, record.SubjectId)
		if errors.Is(err, computation.ErrDuplicateOffset) {
			s.logger.Warnf("Computation %d for %s is already tracked", offset, record.SubjectId)
			continue
		}
		if err != nil {
			return resumed, fmt.Errorf("resume computation %d for %s: %w", offset, record.SubjectId, err)
		}
		resumed++
	}
	if resumed > 0 {
		s.logger.Infof("Resumed %d pending computations", resumed)
	}
	return resumed, nil
}

func (s *Service) recordEvent(subjectId string, eventType dtocommon.KycEventType, payload utilities.Serializable, at timeutil.TimeUTC) {
	if s.events == nil {
		return
	}
	if _, err := s.events.NewEvent(subjectId, eventType, payload, at); err != nil {
		s.logger.Errorf(err, "Could not record %s event for %s", eventType, subjectId)
	}
}
