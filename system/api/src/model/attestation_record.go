package model

import (
	"encoding/hex"
	"time"
)

type AttestationStatus string

const (
	StatusUninitialized AttestationStatus = ""
	StatusPending       AttestationStatus = "pending"
	StatusVerified      AttestationStatus = "verified"
	StatusRejected      AttestationStatus = "rejected"
)

type VerificationMethod string

const (
	MethodNone            VerificationMethod = "none"
	MethodZkProof         VerificationMethod = "zk_proof"
	MethodConfidentialMpc VerificationMethod = "confidential_mpc"
	MethodSelfAttested    VerificationMethod = "self_attested"
)

// AttestationRecord is the per-subject KYC state. IsVerified may only be true
// when a verification completed after AttestationHash last changed.
type AttestationRecord struct {
	Id              uint   `gorm:"primaryKey;autoIncrement"`
	SubjectId       string `gorm:"uniqueIndex;not null"`
	RecordAddress   string `gorm:"index"`
	IsVerified      bool
	AttestationHash []byte
	Status          AttestationStatus
	Method          VerificationMethod
	LastUpdated     int64
	LastError       string

	// PendingOffset is the in-flight MPC computation for the current hash and
	// PendingPublicKey the client key its result will be encrypted to.
	PendingOffset    *uint64
	PendingPublicKey []byte
	// MpcOffset identifies the stored, not yet opened, MPC result. Only the
	// holder of the secret for MpcPublicKey may open it.
	MpcOffset    *uint64
	MpcResult    []byte
	MpcNonce     []byte
	MpcPublicKey []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewAttestationRecord(subjectId, recordAddress string, now int64) *AttestationRecord {
	return &AttestationRecord{
		SubjectId:     subjectId,
		RecordAddress: recordAddress,
		Status:        StatusUninitialized,
		Method:        MethodNone,
		LastUpdated:   now,
	}
}

func (ar *AttestationRecord) HasAttestation() bool {
	return len(ar.AttestationHash) == 32
}

func (ar *AttestationRecord) HashHex() string {
	return hex.EncodeToString(ar.AttestationHash)
}

// Touch advances LastUpdated, never moving it backwards.
func (ar *AttestationRecord) Touch(now int64) {
	if now > ar.LastUpdated {
		ar.LastUpdated = now
	}
}

// ClearComputation forgets any in-flight or unopened MPC state.
func (ar *AttestationRecord) ClearComputation() {
	ar.PendingOffset = nil
	ar.PendingPublicKey = nil
	ar.MpcOffset = nil
	ar.MpcResult = nil
	ar.MpcNonce = nil
	ar.MpcPublicKey = nil
}

func (ar *AttestationRecord) Clone() *AttestationRecord {
	clone := *ar
	clone.AttestationHash = cloneBytes(ar.AttestationHash)
	clone.MpcResult = cloneBytes(ar.MpcResult)
	clone.MpcNonce = cloneBytes(ar.MpcNonce)
	clone.PendingPublicKey = cloneBytes(ar.PendingPublicKey)
	clone.MpcPublicKey = cloneBytes(ar.MpcPublicKey)
	if ar.PendingOffset != nil {
		v := *ar.PendingOffset
		clone.PendingOffset = &v
	}
	if ar.MpcOffset != nil {
		v := *ar.MpcOffset
		clone.MpcOffset = &v
	}
	return &clone
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
