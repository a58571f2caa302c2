package dtocommon

import (
	reasoncodes "kyc-attestation/system/pkg/reason_codes"
	"kyc-attestation/system/pkg/utilities"
	"kyc-attestation/system/pkg/utilities/timeutil"
)

type KycEventType string

const (
	EventAttestationSubmitted KycEventType = "attestation_submitted"
	EventZkVerified           KycEventType = "zk_verified"
	EventKycMatch             KycEventType = "kyc_match"
	EventVerificationFailed   KycEventType = "verification_failed"
)

// KycEventDto is the envelope relayed from the outbox to the events exchange.
type KycEventDto struct {
	EventId   string           `json:"event_id"`
	Type      KycEventType     `json:"type"`
	SubjectId string           `json:"subject_id"`
	Timestamp timeutil.TimeUTC `json:"timestamp"`
	Payload   []byte           `json:"payload"`
}

func (ked KycEventDto) Serialize() ([]byte, error) {
	return utilities.Serialize[KycEventDto](ked)
}

type AttestationSubmittedDto struct {
	AttestationHash string `json:"attestation_hash"`
	RecordAddress   string `json:"record_address"`
	IssuerSigned    bool   `json:"issuer_signed"`
}

func (asd AttestationSubmittedDto) Serialize() ([]byte, error) {
	return utilities.Serialize[AttestationSubmittedDto](asd)
}

type ZkVerifiedDto struct {
	AttestationHash string `json:"attestation_hash"`
	PublicInputs    int    `json:"public_inputs"`
}

func (zvd ZkVerifiedDto) Serialize() ([]byte, error) {
	return utilities.Serialize[ZkVerifiedDto](zvd)
}

// KycMatchDto carries the encrypted equality result exactly as the cluster
// produced it; nothing in it is plaintext.
type KycMatchDto struct {
	Offset     uint64 `json:"offset"`
	Ciphertext string `json:"result"`
	Nonce      string `json:"nonce"`
}

func (kmd KycMatchDto) Serialize() ([]byte, error) {
	return utilities.Serialize[KycMatchDto](kmd)
}

type VerificationFailureDto struct {
	ReasonCode reasoncodes.ReasonCode `json:"reason_code"`
	Error      string                 `json:"error"`
}

func (vfd VerificationFailureDto) Serialize() ([]byte, error) {
	return utilities.Serialize[VerificationFailureDto](vfd)
}
