package mpc

import (
	"fmt"

	"github.com/near/borsh-go"
)

const (
	ContentTypeBorsh = "application/borsh"

	// KycMatchCallback is the callback id under which equality results are delivered.
	KycMatchCallback = "kyc_match"
)

type ComputationStatus uint8

const (
	StatusSuccess ComputationStatus = iota
	StatusAborted
)

func (s ComputationStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusAborted:
		return "aborted"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// ComputationRequest is what the gateway queues for the cluster. Args are
// ciphertexts in circuit argument order: passport hash, then PAN hash.
type ComputationRequest struct {
	Offset     uint64
	CallbackID string
	PublicKey  [KeySize]byte
	Nonce      Nonce
	Args       [][32]byte
}

func (r ComputationRequest) Serialize() ([]byte, error) {
	return borsh.Serialize(r)
}

func (r ComputationRequest) ContentType() string {
	return ContentTypeBorsh
}

func DecodeComputationRequest(data []byte) (ComputationRequest, error) {
	var r ComputationRequest
	if err := deserialize(&r, data); err != nil {
		return r, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return r, nil
}

// ComputationOutcome is the cluster's callback for one offset. Ciphertext and
// Nonce are only meaningful on success.
type ComputationOutcome struct {
	Offset     uint64
	CallbackID string
	Status     ComputationStatus
	Ciphertext [1]byte
	Nonce      Nonce
	Reason     string
}

func (o ComputationOutcome) Result() EncryptedResult {
	return EncryptedResult{Ciphertext: o.Ciphertext, Nonce: o.Nonce}
}

func (o ComputationOutcome) Serialize() ([]byte, error) {
	return borsh.Serialize(o)
}

func (o ComputationOutcome) ContentType() string {
	return ContentTypeBorsh
}

func DecodeComputationOutcome(data []byte) (ComputationOutcome, error) {
	var o ComputationOutcome
	if err := deserialize(&o, data); err != nil {
		return o, fmt.Errorf("malformed computation outcome: %w", err)
	}
	return o, nil
}

func Aborted(offset uint64, callbackID, reason string) ComputationOutcome {
	return ComputationOutcome{
		Offset:     offset,
		CallbackID: callbackID,
		Status:     StatusAborted,
		Reason:     reason,
	}
}

// deserialize turns decoder panics on truncated input into errors.
func deserialize(v interface{}, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("borsh: %v", r)
		}
	}()
	return borsh.Deserialize(v, data)
}
