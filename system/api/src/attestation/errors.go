package attestation

import reasoncodes "kyc-attestation/system/pkg/reason_codes"

var (
	ErrInvalidSubject     = reasoncodes.New(reasoncodes.InvalidSubject, "subject is not a valid base58 public key")
	ErrInvalidPayload     = reasoncodes.New(reasoncodes.InvalidPayload, "attestation payload must be a JSON object with a boolean is_valid")
	ErrAlreadyInitialized = reasoncodes.New(reasoncodes.AlreadyInitialized, "attestation record already initialized")
	ErrRecordNotFound     = reasoncodes.New(reasoncodes.RecordNotFound, "attestation record not found")
	ErrNoAttestation      = reasoncodes.New(reasoncodes.NoAttestation, "no attestation submitted for subject")
	ErrHashMismatch       = reasoncodes.New(reasoncodes.HashMismatch, "passport and PAN hashes differ")
	ErrStaleComputation   = reasoncodes.New(reasoncodes.StaleComputation, "computation does not belong to the current attestation")
	ErrOpenerMismatch     = reasoncodes.New(reasoncodes.OpenerMismatch, "result is encrypted to a different client key")
	ErrStorage            = reasoncodes.New(reasoncodes.StorageError, "attestation storage failure")
)
