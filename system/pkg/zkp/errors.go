package zkp

import reasoncodes "kyc-attestation/system/pkg/reason_codes"

var (
	ErrVerificationKeyMissing     = reasoncodes.New(reasoncodes.VerificationKeyMissing, "verifying key is empty")
	ErrVerificationKeyDeserialize = reasoncodes.New(reasoncodes.VerificationKeyDeserialize, "malformed verifying key")
	ErrProofDeserialize           = reasoncodes.New(reasoncodes.ProofDeserialize, "malformed proof")
	ErrPublicInputDeserialize     = reasoncodes.New(reasoncodes.PublicInputDeserialize, "malformed public inputs")
	ErrArityMismatch              = reasoncodes.New(reasoncodes.ArityMismatch, "public input count does not match verifying key")
	ErrVerificationRoutineFailed  = reasoncodes.New(reasoncodes.VerificationRoutineFailed, "verification routine failed")
	ErrVerificationFailed         = reasoncodes.New(reasoncodes.VerificationFailed, "proof verification failed")
)
