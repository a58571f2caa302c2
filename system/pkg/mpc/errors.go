package mpc

import (
	"errors"

	reasoncodes "kyc-attestation/system/pkg/reason_codes"
)

var (
	ErrAbortedComputation = reasoncodes.New(reasoncodes.AbortedComputation, "computation aborted")
	ErrMalformedRequest   = errors.New("malformed computation request")
	ErrNodeDisagreement   = errors.New("nodes opened different results")
)
