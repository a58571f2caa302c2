package computation

import reasoncodes "kyc-attestation/system/pkg/reason_codes"

var (
	ErrDuplicateOffset = reasoncodes.New(reasoncodes.DuplicateOffset, "offset already has a computation in flight")
	ErrUnknownCallback = reasoncodes.New(reasoncodes.UnknownCallback, "no handler registered for callback")
	ErrUnknownOffset   = reasoncodes.New(reasoncodes.UnknownOffset, "no computation in flight for offset")
	ErrDispatch        = reasoncodes.New(reasoncodes.DispatchError, "could not dispatch computation")
)
