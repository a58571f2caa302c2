package reasoncodes

type ReasonCode string

const (
	ErrUnmarshal ReasonCode = "UnmarshalError"

	InvalidPayload             ReasonCode = "InvalidPayload"
	InvalidSubject             ReasonCode = "InvalidSubject"
	VerificationKeyMissing     ReasonCode = "VerificationKeyMissing"
	VerificationKeyDeserialize ReasonCode = "VerificationKeyDeserializeError"
	ProofDeserialize           ReasonCode = "ProofDeserializeError"
	PublicInputDeserialize     ReasonCode = "PublicInputDeserializeError"
	ArityMismatch              ReasonCode = "ArityMismatch"

	VerificationRoutineFailed ReasonCode = "VerificationRoutineFailed"

	VerificationFailed ReasonCode = "VerificationFailed"
	HashMismatch       ReasonCode = "HashMismatch"
	AbortedComputation ReasonCode = "AbortedComputation"

	AlreadyInitialized ReasonCode = "AlreadyInitialized"
	RecordNotFound     ReasonCode = "RecordNotFound"
	NoAttestation      ReasonCode = "NoAttestation"
	DuplicateOffset    ReasonCode = "DuplicateOffset"
	UnknownOffset      ReasonCode = "UnknownOffset"
	UnknownCallback    ReasonCode = "UnknownCallback"
	StaleComputation   ReasonCode = "StaleComputation"
	OpenerMismatch     ReasonCode = "OpenerMismatch"

	DispatchError ReasonCode = "DispatchError"
	StorageError  ReasonCode = "StorageError"
)

type Category string

const (
	CategoryEncoding       Category = "encoding"
	CategoryEngine         Category = "engine"
	CategorySemantic       Category = "semantic"
	CategoryState          Category = "state"
	CategoryInfrastructure Category = "infrastructure"
)

var categories = map[ReasonCode]Category{
	ErrUnmarshal:               CategoryEncoding,
	InvalidPayload:             CategoryEncoding,
	InvalidSubject:             CategoryEncoding,
	VerificationKeyMissing:     CategoryEncoding,
	VerificationKeyDeserialize: CategoryEncoding,
	ProofDeserialize:           CategoryEncoding,
	PublicInputDeserialize:     CategoryEncoding,
	ArityMismatch:              CategoryEncoding,
	VerificationRoutineFailed:  CategoryEngine,
	VerificationFailed:         CategorySemantic,
	HashMismatch:               CategorySemantic,
	AbortedComputation:         CategorySemantic,
	AlreadyInitialized:         CategoryState,
	RecordNotFound:             CategoryState,
	NoAttestation:              CategoryState,
	DuplicateOffset:            CategoryState,
	UnknownOffset:              CategoryState,
	UnknownCallback:            CategoryState,
	StaleComputation:           CategoryState,
	OpenerMismatch:             CategoryState,
	DispatchError:              CategoryInfrastructure,
	StorageError:               CategoryInfrastructure,
}

func (rc ReasonCode) Category() Category {
	if c, ok := categories[rc]; ok {
		return c
	}
	return CategoryInfrastructure
}

// Retryable reports whether the same request may succeed when resubmitted unchanged.
func (rc ReasonCode) Retryable() bool {
	switch rc.Category() {
	case CategoryEngine, CategoryInfrastructure:
		return true
	}
	return false
}
