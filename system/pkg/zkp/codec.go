package zkp

import (
	"encoding/hex"
	"fmt"
	"strings"

	"kyc-attestation/system/pkg/utilities"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// ToFieldScalar reads b as a big-endian integer and reduces it modulo the
// BN254 scalar field order.
func ToFieldScalar(b [ScalarSize]byte) fr.Element {
	var e fr.Element
	e.SetBytes(b[:])
	return e
}

// ToFieldScalarLE is ToFieldScalar for little-endian buffers.
func ToFieldScalarLE(b [ScalarSize]byte) fr.Element {
	var be [ScalarSize]byte
	for i := range b {
		be[ScalarSize-1-i] = b[i]
	}
	return ToFieldScalar(be)
}

// ScalarBytes is the canonical big-endian form of e.
func ScalarBytes(e fr.Element) [ScalarSize]byte {
	return e.Bytes()
}

// SplitPublicInputs cuts a concatenation of 32-byte words into positional inputs.
func SplitPublicInputs(raw []byte) ([][ScalarSize]byte, error) {
	if len(raw)%ScalarSize != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of %d", ErrPublicInputDeserialize, len(raw), ScalarSize)
	}

	words := make([][ScalarSize]byte, len(raw)/ScalarSize)
	for i := range words {
		copy(words[i][:], raw[i*ScalarSize:(i+1)*ScalarSize])
	}
	return words, nil
}

// DecodePublicInputsHex parses hex words (optional 0x prefix), each exactly 32 bytes.
func DecodePublicInputsHex(words []string) ([][ScalarSize]byte, error) {
	out := make([][ScalarSize]byte, len(words))
	for i, w := range words {
		raw, err := hex.DecodeString(strings.TrimPrefix(w, "0x"))
		if err != nil {
			return nil, fmt.Errorf("%w: input %d: %v", ErrPublicInputDeserialize, i, err)
		}
		if len(raw) != ScalarSize {
			return nil, fmt.Errorf("%w: input %d has %d bytes", ErrPublicInputDeserialize, i, len(raw))
		}
		copy(out[i][:], raw)
	}
	return out, nil
}

func EncodePublicInputsHex(words [][ScalarSize]byte) []string {
	return utilities.Map(words, func(w [ScalarSize]byte) string {
		return hex.EncodeToString(w[:])
	})
}
