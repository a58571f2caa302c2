package zkp

import (
	"io"

	"github.com/consensys/gnark-crypto/ecc"
	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
)

const (
	ElipticalCurveID = ecc.BN254

	// ScalarSize is the width of one public input word and of a field scalar.
	ScalarSize = 32
)

// SilenceGnark routes gnark's internal compile/prove logs to io.Discard.
func SilenceGnark() {
	gnarklogger.Set(zerolog.New(io.Discard))
}
