package attestation

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var recordSeed = []byte("kyc")

// Subject is the ledger identity an attestation record belongs to.
type Subject struct {
	Key solana.PublicKey
}

func ParseSubject(s string) (Subject, error) {
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return Subject{}, fmt.Errorf("%w: %v", ErrInvalidSubject, err)
	}
	return Subject{Key: key}, nil
}

func (s Subject) String() string {
	return s.Key.String()
}

// RecordAddress derives the program address that holds this subject's record.
func (s Subject) RecordAddress(programId solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{recordSeed, s.Key.Bytes()}, programId)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive record address for %s: %w", s, err)
	}
	return addr, nil
}
