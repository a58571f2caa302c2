package verifyingkey

import (
	"context"
	"fmt"
	"os"

	"kyc-attestation/system/pkg/zkp"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Source yields the raw verifying key bytes. Sources are read only; an empty
// result is reported by the decoder as a missing key.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

type StaticSource []byte

func (s StaticSource) Load(context.Context) ([]byte, error) {
	return append([]byte(nil), s...), nil
}

type FileSource struct {
	Path string
}

func (fs FileSource) Load(context.Context) ([]byte, error) {
	data, err := os.ReadFile(fs.Path)
	if err != nil {
		return nil, fmt.Errorf("read verifying key %s: %w", fs.Path, err)
	}
	return data, nil
}

// AccountReader is the part of the Solana RPC client used to fetch key accounts.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// SolanaAccountSource reads the key from a ledger account, skipping DataOffset
// bytes of account header.
type SolanaAccountSource struct {
	Client     AccountReader
	Account    solana.PublicKey
	DataOffset int
}

func NewSolanaAccountSource(endpoint, account string, dataOffset int) (*SolanaAccountSource, error) {
	key, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return nil, fmt.Errorf("verifying key account: %w", err)
	}
	return &SolanaAccountSource{
		Client:     rpc.New(endpoint),
		Account:    key,
		DataOffset: dataOffset,
	}, nil
}

func (sas *SolanaAccountSource) Load(ctx context.Context) ([]byte, error) {
	info, err := sas.Client.GetAccountInfo(ctx, sas.Account)
	if err != nil {
		return nil, fmt.Errorf("fetch verifying key account %s: %w", sas.Account, err)
	}
	if info == nil || info.Value == nil || info.Value.Data == nil {
		return nil, nil
	}

	data := info.Value.Data.GetBinary()
	if sas.DataOffset > len(data) {
		return nil, fmt.Errorf("verifying key account %s holds %d bytes, header is %d", sas.Account, len(data), sas.DataOffset)
	}
	return data[sas.DataOffset:], nil
}

// Load resolves and decodes the key from src.
func Load(ctx context.Context, src Source) (*zkp.VerifyingKey, error) {
	if src == nil {
		return nil, zkp.ErrVerificationKeyMissing
	}
	data, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return zkp.LoadVerifyingKey(data)
}
