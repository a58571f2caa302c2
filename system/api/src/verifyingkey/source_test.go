package verifyingkey

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"kyc-attestation/system/pkg/zkp"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccountReader struct {
	result *rpc.GetAccountInfoResult
	err    error
	asked  solana.PublicKey
}

func (f *fakeAccountReader) GetAccountInfo(_ context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	f.asked = account
	return f.result, f.err
}

func accountWith(data []byte) *rpc.GetAccountInfoResult {
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes(data)},
	}
}

func sampleKeyBytes(t *testing.T) []byte {
	t.Helper()
	_, _, g1, g2 := bn254.Generators()
	vk := zkp.NewVerifyingKey(g1, g2, g2, g2, []bn254.G1Affine{g1, g1})
	raw, err := vk.MarshalBinary()
	require.NoError(t, err)
	return raw
}

func TestLoadNilSourceIsMissingKey(t *testing.T) {
	_, err := Load(context.Background(), nil)
	assert.ErrorIs(t, err, zkp.ErrVerificationKeyMissing)
}

func TestLoadEmptyStaticSource(t *testing.T) {
	_, err := Load(context.Background(), StaticSource(nil))
	assert.ErrorIs(t, err, zkp.ErrVerificationKeyMissing)
}

func TestLoadStaticSource(t *testing.T) {
	raw := sampleKeyBytes(t)

	vk, err := Load(context.Background(), StaticSource(raw))

	require.NoError(t, err)
	assert.Equal(t, 1, vk.NbPublicInputs())
}

func TestStaticSourceReturnsCopy(t *testing.T) {
	src := StaticSource{1, 2, 3}

	out, err := src.Load(context.Background())
	require.NoError(t, err)
	out[0] = 9

	assert.Equal(t, byte(1), src[0])
}

func TestFileSource(t *testing.T) {
	raw := sampleKeyBytes(t)
	path := filepath.Join(t.TempDir(), "hash_equality.vk")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	vk, err := Load(context.Background(), FileSource{Path: path})

	require.NoError(t, err)
	assert.Equal(t, 1, vk.NbPublicInputs())
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "absent.vk")}.Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSolanaAccountSourceSkipsHeader(t *testing.T) {
	raw := sampleKeyBytes(t)
	account := solana.NewWallet().PublicKey()
	reader := &fakeAccountReader{result: accountWith(append([]byte{0xAA, 0xBB, 0xCC, 0xDD}, raw...))}
	src := &SolanaAccountSource{Client: reader, Account: account, DataOffset: 4}

	data, err := src.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, raw, data)
	assert.Equal(t, account, reader.asked)
}

func TestSolanaAccountSourceHeaderLongerThanData(t *testing.T) {
	reader := &fakeAccountReader{result: accountWith([]byte{1, 2})}
	src := &SolanaAccountSource{Client: reader, Account: solana.NewWallet().PublicKey(), DataOffset: 8}

	_, err := src.Load(context.Background())

	assert.Error(t, err)
}

func TestSolanaAccountSourceMissingAccountIsMissingKey(t *testing.T) {
	reader := &fakeAccountReader{result: &rpc.GetAccountInfoResult{}}
	src := &SolanaAccountSource{Client: reader, Account: solana.NewWallet().PublicKey()}

	_, err := Load(context.Background(), src)

	assert.ErrorIs(t, err, zkp.ErrVerificationKeyMissing)
}

func TestSolanaAccountSourceRpcError(t *testing.T) {
	boom := errors.New("rpc unavailable")
	src := &SolanaAccountSource{Client: &fakeAccountReader{err: boom}, Account: solana.NewWallet().PublicKey()}

	_, err := Load(context.Background(), src)

	assert.ErrorIs(t, err, boom)
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(VerifyingKeyConfigJson{})
	require.NoError(t, err)
	assert.Nil(t, src)

	src, err = NewSource(VerifyingKeyConfigJson{Source: SourceFile, Path: "vk.bin"})
	require.NoError(t, err)
	assert.Equal(t, FileSource{Path: "vk.bin"}, src)

	account := solana.NewWallet().PublicKey()
	src, err = NewSource(VerifyingKeyConfigJson{Source: SourceSolana, RpcEndpoint: "http://127.0.0.1:8899", Account: account.String(), DataOffset: 8})
	require.NoError(t, err)
	sas, ok := src.(*SolanaAccountSource)
	require.True(t, ok)
	assert.Equal(t, account, sas.Account)
	assert.Equal(t, 8, sas.DataOffset)

	_, err = NewSource(VerifyingKeyConfigJson{Source: SourceSolana, Account: "not-base58-0OIl"})
	assert.Error(t, err)

	_, err = NewSource(VerifyingKeyConfigJson{Source: "ipfs"})
	assert.Error(t, err)
}
