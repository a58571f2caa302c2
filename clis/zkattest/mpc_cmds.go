package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"kyc-attestation/system/pkg/mpc"

	"github.com/spf13/cobra"
)

// KeygenOutput is an x25519 key pair for either side of a confidential check.
type KeygenOutput struct {
	SecretHex string `json:"secret_hex"`
	PublicHex string `json:"public_hex"`
}

// EncryptOutput matches the body of POST /v1/kyc/:subject/verify/mpc.
type EncryptOutput struct {
	Offset        uint64 `json:"offset"`
	PassportCtHex string `json:"passport_ct_hex"`
	PanCtHex      string `json:"pan_ct_hex"`
	PublicKeyHex  string `json:"pubkey_hex"`
	NonceHex      string `json:"nonce_hex"`
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an x25519 key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := mpc.GenerateKeyPair(rand.Reader)
			if err != nil {
				return err
			}
			return writeJSON(cmd, KeygenOutput{
				SecretHex: hex.EncodeToString(kp.Secret[:]),
				PublicHex: hex.EncodeToString(kp.Public[:]),
			})
		},
	}
}

type clientFlags struct {
	secretHex        string
	clusterPublicHex string
}

func (cf *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cf.secretHex, "client-secret", "", "client x25519 secret, hex")
	cmd.Flags().StringVar(&cf.clusterPublicHex, "cluster-public", "", "cluster x25519 public key, hex")
	_ = cmd.MarkFlagRequired("client-secret")
	_ = cmd.MarkFlagRequired("cluster-public")
}

func (cf *clientFlags) client() (*mpc.Client, error) {
	var secret, clusterPublic [mpc.KeySize]byte
	if err := decodeHex(secret[:], cf.secretHex); err != nil {
		return nil, fmt.Errorf("client secret: %w", err)
	}
	if err := decodeHex(clusterPublic[:], cf.clusterPublicHex); err != nil {
		return nil, fmt.Errorf("cluster public key: %w", err)
	}
	keys, err := mpc.KeyPairFromSecret(secret)
	if err != nil {
		return nil, err
	}
	return mpc.NewClient(keys, clusterPublic)
}

func newEncryptCmd() *cobra.Command {
	var (
		keys          clientFlags
		offset        uint64
		passport, pan string
	)

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt passport and PAN hashes for a confidential equality check",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := keys.client()
			if err != nil {
				return err
			}
			nonce, err := mpc.NewRandomNonce(rand.Reader)
			if err != nil {
				return err
			}
			cts, err := client.EncryptHashes(nonce, sha256.Sum256([]byte(passport)), sha256.Sum256([]byte(pan)))
			if err != nil {
				return err
			}

			public := client.PublicKey()
			return writeJSON(cmd, EncryptOutput{
				Offset:        offset,
				PassportCtHex: hex.EncodeToString(cts[0][:]),
				PanCtHex:      hex.EncodeToString(cts[1][:]),
				PublicKeyHex:  hex.EncodeToString(public[:]),
				NonceHex:      hex.EncodeToString(nonce[:]),
			})
		},
	}
	keys.register(cmd)
	cmd.Flags().Uint64Var(&offset, "offset", 0, "computation offset, unique while in flight")
	cmd.Flags().StringVar(&passport, "passport", "", "passport number")
	cmd.Flags().StringVar(&pan, "pan", "", "PAN")
	_ = cmd.MarkFlagRequired("passport")
	_ = cmd.MarkFlagRequired("pan")
	return cmd
}

func newOpenCmd() *cobra.Command {
	var keys clientFlags
	var resultHex, nonceHex string

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Decrypt an equality result with the client secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := keys.client()
			if err != nil {
				return err
			}
			var result mpc.EncryptedResult
			if err := decodeHex(result.Ciphertext[:], resultHex); err != nil {
				return fmt.Errorf("result: %w", err)
			}
			if err := decodeHex(result.Nonce[:], nonceHex); err != nil {
				return fmt.Errorf("nonce: %w", err)
			}

			match, err := client.Open(result)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), match)
			return nil
		},
	}
	keys.register(cmd)
	cmd.Flags().StringVar(&resultHex, "result", "", "mpc_result of the record, hex")
	cmd.Flags().StringVar(&nonceHex, "nonce", "", "mpc_nonce of the record, hex")
	_ = cmd.MarkFlagRequired("result")
	_ = cmd.MarkFlagRequired("nonce")
	return cmd
}

func decodeHex(dst []byte, s string) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("want %d bytes, got %d", len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}
