package main

import (
	"bufio"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"kyc-attestation/system/pkg/zkp"

	"github.com/spf13/cobra"
)

const (
	provingKeyFile   = "hash_equality.pk"
	verifyingKeyFile = "hash_equality.vk"
)

// ProofOutput matches the body of POST /v1/kyc/:subject/verify/proof.
type ProofOutput struct {
	ProofB64        string   `json:"proof_b64"`
	PublicInputsHex []string `json:"public_inputs_hex"`
}

func newSetupCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Compile the hash-equality circuit and write its proving and verifying keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			zkp.SilenceGnark()
			prover, err := zkp.SetupProver()
			if err != nil {
				return err
			}
			vk, err := prover.VerifyingKey()
			if err != nil {
				return err
			}
			vkBytes, err := vk.MarshalBinary()
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			pkPath := filepath.Join(outDir, provingKeyFile)
			if err := writeProvingKey(prover, pkPath); err != nil {
				return err
			}
			vkPath := filepath.Join(outDir, verifyingKeyFile)
			if err := os.WriteFile(vkPath, vkBytes, 0o644); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "proving key:   %s\nverifying key: %s (%d public inputs)\n", pkPath, vkPath, vk.NbPublicInputs())
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "keys", "directory for the generated keys")
	return cmd
}

func writeProvingKey(prover *zkp.Prover, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := prover.WriteProvingKey(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newProveCmd() *cobra.Command {
	var pkPath, passport, pan string

	cmd := &cobra.Command{
		Use:   "prove",
		Short: "Prove that the passport and PAN hashes are equal",
		RunE: func(cmd *cobra.Command, args []string) error {
			zkp.SilenceGnark()
			f, err := os.Open(pkPath)
			if err != nil {
				return err
			}
			defer f.Close()

			prover, err := zkp.LoadProver(bufio.NewReader(f))
			if err != nil {
				return err
			}
			proof, inputs, err := prover.ProveHashEquality(sha256.Sum256([]byte(passport)), sha256.Sum256([]byte(pan)))
			if err != nil {
				return err
			}
			proofBytes, err := proof.MarshalBinary()
			if err != nil {
				return err
			}

			return writeJSON(cmd, ProofOutput{
				ProofB64:        base64.StdEncoding.EncodeToString(proofBytes),
				PublicInputsHex: zkp.EncodePublicInputsHex(inputs),
			})
		},
	}
	cmd.Flags().StringVar(&pkPath, "pk", filepath.Join("keys", provingKeyFile), "proving key written by setup")
	cmd.Flags().StringVar(&passport, "passport", "", "passport number")
	cmd.Flags().StringVar(&pan, "pan", "", "PAN")
	_ = cmd.MarkFlagRequired("passport")
	_ = cmd.MarkFlagRequired("pan")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var vkPath, proofPath string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a proof produced by prove against a verifying key",
		RunE: func(cmd *cobra.Command, args []string) error {
			vkBytes, err := os.ReadFile(vkPath)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(proofPath)
			if err != nil {
				return err
			}
			var out ProofOutput
			if err := json.Unmarshal(raw, &out); err != nil {
				return fmt.Errorf("read proof: %w", err)
			}
			proofBytes, err := base64.StdEncoding.DecodeString(out.ProofB64)
			if err != nil {
				return fmt.Errorf("%w: %v", zkp.ErrProofDeserialize, err)
			}
			inputs, err := zkp.DecodePublicInputsHex(out.PublicInputsHex)
			if err != nil {
				return err
			}

			zkp.SilenceGnark()
			if err := zkp.VerifyAttestationProof(vkBytes, proofBytes, inputs); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "verified")
			return nil
		},
	}
	cmd.Flags().StringVar(&vkPath, "vk", filepath.Join("keys", verifyingKeyFile), "verifying key written by setup")
	cmd.Flags().StringVar(&proofPath, "proof", "proof.json", "output of prove")
	return cmd
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
