// Command zkattest is operator and prover tooling for KYC attestations: it
// runs the circuit setup, produces hash-equality proofs, checks them offline
// and prepares or opens confidential equality requests.
package main

import (
	"os"

	"kyc-attestation/system/pkg/logger"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "zkattest",
		Short:         "Prover and operator tooling for KYC attestations",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	rootCmd.AddCommand(
		newSetupCmd(),
		newProveCmd(),
		newVerifyCmd(),
		newKeygenCmd(),
		newEncryptCmd(),
		newOpenCmd(),
	)
	return rootCmd
}

func main() {
	log := logger.New()
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err, "zkattest failed")
		os.Exit(1)
	}
}
