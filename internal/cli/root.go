// Package cli implements the tasklist command-line interface using Cobra.
// Commands open the local node directly; --as names the calling identity.
package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ppc-network/tasklist/internal/api"
	"github.com/ppc-network/tasklist/internal/domain"
)

var (
	callerFlag string
	outputFlag string
)

var rootCmd = &cobra.Command{
	Use:   "tasklist",
	Short: "tasklist: funded task ledger",
	Long: `tasklist tracks funded units of collaborative work.

Validators create tasks and enroll workers, workers report hours and mark
tasks complete, and a validator's approval pays each worker's salary from
the task's escrow and mints reward tokens.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&callerFlag, "as", os.Getenv("TASKLIST_CALLER"), "Caller identity (default $TASKLIST_CALLER)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "table", "Output format: table, json or yaml")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version
	api.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// caller returns the --as identity. Empty identities are rejected by the
// operations themselves.
func caller() domain.Address {
	return domain.Address(callerFlag)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

func parseAmount(name, s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}
