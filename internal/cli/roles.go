package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppc-network/tasklist/internal/daemon"
	"github.com/ppc-network/tasklist/internal/domain"
)

func init() {
	validatorCmd.AddCommand(newRoleAddCmd("validator"), newRoleListCmd("validator"))
	workerCmd.AddCommand(newRoleAddCmd("worker"), newRoleListCmd("worker"))
	rootCmd.AddCommand(validatorCmd, workerCmd)
}

var validatorCmd = &cobra.Command{
	Use:   "validator",
	Short: "Manage task validators",
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Manage task workers",
}

func newRoleAddCmd(role string) *cobra.Command {
	return &cobra.Command{
		Use:   "add ID ADDRESS",
		Short: fmt.Sprintf("Enroll a %s on a task (validators only)", role),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			d, err := daemon.New()
			if err != nil {
				return err
			}
			defer d.Close()

			addr := domain.Address(args[1])
			var added bool
			if role == "validator" {
				added, err = d.Tasks.AddValidator(cmd.Context(), caller(), id, addr)
			} else {
				added, err = d.Tasks.AddWorker(cmd.Context(), caller(), id, addr)
			}
			if err != nil {
				return err
			}
			if added {
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s to task %d\n", role, addr, id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already a %s of task %d\n", addr, role, id)
			}
			return nil
		},
	}
}

func newRoleListCmd(role string) *cobra.Command {
	return &cobra.Command{
		Use:     "list ID",
		Aliases: []string{"ls"},
		Short:   fmt.Sprintf("List a task's %ss in enrollment order", role),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			d, err := daemon.New()
			if err != nil {
				return err
			}
			defer d.Close()

			var addrs []domain.Address
			if role == "validator" {
				addrs, err = d.Tasks.Validators(id)
			} else {
				addrs, err = d.Tasks.Workers(id)
			}
			if err != nil {
				return err
			}
			if addrs == nil {
				addrs = []domain.Address{}
			}
			return render(cmd.OutOrStdout(), addrs, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "#\tADDRESS")
				for i, a := range addrs {
					fmt.Fprintf(w, "%d\t%s\n", i+1, a)
				}
			})
		},
	}
}
