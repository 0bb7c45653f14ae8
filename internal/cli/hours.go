package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppc-network/tasklist/internal/daemon"
	"github.com/ppc-network/tasklist/internal/domain"
)

func init() {
	hoursCmd.AddCommand(hoursAddCmd, hoursShowCmd)
	rootCmd.AddCommand(hoursCmd)
}

var hoursCmd = &cobra.Command{
	Use:   "hours",
	Short: "Report and query worked hours",
}

var hoursAddCmd = &cobra.Command{
	Use:   "add ID HOURS",
	Short: "Add hours worked by the caller on a task",
	Args:  cobra.ExactArgs(2),
	RunE:  runHoursAdd,
}

var hoursShowCmd = &cobra.Command{
	Use:   "show ID WORKER",
	Short: "Show a worker's accumulated hours on a task",
	Args:  cobra.ExactArgs(2),
	RunE:  runHoursShow,
}

func runHoursAdd(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	hrs, err := parseAmount("hours", args[1])
	if err != nil {
		return err
	}
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	total, err := d.Tasks.AddWorkedHours(cmd.Context(), caller(), id, hrs)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d h on task %d\n", caller(), total, id)
	return nil
}

func runHoursShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	hrs, err := d.Tasks.WorkedHours(id, domain.Address(args[1]))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hrs)
	return nil
}
