package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppc-network/tasklist/internal/daemon"
	"github.com/ppc-network/tasklist/internal/domain"
)

var (
	recordsTask  int64
	recordsAfter int64
	recordsLimit int
)

func init() {
	recordsListCmd.Flags().Int64Var(&recordsTask, "task", 0, "Only records of this task")
	recordsListCmd.Flags().Int64Var(&recordsAfter, "after", 0, "Only records after this sequence number")
	recordsListCmd.Flags().IntVar(&recordsLimit, "limit", 50, "Maximum number of records (0 = all)")

	recordsCmd.AddCommand(recordsListCmd, recordsVerifyCmd)
	rootCmd.AddCommand(recordsCmd)
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect the operation record chain",
}

var recordsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List operation records",
	RunE:    runRecordsList,
}

var recordsVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify record hashes, signatures and escrow totals",
	Args:  cobra.NoArgs,
	RunE:  runRecordsVerify,
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	var recs []domain.Record
	if recordsTask > 0 {
		recs, err = d.Tasks.TaskRecords(recordsTask)
	} else {
		recs, err = d.Tasks.Records(recordsAfter, recordsLimit)
	}
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []domain.Record{}
	}

	return render(cmd.OutOrStdout(), recs, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "SEQ\tOPERATION\tTASK\tACTOR\tSTATE\tPAYLOAD")
		for _, r := range recs {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
				r.Seq, r.Operation, r.TaskID, r.Actor, r.ResultingState, r.Payload)
		}
	})
}

func runRecordsVerify(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	n, err := d.Tasks.VerifyRecords(d.PublicKey())
	if err != nil {
		return fmt.Errorf("record chain: %w", err)
	}
	if err := d.Tasks.Reconcile(); err != nil {
		return fmt.Errorf("escrow: %w", err)
	}
	signed := "unsigned"
	if d.PublicKey() != nil {
		signed = "signatures verified"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %d records, chain intact (%s), escrow balanced\n", n, signed)
	return nil
}
