package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppc-network/tasklist/internal/daemon"
	"github.com/ppc-network/tasklist/internal/domain"
)

var (
	taskDescription string
	listState       string
	listLimit       int
)

func init() {
	taskCreateCmd.Flags().StringVarP(&taskDescription, "description", "d", "", "Task description")
	taskListCmd.Flags().StringVar(&listState, "state", "", "Only list tasks in this state (open, started, completed, validated)")
	taskListCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum number of tasks (0 = all)")

	taskCmd.AddCommand(taskCreateCmd, taskShowCmd, taskListCmd, taskStartCmd,
		taskCompleteCmd, taskValidateCmd, taskFundCmd)
	rootCmd.AddCommand(taskCmd)
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create and progress tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create TITLE",
	Short: "Create a task with the caller as its validator",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskCreate,
}

var taskShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	RunE:    runTaskList,
}

var taskStartCmd = &cobra.Command{
	Use:   "start ID",
	Short: "Toggle a task between open and started (validators only)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskStart,
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete ID PPC_WORKER",
	Short: "Mark a task completed with a self-assessed score (workers only)",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskComplete,
}

var taskValidateCmd = &cobra.Command{
	Use:   "validate ID PPC Q_RATING",
	Short: "Validate a completed task and pay its workers (validators only)",
	Args:  cobra.ExactArgs(3),
	RunE:  runTaskValidate,
}

var taskFundCmd = &cobra.Command{
	Use:   "fund ID AMOUNT",
	Short: "Deposit funds into a task's escrow",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskFund,
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	id, err := d.Tasks.CreateTask(cmd.Context(), caller(), args[0], taskDescription)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created task %d\n", id)
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	t, err := d.Tasks.GetTask(id)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), t, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "ID:\t%d\n", t.ID)
		fmt.Fprintf(w, "Title:\t%s\n", t.Title)
		if t.Description != "" {
			fmt.Fprintf(w, "Description:\t%s\n", t.Description)
		}
		fmt.Fprintf(w, "State:\t%s\n", t.State)
		fmt.Fprintf(w, "Balance:\t%d\n", t.Balance)
		fmt.Fprintf(w, "Creator:\t%s\n", t.Creator)
		fmt.Fprintf(w, "Validators:\t%s\n", joinAddrs(t.Validators))
		fmt.Fprintf(w, "Workers:\t%s\n", joinAddrs(t.Workers))
		for _, wk := range t.Workers {
			fmt.Fprintf(w, "  %s\t%d h\n", wk, t.WorkedHours[wk])
		}
		if t.State >= domain.StateCompleted {
			fmt.Fprintf(w, "PPC (worker):\t%d\n", t.PPCWorker)
		}
		if t.State == domain.StateValidated {
			fmt.Fprintf(w, "PPC:\t%d\n", t.PPC)
			fmt.Fprintf(w, "Q rating:\t%d\n", t.QRating)
		}
		fmt.Fprintf(w, "Created:\t%s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "Updated:\t%s\n", t.UpdatedAt.Format("2006-01-02 15:04:05"))
	})
}

func runTaskList(cmd *cobra.Command, args []string) error {
	state := domain.StateAny
	if listState != "" {
		st, err := domain.ParseTaskState(listState)
		if err != nil {
			return err
		}
		state = st
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	tasks, err := d.Tasks.ListTasks(state, listLimit)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		if outputFlag == "table" {
			fmt.Fprintln(cmd.OutOrStdout(), "No tasks. Run 'tasklist task create TITLE --as ADDRESS' to create one.")
			return nil
		}
		tasks = []domain.Task{}
	}

	return render(cmd.OutOrStdout(), tasks, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tTITLE\tSTATE\tBALANCE\tWORKERS\tHOURS\tUPDATED")
		for _, t := range tasks {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
				t.ID,
				t.Title,
				t.State,
				t.Balance,
				len(t.Workers),
				t.TotalHours(),
				t.UpdatedAt.Format("2006-01-02 15:04"),
			)
		}
	})
}

func runTaskStart(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	state, err := d.Tasks.ToggleStarted(cmd.Context(), caller(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Task %d is now %s\n", id, state)
	return nil
}

func runTaskComplete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ppcWorker, err := parseAmount("ppc_worker", args[1])
	if err != nil {
		return err
	}
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Tasks.CompleteTask(cmd.Context(), caller(), id, ppcWorker); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Task %d completed\n", id)
	return nil
}

func runTaskValidate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ppc, err := parseAmount("ppc", args[1])
	if err != nil {
		return err
	}
	qRating, err := parseAmount("q_rating", args[2])
	if err != nil {
		return err
	}
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Tasks.ValidateTask(cmd.Context(), caller(), id, ppc, qRating); err != nil {
		return err
	}
	t, err := d.Tasks.GetTask(id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Task %d validated\n", id)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKER\tHOURS\tPAID")
	rate := d.Tasks.SalaryRate()
	for _, wk := range t.Workers {
		h := t.WorkedHours[wk]
		fmt.Fprintf(w, "%s\t%d\t%d\n", wk, h, h*rate)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Remaining balance: %d\n", t.Balance)
	return nil
}

func runTaskFund(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	amount, err := parseAmount("amount", args[1])
	if err != nil {
		return err
	}
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	balance, err := d.Tasks.FundTask(cmd.Context(), caller(), id, amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Task %d funded with %d (balance %d)\n", id, amount, balance)
	return nil
}

func joinAddrs(addrs []domain.Address) string {
	if len(addrs) == 0 {
		return "-"
	}
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = string(a)
	}
	return strings.Join(parts, ", ")
}
