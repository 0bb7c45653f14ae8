package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppc-network/tasklist/internal/daemon"
	"github.com/ppc-network/tasklist/internal/domain"
)

var historyLimit int

func init() {
	earningsCmd.Flags().IntVar(&historyLimit, "history", 0, "Also list this many recent payout entries")
	rootCmd.AddCommand(balanceCmd, earningsCmd, rewardsCmd)
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the contract balance and salary rate",
	Args:  cobra.NoArgs,
	RunE:  runBalance,
}

var earningsCmd = &cobra.Command{
	Use:   "earnings ADDRESS",
	Short: "Show the salary paid to a worker across all tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runEarnings,
}

var rewardsCmd = &cobra.Command{
	Use:   "rewards ADDRESS",
	Short: "Show a reward token balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runRewards,
}

type balanceView struct {
	ContractBalance int64  `json:"contract_balance" yaml:"contract_balance"`
	SalaryRate      int64  `json:"salary_rate" yaml:"salary_rate"`
	TaskCount       int64  `json:"task_count" yaml:"task_count"`
	RewardScaling   string `json:"reward_scaling" yaml:"reward_scaling"`
	PPCPerUnit      int64  `json:"ppc_per_unit" yaml:"ppc_per_unit"`
}

func runBalance(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	bal, err := d.Tasks.ContractBalance()
	if err != nil {
		return err
	}
	count, err := d.Tasks.TaskCount()
	if err != nil {
		return err
	}
	policy := d.Tasks.RewardPolicy()
	v := balanceView{
		ContractBalance: bal,
		SalaryRate:      d.Tasks.SalaryRate(),
		TaskCount:       count,
		RewardScaling:   string(policy.Scaling),
		PPCPerUnit:      policy.PPCPerUnit,
	}
	return render(cmd.OutOrStdout(), v, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Contract balance:\t%d\n", v.ContractBalance)
		fmt.Fprintf(w, "Salary rate:\t%d per hour\n", v.SalaryRate)
		fmt.Fprintf(w, "Tasks:\t%d\n", v.TaskCount)
		fmt.Fprintf(w, "Reward:\t%s, %d ppc per unit\n", v.RewardScaling, v.PPCPerUnit)
	})
}

func runEarnings(cmd *cobra.Command, args []string) error {
	addr, err := domain.ParseAddress(args[0])
	if err != nil {
		return err
	}
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	earned, err := d.Tasks.Earnings(addr)
	if err != nil {
		return err
	}
	var entries []domain.LedgerEntry
	if historyLimit > 0 {
		entries, err = d.Tasks.LedgerHistory(domain.PayeeAccount(addr), historyLimit)
		if err != nil {
			return err
		}
	}

	v := map[string]any{"address": addr, "earnings": earned}
	if entries != nil {
		v["entries"] = entries
	}
	return render(cmd.OutOrStdout(), v, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "%s earned %d\n", addr, earned)
		if len(entries) == 0 {
			return
		}
		fmt.Fprintln(w, "\nTASK\tAMOUNT\tTIME")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%d\t%s\n", e.TaskID, e.Amount, e.Timestamp.Format("2006-01-02 15:04"))
		}
	})
}

func runRewards(cmd *cobra.Command, args []string) error {
	addr, err := domain.ParseAddress(args[0])
	if err != nil {
		return err
	}
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	if d.Tokens == nil {
		return fmt.Errorf("reward token is remote (%s); query it directly", d.Config.Reward.Endpoint)
	}
	bal, err := d.Tokens.BalanceOf(addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s holds %d reward units\n", addr, bal)
	return nil
}
