package jobs

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/reduc/agenda/cmd/agendactl/cmd/cmdutil"
)

// JobsCmd is the parent command for background job operations
var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Trigger and inspect background jobs",
}

var triggerCmd = &cobra.Command{
	Use:   "trigger [task]",
	Short: "Enqueue a job immediately (supported: directory:probe)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openManager()
		if err != nil {
			return err
		}
		defer manager.Close()

		info, err := manager.Trigger(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
		return err
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue depth per queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openManager()
		if err != nil {
			return err
		}
		defer manager.Close()

		stats, err := manager.InspectQueues()
		if err != nil {
			return err
		}
		return printStats(cmd.OutOrStdout(), stats)
	},
}

func init() {
	JobsCmd.AddCommand(triggerCmd)
	JobsCmd.AddCommand(statsCmd)
}

func openManager() (*Manager, error) {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewManager(cfg.RedisAddr), nil
}

func printStats(out io.Writer, stats []QueueStats) error {
	w := cmdutil.NewTable(out)
	fmt.Fprintln(w, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tFAILED")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Failed)
	}
	return w.Flush()
}
