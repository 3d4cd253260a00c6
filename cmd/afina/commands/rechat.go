package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newRechatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rechat",
		Short: "Move stored history to a new chat id",
		Long: `Move messages and summaries from one chat id to another, e.g. after a
group was upgraded to a supergroup and Telegram assigned it a new id.`,
		Args: cobra.NoArgs,
		RunE: runRechat,
	}

	cmd.Flags().Int64("from", 0, "old chat id")
	cmd.Flags().Int64("to", 0, "new chat id")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runRechat(cmd *cobra.Command, _ []string) error {
	from, _ := cmd.Flags().GetInt64("from")
	to, _ := cmd.Flags().GetInt64("to")
	if from == 0 || to == 0 || from == to {
		return errors.New("--from and --to must be different non-zero chat ids")
	}

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	messages, summaries, err := sess.store.MoveChat(cmd.Context(), from, to)
	if err != nil {
		return err
	}
	sess.log.Info("Chat history moved", "from", from, "to", to, "messages", messages, "summaries", summaries)
	fmt.Fprintf(cmd.OutOrStdout(), "Moved %d messages and %d summaries from %d to %d\n", messages, summaries, from, to)
	return nil
}
