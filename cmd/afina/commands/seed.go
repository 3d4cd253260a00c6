package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edgard/afina/internal/seed"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import a Telegram Desktop export as chat summaries",
		Long: `Read a Telegram Desktop JSON export (result.json), keep the text messages,
optionally only those of the given authors, and store one summary per batch
so the assistant starts with the chat's history.`,
		Args: cobra.NoArgs,
		RunE: runSeed,
	}

	cmd.Flags().Int64("chat-id", 0, "chat id the summaries belong to")
	cmd.Flags().String("file", "", "path to the exported result.json")
	cmd.Flags().StringSlice("author", nil, "only import messages whose sender name contains this (repeatable)")
	cmd.Flags().Int("batch", 0, "messages per summary (default pipeline.batch_threshold)")
	_ = cmd.MarkFlagRequired("chat-id")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	chatID, _ := cmd.Flags().GetInt64("chat-id")
	path, _ := cmd.Flags().GetString("file")
	authors, _ := cmd.Flags().GetStringSlice("author")
	batch, _ := cmd.Flags().GetInt("batch")

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	if batch <= 0 {
		batch = sess.cfg.Pipeline.BatchThreshold
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	export, err := seed.Parse(f)
	if err != nil {
		return err
	}
	records, err := export.Records(chatID, authors)
	if err != nil {
		return err
	}
	sess.log.Info("Export parsed", "chat", export.Name, "messages", len(export.Messages), "selected", len(records))
	if len(records) == 0 {
		return fmt.Errorf("no importable messages in %s", path)
	}

	st, err := sess.buildStack(ctx)
	if err != nil {
		return err
	}

	res, err := seed.NewImporter(st.pipeline, batch, sess.log).Import(ctx, records)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d messages into %d summaries (%d awaiting embedding)\n", res.Messages, res.Batches, res.Unindexed)
	return nil
}
