package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/BlobEmoji/Artemis/prompt"
)

func newPromptCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Show the prompt schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snap := prompt.NewSchedule(cfg.Event, nil).Snapshot()
			fmt.Fprintln(cmd.OutOrStdout(), renderSchedule(snap, cfg.Event.Prompts))
			return nil
		},
	}
}

func renderSchedule(snap prompt.Snapshot, prompts []string) string {
	rows := make([][]string, 0, len(prompts))
	for id, name := range prompts {
		state := "upcoming"
		switch {
		case snap.Current != nil && snap.Current.ID == id:
			state = "current"
		case id < len(snap.Past):
			state = "revealed"
		}
		rows = append(rows, []string{strconv.Itoa(id + 1), name, state})
	}
	return fmt.Sprintf("Phase: %s\nNext reveal: %s\n%s",
		snap.Phase,
		snap.Deadline.Format(time.RFC1123),
		renderTable([]string{"#", "Prompt", "State"}, rows),
	)
}
