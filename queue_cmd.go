package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/BlobEmoji/Artemis/db"
	"github.com/BlobEmoji/Artemis/model"
	"github.com/BlobEmoji/Artemis/prompt"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect submissions",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var status, user string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submissions by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := model.Status(status)
			if !st.Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := db.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			var subs []*model.Submission
			if user != "" {
				subs, err = store.ListByStatus(cmd.Context(), user, st)
			} else {
				subs, err = store.ListAllByStatus(cmd.Context(), st)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(subs) == 0 {
				fmt.Fprintf(out, "No %s submissions\n", st)
				return nil
			}
			schedule := prompt.NewSchedule(cfg.Event, nil)
			fmt.Fprintln(out, renderSubmissions(subs, schedule))
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", string(model.StatusPending), "Status to list (pending, approved, denied, dismissed)")
	cmd.Flags().StringVarP(&user, "user", "u", "", "Only list submissions by this user id")
	return cmd
}

func renderSubmissions(subs []*model.Submission, schedule *prompt.Schedule) string {
	rows := make([][]string, 0, len(subs))
	for _, sub := range subs {
		rows = append(rows, []string{
			strconv.FormatInt(sub.ID, 10),
			sub.UserID,
			schedule.Text(sub.PromptID),
			string(sub.Status),
			sub.CreatedAt.Format("2006-01-02 15:04"),
			sub.ImageURL,
		})
	}
	return renderTable(
		[]string{"ID", "User", "Prompt", "Status", "Created", "URL"},
		rows,
	)
}
