package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/broadcast"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/theme"
)

var (
	inboxSent    bool
	inboxStatus  string
	inboxDeleted string
	inboxSearch  string
	inboxSort    string
	inboxLimit   int
	inboxOffset  int
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List tasks you received or sent",
	Long: `List tasks you received, or with --sent the tasks you broadcast.

Sort with --sort FIELD (ascending) or --sort -FIELD (descending) where
FIELD is created_at, execution_date, type or status. The default is
newest first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), false, func(a *app) error {
			caller, err := a.caller(cmd.Context())
			if err != nil {
				return err
			}

			q := broadcast.InboxQuery{
				View:   model.ViewReceived,
				Query:  strings.TrimSpace(inboxSearch),
				Limit:  inboxLimit,
				Offset: inboxOffset,
			}
			if inboxSent {
				q.View = model.ViewSent
			}
			if inboxStatus != "" {
				st := model.AssignmentStatus(inboxStatus)
				q.Status = &st
			}
			switch inboxDeleted {
			case "":
			case "only":
				yes := true
				q.Deleted = &yes
			case "hide":
				no := false
				q.Deleted = &no
			default:
				return fmt.Errorf("--deleted must be only or hide")
			}
			q.SortBy, q.SortDesc = strings.TrimPrefix(inboxSort, "-"), strings.HasPrefix(inboxSort, "-")

			page, err := a.svc.ListInbox(cmd.Context(), caller, q)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(page)
			}
			fmt.Print(inboxTable(q.View, page))
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status TASK_ID read|acknowledged|archived",
	Short: "Move your copy of a task forward",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), false, func(a *app) error {
			caller, err := a.caller(cmd.Context())
			if err != nil {
				return err
			}
			assignment, err := a.svc.UpdateAssignmentStatus(cmd.Context(), caller,
				args[0], model.AssignmentStatus(strings.ToLower(args[1])))
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(assignment)
			}
			fmt.Printf("%s %s\n",
				theme.SuccessStyle.Render("Task "+assignment.TaskID),
				theme.StatusStyle(assignment.Status, false).Render(string(assignment.Status)))
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete TASK_ID",
	Short: "Retract a task you sent",
	Long: `Retract a task you sent. Deletion is only possible shortly after
sending and only while no recipient has acknowledged it. Recipients keep
the task in their inbox with its text replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), false, func(a *app) error {
			caller, err := a.caller(cmd.Context())
			if err != nil {
				return err
			}
			n, err := a.svc.DeleteTask(cmd.Context(), caller, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(map[string]any{"task_id": args[0], "recipients_affected": n})
			}
			fmt.Println(theme.SuccessStyle.Render(
				fmt.Sprintf("Deleted task %s for %d recipients", args[0], n)))
			return nil
		})
	},
}

func init() {
	inboxCmd.Flags().BoolVar(&inboxSent, "sent", false, "list tasks you sent")
	inboxCmd.Flags().StringVar(&inboxStatus, "status", "", "filter by status (received view)")
	inboxCmd.Flags().StringVar(&inboxDeleted, "deleted", "", "only or hide tasks deleted by their sender")
	inboxCmd.Flags().StringVarP(&inboxSearch, "search", "s", "", "search body and type")
	inboxCmd.Flags().StringVar(&inboxSort, "sort", "", "sort field, prefix with - for descending")
	inboxCmd.Flags().IntVar(&inboxLimit, "limit", 20, "page size (max 100)")
	inboxCmd.Flags().IntVar(&inboxOffset, "offset", 0, "rows to skip")

	rootCmd.AddCommand(inboxCmd, statusCmd, deleteCmd)
}
