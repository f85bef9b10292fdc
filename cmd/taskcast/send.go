package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/broadcast"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/theme"
)

var (
	sendBody        string
	sendType        string
	sendDate        string
	sendTo          []string
	sendInteractive bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Broadcast a task to your subordinates",
	Long: `Broadcast a task to every active subordinate in your scope, or to
the users named with --to.

  taskcast send --as u-haifa-coord --type outreach --date 2026-03-05 \
      --body "Distribute flyers at the market"

Use --interactive to compose the task in a form instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			caller, err := a.caller(cmd.Context())
			if err != nil {
				return err
			}

			in := broadcast.CreateTaskInput{
				Body:        sendBody,
				Type:        sendType,
				Mode:        model.ModeAll,
				SelectedIDs: sendTo,
			}
			if len(sendTo) > 0 {
				in.Mode = model.ModeSelected
			}
			if sendInteractive {
				if err := composeTask(cmd.Context(), a, caller, &in); err != nil {
					return err
				}
			} else {
				if in.ExecutionDate, err = parseExecutionDate(sendDate); err != nil {
					return err
				}
			}

			res, err := a.svc.CreateTask(cmd.Context(), caller, in)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(res)
			}
			fmt.Println(theme.SuccessStyle.Render("Task sent"))
			fmt.Println(theme.PanelStyle.Render(fmt.Sprintf(
				"id:         %s\nrecipients: %d\ndelivered:  %d",
				res.TaskID, res.RecipientsCount, res.DeliveredCount)))
			return nil
		})
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendBody, "body", "", "task text")
	sendCmd.Flags().StringVar(&sendType, "type", "general", "task type label")
	sendCmd.Flags().StringVar(&sendDate, "date", "", "execution date (YYYY-MM-DD, default today)")
	sendCmd.Flags().StringSliceVar(&sendTo, "to", nil, "recipient user ids (default: everyone in scope)")
	sendCmd.Flags().BoolVarP(&sendInteractive, "interactive", "i", false, "compose the task in a form")
	rootCmd.AddCommand(sendCmd)
}

// parseExecutionDate reads a calendar date. Empty means today.
func parseExecutionDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// composeTask fills in the draft with an interactive form. The recipient picker is
// only shown for selected mode and lists the caller's scope.
func composeTask(ctx context.Context, a *app, caller model.Caller, in *broadcast.CreateTaskInput) error {
	rules := a.cfg.Broadcast
	date := time.Now().Format(time.DateOnly)
	mode := string(in.Mode)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Task").
				Description(fmt.Sprintf("%d to %d characters", rules.BodyMin, rules.BodyMax)).
				CharLimit(rules.BodyMax).
				Value(&in.Body).
				Validate(func(s string) error {
					n := len([]rune(strings.TrimSpace(s)))
					if n < rules.BodyMin || n > rules.BodyMax {
						return fmt.Errorf("must be between %d and %d characters", rules.BodyMin, rules.BodyMax)
					}
					return nil
				}),
			huh.NewInput().
				Title("Type").
				Placeholder("general").
				Value(&in.Type),
			huh.NewInput().
				Title("Execution date").
				Description("YYYY-MM-DD").
				Value(&date).
				Validate(func(s string) error {
					_, err := parseExecutionDate(s)
					return err
				}),
			huh.NewSelect[string]().
				Title("Recipients").
				Options(
					huh.NewOption("Everyone in my scope", string(model.ModeAll)),
					huh.NewOption("Pick recipients", string(model.ModeSelected)),
				).
				Value(&mode),
		),
	)
	if err := form.Run(); err != nil {
		return formError(err)
	}

	var err error
	if in.ExecutionDate, err = parseExecutionDate(date); err != nil {
		return err
	}
	in.Mode = model.RecipientMode(mode)
	if in.Mode != model.ModeSelected {
		in.SelectedIDs = nil
		return nil
	}

	page, err := a.svc.ListAvailableRecipients(ctx, caller, broadcast.RecipientQuery{Limit: 100})
	if err != nil {
		return err
	}
	options := make([]huh.Option[string], 0, len(page.Users))
	for _, u := range page.Users {
		label := fmt.Sprintf("%s (%s)", u.FullName, strings.ToLower(string(u.Role)))
		options = append(options, huh.NewOption(label, u.ID))
	}

	picker := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Send to").
				Options(options...).
				Value(&in.SelectedIDs).
				Validate(func(ids []string) error {
					if len(ids) == 0 {
						return errors.New("pick at least one recipient")
					}
					return nil
				}),
		),
	)
	if err := picker.Run(); err != nil {
		return formError(err)
	}
	return nil
}

// errCancelled ends a command the user backed out of.
var errCancelled = errors.New("cancelled")

func formError(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return errCancelled
	}
	return fmt.Errorf("form: %w", err)
}
