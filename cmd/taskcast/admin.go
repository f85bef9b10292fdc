package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/credential"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/notify"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/org"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/theme"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Archive assignments past their retention window once",
	Long: `Run the archival sweep once and exit. Use this from cron when the
API server is not running.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), false, func(a *app) error {
			res, err := a.svc.RunArchivalSweep(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(res)
			}
			fmt.Println(theme.SuccessStyle.Render(fmt.Sprintf(
				"Archived %d assignments (%d deleted by sender)", res.Normal+res.Deleted, res.Deleted)))
			return nil
		})
	},
}

var orgCmd = &cobra.Command{
	Use:   "org",
	Short: "Manage the organization directory",
}

var orgImportCmd = &cobra.Command{
	Use:   "import SEED.yaml",
	Short: "Load areas, cities and users from a YAML seed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, err := org.LoadSeed(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), false, func(a *app) error {
			if err := org.Import(cmd.Context(), a.store.DB(), seed); err != nil {
				return err
			}
			fmt.Println(theme.SuccessStyle.Render(fmt.Sprintf(
				"Imported %d areas, %d cities, %d users",
				len(seed.Areas), len(seed.Cities), len(seed.Users))))
			return nil
		})
	},
}

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Store push transport secrets in the system keyring",
	Long: fmt.Sprintf(`Store push transport secrets in the system keyring.

Known keys:
  %s          bearer token sent to push.webhook_url
  %s<username>   IMAP password for push.imap.username`,
		notify.WebhookTokenKey, notify.IMAPPasswordKey("")),
}

var credentialSetCmd = &cobra.Command{
	Use:   "set KEY",
	Short: "Store a secret (prompted, or read from stdin when piped)",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		secret, err := readSecret(args[0])
		if err != nil {
			return err
		}
		vault, err := credential.Open()
		if err != nil {
			return err
		}
		if err := vault.Set(args[0], secret); err != nil {
			return err
		}
		fmt.Println(theme.SuccessStyle.Render("Stored " + args[0]))
		return nil
	},
}

var credentialDeleteCmd = &cobra.Command{
	Use:   "delete KEY",
	Short: "Remove a stored secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		vault, err := credential.Open()
		if err != nil {
			return err
		}
		if err := vault.Delete(args[0]); err != nil {
			return err
		}
		fmt.Println(theme.SuccessStyle.Render("Removed " + args[0]))
		return nil
	},
}

var credentialListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored secret keys",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		vault, err := credential.Open()
		if err != nil {
			return err
		}
		keys, err := vault.Keys()
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil
	},
}

// readSecret prompts on a terminal and reads one line otherwise.
func readSecret(key string) (string, error) {
	info, err := os.Stdin.Stat()
	if err == nil && info.Mode()&os.ModeCharDevice == 0 {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading secret from stdin: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	var secret string
	err = huh.NewInput().
		Title(key).
		EchoMode(huh.EchoModePassword).
		Value(&secret).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("secret is required")
			}
			return nil
		}).
		Run()
	if err != nil {
		return "", formError(err)
	}
	return strings.TrimSpace(secret), nil
}

var notificationsUnread bool

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List your in-app notifications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), false, func(a *app) error {
			caller, err := a.caller(cmd.Context())
			if err != nil {
				return err
			}
			ns, err := a.svc.ListNotifications(cmd.Context(), caller, notificationsUnread)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(ns)
			}
			rows := make([][]string, 0, len(ns))
			for _, n := range ns {
				state := "unread"
				if n.Read {
					state = "read"
				}
				rows = append(rows, []string{
					theme.MutedStyle.Render(n.ID),
					n.CreatedAt.Local().Format(time.DateTime),
					state,
					theme.Truncate(n.Message, bodyColumnWidth),
				})
			}
			fmt.Print(theme.Table([]string{"ID", "AT", "STATE", "MESSAGE"}, rows))
			return nil
		})
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read ID",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), false, func(a *app) error {
			caller, err := a.caller(cmd.Context())
			if err != nil {
				return err
			}
			return a.svc.MarkNotificationRead(cmd.Context(), caller, args[0])
		})
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit ENTITY_TYPE ENTITY_ID",
	Short: "Show the audit trail of a task or assignment (superadmin)",
	Long: `Show the audit trail of one entity. ENTITY_TYPE is task,
task_assignment or archival_sweep; assignment ids are TASK_ID/USER_ID.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), false, func(a *app) error {
			caller, err := a.caller(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := a.svc.ListAuditEntries(cmd.Context(), caller, args[0], args[1])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.CreatedAt.Local().Format(time.DateTime),
					string(e.Action),
					e.ActorID,
				})
			}
			fmt.Print(theme.Table([]string{"AT", "ACTION", "ACTOR"}, rows))
			return nil
		})
	},
}

func init() {
	notificationsCmd.Flags().BoolVar(&notificationsUnread, "unread", false, "only unread notifications")

	orgCmd.AddCommand(orgImportCmd)
	credentialCmd.AddCommand(credentialSetCmd, credentialDeleteCmd, credentialListCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)

	rootCmd.AddCommand(sweepCmd, orgCmd, credentialCmd, notificationsCmd, auditCmd)
}
