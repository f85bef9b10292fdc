package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/broadcast"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

var (
	recipientsSearch string
	recipientsRoles  []string
	recipientsCities []string
	recipientsLimit  int
	recipientsOffset int
)

var recipientsCmd = &cobra.Command{
	Use:   "recipients",
	Short: "List the users you may send tasks to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), false, func(a *app) error {
			caller, err := a.caller(cmd.Context())
			if err != nil {
				return err
			}

			q := broadcast.RecipientQuery{
				Query:   strings.TrimSpace(recipientsSearch),
				CityIDs: recipientsCities,
				Limit:   recipientsLimit,
				Offset:  recipientsOffset,
			}
			for _, r := range recipientsRoles {
				q.Roles = append(q.Roles, model.Role(strings.ToUpper(r)))
			}

			page, err := a.svc.ListAvailableRecipients(cmd.Context(), caller, q)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(page)
			}
			fmt.Print(recipientTable(page))
			return nil
		})
	},
}

func init() {
	recipientsCmd.Flags().StringVarP(&recipientsSearch, "search", "s", "", "search name and email")
	recipientsCmd.Flags().StringSliceVar(&recipientsRoles, "role", nil, "only these roles")
	recipientsCmd.Flags().StringSliceVar(&recipientsCities, "city", nil, "only these city ids")
	recipientsCmd.Flags().IntVar(&recipientsLimit, "limit", 20, "page size (max 100)")
	recipientsCmd.Flags().IntVar(&recipientsOffset, "offset", 0, "rows to skip")
	rootCmd.AddCommand(recipientsCmd)
}
