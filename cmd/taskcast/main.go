// Package main implements the taskcast CLI: hierarchical task broadcasting
// over a local SQLite database, served over HTTP or driven from the shell.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/theme"
)

var version = "dev"

var (
	configPath string
	actingAs   string
	jsonOutput bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errCancelled) {
			fmt.Fprintln(os.Stderr, theme.MutedStyle.Render("Cancelled."))
			return
		}
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:           "taskcast",
	Short:         "Broadcast tasks down the organization hierarchy",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "config file")
	rootCmd.PersistentFlags().StringVar(&actingAs, "as", os.Getenv("TASKCAST_USER"), "user id to act as (env TASKCAST_USER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of tables")
}

// renderError formats a failure for the terminal, naming the rule that
// rejected the request when there is one.
func renderError(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Code != apperr.CodeInternal {
		return theme.ErrorStyle.Render(fmt.Sprintf("%s (%s)", ae.Error(), ae.Reason))
	}
	return theme.ErrorStyle.Render("error: " + err.Error())
}

// exitCode distinguishes rejected requests from failures.
func exitCode(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.CodeInvalidInput, apperr.CodeForbidden, apperr.CodeBusinessRule, apperr.CodeNotFound:
		return 2
	}
	return 1
}
