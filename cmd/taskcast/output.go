package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/broadcast"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/theme"
)

const bodyColumnWidth = 48

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// inboxTable renders one page of either inbox view.
func inboxTable(view model.InboxView, page *broadcast.InboxPage) string {
	if len(page.Items) == 0 {
		return theme.MutedStyle.Render("No tasks.") + "\n"
	}

	var (
		headers []string
		rows    [][]string
	)
	switch view {
	case model.ViewSent:
		headers = []string{"TASK", "TYPE", "DUE", "SENT", "READ", "ACK", "BODY"}
		for _, it := range page.Items {
			rows = append(rows, []string{
				theme.MutedStyle.Render(it.TaskID),
				it.Type,
				it.ExecutionDate.Format(time.DateOnly),
				fmt.Sprint(it.RecipientsCount),
				fmt.Sprint(it.ReadCount),
				fmt.Sprint(it.AcknowledgedCount),
				body(it),
			})
		}
	default:
		headers = []string{"TASK", "FROM", "TYPE", "DUE", "STATUS", "BODY"}
		for _, it := range page.Items {
			rows = append(rows, []string{
				theme.MutedStyle.Render(it.TaskID),
				it.SenderName,
				it.Type,
				it.ExecutionDate.Format(time.DateOnly),
				theme.StatusStyle(it.Status, it.IsDeleted).Render(string(it.Status)),
				body(it),
			})
		}
	}

	footer := theme.MutedStyle.Render(fmt.Sprintf("%d of %d", len(page.Items), page.Total))
	return theme.Table(headers, rows) + footer + "\n"
}

func body(it model.InboxItem) string {
	text := theme.Truncate(it.Body, bodyColumnWidth)
	if it.IsDeleted {
		return theme.MutedStyle.Render(text)
	}
	return text
}

// recipientTable renders one page of recipient candidates.
func recipientTable(page *broadcast.RecipientPage) string {
	if len(page.Users) == 0 {
		return theme.MutedStyle.Render("No recipients in scope.") + "\n"
	}
	rows := make([][]string, 0, len(page.Users))
	for _, u := range page.Users {
		rows = append(rows, []string{
			u.ID,
			u.FullName,
			theme.RoleStyle(u.Role).Render(strings.ToLower(string(u.Role))),
			deref(u.CityID),
			deref(u.AreaID),
		})
	}
	footer := theme.MutedStyle.Render(fmt.Sprintf("%d of %d", len(page.Users), page.Total))
	return theme.Table([]string{"ID", "NAME", "ROLE", "CITY", "AREA"}, rows) + footer + "\n"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
