// Package theme holds the lipgloss styles used by the taskcast CLI.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle renders table headers and section titles.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// MutedStyle is for secondary text such as ids, totals and placeholders.
var MutedStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// SuccessStyle reports a completed mutation.
var SuccessStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGreen)

// ErrorStyle reports a rejected request.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// PanelStyle frames a single task or result summary.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// StatusStyle returns a color-coded style for an assignment status.
// Deleted assignments render muted whatever their status.
func StatusStyle(status model.AssignmentStatus, deleted bool) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	if deleted {
		return base.Foreground(ColorGray).Strikethrough(true)
	}

	switch status {
	case model.StatusUnread:
		return base.Foreground(ColorBlue)
	case model.StatusRead:
		return base.Foreground(ColorYellow)
	case model.StatusAcknowledged:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// RoleStyle returns a color-coded style for a hierarchy role.
func RoleStyle(role model.Role) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch role {
	case model.RoleSuperAdmin:
		return base.Foreground(ColorRed)
	case model.RoleAreaManager:
		return base.Foreground(ColorMagenta)
	case model.RoleCityCoordinator:
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGreen)
	}
}

// Table renders rows under a header with columns padded to their widest
// cell. Cells may already carry styling; widths are measured after it.
func Table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h) + 2
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var b strings.Builder
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = HeaderStyle.Width(widths[i]).Render(h)
	}
	b.WriteString(strings.Join(cells, " "))
	b.WriteByte('\n')

	for _, row := range rows {
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = lipgloss.NewStyle().Width(widths[i]).Render(cell)
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, " "), " "))
		b.WriteByte('\n')
	}
	return b.String()
}

// Truncate shortens s to n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
