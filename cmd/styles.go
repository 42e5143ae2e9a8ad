package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"invoiceagent/internal/batch"
	"invoiceagent/pkg/models"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	postedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	rejectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	erroredStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)

// statusLabel renders a fixed-width, colored status tag such as "[POSTED]  ".
func statusLabel(status string) string {
	label := "[" + status + "]"
	for len(label) < 10 {
		label += " "
	}
	switch status {
	case models.StatusPosted:
		return postedStyle.Render(label)
	case models.StatusRejected:
		return rejectedStyle.Render(label)
	case batch.StatusErrored:
		return erroredStyle.Render(label)
	default:
		return mutedStyle.Render(label)
	}
}
