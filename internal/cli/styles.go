package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// styles used by the human-readable output of routes and check. NO_COLOR
// (https://no-color.org/) turns every style into a no-op.
var styles = initStyles()

type outputStyles struct {
	Header  lipgloss.Style
	Method  lipgloss.Style
	Dim     lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

func initStyles() outputStyles {
	if os.Getenv("NO_COLOR") != "" {
		plain := lipgloss.NewStyle()
		return outputStyles{
			Header:  plain,
			Method:  plain,
			Dim:     plain,
			Success: plain,
			Warning: plain,
			Error:   plain,
		}
	}
	return outputStyles{
		Header:  lipgloss.NewStyle().Bold(true),
		Method:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")), // cyan
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")), // gray
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("2")), // green
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")), // yellow
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")), // red
	}
}
