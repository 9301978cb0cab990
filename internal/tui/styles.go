package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha
const (
	colorBase     = lipgloss.Color("#1E1E2E")
	colorText     = lipgloss.Color("#CDD6F4")
	colorSubtext  = lipgloss.Color("#A6ADC8")
	colorOverlay  = lipgloss.Color("#6C7086")
	colorSurface  = lipgloss.Color("#585B70")
	colorLavender = lipgloss.Color("#B4BEFE")
	colorBlue     = lipgloss.Color("#89B4FA")
	colorSky      = lipgloss.Color("#89DCEB")
	colorGreen    = lipgloss.Color("#A6E3A1")
	colorYellow   = lipgloss.Color("#F9E2AF")
	colorPeach    = lipgloss.Color("#FAB387")
	colorRed      = lipgloss.Color("#F38BA8")
	colorMauve    = lipgloss.Color("#CBA6F7")
	colorPink     = lipgloss.Color("#F5C2E7")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// badge renders text on a coloured background.
func badge(bg lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorBase).Background(bg)
}

var (
	titleStyle    = fg(colorLavender).Bold(true)
	headerStyle   = badge(colorMauve)
	selectedStyle = badge(colorBlue)
	dimStyle      = fg(colorOverlay)
	helpStyle     = fg(colorSubtext)
	textStyle     = fg(colorText)
	okStyle       = fg(colorGreen)
	badStyle      = fg(colorRed)
	warnStyle     = fg(colorPeach)
)

var panelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorSurface).
	Padding(1, 2)
