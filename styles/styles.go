package styles

import "github.com/charmbracelet/lipgloss"

// Width caps tables and the jianpu input. Views truncate to the terminal
// width when it is narrower.
const Width = 72

// https://github.com/inngest/inngest/blob/main/pkg/cli/styles.go
var (
	Color   = lipgloss.AdaptiveColor{Light: "#111222", Dark: "#FAFAFA"}
	Primary = lipgloss.Color("#4636f5")
	Red     = lipgloss.Color("#ff0000")
	White   = lipgloss.Color("#ffffff")
	Black   = lipgloss.Color("#000000")
	Orange  = lipgloss.Color("#D3A347")

	TextStyle = lipgloss.NewStyle().Foreground(Color)
	BoldStyle = TextStyle.Copy().Bold(true)

	BaseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	// Status Bar.
	StatusNugget = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Padding(0, 1)
	ModeStyle = StatusNugget.Copy().
			Background(Primary)
	TempoStyle = StatusNugget.Copy().
			Background(lipgloss.Color("#e783f2")).
			Align(lipgloss.Right)

	MessageText = lipgloss.NewStyle().Align(lipgloss.Left)

	HelpMenu = lipgloss.NewStyle().Align(lipgloss.Center).PaddingTop(2)

	// Staff drawing.
	StaffStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	NoteStyle  = lipgloss.NewStyle().Foreground(Color).Bold(true)
	DragStyle  = lipgloss.NewStyle().Foreground(Orange).Bold(true)
	PadStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	TitleStyle = BoldStyle.Copy().Foreground(Primary)

	// Page
	DocStyle = lipgloss.NewStyle().Padding(1, 2, 1, 2)
)

// RenderError returns a formatted error string.
func RenderError(msg string) string {
	// Error applies styles to an error message
	err := lipgloss.NewStyle().Background(Red).Foreground(White).Bold(true).Padding(0, 1).Render("Error")
	content := lipgloss.NewStyle().Bold(true).Padding(0, 1).Render(msg)
	return err + content
}

// RenderNotice formats a limit notice, ex: a clamped tempo.
func RenderNotice(msg string) string {
	label := lipgloss.NewStyle().Background(Orange).Foreground(Black).Bold(true).Padding(0, 1).Render("Notice")
	content := lipgloss.NewStyle().Padding(0, 1).Render(msg)
	return label + content
}
