package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(0, 1)
)

// Summary is the end-of-run outcome shown to the user.
type Summary struct {
	Total     int
	Processed int
	Failed    int
	Tracks    int
	Bytes     int64
	Stopped   bool
	Errors    []error
}

// RenderSummary draws s as a bordered block.
func RenderSummary(s Summary) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("bandcamp-expand"))
	b.WriteString("\n")

	if s.Total == 0 && len(s.Errors) == 0 {
		b.WriteString(dimStyle.Render("No archives found."))
		return boxStyle.Render(b.String())
	}

	fmt.Fprintf(&b, "%s %d of %d archive(s) moved\n",
		successStyle.Render("✓"), s.Processed, s.Total)
	fmt.Fprintf(&b, "  %s\n", dimStyle.Render(fmt.Sprintf("%d track(s), %s", s.Tracks, FormatBytes(s.Bytes))))

	if s.Failed > 0 {
		fmt.Fprintf(&b, "%s %d failed\n", errorStyle.Render("✗"), s.Failed)
	}
	for _, err := range s.Errors {
		fmt.Fprintf(&b, "  %s\n", errorStyle.Render(err.Error()))
	}
	if s.Stopped {
		if remaining := s.Total - s.Processed - s.Failed; remaining > 0 {
			fmt.Fprintf(&b, "%s %d archive(s) not attempted\n", warningStyle.Render("!"), remaining)
		} else {
			fmt.Fprintf(&b, "%s run stopped early\n", warningStyle.Render("!"))
		}
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
