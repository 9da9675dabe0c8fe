package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/parley/pkg/domain"
)

// Shimmer animation for the header logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "PARLEY" as a flowing wave of green light.
// Deep forest green (#1a3a24) -> bright emerald (#4ade80).
func renderShimmerLogo(frame int) string {
	const text = "PARLEY"
	n := len(text)

	var out string
	t := float64(frame)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)

		phase := t*0.1 - x*3.0
		phase += math.Sin(t*0.023) * 2.0

		b := math.Sin(phase)*0.5 + 0.5
		b = math.Pow(b, 1.3)

		// Slow breathing tide
		tide := math.Sin(t*0.035) * 0.12
		b = b*0.75 + tide + 0.18
		if b > 1.0 {
			b = 1.0
		} else if b < 0.05 {
			b = 0.05
		}

		r := clampByte(26 + b*(74-26))
		g := clampByte(58 + b*(222-58))
		bl := clampByte(36 + b*(128-36))
		color := fmt.Sprintf("#%02X%02X%02X", r, g, bl)

		out += lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Render(string(text[i]))
		if i < n-1 {
			out += " "
		}
	}
	return out
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	// Base styles
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	// Help bar
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34d474"))

	rejectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#b45555"))

	goldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4a844"))

	borderColor = lipgloss.Color("#1e1e2a")

	selectedRowBg = lipgloss.NewStyle().Background(lipgloss.Color("#1e1e2a"))

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#343c4a"))

	// Chat styles
	chatSelfNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#e4e4ec"))

	chatInputNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#4ade80"))

	chatSelfTextStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#c0c4d0"))

	chatComposingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#e4e4ec"))

	chatTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	chatSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#404858"))

	chatSysStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#404858"))

	chatReplyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#606878")).
			Italic(true)

	// Sender colors cycle by user id.
	senderColors = []lipgloss.Color{
		lipgloss.Color("#43e88c"),
		lipgloss.Color("#f0944a"),
		lipgloss.Color("#b8ccdf"),
		lipgloss.Color("#c084e0"),
		lipgloss.Color("#34d474"),
		lipgloss.Color("#3ecce4"),
	}
)

// senderStyle returns a bold style colored for the given user id.
func senderStyle(userID int) lipgloss.Style {
	if userID <= 0 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#8890a0")).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(senderColors[userID%len(senderColors)]).Bold(true)
}

// statusStyle colors the connection indicator.
func statusStyle(s domain.Status) lipgloss.Style {
	switch s {
	case domain.StatusConnected:
		return accentStyle
	case domain.StatusConnecting:
		return goldStyle
	default:
		return rejectStyle
	}
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpView renders the key and command reference overlay.
func helpView() string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4ade80")).
		Bold(true).
		Render("P A R L E Y")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)

	keys := []struct{ key, desc string }{
		{"tab", "switch between rooms and messages"},
		{"j/k", "move the selection"},
		{"enter", "open the room / start typing"},
		{"r", "reply to the selected message"},
		{"y", "copy the selected message"},
		{"o", "open the first link in the selected message"},
		{"esc", "leave the composer"},
		{"q", "quit"},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n\n", title)
	fmt.Fprintf(&b, "  %s\n", sectionStyle.Render("Keys"))
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-10s", k.key)), descStyle.Render(k.desc))
	}
	fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render("Commands"))
	for _, sc := range slashCommands {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-16s", sc.usage)), descStyle.Render(sc.desc))
	}
	return b.String()
}
