package tui

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// urlRe matches http/https URLs in message text.
var urlRe = regexp.MustCompile(`https?://[^\s<>\[\]()]+`)

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// oneLine collapses newlines and runs of whitespace for previews.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// firstURL returns the first http(s) URL in s.
func firstURL(s string) (string, bool) {
	u := urlRe.FindString(s)
	return u, u != ""
}

// userLabel names a user by id.
func userLabel(id int) string {
	return "user " + strconv.Itoa(id)
}

// typingText describes who is typing, or "" for nobody.
func typingText(userIDs []int) string {
	switch len(userIDs) {
	case 0:
		return ""
	case 1:
		return userLabel(userIDs[0]) + " is typing…"
	case 2:
		return userLabel(userIDs[0]) + " and " + userLabel(userIDs[1]) + " are typing…"
	default:
		return fmt.Sprintf("%d people are typing…", len(userIDs))
	}
}

// formatChatTime formats a message timestamp as a short wall-clock time (H:MM).
// For messages older than today it shows "Nd ago" to save column space.
func formatChatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	now := time.Now()
	y1, mo1, d1 := t.Date()
	y2, mo2, d2 := now.Date()
	if y1 == y2 && mo1 == mo2 && d1 == d2 {
		return fmt.Sprintf("%d:%02d", t.Hour(), t.Minute())
	}
	days := int(now.Sub(t).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return fmt.Sprintf("%dd ago", days)
}

// hyperlinkOSC8 wraps a URL in OSC 8 escape sequences for clickable terminal hyperlinks.
// Format: ESC ] 8 ; ; URL BEL display-text ESC ] 8 ; ; BEL
func hyperlinkOSC8(url string) string {
	return "\033]8;;" + url + "\a" + url + "\033]8;;\a"
}

// hardWrap scans each line and hard-breaks any that exceed width at the rune boundary.
// This handles long tokens (like URLs) that lipgloss word-wrap can't break.
func hardWrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	var result []string
	for _, line := range lines {
		if lipgloss.Width(line) <= width {
			result = append(result, line)
			continue
		}
		runes := []rune(line)
		for len(runes) > 0 {
			end := len(runes)
			for end > 0 && lipgloss.Width(string(runes[:end])) > width {
				end--
			}
			if end == 0 {
				end = 1 // at least one rune per line to avoid infinite loop
			}
			result = append(result, string(runes[:end]))
			runes = runes[end:]
		}
	}
	return strings.Join(result, "\n")
}

// padLines writes blank lines to fill dead space above sparse message lists.
func padLines(n int, b *strings.Builder) {
	for i := 0; i < n; i++ {
		b.WriteByte('\n')
	}
}

// fitLines pads or clips s to exactly n lines, each at most width cells wide.
func fitLines(s string, width, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	clip := lipgloss.NewStyle().MaxWidth(width)
	for i, l := range lines {
		l = clip.Render(l)
		if pad := width - lipgloss.Width(l); pad > 0 {
			l += strings.Repeat(" ", pad)
		}
		lines[i] = l
	}
	return strings.Join(lines, "\n")
}
