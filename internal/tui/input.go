package tui

import (
	"strings"
	"unicode/utf8"
)

// maxInputLen is the maximum number of runes allowed in the composer.
const maxInputLen = 2000

// editRune processes a keystroke for inline text editing.
// Handles backspace (rune-aware) and single printable characters.
// Returns the text unchanged for non-printable keys (enter, esc, etc.).
// Input is clamped to maxInputLen runes.
func editRune(text string, key string) string {
	switch key {
	case "backspace":
		if len(text) > 0 {
			runes := []rune(text)
			return string(runes[:len(runes)-1])
		}
		return text
	case "space":
		key = " "
	}
	if utf8.RuneCountInString(key) == 1 {
		if utf8.RuneCountInString(text) >= maxInputLen {
			return text
		}
		return text + key
	}
	return text
}

// slashCommands are the composer commands.
var slashCommands = []struct {
	name  string
	usage string
	desc  string
}{
	{"join", "/join <id>", "open a room by id"},
	{"new", "/new <name>", "create a group room"},
	{"reconnect", "/reconnect", "connect again"},
}

// parseCommand splits "/name arg" input. ok is false for plain messages.
func parseCommand(input string) (name, arg string, ok bool) {
	if !strings.HasPrefix(input, "/") {
		return "", "", false
	}
	name, arg, _ = strings.Cut(strings.TrimPrefix(input, "/"), " ")
	return strings.ToLower(name), strings.TrimSpace(arg), true
}

// matchingCommands returns the commands whose name starts with the typed prefix.
func matchingCommands(input string) []int {
	prefix, _, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	var out []int
	for i, sc := range slashCommands {
		if strings.HasPrefix(sc.name, strings.ToLower(prefix)) {
			out = append(out, i)
		}
	}
	return out
}

// renderSlashHints renders command hints above the composer when typing "/".
func renderSlashHints(input string) string {
	var b strings.Builder
	for _, i := range matchingCommands(input) {
		sc := slashCommands[i]
		b.WriteString("   " + accentStyle.Render(sc.usage) + "  " + dimStyle.Render(sc.desc) + "\n")
	}
	return b.String()
}

// renderChatInput renders the inline composer.
// It shows the sender label, cursor blink, and placeholder when empty.
func renderChatInput(label, input, placeholder string, focused bool, animFrame int) string {
	const timeIndent = "        " // lines up with the timestamp column

	sep := chatSepStyle.Render(" · ")
	namePart := chatInputNameStyle.Render(label)
	if !focused {
		if input == "" {
			return timeIndent + namePart + sep + inputPlaceholderStyle.Render(placeholder)
		}
		return timeIndent + namePart + sep + dimStyle.Render(input)
	}
	cursor := " "
	if (animFrame/4)%2 == 0 {
		cursor = accentStyle.Render("█")
	}
	if input == "" {
		return timeIndent + namePart + sep + cursor
	}
	return timeIndent + namePart + sep + chatComposingStyle.Render(input) + cursor
}
