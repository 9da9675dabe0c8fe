package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

func printHelp(w io.Writer) {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4ade80")).
		Bold(true).
		Render("P A R L E Y")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	commands := []struct{ cmd, desc string }{
		{"parley -user <id>", "Open the chat client"},
		{"parley version", "Show version"},
		{"parley help", "You are here"},
	}
	flags := []struct{ flag, env string }{
		{"-ws", "PARLEY_WS_URL"},
		{"-api", "PARLEY_API_URL"},
		{"-user", "PARLEY_USER_ID"},
		{"-max-reconnects", "PARLEY_MAX_RECONNECT_ATTEMPTS"},
		{"-typing-reset", "PARLEY_TYPING_RESET_DELAY"},
		{"-emit-stop-typing", "PARLEY_EMIT_STOP_TYPING"},
		{"-log-file", "PARLEY_LOG_FILE"},
		{"-log-level", "PARLEY_LOG_LEVEL"},
	}

	fmt.Fprintf(w, "\n  %s\n\n  Commands:\n", title)
	for _, c := range commands {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", c.cmd)), descStyle.Render(c.desc))
	}
	fmt.Fprintf(w, "\n  Flags (or environment):\n")
	for _, f := range flags {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", f.flag)), descStyle.Render(f.env))
	}
	fmt.Fprintln(w)
}
