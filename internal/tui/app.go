// Package tui is the terminal front end: a bubbletea program that renders
// session output and turns keystrokes into session commands.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/parley/internal/browser"
	"github.com/naveenspark/parley/pkg/domain"
)

// sidebarWidth is the width of the room list column.
const sidebarWidth = 26

// Session is the command surface the UI drives. *session.Session implements it.
type Session interface {
	Connect()
	SelectRoom(id int)
	JoinInput(text string)
	SendMessage(content string, replyTo *int)
	InputActivity()
	CreateRoom(ctx context.Context, name string)
}

type focus int

const (
	focusRooms focus = iota
	focusChat
)

// App is the root Bubbletea model.
type App struct {
	sess   Session
	info   domain.Session
	status domain.Status

	rooms      []domain.Room
	activeID   int
	hasActive  bool
	roomCursor int
	focus      focus

	chat     chatModel
	helpOpen bool
	width    int
	height   int
	frame    int // logo shimmer animation frame
}

// NewApp creates the UI for one session.
func NewApp(s Session, info domain.Session) App {
	chat := newChatModel(s)
	chat.copyText = clipboard.WriteAll
	chat.openURL = browser.Open
	return App{
		sess: s,
		info: info,
		chat: chat,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(shimmerTickCmd(), cursorBlinkCmd())
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(1) + help(1)
		a.chat, _ = a.chat.Update(tea.WindowSizeMsg{Width: a.chatWidth(), Height: msg.Height - 2})
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case statusMsg:
		a.status = msg.status

	case roomsMsg:
		a.rooms = msg.rooms
		if a.roomCursor >= len(a.rooms) {
			a.roomCursor = max(len(a.rooms)-1, 0)
		}
		return a, nil

	case roomPreviewMsg:
		for i := range a.rooms {
			if a.rooms[i].ID == msg.room.ID {
				a.rooms[i] = msg.room
			}
		}
		return a, nil

	case activeRoomMsg:
		a.activeID = msg.room.ID
		a.hasActive = true
		for i, r := range a.rooms {
			if r.ID == msg.room.ID {
				a.roomCursor = i
			}
		}
		a.focus = focusChat

	case tea.KeyMsg:
		return a.updateKey(msg)
	}

	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(msg)
	return a, cmd
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, tea.Quit
	}

	// Help overlay captures all keys when open
	if a.helpOpen {
		switch key {
		case "h", "?", "esc":
			a.helpOpen = false
		case "q":
			return a, tea.Quit
		}
		return a, nil
	}

	if a.chat.inputFocused {
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Update(msg)
		return a, cmd
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "h", "?":
		a.helpOpen = true
		return a, nil
	case "tab":
		if a.focus == focusRooms {
			a.focus = focusChat
		} else {
			a.focus = focusRooms
		}
		return a, nil
	}

	if a.focus == focusRooms {
		return a.updateRooms(key), nil
	}
	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(msg)
	return a, cmd
}

// updateRooms handles navigation in the room list.
func (a App) updateRooms(key string) App {
	switch key {
	case "j", "down":
		if a.roomCursor < len(a.rooms)-1 {
			a.roomCursor++
		}
	case "k", "up":
		if a.roomCursor > 0 {
			a.roomCursor--
		}
	case "enter", "l", "right":
		if a.roomCursor < len(a.rooms) {
			a.sess.SelectRoom(a.rooms[a.roomCursor].ID)
			a.focus = focusChat
		}
	case "i", "/":
		a.focus = focusChat
		a.chat.inputFocused = true
		if key == "/" && a.chat.input == "" {
			a.chat.input = "/"
		}
	}
	return a
}

func (a App) chatWidth() int {
	w := a.width - sidebarWidth - 1
	if w < 20 {
		w = 20
	}
	return w
}

func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return ""
	}
	bodyHeight := a.height - 2

	var body string
	if a.helpOpen {
		body = fitLines(helpView(), a.width, bodyHeight)
	} else {
		sidebar := fitLines(a.renderRooms(bodyHeight), sidebarWidth, bodyHeight)
		sep := lipgloss.NewStyle().Foreground(borderColor).Render(strings.TrimRight(strings.Repeat("│\n", bodyHeight), "\n"))
		chat := fitLines(a.chat.View(), a.chatWidth(), bodyHeight)
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, sep, chat)
	}

	return fmt.Sprintf("%s\n%s\n%s", a.renderHeader(), body, a.renderHelp())
}

func (a App) renderHeader() string {
	left := " " + renderShimmerLogo(a.frame)
	right := statusStyle(a.status).Render("● "+a.status.String()) +
		metaStyle.Render(fmt.Sprintf("  %s · session %s ", userLabel(a.info.UserID), shortID(a.info.ID.String())))
	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// renderRooms renders the room list with one preview line per room.
func (a App) renderRooms(height int) string {
	var b strings.Builder
	header := "Rooms"
	if a.focus == focusRooms && !a.chat.inputFocused {
		header = accentStyle.Render(header)
	} else {
		header = dimStyle.Render(header)
	}
	b.WriteString(" " + header + metaStyle.Render(fmt.Sprintf(" %d", len(a.rooms))) + "\n")

	if len(a.rooms) == 0 {
		b.WriteString(" " + metaStyle.Render("no rooms yet"))
		return b.String()
	}

	// Two lines per room; keep the cursor in the window.
	capacity := (height - 1) / 2
	if capacity < 1 {
		capacity = 1
	}
	offset := 0
	if a.roomCursor >= capacity {
		offset = a.roomCursor - capacity + 1
	}
	end := min(offset+capacity, len(a.rooms))

	nameWidth := sidebarWidth - 10
	for i := offset; i < end; i++ {
		r := a.rooms[i]
		marker := "  "
		if a.hasActive && r.ID == a.activeID {
			marker = accentStyle.Render("● ")
		}
		nameStyle := normalStyle
		if i == a.roomCursor && a.focus == focusRooms {
			nameStyle = selectedStyle
		}
		name := nameStyle.Render(truncStr(r.DisplayName(), nameWidth))
		when := metaStyle.Render(formatChatTime(r.LastActivityAt))
		line := " " + marker + name
		if gap := sidebarWidth - lipgloss.Width(line) - lipgloss.Width(when) - 1; gap > 0 {
			line += strings.Repeat(" ", gap) + when
		}
		preview := r.LastMessagePreview
		if preview == "" {
			preview = r.Type
		}
		previewLine := "   " + dimStyle.Render(truncStr(oneLine(preview), sidebarWidth-4))
		if i == a.roomCursor && a.focus == focusRooms {
			line = selectedRowBg.Render(line)
		}
		b.WriteString(line + "\n" + previewLine + "\n")
	}
	return b.String()
}

func (a App) renderHelp() string {
	switch {
	case a.helpOpen:
		return " " + helpEntry("esc", "close") + "  " + helpEntry("q", "quit")
	case a.chat.inputFocused:
		return " " + helpEntry("enter", "send") + "  " + helpEntry("/", "commands") + "  " + helpEntry("esc", "nav")
	case a.focus == focusRooms:
		return " " + helpEntry("j/k", "rooms") + "  " + helpEntry("enter", "open") + "  " + helpEntry("tab", "messages") + "  " + helpEntry("/", "command") + "  " + helpEntry("h", "help") + "  " + helpEntry("q", "quit")
	default:
		return " " + helpEntry("j/k", "select") + "  " + helpEntry("enter", "type") + "  " + helpEntry("r", "reply") + "  " + helpEntry("y", "copy") + "  " + helpEntry("o", "open") + "  " + helpEntry("tab", "rooms") + "  " + helpEntry("q", "quit")
	}
}
