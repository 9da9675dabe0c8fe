package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/parley/internal/render"
	"github.com/naveenspark/parley/pkg/domain"
)

// maxLogEntries bounds the rendered log of the active room.
const maxLogEntries = 500

// cursorBlinkMsg toggles the input cursor on/off.
type cursorBlinkMsg struct{}

func cursorBlinkCmd() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(time.Time) tea.Msg {
		return cursorBlinkMsg{}
	})
}

// chatEntry is one line of the log: a message or a local system line.
type chatEntry struct {
	msg    render.MessageView
	system string
	isErr  bool
}

func (e chatEntry) text() string {
	if e.system != "" {
		return e.system
	}
	return e.msg.Content
}

// chatModel is the message log and composer of the active room.
type chatModel struct {
	sess Session

	room         domain.Room
	hasRoom      bool
	entries      []chatEntry
	emptyHistory bool
	connected    bool
	typing       []int

	cursor       int // selected entry; -1 follows the newest message
	input        string
	replyTo      *int
	inputFocused bool
	notice       string

	copyText func(string) error
	openURL  func(string) error

	width     int
	height    int
	animFrame int
}

func newChatModel(s Session) chatModel {
	return chatModel{sess: s, cursor: -1}
}

func (m chatModel) Update(msg tea.Msg) (chatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case statusMsg:
		m.connected = msg.status == domain.StatusConnected
		if !m.connected {
			m.typing = nil
		}

	case activeRoomMsg:
		m.room = msg.room
		m.hasRoom = true
		m.entries = nil
		m.emptyHistory = false
		m.typing = nil
		m.cursor = -1
		m.replyTo = nil
		m.notice = ""

	case appendMsg:
		m.emptyHistory = false
		m.entries = append(m.entries, chatEntry{msg: msg.msg})
		if over := len(m.entries) - maxLogEntries; over > 0 {
			m.entries = append([]chatEntry(nil), m.entries[over:]...)
			if m.cursor >= 0 {
				m.cursor = max(m.cursor-over, 0)
			}
		}

	case historyMsg:
		m.emptyHistory = false
		m.cursor = -1
		m.entries = make([]chatEntry, 0, len(msg.msgs))
		for _, v := range msg.msgs {
			m.entries = append(m.entries, chatEntry{msg: v})
		}

	case emptyHistoryMsg:
		m.entries = nil
		m.emptyHistory = true
		m.cursor = -1

	case typingMsg:
		m.typing = msg.userIDs

	case hideTypingMsg:
		m.typing = nil

	case serverErrorMsg:
		m.entries = append(m.entries, chatEntry{system: "error: " + msg.text, isErr: true})

	case noticeMsg:
		m.notice = msg.text

	case cursorBlinkMsg:
		m.animFrame++
		return m, cursorBlinkCmd()

	case tea.KeyMsg:
		// Any keypress shows the cursor.
		m.animFrame = 0
		if m.inputFocused {
			return m.updateInput(msg)
		}
		return m.updateNav(msg)
	}
	return m, nil
}

// updateInput handles key events while the composer is focused.
func (m chatModel) updateInput(msg tea.KeyMsg) (chatModel, tea.Cmd) {
	key := msg.String()
	switch key {
	case "esc":
		if m.replyTo != nil {
			m.replyTo = nil
			return m, nil
		}
		m.inputFocused = false
		return m, nil

	case "enter":
		return m.submit()
	}

	next := editRune(m.input, key)
	if next == m.input {
		return m, nil
	}
	isCommand := strings.HasPrefix(next, "/")
	if !m.connected && !isCommand && key != "backspace" {
		m.notice = "not connected · /reconnect to retry"
		return m, nil
	}
	m.input = next
	if m.connected && !isCommand && key != "backspace" {
		m.sess.InputActivity()
	}
	return m, nil
}

// submit sends the composer content or runs it as a command.
// A rejected draft stays in the composer.
func (m chatModel) submit() (chatModel, tea.Cmd) {
	text := strings.TrimSpace(m.input)
	if text == "" {
		return m, nil
	}
	if name, arg, ok := parseCommand(text); ok {
		m.input = ""
		m.notice = ""
		m.runCommand(name, arg)
		return m, nil
	}
	switch {
	case !m.hasRoom:
		m.notice = "select a room first"
		return m, nil
	case !m.connected:
		m.notice = "not connected; message not sent"
		return m, nil
	}
	m.sess.SendMessage(text, m.replyTo)
	m.input = ""
	m.replyTo = nil
	m.notice = ""
	m.cursor = -1
	return m, nil
}

func (m *chatModel) runCommand(name, arg string) {
	switch name {
	case "join":
		m.sess.JoinInput(arg)
	case "new":
		m.sess.CreateRoom(context.Background(), arg)
	case "reconnect":
		m.notice = "reconnecting…"
		m.sess.Connect()
	default:
		m.notice = "unknown command /" + name
	}
}

// updateNav handles key events when the composer is not focused.
func (m chatModel) updateNav(msg tea.KeyMsg) (chatModel, tea.Cmd) {
	switch msg.String() {
	case "k", "up":
		switch {
		case len(m.entries) == 0:
		case m.cursor < 0:
			m.cursor = len(m.entries) - 1
		case m.cursor > 0:
			m.cursor--
		}
	case "j", "down":
		if m.cursor >= 0 {
			m.cursor++
			if m.cursor >= len(m.entries) {
				m.cursor = -1
			}
		}
	case "G", "end":
		m.cursor = -1
	case "enter", "i":
		m.inputFocused = true
		m.notice = ""
	case "/":
		m.inputFocused = true
		m.notice = ""
		if m.input == "" {
			m.input = "/"
		}
	case "r":
		e, ok := m.selected()
		switch {
		case !ok || e.system != "":
			m.notice = "select a message to reply to"
		case e.msg.ID == 0:
			m.notice = "message has no id yet"
		default:
			id := e.msg.ID
			m.replyTo = &id
			m.inputFocused = true
		}
	case "y":
		e, ok := m.selected()
		if !ok {
			m.notice = "select a message to copy"
			break
		}
		if err := m.copyText(e.text()); err != nil {
			m.notice = "copy failed: " + err.Error()
			break
		}
		m.notice = "copied"
	case "o":
		e, ok := m.selected()
		if !ok {
			m.notice = "select a message first"
			break
		}
		u, found := firstURL(e.text())
		if !found {
			m.notice = "no link in message"
			break
		}
		if err := m.openURL(u); err != nil {
			m.notice = "open failed: " + err.Error()
			break
		}
		m.notice = "opened " + truncStr(u, 40)
	}
	return m, nil
}

func (m chatModel) selected() (chatEntry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return chatEntry{}, false
	}
	return m.entries[m.cursor], true
}

// View renders the chat pane.
func (m chatModel) View() string {
	var b strings.Builder

	// Reserve lines: title + typing + input + notice + hints.
	chrome := 3
	if m.notice != "" {
		chrome++
	}
	if m.replyTo != nil {
		chrome++
	}
	showHints := m.inputFocused && strings.HasPrefix(m.input, "/")
	if showHints {
		chrome += len(matchingCommands(m.input))
	}
	viewportHeight := m.height - chrome
	if viewportHeight < 2 {
		viewportHeight = 2
	}

	b.WriteString(m.renderTitle() + "\n")

	switch {
	case !m.hasRoom:
		padLines(viewportHeight-1, &b)
		b.WriteString(" " + dimStyle.Render("no room selected · enter on a room or /join <id>") + "\n")
	case m.emptyHistory && len(m.entries) == 0:
		padLines(viewportHeight-1, &b)
		b.WriteString(" " + dimStyle.Render("no messages yet") + "\n")
	case len(m.entries) == 0:
		padLines(viewportHeight-1, &b)
		if m.connected {
			b.WriteString(" " + dimStyle.Render("loading history…") + "\n")
		} else {
			b.WriteString(" " + dimStyle.Render("waiting for connection…") + "\n")
		}
	default:
		b.WriteString(m.renderLog(viewportHeight))
	}

	if t := typingText(m.typing); t != "" {
		b.WriteString(" " + dimStyle.Italic(true).Render(t))
	}
	b.WriteByte('\n')

	if showHints {
		b.WriteString(renderSlashHints(m.input))
	}
	if m.replyTo != nil {
		b.WriteString(" " + chatReplyStyle.Render(fmt.Sprintf("↪ replying to #%d · esc to cancel", *m.replyTo)) + "\n")
	}
	b.WriteString(m.renderInput())
	b.WriteByte('\n')

	if m.notice != "" {
		b.WriteString(" " + goldStyle.Render(m.notice))
	}
	return b.String()
}

func (m chatModel) renderTitle() string {
	if !m.hasRoom {
		return " " + metaStyle.Render("parley")
	}
	title := " " + selectedStyle.Render(m.room.DisplayName())
	meta := fmt.Sprintf("#%d", m.room.ID)
	if m.room.Type != "" {
		meta += " · " + m.room.Type
	}
	return title + "  " + metaStyle.Render(meta)
}

func (m chatModel) renderInput() string {
	placeholder := "say something…"
	switch {
	case !m.connected:
		placeholder = "offline · /reconnect"
	case !m.hasRoom:
		placeholder = "/join <id> or /new <name>"
	}
	return renderChatInput("you", m.input, placeholder, m.inputFocused, m.animFrame)
}

// renderLog renders the log clipped to viewportHeight lines. Newest
// entries sit at the bottom; a selection above the window scrolls it.
func (m chatModel) renderLog(viewportHeight int) string {
	var lines []string
	selStart := -1
	for i, e := range m.entries {
		if i == m.cursor {
			selStart = len(lines)
		}
		lines = append(lines, strings.Split(m.renderEntry(e, i == m.cursor), "\n")...)
	}

	total := len(lines)
	end := total
	if selStart >= 0 && selStart < total-viewportHeight {
		end = selStart + viewportHeight
	}
	start := end - viewportHeight
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	visible := lines[start:end]
	padLines(viewportHeight-len(visible), &b)
	for _, line := range visible {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// renderEntry renders one log entry, wrapping body text to the pane width.
func (m chatModel) renderEntry(e chatEntry, selected bool) string {
	gutter := " "
	if selected {
		gutter = accentStyle.Render("▌")
	}
	if e.system != "" {
		style := chatSysStyle
		if e.isErr {
			style = rejectStyle
		}
		return gutter + style.Render("— "+e.system+" —")
	}

	msg := e.msg
	timePart := metaStyle.Render(fmt.Sprintf("%7s", formatChatTime(msg.CreatedAt)))
	sep := chatSepStyle.Render(" · ")

	var namePart string
	if msg.Own {
		namePart = chatSelfNameStyle.Render("you")
	} else {
		namePart = senderStyle(msg.SenderID).Render(userLabel(msg.SenderID))
	}

	renderBody := func(s string) string {
		s = urlRe.ReplaceAllStringFunc(s, hyperlinkOSC8)
		if msg.Own {
			return chatSelfTextStyle.Render(s)
		}
		return chatTextStyle.Render(s)
	}

	// gutter + time + "  " + name + " · "
	prefixWidth := 1 + 7 + 2 + lipgloss.Width(namePart) + 3
	bodyWidth := m.width - prefixWidth
	if bodyWidth < 20 {
		bodyWidth = 20
	}
	wrapped := hardWrap(lipgloss.NewStyle().Width(bodyWidth).Render(msg.Content), bodyWidth)
	bodyLines := strings.Split(wrapped, "\n")

	var out strings.Builder
	if msg.ReplyToID != nil {
		out.WriteString(strings.Repeat(" ", 10) + chatReplyStyle.Render(fmt.Sprintf("↪ reply to #%d", *msg.ReplyToID)) + "\n")
	}
	out.WriteString(gutter + timePart + "  " + namePart + sep + renderBody(bodyLines[0]))
	indent := strings.Repeat(" ", prefixWidth)
	for _, line := range bodyLines[1:] {
		out.WriteString("\n" + indent + renderBody(line))
	}
	return out.String()
}
