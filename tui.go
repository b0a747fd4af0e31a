package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI message types
type StatusMsg struct {
	Text      string
	Listening bool
}
type TranscriptMsg struct {
	Timestamp time.Time
	Text      string
	Language  string
}
type ReplyMsg struct {
	Timestamp time.Time
	Text      string
}
type AudioLevelMsg struct{ Level int }
type LogMsg struct{ Text string }
type ErrMsg struct{ Text string }
type ArtifactMsg struct{ Path string }
type MicLineMsg struct{ Text string }
type LanguageMsg struct{ Code string }
type ContinuousMsg struct{ On bool }
type DebugMsg struct{ On bool }
type ResponsesMsg struct{ On bool }

const (
	maxTranscriptLines = 200
	audioBarWidth      = 20
)

// appActions is what the key handler can trigger. main.go provides the
// implementation; the model never touches workers directly.
type appActions interface {
	ListenOnce()
	ToggleContinuous()
	CycleMic()
	ToggleLanguage()
	ToggleDebug()
	ToggleResponses()
	ClearConversation()
	CopyReply(text string) error
}

type transcriptEntry struct {
	when  time.Time
	text  string
	style lipgloss.Style
}

type tuiModel struct {
	actions appActions

	width, height int
	status        string
	listening     bool
	continuous    bool
	responses     bool
	debug         bool
	language      string
	micLine       string
	audioLevel    int

	entries   []transcriptEntry
	lastReply string
	replyAt   time.Time
	copied    bool
}

var (
	styleTitle      = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true)
	styleTranscript = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleReply      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleInfo       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleDim        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleError      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleWarn       = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	styleListening  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleBarOn      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleBarOff     = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	styleHelpKey    = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	styleHelp       = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
)

func NewTUIProgram(actions appActions, language, micLine string, responses bool) *tea.Program {
	m := tuiModel{
		actions:   actions,
		status:    "Ready",
		language:  language,
		micLine:   micLine,
		responses: responses,
	}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) appendEntry(e transcriptEntry) tuiModel {
	m.entries = append(m.entries, e)
	if len(m.entries) > maxTranscriptLines {
		m.entries = m.entries[len(m.entries)-maxTranscriptLines:]
	}
	return m
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StatusMsg:
		m.status = msg.Text
		m.listening = msg.Listening
		if !msg.Listening {
			m.audioLevel = 0
		}

	case AudioLevelMsg:
		m.audioLevel = msg.Level

	case TranscriptMsg:
		m = m.appendEntry(transcriptEntry{
			when:  msg.Timestamp,
			text:  fmt.Sprintf("[%s] %s", msg.Language, msg.Text),
			style: styleTranscript,
		})

	case ReplyMsg:
		m.lastReply = msg.Text
		m.replyAt = msg.Timestamp
		m.copied = false

	case LogMsg:
		m = m.appendEntry(transcriptEntry{when: time.Now(), text: msg.Text, style: styleDim})

	case ErrMsg:
		m = m.appendEntry(transcriptEntry{when: time.Now(), text: msg.Text, style: styleError})

	case ArtifactMsg:
		m = m.appendEntry(transcriptEntry{
			when:  time.Now(),
			text:  "debug audio saved: " + msg.Path,
			style: styleWarn,
		})

	case MicLineMsg:
		m.micLine = msg.Text

	case LanguageMsg:
		m.language = msg.Code

	case ContinuousMsg:
		m.continuous = msg.On

	case DebugMsg:
		m.debug = msg.On

	case ResponsesMsg:
		m.responses = msg.On
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "l":
		m.actions.ListenOnce()
	case "L":
		m.actions.ToggleContinuous()
	case "m":
		m.actions.CycleMic()
	case "g":
		m.actions.ToggleLanguage()
	case "d":
		m.actions.ToggleDebug()
	case "o":
		m.actions.ToggleResponses()
	case "c":
		m.actions.ClearConversation()
		m.entries = nil
		m.lastReply = ""
		m.copied = false
	case "y":
		if m.lastReply != "" {
			if err := m.actions.CopyReply(m.lastReply); err == nil {
				m.copied = true
			}
		}
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	leftWidth := m.width / 2
	if leftWidth < 24 {
		leftWidth = 24
	}
	rightWidth := m.width - leftWidth - 1
	if rightWidth < 20 {
		rightWidth = 20
	}
	panelHeight := m.height - 3
	if panelHeight < 3 {
		panelHeight = 3
	}

	left := m.renderTranscriptPanel(leftWidth, panelHeight)
	right := m.renderReplyPanel(rightWidth, panelHeight)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	return body + "\n" + m.renderStatusLine() + "\n" + m.renderHelpLine()
}

func (m tuiModel) renderTranscriptPanel(width, height int) string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Transcript") + "\n")

	wrapWidth := width - 12
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	var lines []string
	for _, e := range m.entries {
		stamp := styleDim.Render(e.when.Format("15:04:05"))
		for i, line := range wrapText(e.text, wrapWidth) {
			if i == 0 {
				lines = append(lines, stamp+" "+e.style.Render(line))
			} else {
				lines = append(lines, strings.Repeat(" ", 9)+e.style.Render(line))
			}
		}
	}
	// Keep the newest lines visible.
	avail := height - 1
	if len(lines) > avail {
		lines = lines[len(lines)-avail:]
	}
	if len(lines) == 0 {
		lines = []string{styleDim.Render("Press l to listen")}
	}
	b.WriteString(strings.Join(lines, "\n"))

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		PaddingLeft(1).
		Render(b.String())
}

func (m tuiModel) renderReplyPanel(width, height int) string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Assistant") + "\n")

	wrapWidth := width - 3
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	if m.lastReply == "" {
		b.WriteString(styleDim.Render("No reply yet"))
	} else {
		b.WriteString(styleDim.Render(m.replyAt.Format("15:04:05")) + "\n")
		lines := wrapText(m.lastReply, wrapWidth)
		for i, line := range lines {
			b.WriteString(styleReply.Render(line))
			if i == len(lines)-1 && m.copied {
				b.WriteString(" " + styleInfo.Render("[copied]"))
			}
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		PaddingLeft(1).
		Render(b.String())
}

func (m tuiModel) renderStatusLine() string {
	var status string
	if m.listening {
		status = styleListening.Render("● " + m.status)
	} else {
		status = styleDim.Render("○ " + m.status)
	}

	mode := "once"
	if m.continuous {
		mode = "continuous"
	}
	resp := "on"
	if !m.responses {
		resp = "off"
	}

	parts := []string{
		status,
		m.renderAudioBar(),
		styleInfo.Render("lang " + m.language),
		styleInfo.Render("mode " + mode),
		styleInfo.Render("llm " + resp),
	}
	if m.debug {
		parts = append(parts, styleWarn.Render("debug"))
	}
	if m.micLine != "" {
		parts = append(parts, styleDim.Render(m.micLine))
	}
	return " " + strings.Join(parts, styleDim.Render("  |  "))
}

func (m tuiModel) renderAudioBar() string {
	on := m.audioLevel
	if on > audioBarWidth {
		on = audioBarWidth
	}
	return styleBarOn.Render(strings.Repeat("█", on)) +
		styleBarOff.Render(strings.Repeat("░", audioBarWidth-on))
}

func (m tuiModel) renderHelpLine() string {
	keys := []struct{ key, desc string }{
		{"l", "listen"},
		{"L", "continuous"},
		{"m", "mic"},
		{"g", "language"},
		{"o", "llm"},
		{"c", "clear"},
		{"y", "copy"},
		{"d", "debug"},
		{"q", "quit"},
	}
	var parts []string
	for _, k := range keys {
		parts = append(parts, styleHelpKey.Render(k.key)+styleHelp.Render(" "+k.desc))
	}
	return " " + strings.Join(parts, styleHelp.Render("  ")) +
		styleHelp.Render("   speechtui "+version)
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	// Split on rune boundaries; replies are arbitrary model output.
	runes := []rune(text)
	var lines []string
	for len(runes) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if runes[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, string(runes[:splitAt]))
		runes = runes[splitAt:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		lines = append(lines, string(runes))
	}
	return lines
}
