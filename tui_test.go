package main

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeActions struct {
	listened   bool
	continuous bool
	cleared    bool
	copied     string
}

func (f *fakeActions) ListenOnce()              { f.listened = true }
func (f *fakeActions) ToggleContinuous()        { f.continuous = !f.continuous }
func (f *fakeActions) CycleMic()                {}
func (f *fakeActions) ToggleLanguage()          {}
func (f *fakeActions) ToggleDebug()             {}
func (f *fakeActions) ToggleResponses()         {}
func (f *fakeActions) ClearConversation()       { f.cleared = true }
func (f *fakeActions) CopyReply(t string) error { f.copied = t; return nil }

func newTestModel(actions appActions) tuiModel {
	m := tuiModel{actions: actions, status: "Ready", language: "id-ID", responses: true}
	m.width, m.height = 80, 24
	return m
}

func update(m tuiModel, msg tea.Msg) tuiModel {
	next, _ := m.Update(msg)
	return next.(tuiModel)
}

func TestKeyTriggersListen(t *testing.T) {
	actions := &fakeActions{}
	m := newTestModel(actions)

	update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	if !actions.listened {
		t.Error("l did not trigger ListenOnce")
	}
}

func TestClearResetsPanels(t *testing.T) {
	actions := &fakeActions{}
	m := newTestModel(actions)
	m = update(m, TranscriptMsg{Timestamp: time.Now(), Text: "halo", Language: "id-ID"})
	m = update(m, ReplyMsg{Timestamp: time.Now(), Text: "hai"})

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	if !actions.cleared {
		t.Error("c did not clear the conversation")
	}
	if len(m.entries) != 0 || m.lastReply != "" {
		t.Error("panels not cleared")
	}
}

func TestCopyReply(t *testing.T) {
	actions := &fakeActions{}
	m := newTestModel(actions)
	m = update(m, ReplyMsg{Timestamp: time.Now(), Text: "the answer"})

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	if actions.copied != "the answer" {
		t.Errorf("copied %q", actions.copied)
	}
	if !m.copied {
		t.Error("copied indicator not set")
	}
}

func TestViewShowsTranscriptAndReply(t *testing.T) {
	m := newTestModel(&fakeActions{})
	m = update(m, TranscriptMsg{Timestamp: time.Now(), Text: "selamat pagi", Language: "id-ID"})
	m = update(m, ReplyMsg{Timestamp: time.Now(), Text: "pagi juga"})
	m = update(m, StatusMsg{Text: "Listening...", Listening: true})

	view := m.View()
	for _, want := range []string{"selamat pagi", "pagi juga", "Listening...", "id-ID"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestAudioLevelResetWhenIdle(t *testing.T) {
	m := newTestModel(&fakeActions{})
	m = update(m, AudioLevelMsg{Level: 12})
	if m.audioLevel != 12 {
		t.Fatalf("audioLevel = %d", m.audioLevel)
	}
	m = update(m, StatusMsg{Text: "Ready", Listening: false})
	if m.audioLevel != 0 {
		t.Errorf("audioLevel = %d after idle status, want 0", m.audioLevel)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("the quick brown fox jumps", 10)
	for _, line := range lines {
		if len(line) > 10 {
			t.Errorf("line %q exceeds width", line)
		}
	}
	if strings.Join(lines, " ") != "the quick brown fox jumps" {
		t.Errorf("words lost: %v", lines)
	}
}

func TestWrapTextMultibyte(t *testing.T) {
	text := "héllo wörld señal de prueba über ünïcode 音声認識テスト"
	for _, width := range []int{3, 5, 10} {
		for _, line := range wrapText(text, width) {
			if !utf8.ValidString(line) {
				t.Fatalf("width %d: line %q cuts a rune mid-sequence", width, line)
			}
			if n := utf8.RuneCountInString(line); n > width {
				t.Errorf("width %d: line %q is %d runes", width, line, n)
			}
		}
	}
}

func TestEntriesBounded(t *testing.T) {
	m := newTestModel(&fakeActions{})
	for i := 0; i < maxTranscriptLines+50; i++ {
		m = update(m, LogMsg{Text: "line"})
	}
	if len(m.entries) != maxTranscriptLines {
		t.Errorf("entries = %d, want %d", len(m.entries), maxTranscriptLines)
	}
}
