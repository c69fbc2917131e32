package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/freeslot/internal/tui/commands"
)

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.mode == ModePrompt {
		return m.handlePromptKeys(msg)
	}
	return m.handleNormalKeys(msg)
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.timetable == nil {
		if msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	}
	tt := m.timetable

	switch msg.String() {
	case "q":
		return m, tea.Quit

	// Navigation
	case "h", "left":
		if m.cursor.Day > 0 {
			m.cursor.Day--
		}
	case "l", "right":
		if m.cursor.Day < len(tt.Dates)-1 {
			m.cursor.Day++
		}
	case "k", "up":
		if m.cursor.Hour > tt.PreferStart {
			m.cursor.Hour--
		}
	case "j", "down":
		if m.cursor.Hour < tt.PreferEnd-1 {
			m.cursor.Hour++
		}
	case "H", "shift+left":
		return m.loadWeek(m.offset - 1)
	case "L", "shift+right":
		return m.loadWeek(m.offset + 1)
	case "t":
		m.focus = m.now()
		return m.loadWeek(0)
	case "r":
		return m.loadWeek(m.offset)

	// Selection length
	case "+", "=":
		m.hours = min(m.hours+1, maxHours)
	case "-":
		m.hours = max(m.hours-1, minHours)

	// Actions
	case "n":
		from, ok := m.selectionStart()
		if !ok {
			return m, nil
		}
		if now := m.now(); from.Before(now) {
			from = m.planner.Scheduler().NextSearchStart(now)
		}
		return m, commands.NextFree(m.planner, from, m.hours)
	case "enter", "b":
		if !tt.Authorized {
			m.statusMsg = "Calendar access is not granted"
			return m, commands.ClearStatusAfter(statusTimeout)
		}
		m.mode = ModePrompt
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) handlePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeNormal
		m.input.Blur()
		return m, nil
	case "enter":
		title := strings.TrimSpace(m.input.Value())
		if title == "" {
			return m, nil
		}
		start, ok := m.selectionStart()
		m.mode = ModeNormal
		m.input.Blur()
		if !ok {
			return m, nil
		}
		return m, commands.Book(m.planner, title, start, m.hours)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) loadWeek(offset int) (tea.Model, tea.Cmd) {
	m.loading = true
	return m, commands.LoadWeek(m.planner, m.now(), offset)
}
