package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/model/chat"
)

const (
	listWidth     = 22
	importanceBar = 20
	typingCursor  = "▍"
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Anatomy Explorer") + dimStyle.Render("  pick an organ, hear it, ask about it") + "\n")

	detailWidth := max(40, m.width-listWidth-6)
	left := panelStyle.Width(listWidth).Render(m.renderList())
	right := panelStyle.Width(detailWidth).Render(m.renderDetail(detailWidth) + "\n\n" + m.renderChat(detailWidth))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right) + "\n")

	if m.focus == focusInput {
		b.WriteString(m.input.View() + "\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderList() string {
	rows := make([]string, 0, len(m.organs))
	for i, rec := range m.organs {
		label := rec.Icon + " " + rec.Name
		if i == m.cursor {
			rows = append(rows, selectedStyle.Render(label))
			continue
		}
		rows = append(rows, normalStyle.Foreground(lipgloss.Color(rec.Color)).Render(label))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderDetail(width int) string {
	rec, ok := m.Selected()
	if !ok {
		return dimStyle.Render("No organs loaded.")
	}
	wrap := lipgloss.NewStyle().Width(width - 2)
	name := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(rec.Color)).Render(rec.Icon + " " + rec.Name)

	sound := "[p] play sound"
	if m.playing {
		sound = "♪ playing..."
	}

	lines := []string{
		name + dimStyle.Render("  "+rec.System),
		wrap.Render(rec.Description),
		labelStyle.Render("Importance ") + renderImportance(rec.Importance),
		labelStyle.Render("Fun fact ") + wrap.Render(rec.FunFact),
		labelStyle.Render("Sound ") + dimStyle.Render(rec.SoundDescription) + "  " + statusStyle.Render(sound),
	}
	return strings.Join(lines, "\n")
}

func renderImportance(score int) string {
	score = min(max(score, 0), 100)
	filled := score * importanceBar / 100
	return strings.Repeat("█", filled) + dimStyle.Render(strings.Repeat("░", importanceBar-filled)) + fmt.Sprintf(" %d/100", score)
}

func (m Model) renderChat(width int) string {
	msgs := m.chat.Messages()
	// leave room for the detail panel and input
	if keep := max(4, m.height-18); len(msgs) > keep {
		msgs = msgs[len(msgs)-keep:]
	}
	wrap := lipgloss.NewStyle().Width(width - 2)

	var parts []string
	for _, msg := range msgs {
		parts = append(parts, renderMessage(msg, wrap))
	}
	return strings.Join(parts, "\n")
}

func renderMessage(msg chat.Message, wrap lipgloss.Style) string {
	role := assistantRoleStyle.Render(" guide ")
	if msg.Role == chat.RoleUser {
		role = userRoleStyle.Render(" you ")
	}
	text := msg.Text
	if msg.Streaming {
		text += typingCursor
	}
	return role + "\n" + wrap.Render(text)
}

func (m Model) renderHelp() string {
	if m.focus == focusInput {
		return helpStyle.Render("  Enter: ask  Esc/Tab: back to organs  Ctrl+C: quit")
	}
	return helpStyle.Render("  ↑/↓: organ  p: play sound  Enter: ask  q: quit")
}
