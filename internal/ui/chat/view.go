// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/multichat-tui/internal/prompt"
	"github.com/jeranaias/multichat-tui/internal/util"
)

// =============================================================================
// LAYOUT
// =============================================================================

// layout recomputes component dimensions after a resize.
func (m *Model) layout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}

	m.input.SetWidth(m.width - 4)
	m.msgView.SetWidth(m.width - 2)

	// header + input + status + borders
	chrome := 3 + m.input.Height() + 2
	vpHeight := m.height - chrome
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = vpHeight
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat interface.
func (m Model) View() string {
	if m.state == StateConfiguring {
		return m.viewPicker()
	}

	var sb strings.Builder
	sb.WriteString(m.viewHeader())
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	if strip := m.viewPendingStrip(); strip != "" {
		sb.WriteString(strip)
		sb.WriteString("\n")
	}
	sb.WriteString(m.theme.InputContainer.Render(m.input.View()))
	sb.WriteString("\n")
	sb.WriteString(m.viewStatusBar())
	return sb.String()
}

func (m Model) viewHeader() string {
	title := m.theme.HeaderTitle.Render("multichat")
	model := ""
	if m.client != nil {
		model = m.theme.HeaderSubtitle.Render(" " + m.client.Model())
	}
	return m.theme.Container.Render(title + model)
}

// viewPendingStrip lists attachments queued for the next message.
func (m Model) viewPendingStrip() string {
	if len(m.pending) == 0 {
		return ""
	}
	var tags []string
	for _, att := range m.pending {
		label := fmt.Sprintf("%s (%s)", att.Name, util.FormatBytes(att.SizeBytes))
		tags = append(tags, m.theme.AttachmentTag.Render(label))
	}
	return m.theme.Container.Render(strings.Join(tags, " "))
}

func (m Model) viewStatusBar() string {
	var left string
	switch m.mode {
	case prompt.ModeCode:
		left = m.theme.ModeCode.Render("CODE")
	case prompt.ModeWebApp:
		left = m.theme.ModeWebApp.Render("WEBAPP")
	default:
		left = m.theme.ModeNormal.Render("NORMAL")
	}

	if m.state == StateSending {
		left += " " + m.spinner.View() + m.theme.ThinkingText.Render(" waiting...")
	}

	middle := ""
	if m.statusMsg != "" {
		middle = " " + m.theme.ShortcutDesc.Render(truncateStatus(m.statusMsg, m.width-30))
	}

	right := m.theme.ShortcutKey.Render("Enter") + m.theme.ShortcutDesc.Render(" send  ") +
		m.theme.ShortcutKey.Render("/help") + m.theme.ShortcutDesc.Render(" commands  ") +
		m.theme.ShortcutKey.Render("C-c") + m.theme.ShortcutDesc.Render(" quit")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(middle) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Render(left + middle + strings.Repeat(" ", gap) + right)
}

// viewPicker renders the provider selection flow.
func (m Model) viewPicker() string {
	var body strings.Builder
	body.WriteString(m.theme.PickerTitle.Render("Select a provider"))
	body.WriteString("\n\n")

	switch m.picker.step {
	case stepKind:
		for i, kind := range m.picker.kinds {
			line := "  " + string(kind)
			if i == m.picker.kindIndex {
				line = m.theme.PickerItemSelected.Render("> " + string(kind))
			} else {
				line = m.theme.PickerItem.Render(line)
			}
			body.WriteString(line)
			body.WriteString("\n")
		}
		body.WriteString("\n")
		body.WriteString(m.theme.PickerHint.Render("up/down to choose, enter to confirm"))

	case stepKey:
		body.WriteString(m.theme.PickerItem.Render(string(m.picker.selectedKind())))
		body.WriteString("\n\n")
		body.WriteString(m.picker.keyInput.View())
		body.WriteString("\n\n")
		body.WriteString(m.theme.PickerHint.Render("enter to continue"))

	case stepLoading:
		body.WriteString(m.spinner.View())
		body.WriteString(m.theme.ThinkingText.Render(" fetching models..."))

	case stepModel:
		body.WriteString(m.theme.PickerTitle.Render("Select a model"))
		body.WriteString("\n\n")
		body.WriteString(m.viewModelList())
		body.WriteString("\n")
		body.WriteString(m.theme.PickerHint.Render("up/down to choose, enter to confirm, esc to go back"))
	}

	if m.picker.errText != "" {
		body.WriteString("\n\n")
		body.WriteString(m.theme.ErrorTitle.Render(m.picker.errText))
	}

	box := m.theme.PickerBox.Render(body.String())
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}

// viewModelList renders a scrolling window of the model list around the
// selection.
func (m Model) viewModelList() string {
	const window = 10

	models := m.picker.models
	start := 0
	if m.picker.modelIndex >= window {
		start = m.picker.modelIndex - window + 1
	}
	end := start + window
	if end > len(models) {
		end = len(models)
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		if i == m.picker.modelIndex {
			sb.WriteString(m.theme.PickerItemSelected.Render("> " + models[i]))
		} else {
			sb.WriteString(m.theme.PickerItem.Render("  " + models[i]))
		}
		sb.WriteString("\n")
	}
	if end < len(models) {
		sb.WriteString(m.theme.PickerHint.Render(fmt.Sprintf("  ... %d more", len(models)-end)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// truncateStatus keeps the status line from pushing the bar off screen.
func truncateStatus(s string, max int) string {
	if max < 10 {
		max = 10
	}
	if runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max-3, "...")
}
