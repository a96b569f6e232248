// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App       lipgloss.Style
	Container lipgloss.Style

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	UserBubble     lipgloss.Style
	AssistantBody  lipgloss.Style
	SystemBubble   lipgloss.Style
	Timestamp      lipgloss.Style
	AttachmentTag  lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	ModeNormal   lipgloss.Style
	ModeCode     lipgloss.Style
	ModeWebApp   lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// PROVIDER PICKER STYLES
	// ==========================================================================

	PickerBox          lipgloss.Style
	PickerTitle        lipgloss.Style
	PickerItem         lipgloss.Style
	PickerItemSelected lipgloss.Style
	PickerHint         lipgloss.Style

	// ==========================================================================
	// SPINNER AND LOADING STYLES
	// ==========================================================================

	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style

	// ==========================================================================
	// CODE BLOCK STYLES
	// ==========================================================================

	CodeBlock     lipgloss.Style
	CodeLangBadge lipgloss.Style
	CodeLineNum   lipgloss.Style

	// ==========================================================================
	// ERROR STYLES
	// ==========================================================================

	ErrorBox   lipgloss.Style
	ErrorTitle lipgloss.Style
}

// NewTheme creates a new theme with all styles configured. name selects the
// palette: "dark", "light", or "auto" to follow the terminal background.
func NewTheme(name string) *Theme {
	colorProfile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(name) {
	case "light":
		isDark = false
	case "dark":
		isDark = true
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()
	t.Container = lipgloss.NewStyle().Padding(0, 1)

	// Header
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 2)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Messages
	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(UserBubbleBorder)

	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(AssistantBubbleBorder)

	t.SystemLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(SystemBubbleBorder)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(UserBubbleBorder).
		BorderLeft(true).
		PaddingLeft(2)

	t.AssistantBody = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(AssistantBubbleBorder).
		BorderLeft(true).
		PaddingLeft(2)

	t.SystemBubble = lipgloss.NewStyle().
		Foreground(SystemBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(SystemBubbleBorder).
		BorderLeft(true).
		PaddingLeft(2).
		Italic(true)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.AttachmentTag = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.ModeNormal = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.ModeCode = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.ModeWebApp = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Provider picker
	t.PickerBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 3)

	t.PickerTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.PickerItem = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.PickerItemSelected = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.PickerHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Spinner
	t.Spinner = lipgloss.NewStyle().
		Foreground(Cyan)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Code blocks
	t.CodeBlock = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(1, 2)

	t.CodeLangBadge = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(OverlayDim).
		Padding(0, 1).
		Bold(true)

	t.CodeLineNum = lipgloss.NewStyle().
		Foreground(TextMuted).
		Width(4).
		Align(lipgloss.Right).
		MarginRight(1)

	// Errors
	t.ErrorBox = lipgloss.NewStyle().
		Foreground(Rose).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Rose).
		BorderLeft(true).
		PaddingLeft(2)

	t.ErrorTitle = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)
}
