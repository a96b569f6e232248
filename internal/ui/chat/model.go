// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/multichat-tui/internal/attachment"
	"github.com/jeranaias/multichat-tui/internal/commands"
	"github.com/jeranaias/multichat-tui/internal/config"
	"github.com/jeranaias/multichat-tui/internal/conversation"
	"github.com/jeranaias/multichat-tui/internal/document"
	"github.com/jeranaias/multichat-tui/internal/prompt"
	"github.com/jeranaias/multichat-tui/internal/provider"
	"github.com/jeranaias/multichat-tui/internal/ui/components"
	"github.com/jeranaias/multichat-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateConfiguring State = iota // Provider selection flow
	StateReady                    // Ready for input
	StateSending                  // Waiting for a provider response
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// State
	state State

	// Styling
	theme   *styles.Theme
	msgView *components.MessageView

	// Dimensions
	width  int
	height int

	// Configuration
	cfg *config.Config

	// Conversation
	store *conversation.Store

	// Prompt assembly
	assembler prompt.Assembler
	mode      prompt.Mode

	// Provider
	client provider.Client

	// Attachments pending for the next message
	ingestor *attachment.Ingestor
	pending  []attachment.Attachment

	// Commands
	registry *commands.Registry
	parser   *commands.Parser

	// UI Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	// Key bindings
	keyMap KeyMap

	// Provider selection flow
	picker pickerState

	// Transient status line
	statusMsg string
	statusSeq int
}

// New creates a new chat model. The store must already be open; the client
// may be nil, in which case the provider selection flow runs first.
func New(cfg *config.Config, store *conversation.Store, client provider.Client) Model {
	theme := styles.NewTheme(cfg.UI.Theme)

	ta := textarea.New()
	ta.Placeholder = "Type a message, /help for commands..."
	ta.Prompt = "> "
	ta.CharLimit = 16384
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	registry := commands.NewRegistry()

	ingestor := attachment.NewIngestor(document.NewProcessor()).
		WithMaxSize(int64(cfg.Attachments.MaxFileSizeMB) * 1024 * 1024)

	state := StateReady
	if client == nil {
		state = StateConfiguring
	}

	return Model{
		state:     state,
		theme:     theme,
		msgView:   components.NewMessageView(theme, 80, cfg.UI.ShowTimestamps),
		cfg:       cfg,
		store:     store,
		assembler: prompt.Assembler{HistoryWindow: cfg.Prompt.HistoryWindow},
		mode:      prompt.ModeNormal,
		client:    client,
		ingestor:  ingestor,
		registry:  registry,
		parser:    commands.NewParser(registry),
		viewport:  vp,
		input:     ta,
		spinner:   sp,
		keyMap:    DefaultKeyMap(),
		picker:    newPickerState(cfg),
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keyMap.Quit) {
			return m, tea.Quit
		}
		if m.state == StateConfiguring {
			return m.updatePicker(msg)
		}
		return m.updateChatKeys(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case responseMsg:
		return m.handleResponse(msg)

	case attachResultMsg:
		return m.handleAttachResults(msg)

	case modelListMsg:
		return m.handlePickerModels(msg)

	case statusExpiredMsg:
		if msg.seq == m.statusSeq {
			m.statusMsg = ""
		}
		return m, nil

	case ConfigReloadedMsg:
		return m.handleConfigReload(msg.Cfg)

	// Command results.
	case commands.HelpMsg:
		m.appendSystem(msg.Text)
		return m, nil

	case commands.ClearedMsg:
		if msg.Err != nil {
			return m.setStatus(fmt.Sprintf("clear failed: %v", msg.Err))
		}
		m.refreshViewport()
		return m, nil

	case commands.ReconfigureMsg:
		m.state = StateConfiguring
		m.picker = newPickerState(m.cfg)
		return m, nil

	case commands.CopiedMsg:
		if msg.Err != nil {
			return m.setStatus(msg.Err.Error())
		}
		return m.setStatus(fmt.Sprintf("copied %d code block(s)", msg.Blocks))

	case commands.ModeChangedMsg:
		m.mode = msg.Mode
		return m.setStatus("mode: " + msg.Mode.String())

	case commands.TranscriptSavedMsg:
		if msg.Err != nil {
			return m.setStatus(fmt.Sprintf("save failed: %v", msg.Err))
		}
		return m.setStatus("saved " + msg.Path)

	case commands.TranscriptLoadedMsg:
		if msg.Err != nil {
			return m.setStatus(fmt.Sprintf("load failed: %v", msg.Err))
		}
		m.refreshViewport()
		return m.setStatus(fmt.Sprintf("loaded %d message(s)", msg.Count))

	case commands.ErrorMsg:
		return m.setStatus(msg.Err.Error())
	}

	var cmd tea.Cmd
	if m.state == StateConfiguring && m.picker.step == stepKey {
		m.picker.keyInput, cmd = m.picker.keyInput.Update(msg)
		return m, cmd
	}
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// updateChatKeys handles key input while in the chat view.
func (m Model) updateChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// SUBMIT FLOW
// =============================================================================

// submit routes the input line: /attach, slash commands, or a chat message.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	trimmed := strings.TrimSpace(text)

	if trimmed == "" && len(m.pending) == 0 {
		return m, nil
	}

	if strings.HasPrefix(trimmed, "/attach") {
		m.input.Reset()
		return m.attach(trimmed)
	}

	if commands.IsCommand(trimmed) {
		m.input.Reset()
		ctx := &commands.HandlerContext{
			Store:         m.store,
			Mode:          m.mode,
			TranscriptDir: m.cfg.Storage.TranscriptDir,
			Registry:      m.registry,
		}
		return m, commands.Execute(m.parser, ctx, trimmed)
	}

	if m.state == StateSending {
		return m.setStatus("a request is already in flight")
	}
	if m.client == nil {
		return m.setStatus("no provider configured, use /model")
	}

	// Snapshot history before the new message joins the log.
	history := m.store.Messages()

	atts := m.pending
	m.pending = nil

	userMsg := conversation.NewUserMessage(trimmed, atts)
	if err := m.store.Append(userMsg); err != nil {
		return m.setStatus(fmt.Sprintf("store error: %v", err))
	}

	custom := ""
	if m.cfg.Prompt.CustomEnabled {
		custom = m.cfg.Prompt.CustomInstruction
	}
	assembled := m.assembler.Assemble(prompt.Request{
		Mode:              m.mode,
		CustomInstruction: custom,
		History:           history,
		Text:              trimmed,
		Attachments:       atts,
	})

	m.input.Reset()
	m.state = StateSending
	m.refreshViewport()

	client := m.client
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), provider.DefaultTimeout)
		defer cancel()
		content, err := client.Send(ctx, assembled.Instruction, atts)
		return responseMsg{content: content, err: err}
	})
}

// attach ingests the listed files as a batch.
func (m Model) attach(input string) (tea.Model, tea.Cmd) {
	result := m.parser.Parse(input)
	if len(result.Args) == 0 {
		return m.setStatus("usage: /attach <path> [path...]")
	}

	paths := result.Args
	ingestor := m.ingestor
	return m, func() tea.Msg {
		return attachResultMsg{results: ingestor.IngestPaths(paths)}
	}
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

// handleResponse appends the provider reply, or the error as a visible
// message. Either way the conversation grows by exactly one message and
// stays usable.
func (m Model) handleResponse(msg responseMsg) (tea.Model, tea.Cmd) {
	m.state = StateReady

	if msg.err != nil {
		// Errors land in the assistant slot so the log still grows by
		// exactly one entry per send.
		errMsg := conversation.NewAssistantMessage("Error: " + msg.err.Error() +
			"\n\nCheck your API key, model name, and network connection, then resend.")
		if err := m.store.Append(errMsg); err != nil {
			return m.setStatus(fmt.Sprintf("store error: %v", err))
		}
		m.refreshViewport()
		return m, nil
	}

	if err := m.store.Append(conversation.NewAssistantMessage(msg.content)); err != nil {
		return m.setStatus(fmt.Sprintf("store error: %v", err))
	}
	m.refreshViewport()
	return m, nil
}

// handleAttachResults adds successes to the pending strip and reports
// failures without dropping the rest of the batch.
func (m Model) handleAttachResults(msg attachResultMsg) (tea.Model, tea.Cmd) {
	var failed []string
	added := 0
	for _, r := range msg.results {
		if r.Err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", r.Name, r.Err))
			continue
		}
		m.pending = append(m.pending, *r.Attachment)
		added++
	}

	status := fmt.Sprintf("attached %d file(s)", added)
	if len(failed) > 0 {
		status += "; failed: " + strings.Join(failed, "; ")
	}
	return m.setStatus(status)
}

func (m Model) handleConfigReload(cfg *config.Config) (tea.Model, tea.Cmd) {
	m.cfg = cfg
	m.assembler = prompt.Assembler{HistoryWindow: cfg.Prompt.HistoryWindow}
	m.ingestor = attachment.NewIngestor(document.NewProcessor()).
		WithMaxSize(int64(cfg.Attachments.MaxFileSizeMB) * 1024 * 1024)
	m.theme = styles.NewTheme(cfg.UI.Theme)
	m.msgView = components.NewMessageView(m.theme, m.width, cfg.UI.ShowTimestamps)
	m.layout()
	m.refreshViewport()
	return m.setStatus("configuration reloaded")
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) appendSystem(text string) {
	if err := m.store.Append(conversation.NewSystemMessage(text)); err != nil {
		m.statusMsg = fmt.Sprintf("store error: %v", err)
		return
	}
	m.refreshViewport()
}

// setStatus shows a transient status line for a few seconds.
func (m Model) setStatus(text string) (tea.Model, tea.Cmd) {
	m.statusMsg = text
	m.statusSeq++
	seq := m.statusSeq
	return m, tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return statusExpiredMsg{seq: seq}
	})
}

func (m *Model) refreshViewport() {
	if m.msgView == nil {
		return
	}
	m.viewport.SetContent(m.msgView.RenderAll(m.store.Messages()))
	m.viewport.GotoBottom()
}

// Mode returns the active operation mode.
func (m Model) Mode() prompt.Mode {
	return m.mode
}

// Pending returns the attachments queued for the next message.
func (m Model) Pending() []attachment.Attachment {
	return m.pending
}
