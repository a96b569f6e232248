// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/multichat-tui/internal/config"
	"github.com/jeranaias/multichat-tui/internal/provider"
)

// =============================================================================
// PROVIDER SELECTION FLOW
// =============================================================================

// pickerStep is the stage of the provider selection flow.
type pickerStep int

const (
	stepKind    pickerStep = iota // choose gemini / openai
	stepKey                       // enter API key
	stepLoading                   // fetching the model list
	stepModel                     // choose a model
)

// pickerState holds the provider selection flow state.
type pickerState struct {
	step       pickerStep
	kinds      []provider.Kind
	kindIndex  int
	keyInput   textinput.Model
	models     []string
	modelIndex int
	errText    string
}

func newPickerState(cfg *config.Config) pickerState {
	ti := textinput.New()
	ti.Prompt = "API key: "
	ti.Placeholder = "paste your key"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	ti.CharLimit = 256
	if cfg != nil {
		ti.SetValue(cfg.Provider.APIKey)
	}

	p := pickerState{
		step:     stepKind,
		kinds:    []provider.Kind{provider.KindGemini, provider.KindOpenAI},
		keyInput: ti,
	}
	if cfg != nil && cfg.Provider.Kind == string(provider.KindOpenAI) {
		p.kindIndex = 1
	}
	return p
}

// selectedKind returns the highlighted provider kind.
func (p pickerState) selectedKind() provider.Kind {
	return p.kinds[p.kindIndex]
}

// updatePicker handles key input during provider selection.
func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.picker.step {
	case stepKind:
		switch msg.String() {
		case "up", "k":
			if m.picker.kindIndex > 0 {
				m.picker.kindIndex--
			}
		case "down", "j":
			if m.picker.kindIndex < len(m.picker.kinds)-1 {
				m.picker.kindIndex++
			}
		case "enter":
			m.picker.step = stepKey
			m.picker.errText = ""
			m.picker.keyInput.Focus()
			return m, textinput.Blink
		}
		return m, nil

	case stepKey:
		if msg.String() == "enter" {
			key := m.picker.keyInput.Value()
			if key == "" {
				m.picker.errText = "an API key is required"
				return m, nil
			}
			m.picker.step = stepLoading
			m.picker.errText = ""
			cfg := m.pickerProviderConfig()
			return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				models, err := provider.ListModels(ctx, cfg)
				return modelListMsg{models: models, err: err}
			})
		}
		var cmd tea.Cmd
		m.picker.keyInput, cmd = m.picker.keyInput.Update(msg)
		return m, cmd

	case stepLoading:
		return m, nil

	case stepModel:
		switch msg.String() {
		case "up", "k":
			if m.picker.modelIndex > 0 {
				m.picker.modelIndex--
			}
		case "down", "j":
			if m.picker.modelIndex < len(m.picker.models)-1 {
				m.picker.modelIndex++
			}
		case "esc":
			m.picker.step = stepKind
		case "enter":
			return m.finishPicker()
		}
		return m, nil
	}
	return m, nil
}

// handlePickerModels receives the fetched model list.
func (m Model) handlePickerModels(msg modelListMsg) (tea.Model, tea.Cmd) {
	if m.state != StateConfiguring || m.picker.step != stepLoading {
		return m, nil
	}
	if msg.err != nil {
		m.picker.step = stepKey
		m.picker.errText = fmt.Sprintf("could not list models: %v", msg.err)
		return m, nil
	}
	if len(msg.models) == 0 {
		m.picker.step = stepKey
		m.picker.errText = "provider returned no models"
		return m, nil
	}

	m.picker.models = msg.models
	m.picker.modelIndex = 0
	for i, name := range msg.models {
		if name == m.cfg.Provider.Model {
			m.picker.modelIndex = i
			break
		}
	}
	m.picker.step = stepModel
	return m, nil
}

// finishPicker builds the provider client from the selections and persists
// them to the config file.
func (m Model) finishPicker() (tea.Model, tea.Cmd) {
	cfg := m.pickerProviderConfig()
	cfg.Model = m.picker.models[m.picker.modelIndex]

	client, err := provider.New(cfg)
	if err != nil {
		m.picker.errText = err.Error()
		return m, nil
	}

	m.client = client
	m.cfg.Provider.Kind = string(cfg.Kind)
	m.cfg.Provider.Model = cfg.Model
	m.cfg.Provider.APIKey = cfg.APIKey
	m.state = StateReady
	m.input.Focus()
	m.refreshViewport()

	saved := m.cfg.Clone()
	return m, tea.Batch(textinput.Blink, func() tea.Msg {
		// Persist the selection; a failure is not fatal to the session.
		_ = config.Save(saved)
		return nil
	})
}

// pickerProviderConfig builds a provider config from the picker state.
func (m Model) pickerProviderConfig() provider.Config {
	return provider.Config{
		Kind:    m.picker.selectedKind(),
		Model:   m.cfg.Provider.Model,
		APIKey:  m.picker.keyInput.Value(),
		BaseURL: m.cfg.Provider.BaseURL,
	}
}
