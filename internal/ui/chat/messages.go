// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/multichat-tui/internal/attachment"
	"github.com/jeranaias/multichat-tui/internal/config"
)

// =============================================================================
// TEA MESSAGES
// =============================================================================

// responseMsg is the completion of a provider request.
type responseMsg struct {
	content string
	err     error
}

// attachResultMsg is the completion of a file ingestion batch.
type attachResultMsg struct {
	results []attachment.Result
}

// modelListMsg is the completion of a provider model listing.
type modelListMsg struct {
	models []string
	err    error
}

// statusExpiredMsg clears a transient status line.
type statusExpiredMsg struct {
	seq int
}

// ConfigReloadedMsg is delivered by the host when the config file changes
// on disk.
type ConfigReloadedMsg struct {
	Cfg *config.Config
}
