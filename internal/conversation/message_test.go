// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// =============================================================================
// CODE BLOCK EXTRACTION TESTS
// =============================================================================

func TestExtractCodeBlocks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []CodeBlock
	}{
		{
			name: "no blocks",
			text: "just prose, nothing fenced",
			want: nil,
		},
		{
			name: "single block with language",
			text: "Here you go:\n```go\nfmt.Println(\"hi\")\n```\nDone.",
			want: []CodeBlock{{Language: "go", Code: `fmt.Println("hi")`}},
		},
		{
			name: "language defaults to text",
			text: "```\nplain contents\n```",
			want: []CodeBlock{{Language: "text", Code: "plain contents"}},
		},
		{
			name: "multiple blocks keep order",
			text: "```python\nprint(1)\n```\nand\n```js\nconsole.log(2)\n```",
			want: []CodeBlock{
				{Language: "python", Code: "print(1)"},
				{Language: "js", Code: "console.log(2)"},
			},
		},
		{
			name: "body whitespace trimmed",
			text: "```go\n\n\tx := 1\n\n```",
			want: []CodeBlock{{Language: "go", Code: "x := 1"}},
		},
		{
			name: "unclosed fence still yields block",
			text: "```sh\necho hi",
			want: []CodeBlock{{Language: "sh", Code: "echo hi"}},
		},
		{
			name: "empty unclosed fence yields nothing",
			text: "```go",
			want: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractCodeBlocks(tc.text)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNewAssistantMessage_ExtractsBlocks(t *testing.T) {
	msg := NewAssistantMessage("```go\nx := 1\n```")
	require.Equal(t, RoleAssistant, msg.Role)
	require.Len(t, msg.CodeBlocks, 1)
	require.NotEmpty(t, msg.ID)
	require.False(t, msg.Timestamp.IsZero(), "expected generated timestamp")
}

func TestNewUserMessage_NoBlockExtraction(t *testing.T) {
	msg := NewUserMessage("```go\nuser pasted code\n```", nil)
	require.Nil(t, msg.CodeBlocks, "user messages should not have extracted code blocks")
}
