// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cortex/internal/ui/styles"
)

// previewPageSize is how many lines a scroll step moves.
const previewPageSize = 5

// preview holds a highlighted file ready for display.
type preview struct {
	Path   string
	lines  []string
	offset int
	width  int
}

// newPreview highlights content for display. Highlighting failures degrade
// to plain text, never to an error.
func newPreview(path, content string, width int) *preview {
	return &preview{
		Path:  path,
		lines: strings.Split(highlightFile(path, content), "\n"),
		width: width,
	}
}

func (p *preview) ScrollUp() {
	p.offset -= previewPageSize
	if p.offset < 0 {
		p.offset = 0
	}
}

func (p *preview) ScrollDown() {
	p.offset += previewPageSize
	if max := len(p.lines) - 1; p.offset > max {
		p.offset = max
	}
}

// Render renders the preview overlay at the given height.
func (p *preview) Render(height int) string {
	body := height - 3
	if body < 1 {
		body = 1
	}
	end := p.offset + body
	if end > len(p.lines) {
		end = len(p.lines)
	}

	title := lipgloss.NewStyle().
		Foreground(styles.Cyan).
		Bold(true).
		Render(filepath.Base(p.Path))
	hint := styles.Hint.Render("  Esc to close")

	return styles.FocusedPanelBorder.
		Width(p.width - 2).
		Padding(0, 1).
		Render(title + hint + "\n\n" + strings.Join(p.lines[p.offset:end], "\n"))
}

// highlightFile applies syntax highlighting based on the file name.
// USABILITY: Syntax highlighting for better code readability
func highlightFile(path, content string) string {
	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		lexer = lexers.Analyse(content)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		return content
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return content
	}
	return buf.String()
}
