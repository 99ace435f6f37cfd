// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "regexp"

// PERFORMANCE: Pre-compiled regex (compiled once at startup)
var fileRefRegex = regexp.MustCompile(`@([\w./~-]+)`)

// ExtractFileRefs extracts @path file references from message text. The
// referenced paths ride along in the send payload so the backend can pull
// the files into context. Deduplicated, in order of first appearance.
func ExtractFileRefs(text string) []string {
	refs := []string{}
	seen := make(map[string]bool)
	for _, match := range fileRefRegex.FindAllStringSubmatch(text, -1) {
		path := match[1]
		if !seen[path] {
			seen[path] = true
			refs = append(refs, path)
		}
	}
	return refs
}
