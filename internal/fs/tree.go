// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fs

import (
	"github.com/google/uuid"
)

// DefaultMaxDepth bounds recursive workspace scans. Deep trees are truncated
// rather than scanned forever.
const DefaultMaxDepth = 8

// skipNames are directory names excluded from workspace scans. They are
// large, machine-managed, and never what a note-taking sidebar should show.
var skipNames = map[string]bool{
	".git":         true,
	"node_modules": true,
	".cache":       true,
	"__pycache__":  true,
}

// Node is one node of the sidebar file tree.
type Node struct {
	// ID is a stable identity for UI state (expansion, selection) that
	// survives re-renders within one scan.
	ID       string
	Entry    Entry
	Children []*Node
	Expanded bool
}

// ScanTree builds the workspace tree under root. Subdirectories that fail to
// list are shown as empty rather than failing the scan: a permission error
// deep in the tree must not blank the whole sidebar. Only the root listing
// error is fatal.
func ScanTree(bridge Bridge, root string) ([]*Node, error) {
	entries, err := bridge.ListDirectory(root)
	if err != nil {
		return nil, err
	}
	return scanNodes(bridge, entries, 1), nil
}

func scanNodes(bridge Bridge, entries []Entry, depth int) []*Node {
	nodes := make([]*Node, 0, len(entries))
	for _, entry := range entries {
		if skipNames[entry.Name] {
			continue
		}
		node := &Node{
			ID:    uuid.NewString(),
			Entry: entry,
		}
		if entry.IsDirectory && depth < DefaultMaxDepth {
			if children, err := bridge.ListDirectory(entry.Path); err == nil {
				node.Children = scanNodes(bridge, children, depth+1)
			}
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// Flatten walks the tree in display order, visiting only children of
// expanded directories. Used by the sidebar to map cursor positions onto
// nodes.
func Flatten(nodes []*Node) []*Node {
	var out []*Node
	var walk func(ns []*Node)
	walk = func(ns []*Node) {
		for _, n := range ns {
			out = append(out, n)
			if n.Expanded {
				walk(n.Children)
			}
		}
	}
	walk(nodes)
	return out
}
