package output

import (
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	treeEdge  = "├── "
	treeLast  = "└── "
	treeVert  = "│   "
	treeSpace = "    "

	// noteColumn is where notes start when the name leaves room.
	noteColumn = 32
)

// TreeEntry is one file shown in a tree: a slash-separated path relative to
// the root and an optional note rendered after it.
type TreeEntry struct {
	Path string
	Note string
}

type treeNode struct {
	name     string
	note     string
	isDir    bool
	children []*treeNode
}

// RenderTree renders entries below rootName, directories first and then
// alphabetically, with notes aligned at a fixed column.
func RenderTree(rootName string, entries []TreeEntry) string {
	if len(entries) == 0 {
		return ""
	}

	root := &treeNode{name: rootName, isDir: true}
	for _, e := range entries {
		parts := strings.Split(filepath.ToSlash(e.Path), "/")
		current := root
		for i, part := range parts {
			last := i == len(parts)-1

			var child *treeNode
			for _, c := range current.children {
				if c.name == part {
					child = c
					break
				}
			}
			if child == nil {
				child = &treeNode{name: part, isDir: !last}
				current.children = append(current.children, child)
			}
			if last {
				child.note = e.Note
			}
			current = child
		}
	}

	sortTree(root)

	var sb strings.Builder
	sb.WriteString(StyleSummary.Render(root.name + "/"))
	sb.WriteString("\n")
	for i, child := range root.children {
		renderNode(&sb, child, "", i == len(root.children)-1)
	}
	return sb.String()
}

func sortTree(node *treeNode) {
	sort.Slice(node.children, func(i, j int) bool {
		a, b := node.children[i], node.children[j]
		if a.isDir != b.isDir {
			return a.isDir
		}
		return a.name < b.name
	})
	for _, child := range node.children {
		sortTree(child)
	}
}

func renderNode(sb *strings.Builder, node *treeNode, prefix string, last bool) {
	connector := treeEdge
	if last {
		connector = treeLast
	}

	name := node.name
	if node.isDir {
		name = StyleNoun.Render(name + "/")
	}
	line := prefix + StyleDim.Render(connector) + name

	if node.note != "" {
		width := utf8.RuneCountInString(prefix + connector + node.name)
		padding := noteColumn - width
		if padding < 2 {
			padding = 2
		}
		line += strings.Repeat(" ", padding) + StyleDim.Render(node.note)
	}
	sb.WriteString(line)
	sb.WriteString("\n")

	childPrefix := prefix + treeVert
	if last {
		childPrefix = prefix + treeSpace
	}
	for i, child := range node.children {
		renderNode(sb, child, childPrefix, i == len(node.children)-1)
	}
}
