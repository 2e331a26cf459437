// Package view describes rendered output as a tree of nodes and provides
// the presentational units bound to the store and to queries.
//
// A Component is a pure function from Props to a Node. Nodes are either
// host elements (a tag with text or children) or component nodes, which
// are expanded by the renderer. Equal props always produce equal trees.
package view

import (
	"fmt"
	"sort"
)

// Props is the input to a component.
type Props map[string]interface{}

// Component renders props into a node tree.
type Component func(props Props) *Node

// Node is either a host element (Tag set) or an unexpanded component
// (Component set).
type Node struct {
	Tag      string
	Text     string
	Children []*Node

	Name      string
	Component Component
	Props     Props
	// Rendered is the expanded output of a component node; only Mount
	// fills it in.
	Rendered *Node
}

// El creates a host element with children.
func El(tag string, children ...*Node) *Node {
	return &Node{Tag: tag, Children: children}
}

// TextEl creates a host element containing only text.
func TextEl(tag string, text string) *Node {
	return &Node{Tag: tag, Text: text}
}

// C creates a component node. It is expanded when rendered with Mount,
// and left as-is by Shallow.
func C(name string, component Component, props Props) *Node {
	return &Node{Name: name, Component: component, Props: props}
}

func (n *Node) IsComponent() bool {
	return n.Component != nil
}

// Merge combines props left to right; later sources win on collisions.
// None of the inputs are modified.
func Merge(sources ...Props) Props {
	size := 0
	for _, source := range sources {
		size += len(source)
	}
	merged := make(Props, size)
	for _, source := range sources {
		for k, v := range source {
			merged[k] = v
		}
	}
	return merged
}

// Keys returns the prop names in sorted order.
func (p Props) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// display turns a prop value into text. Absent values render as "".
func display(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case *bool:
		if v == nil {
			return ""
		}
		return fmt.Sprint(*v)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(value)
}
