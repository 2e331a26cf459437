package view

import (
	"fmt"
	"html"
	"strings"
)

// Wrapper is a rendered component.
type Wrapper struct {
	Name  string
	props Props
	root  *Node
}

// Shallow renders one level: the component's own output, with any
// component nodes in it left unexpanded.
func Shallow(name string, component Component, props Props) *Wrapper {
	return &Wrapper{
		Name:  name,
		props: props,
		root:  component(props),
	}
}

// Mount renders the component and every component below it.
func Mount(name string, component Component, props Props) *Wrapper {
	return &Wrapper{
		Name:  name,
		props: props,
		root:  expand(component(props)),
	}
}

func expand(n *Node) *Node {
	if n == nil {
		return nil
	}
	expanded := *n
	if n.IsComponent() {
		expanded.Rendered = expand(n.Component(n.Props))
		return &expanded
	}
	expanded.Children = make([]*Node, len(n.Children))
	for idx, child := range n.Children {
		expanded.Children[idx] = expand(child)
	}
	return &expanded
}

// Root is the node the component rendered.
func (w *Wrapper) Root() *Node {
	return w.root
}

// InstanceProps are the props the component was rendered with.
func (w *Wrapper) InstanceProps() Props {
	return w.props
}

// Props are the props of the rendered root element. Its text is the
// only one, as "children".
func (w *Wrapper) Props() Props {
	props := Props{}
	if w.root == nil {
		return props
	}
	if w.root.Text != "" {
		props["children"] = w.root.Text
	}
	return props
}

// Find returns the component nodes with the given name, depth first.
// Only mounted trees contain expanded components to search through.
func (w *Wrapper) Find(name string) []*Node {
	var found []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.IsComponent() {
			if n.Name == name {
				found = append(found, n)
			}
			walk(n.Rendered)
			return
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(w.root)
	return found
}

// Get returns the i'th child of the root element, or nil.
func (w *Wrapper) Get(i int) *Node {
	if w.root == nil || i < 0 || i >= len(w.root.Children) {
		return nil
	}
	return w.root.Children[i]
}

func (w *Wrapper) HTML() string {
	return HTML(w.root)
}

func (w *Wrapper) Text() string {
	return Text(w.root)
}

func (w *Wrapper) Debug() string {
	buf := &strings.Builder{}
	writeDebug(buf, w.root, 0)
	return strings.TrimSuffix(buf.String(), "\n")
}

// rendered returns what a component node renders to, expanding it if
// Mount didn't already.
func rendered(n *Node) *Node {
	if n.Rendered != nil {
		return n.Rendered
	}
	return n.Component(n.Props)
}

// HTML renders the node as markup, expanding components.
func HTML(n *Node) string {
	buf := &strings.Builder{}
	writeHTML(buf, n)
	return buf.String()
}

func writeHTML(buf *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	if n.IsComponent() {
		writeHTML(buf, rendered(n))
		return
	}
	buf.WriteString("<" + n.Tag + ">")
	buf.WriteString(html.EscapeString(n.Text))
	for _, child := range n.Children {
		writeHTML(buf, child)
	}
	buf.WriteString("</" + n.Tag + ">")
}

// Text returns the text content of the node, expanding components.
func Text(n *Node) string {
	if n == nil {
		return ""
	}
	if n.IsComponent() {
		return Text(rendered(n))
	}
	text := n.Text
	for _, child := range n.Children {
		text += Text(child)
	}
	return text
}

func writeDebug(buf *strings.Builder, n *Node, depth int) {
	if n == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	if n.IsComponent() {
		buf.WriteString(indent + "<" + n.Name + formatProps(n.Props))
		if n.Rendered == nil {
			buf.WriteString(" />\n")
			return
		}
		buf.WriteString(">\n")
		writeDebug(buf, n.Rendered, depth+1)
		buf.WriteString(indent + "</" + n.Name + ">\n")
		return
	}
	buf.WriteString(indent + "<" + n.Tag)
	if n.Text == "" && len(n.Children) == 0 {
		buf.WriteString(" />\n")
		return
	}
	buf.WriteString(">\n")
	if n.Text != "" {
		buf.WriteString(indent + "  " + n.Text + "\n")
	}
	for _, child := range n.Children {
		writeDebug(buf, child, depth+1)
	}
	buf.WriteString(indent + "</" + n.Tag + ">\n")
}

func formatProps(props Props) string {
	buf := &strings.Builder{}
	for _, k := range props.Keys() {
		switch v := props[k].(type) {
		case string:
			fmt.Fprintf(buf, " %s=%q", k, v)
		case nil:
			fmt.Fprintf(buf, " %s={undefined}", k)
		default:
			fmt.Fprintf(buf, " %s={%s}", k, display(v))
		}
	}
	return buf.String()
}

// Equal compares two trees by their markup structure. Component nodes
// compare by name and props.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.IsComponent() != b.IsComponent() {
		return false
	}
	if a.IsComponent() {
		return a.Name == b.Name && formatProps(a.Props) == formatProps(b.Props)
	}
	if a.Tag != b.Tag || a.Text != b.Text || len(a.Children) != len(b.Children) {
		return false
	}
	for idx := range a.Children {
		if !Equal(a.Children[idx], b.Children[idx]) {
			return false
		}
	}
	return true
}
