package xmldom

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/adammathes/xbrlverify/pkg/qname"
)

// Node is a parsed XML element.
type Node struct {
	name     qname.QName
	attrs    []Attr
	ns       map[string]string
	parent   *Node
	children []*Node
	text     strings.Builder
	line     int
}

var _ Element = (*Node)(nil)

// Parse reads an XML document and returns its root element. Encodings
// other than UTF-8 are decoded from the XML declaration label.
func Parse(r io.Reader) (*Node, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var root, cur *Node
	for {
		// An element's line is where its start tag opens; the decoder
		// reports positions after the token just read.
		start, _ := decoder.InputPos()
		tok, err := decoder.Token()
		line, _ := decoder.InputPos()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{
				name:   qname.New(t.Name.Space, t.Name.Local),
				parent: cur,
				line:   start,
			}
			for _, a := range t.Attr {
				switch {
				case a.Name.Space == "xmlns":
					n.declare(a.Name.Local, a.Value)
				case a.Name.Space == "" && a.Name.Local == "xmlns":
					n.declare("", a.Value)
				default:
					n.attrs = append(n.attrs, Attr{Name: qname.New(a.Name.Space, a.Name.Local), Value: a.Value})
				}
			}
			if cur == nil {
				if root != nil {
					return nil, fmt.Errorf("line %d: multiple root elements", line)
				}
				root = n
			} else {
				cur.children = append(cur.children, n)
			}
			cur = n
		case xml.EndElement:
			if cur != nil {
				cur = cur.parent
			}
		case xml.CharData:
			if cur != nil {
				cur.text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	return root, nil
}

func (n *Node) declare(prefix, namespace string) {
	if n.ns == nil {
		n.ns = make(map[string]string)
	}
	n.ns[prefix] = namespace
}

// QName implements Element.
func (n *Node) QName() qname.QName { return n.name }

// Attr implements Element.
func (n *Node) Attr(name qname.QName) (string, bool) {
	for _, a := range n.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Attrs returns the attributes in document order.
func (n *Node) Attrs() []Attr { return n.attrs }

// Parent implements Element.
func (n *Node) Parent() Element {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// Children implements Element.
func (n *Node) Children() []Element {
	out := make([]Element, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

// Nodes returns child nodes without conversion to Element.
func (n *Node) Nodes() []*Node { return n.children }

// Text implements Element.
func (n *Node) Text() string { return n.text.String() }

// Line implements Element.
func (n *Node) Line() int { return n.line }

// LookupNamespace implements Element by walking the in-scope declarations.
func (n *Node) LookupNamespace(prefix string) (string, bool) {
	for cur := n; cur != nil; cur = cur.parent {
		if ns, ok := cur.ns[prefix]; ok {
			return ns, true
		}
	}
	return "", false
}

// Namespaces returns the namespaces declared directly on n.
func (n *Node) Namespaces() map[string]string { return n.ns }

// Walk visits n and its descendants in document order. Returning false
// from fn skips the node's subtree.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.children {
		Walk(c, fn)
	}
}

// Clear severs parent and child links of the whole subtree.
func (n *Node) Clear() {
	if n == nil {
		return
	}
	for _, c := range n.children {
		c.Clear()
	}
	n.children = nil
	n.parent = nil
	n.attrs = nil
	n.ns = nil
	n.text.Reset()
}
