// Package xmldom is the read-only XML access layer used by the DTS engine.
//
// Consumers depend on the Element capability set only. Parsed documents are
// backed by *Node; synthesized XLink constructs elsewhere implement the
// same interface without a parsed document behind them.
package xmldom

import "github.com/adammathes/xbrlverify/pkg/qname"

// Element is the capability set shared by parsed nodes and synthetic
// stand-ins.
type Element interface {
	// QName identifies the element type.
	QName() qname.QName
	// Attr looks up an attribute by qualified name.
	Attr(name qname.QName) (string, bool)
	// Parent returns the enclosing element, or nil at the root.
	Parent() Element
	// Children returns child elements in document order.
	Children() []Element
	// Text returns the concatenated character data directly inside the element.
	Text() string
	// LookupNamespace resolves a prefix bound in scope at this element.
	LookupNamespace(prefix string) (string, bool)
	// Line returns the source line, or 0 when unknown.
	Line() int
}

// AttrValue returns the attribute {namespace}local, or "" when absent.
func AttrValue(e Element, namespace, local string) string {
	if e == nil {
		return ""
	}
	v, _ := e.Attr(qname.New(namespace, local))
	return v
}

// Is reports whether e has the given namespace and local name.
func Is(e Element, namespace, local string) bool {
	if e == nil {
		return false
	}
	q := e.QName()
	return q.Namespace == namespace && q.Local == local
}

// Attr is a single attribute.
type Attr struct {
	Name  qname.QName
	Value string
}
