package dts

import (
	"math/big"

	"github.com/adammathes/xbrlverify/pkg/qname"
	"github.com/adammathes/xbrlverify/pkg/xmldom"
)

// XLink attribute names.
var (
	attrXLinkType    = qname.New(NSXLink, "type")
	attrXLinkHref    = qname.New(NSXLink, "href")
	attrXLinkRole    = qname.New(NSXLink, "role")
	attrXLinkArcrole = qname.New(NSXLink, "arcrole")
	attrXLinkLabel   = qname.New(NSXLink, "label")
	attrXLinkFrom    = qname.New(NSXLink, "from")
	attrXLinkTo      = qname.New(NSXLink, "to")
	attrOrder        = qname.New("", "order")
	attrWeight       = qname.New("", "weight")
	attrPriority     = qname.New("", "priority")
	attrUse          = qname.New("", "use")
)

// attrList is a small ordered attribute map.
type attrList []xmldom.Attr

func (l attrList) get(name qname.QName) (string, bool) {
	for _, a := range l {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (l *attrList) set(name qname.QName, value string) {
	for i := range *l {
		if (*l)[i].Name == name {
			(*l)[i].Value = value
			return
		}
	}
	*l = append(*l, xmldom.Attr{Name: name, Value: value})
}

// prototype is the attribute-bag element shared by the synthetic XLink
// constructs.
type prototype struct {
	doc    *Document
	parent xmldom.Element
	name   qname.QName
	attrs  attrList
}

func (p *prototype) QName() qname.QName { return p.name }

func (p *prototype) Attr(name qname.QName) (string, bool) { return p.attrs.get(name) }

func (p *prototype) Parent() xmldom.Element { return p.parent }

func (p *prototype) Children() []xmldom.Element { return nil }

func (p *prototype) Text() string { return "" }

func (p *prototype) Line() int { return 0 }

func (p *prototype) LookupNamespace(prefix string) (string, bool) {
	if p.parent != nil {
		return p.parent.LookupNamespace(prefix)
	}
	if p.doc != nil && p.doc.Root != nil {
		return p.doc.Root.LookupNamespace(prefix)
	}
	return "", false
}

// Document returns the owning document.
func (p *prototype) Document() *Document { return p.doc }

// Clear drops all fields.
func (p *prototype) Clear() {
	p.doc = nil
	p.parent = nil
	p.attrs = nil
}

var (
	_ xmldom.Element = (*LinkPrototype)(nil)
	_ xmldom.Element = (*LocPrototype)(nil)
	_ xmldom.Element = (*ArcPrototype)(nil)
)

// LinkPrototype stands in for an extended link element.
type LinkPrototype struct {
	prototype
	children  []xmldom.Element
	resources map[string][]xmldom.Element
}

// NewLinkPrototype returns an empty extended link named qname with the
// given link role.
func NewLinkPrototype(doc *Document, parent xmldom.Element, name qname.QName, role string) *LinkPrototype {
	l := &LinkPrototype{prototype: prototype{doc: doc, parent: parent, name: name}}
	l.attrs.set(attrXLinkType, "extended")
	if role != "" {
		l.attrs.set(attrXLinkRole, role)
	}
	return l
}

// Children implements xmldom.Element.
func (l *LinkPrototype) Children() []xmldom.Element {
	out := make([]xmldom.Element, len(l.children))
	copy(out, l.children)
	return out
}

// Append adds a child element. Resources are indexed by label.
func (l *LinkPrototype) Append(child xmldom.Element) {
	l.children = append(l.children, child)
	if xmldom.AttrValue(child, NSXLink, "type") != "resource" {
		return
	}
	label := xmldom.AttrValue(child, NSXLink, "label")
	if l.resources == nil {
		l.resources = make(map[string][]xmldom.Element)
	}
	l.resources[label] = append(l.resources[label], child)
}

// LabeledResources returns the resources sharing label.
func (l *LinkPrototype) LabeledResources(label string) []xmldom.Element {
	return l.resources[label]
}

// Clear drops the link and every prototype child.
func (l *LinkPrototype) Clear() {
	for _, c := range l.children {
		switch p := c.(type) {
		case *LocPrototype:
			p.Clear()
		case *ArcPrototype:
			p.Clear()
		case *LinkPrototype:
			p.Clear()
		}
	}
	l.children = nil
	l.resources = nil
	l.prototype.Clear()
}

// LocPrototype stands in for a locator.
type LocPrototype struct {
	prototype
	target any
}

// NewLocPrototype returns a locator labelled label. target is either a
// string ID in doc or an xmldom.Element returned as is by Dereference.
func NewLocPrototype(doc *Document, parent xmldom.Element, label string, target any, role string) *LocPrototype {
	l := &LocPrototype{prototype: prototype{doc: doc, parent: parent, name: qname.New(NSLink, "loc")}, target: target}
	l.attrs.set(attrXLinkType, "locator")
	l.attrs.set(attrXLinkLabel, label)
	if id, ok := target.(string); ok {
		l.attrs.set(attrXLinkHref, "#"+id)
	}
	if role != "" {
		l.attrs.set(attrXLinkRole, role)
	}
	return l
}

// Dereference returns the located element, or nil.
func (l *LocPrototype) Dereference() xmldom.Element {
	switch t := l.target.(type) {
	case string:
		return l.doc.ElementByID(t)
	case xmldom.Element:
		return t
	default:
		return nil
	}
}

// Clear drops all fields.
func (l *LocPrototype) Clear() {
	l.target = nil
	l.prototype.Clear()
}

// ArcPrototype stands in for an arc. No schema element backs it, so it is
// always pre-validated.
type ArcPrototype struct {
	prototype
	linkrole string
	order    *big.Rat
}

// NewArcPrototype returns an arc from fromLabel to toLabel. An empty order
// means 1. An invalid order is kept as written, Order returns nil and the
// resolver reports xbrl:orderValue.
func NewArcPrototype(doc *Document, parent xmldom.Element, name qname.QName, fromLabel, toLabel, linkrole, arcrole, order string) *ArcPrototype {
	a := &ArcPrototype{prototype: prototype{doc: doc, parent: parent, name: name}, linkrole: linkrole}
	a.attrs.set(attrXLinkType, "arc")
	a.attrs.set(attrXLinkFrom, fromLabel)
	a.attrs.set(attrXLinkTo, toLabel)
	a.attrs.set(attrXLinkArcrole, arcrole)
	if order == "" {
		order = "1"
	}
	a.attrs.set(attrOrder, order)
	if r, err := parseDecimal(order); err == nil {
		a.order = r
	}
	return a
}

// Order returns the decimal order, or nil when it is not a decimal.
func (a *ArcPrototype) Order() *big.Rat { return a.order }

// Linkrole returns the role of the link the arc was synthesized for.
func (a *ArcPrototype) Linkrole() string { return a.linkrole }

// PreValidated reports that the arc needs no schema validation.
func (a *ArcPrototype) PreValidated() bool { return true }

// Clear drops all fields.
func (a *ArcPrototype) Clear() {
	a.order = nil
	a.prototype.Clear()
}
