package dts

import (
	"strings"

	"github.com/adammathes/xbrlverify/pkg/qname"
	"github.com/adammathes/xbrlverify/pkg/report"
	"github.com/adammathes/xbrlverify/pkg/xmldom"
)

// Concept is a global element declaration.
type Concept struct {
	QName             qname.QName
	Element           xmldom.Element
	Document          *Document
	Type              qname.QName
	SubstitutionGroup qname.QName
	PeriodType        string
	Balance           string
	Abstract          bool
	Nillable          bool
}

// IsItem reports whether the concept is in the xbrli:item substitution
// group directly.
func (c *Concept) IsItem() bool {
	return c.SubstitutionGroup == qname.New(NSXBRLI, "item")
}

// IsTuple reports whether the concept is in the xbrli:tuple substitution
// group directly.
func (c *Concept) IsTuple() bool {
	return c.SubstitutionGroup == qname.New(NSXBRLI, "tuple")
}

// Declaration is a named global schema component other than an element.
type Declaration struct {
	QName    qname.QName
	Element  xmldom.Element
	Document *Document
}

// RoleType is a link:roleType or link:arcroleType definition.
type RoleType struct {
	URI           string
	ID            string
	Definition    string
	UsedOn        []qname.QName
	CyclesAllowed string
	Arcrole       bool
	Element       xmldom.Element
	Document      *Document
}

// declarations holds the global components of every loaded schema.
type declarations struct {
	concepts        map[qname.QName]*Concept
	types           map[qname.QName]*Declaration
	attributes      map[qname.QName]*Declaration
	attributeGroups map[qname.QName]*Declaration
	groups          map[qname.QName]*Declaration
	roleTypes       map[string][]*RoleType
	arcroleTypes    map[string][]*RoleType
}

func newDeclarations() *declarations {
	return &declarations{
		concepts:        make(map[qname.QName]*Concept),
		types:           make(map[qname.QName]*Declaration),
		attributes:      make(map[qname.QName]*Declaration),
		attributeGroups: make(map[qname.QName]*Declaration),
		groups:          make(map[qname.QName]*Declaration),
		roleTypes:       make(map[string][]*RoleType),
		arcroleTypes:    make(map[string][]*RoleType),
	}
}

// collect registers the global components of a schema document.
// Duplicate names within one namespace are reported.
func (d *declarations) collect(doc *Document, names *qname.Registry, r *report.Report) {
	if doc.Type != TypeSchema || doc.Root == nil {
		return
	}
	ns := doc.EffectiveNamespace()
	for _, n := range doc.Root.Nodes() {
		q := n.QName()
		if q.Namespace != NSXSD {
			continue
		}
		name := strings.TrimSpace(xmldom.AttrValue(n, "", "name"))
		switch q.Local {
		case "annotation":
			d.collectRoleTypes(doc, n)
			continue
		case "import", "include", "redefine":
			continue
		}
		if name == "" {
			continue
		}
		decl := names.Intern(prefixFor(doc, ns), ns, name)
		loc := doc.Location(n)

		switch q.Local {
		case "element":
			if _, dup := d.concepts[decl]; dup {
				reportDuplicate(r, loc, "element", decl)
				continue
			}
			d.concepts[decl] = newConcept(decl, n, doc)
		case "complexType", "simpleType":
			registerDecl(d.types, decl, n, doc, r, loc, "type")
		case "attribute":
			registerDecl(d.attributes, decl, n, doc, r, loc, "attribute")
		case "attributeGroup":
			registerDecl(d.attributeGroups, decl, n, doc, r, loc, "attribute group")
		case "group":
			registerDecl(d.groups, decl, n, doc, r, loc, "group")
		}
	}
}

func registerDecl(m map[qname.QName]*Declaration, decl qname.QName, n *xmldom.Node, doc *Document, r *report.Report, loc, kind string) {
	if _, dup := m[decl]; dup {
		reportDuplicate(r, loc, kind, decl)
		return
	}
	m[decl] = &Declaration{QName: decl, Element: n, Document: doc}
}

func reportDuplicate(r *report.Report, loc, kind string, decl qname.QName) {
	r.Error("xmlSchema:duplicateDeclaration", loc,
		"Global {kind} {name} is declared more than once", "kind", kind, "name", decl.String())
}

func newConcept(decl qname.QName, n *xmldom.Node, doc *Document) *Concept {
	c := &Concept{
		QName:      decl,
		Element:    n,
		Document:   doc,
		PeriodType: xmldom.AttrValue(n, NSXBRLI, "periodType"),
		Balance:    xmldom.AttrValue(n, NSXBRLI, "balance"),
		Abstract:   parseBool(xmldom.AttrValue(n, "", "abstract")),
		Nillable:   parseBool(xmldom.AttrValue(n, "", "nillable")),
	}
	if v := xmldom.AttrValue(n, "", "type"); v != "" {
		c.Type, _, _ = qname.Parse(v, n)
	}
	if v := xmldom.AttrValue(n, "", "substitutionGroup"); v != "" {
		c.SubstitutionGroup, _, _ = qname.Parse(v, n)
	}
	return c
}

func parseBool(v string) bool {
	v = strings.TrimSpace(v)
	return v == "true" || v == "1"
}

// prefixFor finds a prefix bound to ns on the schema root, for display.
func prefixFor(doc *Document, ns string) string {
	for prefix, bound := range doc.Root.Namespaces() {
		if bound == ns && prefix != "" {
			return prefix
		}
	}
	return ""
}

// collectRoleTypes registers roleType and arcroleType definitions found
// below n (schema annotations, appinfo).
func (d *declarations) collectRoleTypes(doc *Document, n *xmldom.Node) {
	xmldom.Walk(n, func(el *xmldom.Node) bool {
		q := el.QName()
		if q.Namespace != NSLink {
			return true
		}
		switch q.Local {
		case "roleType":
			rt := newRoleType(doc, el, "roleURI")
			d.roleTypes[rt.URI] = append(d.roleTypes[rt.URI], rt)
			return false
		case "arcroleType":
			rt := newRoleType(doc, el, "arcroleURI")
			rt.Arcrole = true
			rt.CyclesAllowed = xmldom.AttrValue(el, "", "cyclesAllowed")
			d.arcroleTypes[rt.URI] = append(d.arcroleTypes[rt.URI], rt)
			return false
		case "linkbase":
			return false
		}
		return true
	})
}

func newRoleType(doc *Document, el *xmldom.Node, uriAttr string) *RoleType {
	rt := &RoleType{
		URI:      strings.TrimSpace(xmldom.AttrValue(el, "", uriAttr)),
		ID:       xmldom.AttrValue(el, "", "id"),
		Element:  el,
		Document: doc,
	}
	for _, c := range el.Nodes() {
		if c.QName().Namespace != NSLink {
			continue
		}
		switch c.QName().Local {
		case "definition":
			rt.Definition = strings.TrimSpace(c.Text())
		case "usedOn":
			if q, _, err := qname.Parse(c.Text(), c); err == nil {
				rt.UsedOn = append(rt.UsedOn, q)
			}
		}
	}
	return rt
}
