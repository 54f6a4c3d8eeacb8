package dts

import (
	"strconv"
	"strings"

	"github.com/adammathes/xbrlverify/pkg/qname"
	"github.com/adammathes/xbrlverify/pkg/xmldom"
)

// DocumentType classifies a loaded document.
type DocumentType int

const (
	TypeUnknown DocumentType = iota
	TypeSchema
	TypeLinkbase
	TypeInstance
	TypeInlineXBRL
	TypeTestcasesIndex
	TypeTestcase
	TypeRSSFeed
	TypeUnknownXML
	TypeUnknownNonXML
)

var documentTypeNames = [...]string{
	TypeUnknown:        "unknown",
	TypeSchema:         "schema",
	TypeLinkbase:       "linkbase",
	TypeInstance:       "instance",
	TypeInlineXBRL:     "inline XBRL instance",
	TypeTestcasesIndex: "testcases index",
	TypeTestcase:       "testcase",
	TypeRSSFeed:        "RSS feed",
	TypeUnknownXML:     "unknown XML",
	TypeUnknownNonXML:  "unknown non-XML",
}

func (t DocumentType) String() string {
	if int(t) < len(documentTypeNames) {
		return documentTypeNames[t]
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

// ReferenceKind names the construct that referenced a document.
type ReferenceKind string

const (
	RefImport      ReferenceKind = "import"
	RefInclude     ReferenceKind = "include"
	RefRedefine    ReferenceKind = "redefine"
	RefSchemaRef   ReferenceKind = "schemaRef"
	RefLinkbaseRef ReferenceKind = "linkbaseRef"
	RefRoleRef     ReferenceKind = "roleRef"
	RefArcroleRef  ReferenceKind = "arcroleRef"
	RefHref        ReferenceKind = "href"
)

// referenceKindFor infers the reference kind and the expected document type
// from the local name of the referring element.
func referenceKindFor(referrer xmldom.Element) (ReferenceKind, DocumentType) {
	if referrer == nil {
		return RefHref, TypeUnknownXML
	}
	switch referrer.QName().Local {
	case "schemaRef":
		return RefSchemaRef, TypeSchema
	case "import":
		return RefImport, TypeSchema
	case "include":
		return RefInclude, TypeSchema
	case "redefine":
		return RefRedefine, TypeSchema
	case "linkbaseRef":
		return RefLinkbaseRef, TypeLinkbase
	case "roleRef":
		return RefRoleRef, TypeUnknownXML
	case "arcroleRef":
		return RefArcroleRef, TypeUnknownXML
	default:
		return RefHref, TypeUnknownXML
	}
}

// Reference is a discovery edge from one document to another.
type Reference struct {
	Kind    ReferenceKind
	Target  *Document
	Element xmldom.Element
}

type loadState int

const (
	statePending loadState = iota
	stateLoaded
	stateFailed
	stateSkipped
)

// Document is one unit of the DTS.
type Document struct {
	URI             string
	Type            DocumentType
	TargetNamespace string
	Root            *xmldom.Node

	// References are the outgoing discovery edges, one per target and kind.
	References []Reference
	// Namespaces holds every namespace declared or used in the document.
	Namespaces map[string]bool

	seq          int
	state        loadState
	discoveredBy *Document
	referrer     xmldom.Element
	includedInto *Document
	ids          map[string]xmldom.Element
	refSeen      map[refKey]bool
	synthetic    []*LinkPrototype
}

type refKey struct {
	kind   ReferenceKind
	target *Document
}

func newDocument(uri string, typ DocumentType, seq int) *Document {
	return &Document{URI: uri, Type: typ, seq: seq}
}

// Seq is the document's position in discovery order.
func (doc *Document) Seq() int { return doc.seq }

// Loaded reports whether the document content was fetched and parsed.
func (doc *Document) Loaded() bool { return doc.state == stateLoaded }

// Referrer returns the document and element that first referenced doc.
func (doc *Document) Referrer() (*Document, xmldom.Element) {
	return doc.discoveredBy, doc.referrer
}

func (doc *Document) addReference(kind ReferenceKind, target *Document, el xmldom.Element) {
	key := refKey{kind: kind, target: target}
	if doc.refSeen[key] {
		return
	}
	if doc.refSeen == nil {
		doc.refSeen = make(map[refKey]bool)
	}
	doc.refSeen[key] = true
	doc.References = append(doc.References, Reference{Kind: kind, Target: target, Element: el})
	if kind == RefInclude && target.includedInto == nil {
		target.includedInto = doc
	}
}

// EffectiveNamespace is the target namespace, or for a schema without one
// (a chameleon include) the namespace of the including schema.
func (doc *Document) EffectiveNamespace() string {
	seen := map[*Document]bool{}
	for cur := doc; cur != nil && !seen[cur]; cur = cur.includedInto {
		if cur.TargetNamespace != "" {
			return cur.TargetNamespace
		}
		seen[cur] = true
	}
	return ""
}

// index builds the ID index and namespace set and sniffs the document type
// from the root element.
func (doc *Document) index(root *xmldom.Node) {
	doc.Root = root
	doc.ids = make(map[string]xmldom.Element)
	doc.Namespaces = make(map[string]bool)

	xmldom.Walk(root, func(n *xmldom.Node) bool {
		if ns := n.QName().Namespace; ns != "" {
			doc.Namespaces[ns] = true
		}
		for _, ns := range n.Namespaces() {
			doc.Namespaces[ns] = true
		}
		for _, a := range n.Attrs() {
			if a.Name.Namespace != "" {
				doc.Namespaces[a.Name.Namespace] = true
			}
			isID := a.Name == qname.New("", "id") || a.Name == qname.New(qname.XMLNamespace, "id")
			if isID {
				if _, dup := doc.ids[a.Value]; !dup {
					doc.ids[a.Value] = n
				}
			}
		}
		return true
	})

	doc.Type = sniffType(root, doc.Namespaces)
	if doc.Type == TypeSchema {
		doc.TargetNamespace = xmldom.AttrValue(root, "", "targetNamespace")
	}
}

func sniffType(root *xmldom.Node, namespaces map[string]bool) DocumentType {
	q := root.QName()
	switch {
	case q == qname.New(NSXSD, "schema"):
		return TypeSchema
	case q == qname.New(NSLink, "linkbase"):
		return TypeLinkbase
	case q == qname.New(NSXBRLI, "xbrl"):
		return TypeInstance
	case q.Local == "html" && (namespaces[NSIX] || namespaces[NSIX11]):
		return TypeInlineXBRL
	case q.Local == "testcases" || q.Local == "registries":
		return TypeTestcasesIndex
	case q.Local == "testcase":
		return TypeTestcase
	case q.Local == "rss":
		return TypeRSSFeed
	default:
		return TypeUnknownXML
	}
}

// ElementByID looks up an element by its id attribute.
func (doc *Document) ElementByID(id string) xmldom.Element {
	if doc == nil || doc.ids == nil {
		return nil
	}
	return doc.ids[id]
}

// ResolveFragment resolves a fragment identifier: a shorthand ID or one
// or more element() scheme pointers, the first that resolves wins.
func (doc *Document) ResolveFragment(fragment string) xmldom.Element {
	if doc == nil || doc.Root == nil {
		return nil
	}
	if fragment == "" {
		return doc.Root
	}
	if !strings.HasPrefix(fragment, "element(") {
		return doc.ElementByID(fragment)
	}
	for _, part := range strings.Split(fragment, ")") {
		body, ok := strings.CutPrefix(strings.TrimSpace(part), "element(")
		if !ok {
			continue
		}
		if el := doc.resolveChildSequence(body); el != nil {
			return el
		}
	}
	return nil
}

func (doc *Document) resolveChildSequence(body string) xmldom.Element {
	steps := strings.Split(body, "/")
	var cur xmldom.Element
	if steps[0] != "" {
		cur = doc.ElementByID(steps[0])
		if cur == nil {
			return nil
		}
		steps = steps[1:]
	} else {
		steps = steps[1:]
		if len(steps) == 0 || steps[0] != "1" {
			return nil
		}
		cur = doc.Root
		steps = steps[1:]
	}
	for _, step := range steps {
		n, err := strconv.Atoi(step)
		if err != nil || n < 1 {
			return nil
		}
		kids := cur.Children()
		if n > len(kids) {
			return nil
		}
		cur = kids[n-1]
	}
	return cur
}

// Location renders a message location for an element of doc.
func (doc *Document) Location(el xmldom.Element) string {
	if doc == nil {
		return ""
	}
	if el != nil && el.Line() > 0 {
		return doc.URI + ":" + strconv.Itoa(el.Line())
	}
	return doc.URI
}

// Clear drops every field of the document, including the parsed tree and
// synthesized links, so reference cycles are broken eagerly.
func (doc *Document) Clear() {
	for _, link := range doc.synthetic {
		link.Clear()
	}
	doc.synthetic = nil
	doc.Root.Clear()
	doc.Root = nil
	doc.References = nil
	doc.Namespaces = nil
	doc.ids = nil
	doc.refSeen = nil
	doc.discoveredBy = nil
	doc.referrer = nil
	doc.includedInto = nil
}
