package dts

import (
	"maps"
	"slices"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/adammathes/xbrlverify/pkg/qname"
	"github.com/adammathes/xbrlverify/pkg/report"
	"github.com/adammathes/xbrlverify/pkg/xmldom"
)

// declKind is the kind of component a QName-valued schema attribute must
// name.
type declKind int

const (
	kindType declKind = iota
	kindElement
	kindAttribute
	kindAttributeGroup
	kindGroup
)

var declKindNames = [...]string{
	kindType:           "type",
	kindElement:        "element",
	kindAttribute:      "attribute",
	kindAttributeGroup: "attribute group",
	kindGroup:          "group",
}

func (k declKind) String() string { return declKindNames[k] }

type qnameRef struct {
	attr string
	kind declKind
	list bool
}

// qnameRefs lists the QName-valued attributes checked on each XML Schema
// element.
var qnameRefs = map[string][]qnameRef{
	"element": {
		{attr: "type", kind: kindType},
		{attr: "ref", kind: kindElement},
		{attr: "substitutionGroup", kind: kindElement},
	},
	"attribute": {
		{attr: "type", kind: kindType},
		{attr: "ref", kind: kindAttribute},
	},
	"restriction":    {{attr: "base", kind: kindType}},
	"extension":      {{attr: "base", kind: kindType}},
	"group":          {{attr: "ref", kind: kindGroup}},
	"attributeGroup": {{attr: "ref", kind: kindAttributeGroup}},
	"list":           {{attr: "itemType", kind: kindType}},
	"union":          {{attr: "memberTypes", kind: kindType, list: true}},
}

func (d *declarations) has(kind declKind, q qname.QName) bool {
	var ok bool
	switch kind {
	case kindType:
		_, ok = d.types[q]
	case kindElement:
		_, ok = d.concepts[q]
	case kindAttribute:
		_, ok = d.attributes[q]
	case kindAttributeGroup:
		_, ok = d.attributeGroups[q]
	case kindGroup:
		_, ok = d.groups[q]
	}
	return ok
}

func (d *declarations) names(kind declKind) []qname.QName {
	switch kind {
	case kindType:
		return qname.SortedMapKeys(d.types)
	case kindElement:
		return qname.SortedMapKeys(d.concepts)
	case kindAttribute:
		return qname.SortedMapKeys(d.attributes)
	case kindAttributeGroup:
		return qname.SortedMapKeys(d.attributeGroups)
	case kindGroup:
		return qname.SortedMapKeys(d.groups)
	}
	return nil
}

// semanticChecker verifies the QName references of loaded schemas against
// the collected declarations.
type semanticChecker struct {
	decls  *declarations
	report *report.Report
	// loaded holds the namespaces some loaded schema declares.
	loaded map[string]bool
}

func newSemanticChecker(decls *declarations, r *report.Report, docs []*Document) *semanticChecker {
	c := &semanticChecker{decls: decls, report: r, loaded: make(map[string]bool)}
	for _, doc := range docs {
		if doc.Type == TypeSchema && doc.Loaded() {
			c.loaded[doc.EffectiveNamespace()] = true
		}
	}
	return c
}

// checkDocument checks every QName-valued attribute of the schema's XML
// Schema elements and returns the number of errors logged.
func (c *semanticChecker) checkDocument(doc *Document) int {
	if doc.Type != TypeSchema || doc.Root == nil {
		return 0
	}
	reachable := reachableNamespaces(doc)
	errs := 0
	xmldom.Walk(doc.Root, func(n *xmldom.Node) bool {
		q := n.QName()
		if q.Namespace != NSXSD {
			return false
		}
		if q.Local == "annotation" {
			return false
		}
		for _, ref := range qnameRefs[q.Local] {
			v, ok := n.Attr(qname.New("", ref.attr))
			if !ok {
				continue
			}
			values := []string{strings.TrimSpace(v)}
			if ref.list {
				values = strings.Fields(v)
			}
			for _, value := range values {
				if !c.checkValue(doc, n, ref, value, reachable) {
					errs++
				}
			}
		}
		return true
	})
	return errs
}

// checkValue resolves one QName reference. It logs exactly one
// xmlSchema:valueError when the reference fails.
func (c *semanticChecker) checkValue(doc *Document, n *xmldom.Node, ref qnameRef, value string, reachable map[string]bool) bool {
	fail := func(reason string, args ...any) bool {
		args = append([]any{"attribute", ref.attr, "value", value, "element", n.QName().Local}, args...)
		c.report.Error("xmlSchema:valueError", doc.Location(n),
			"Attribute {attribute}=\"{value}\" on xs:{element}: "+reason, args...)
		return false
	}

	q, _, err := qname.Parse(value, n)
	if err != nil {
		return fail("not a valid QName in scope")
	}

	switch q.Namespace {
	case NSXSD:
		if ref.kind == kindType && builtinTypes[q.Local] {
			return true
		}
		if hint := suggest(q.Local, slices.Sorted(maps.Keys(builtinTypes))); hint != "" && ref.kind == kindType {
			return fail("not a built-in XML Schema type; did you mean " + hint + "?")
		}
		return fail("the XML Schema namespace declares no {kind} named {name}",
			"kind", ref.kind.String(), "name", q.Local)
	case qname.XMLNamespace:
		if ref.kind == kindAttribute && builtinXMLAttributes[q.Local] {
			return true
		}
	}

	if !reachable[q.Namespace] {
		return fail("namespace {namespace} is neither the target namespace nor imported",
			"namespace", q.Namespace)
	}
	if !c.loaded[q.Namespace] {
		// no schema for the namespace was loaded; the load failure is
		// reported on its own
		return true
	}
	if c.decls.has(ref.kind, q) {
		return true
	}

	var candidates []string
	for _, name := range c.decls.names(ref.kind) {
		if name.Namespace == q.Namespace {
			candidates = append(candidates, name.Local)
		}
	}
	reason := "no {kind} named {name} is declared in namespace {namespace}"
	if hint := suggest(q.Local, candidates); hint != "" {
		reason += "; did you mean " + hint + "?"
	}
	return fail(reason, "kind", ref.kind.String(), "name", q.Local, "namespace", q.Namespace)
}

// suggest returns the candidate closest to name by edit distance, or ""
// when none is close enough.
func suggest(name string, candidates []string) string {
	best, bestDist := "", max(2, len(name)/3)+1
	for _, cand := range candidates {
		dist := levenshtein.DistanceForStrings([]rune(name), []rune(cand), levenshtein.DefaultOptions)
		if dist < bestDist {
			best, bestDist = cand, dist
		}
	}
	return best
}

// reachableNamespaces returns the namespaces a schema may reference: its
// own, the XML Schema namespace, and every namespace imported by a schema
// in its include closure.
func reachableNamespaces(doc *Document) map[string]bool {
	out := map[string]bool{NSXSD: true}
	for _, member := range includeClosure(doc) {
		out[member.EffectiveNamespace()] = true
		if member.Root == nil {
			continue
		}
		for _, n := range member.Root.Nodes() {
			if xmldom.Is(n, NSXSD, "import") {
				out[xmldom.AttrValue(n, "", "namespace")] = true
			}
		}
	}
	return out
}

// includeClosure returns doc and every schema connected to it through
// include or redefine, in either direction.
func includeClosure(doc *Document) []*Document {
	seen := map[*Document]bool{doc: true}
	queue := []*Document{doc}
	for i := 0; i < len(queue); i++ {
		cur := queue[i]
		next := []*Document{cur.includedInto}
		for _, ref := range cur.References {
			if ref.Kind == RefInclude || ref.Kind == RefRedefine {
				next = append(next, ref.Target)
			}
		}
		for _, n := range next {
			if n != nil && !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return queue
}

// checkImports reports imports whose schema declares a different target
// namespace than the import names.
func (c *semanticChecker) checkImports(doc *Document) int {
	errs := 0
	for _, ref := range doc.References {
		if ref.Kind != RefImport || !ref.Target.Loaded() || ref.Target.Type != TypeSchema {
			continue
		}
		want := xmldom.AttrValue(ref.Element, "", "namespace")
		if got := ref.Target.TargetNamespace; got != want {
			c.report.Error("xmlSchema:importNamespace", doc.Location(ref.Element),
				"Import of {uri} names namespace {expected} but the schema declares {actual}",
				"uri", ref.Target.URI, "expected", want, "actual", got)
			errs++
		}
	}
	return errs
}
