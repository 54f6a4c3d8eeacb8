package dts

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/adammathes/xbrlverify/pkg/report"
	"github.com/adammathes/xbrlverify/pkg/xmldom"
)

// linkResolver resolves the extended links of one document into arcs.
type linkResolver struct {
	cache  *Cache
	report *report.Report
	doc    *Document
}

// labelScope holds the label registrations of one extended link.
type labelScope struct {
	endpoints map[string][]xmldom.Element
	// broken holds labels whose only locators failed to dereference;
	// those were already reported.
	broken map[string]bool
}

// resolveDocument resolves every extended link of doc, parsed and
// synthetic, in document order.
func (r *linkResolver) resolveDocument() []*ResolvedArc {
	var arcs []*ResolvedArc
	if r.doc.Root != nil {
		xmldom.Walk(r.doc.Root, func(n *xmldom.Node) bool {
			if xmldom.AttrValue(n, NSXLink, "type") != "extended" {
				return true
			}
			arcs = append(arcs, r.resolveLink(n)...)
			return false
		})
	}
	for _, link := range r.doc.synthetic {
		arcs = append(arcs, r.resolveLink(link)...)
	}
	return arcs
}

// resolveLink pairs the arcs of one extended link with their endpoints.
func (r *linkResolver) resolveLink(link xmldom.Element) []*ResolvedArc {
	linkrole := xmldom.AttrValue(link, NSXLink, "role")
	scope := labelScope{
		endpoints: make(map[string][]xmldom.Element),
		broken:    make(map[string]bool),
	}

	var deferred []xmldom.Element
	for _, child := range link.Children() {
		switch xmldom.AttrValue(child, NSXLink, "type") {
		case "locator":
			label := xmldom.AttrValue(child, NSXLink, "label")
			if target := r.dereference(child); target != nil {
				scope.endpoints[label] = append(scope.endpoints[label], target)
			} else if len(scope.endpoints[label]) == 0 {
				scope.broken[label] = true
			}
		case "resource":
			label := xmldom.AttrValue(child, NSXLink, "label")
			scope.endpoints[label] = append(scope.endpoints[label], child)
		case "arc":
			deferred = append(deferred, child)
		}
	}

	var out []*ResolvedArc
	for _, arc := range deferred {
		out = append(out, r.resolveArc(link, linkrole, arc, &scope)...)
	}
	return out
}

func (r *linkResolver) resolveArc(link xmldom.Element, linkrole string, arc xmldom.Element, scope *labelScope) []*ResolvedArc {
	loc := r.doc.Location(arc)
	fromLabel := xmldom.AttrValue(arc, NSXLink, "from")
	toLabel := xmldom.AttrValue(arc, NSXLink, "to")

	froms, ok := r.endpoints(scope, fromLabel, "xlink:arcFromLabel", "from", loc)
	if !ok {
		return nil
	}
	tos, ok := r.endpoints(scope, toLabel, "xlink:arcToLabel", "to", loc)
	if !ok {
		return nil
	}

	arcrole := xmldom.AttrValue(arc, NSXLink, "arcrole")
	if arcrole == "" {
		r.report.Error("xlink:missingArcrole", loc,
			"Arc {arc} has no xlink:arcrole attribute", "arc", arc.QName().Local)
		return nil
	}

	var order *big.Rat
	if p, ok := arc.(*ArcPrototype); ok && p.Order() != nil {
		order = p.Order()
	} else {
		order = big.NewRat(1, 1)
		if v, ok := arc.Attr(attrOrder); ok {
			parsed, err := parseDecimal(v)
			if err != nil {
				r.report.Error("xbrl:orderValue", loc,
					"Arc order {value} is not a decimal", "value", v)
				return nil
			}
			order = parsed
		}
	}

	var weight *big.Rat
	if v, ok := arc.Attr(attrWeight); ok {
		parsed, err := parseDecimal(v)
		if err != nil {
			r.report.Error("xbrl:weightValue", loc,
				"Arc weight {value} is not a decimal", "value", v)
			return nil
		}
		weight = parsed
	}

	priority := 0
	if v, ok := arc.Attr(attrPriority); ok {
		p, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			r.report.Error("xbrl:priorityValue", loc,
				"Arc priority {value} is not an integer", "value", v)
			return nil
		}
		priority = p
	}

	use := UseOptional
	if v, ok := arc.Attr(attrUse); ok {
		switch Use(strings.TrimSpace(v)) {
		case UseOptional:
		case UseProhibited:
			use = UseProhibited
		default:
			r.report.Error("xbrl:useValue", loc,
				"Arc use {value} must be optional or prohibited", "value", v)
			return nil
		}
	}

	if p, ok := arc.(*ArcPrototype); ok && linkrole == "" {
		linkrole = p.Linkrole()
	}

	out := make([]*ResolvedArc, 0, len(froms)*len(tos))
	for _, from := range froms {
		for _, to := range tos {
			out = append(out, &ResolvedArc{
				Arc:       arc,
				Link:      link,
				Document:  r.doc,
				From:      from,
				To:        to,
				FromLabel: fromLabel,
				ToLabel:   toLabel,
				Arcrole:   arcrole,
				Linkrole:  linkrole,
				LinkQName: link.QName(),
				ArcQName:  arc.QName(),
				Order:     order,
				Weight:    weight,
				Priority:  priority,
				Use:       use,
			})
		}
	}
	return out
}

// endpoints returns the registrations for label; a label nothing answers
// to is a dangling reference.
func (r *linkResolver) endpoints(scope *labelScope, label, code, side, loc string) ([]xmldom.Element, bool) {
	if targets := scope.endpoints[label]; len(targets) > 0 {
		return targets, true
	}
	if !scope.broken[label] {
		r.report.Error(code, loc,
			"Arc {side} label {label} does not match any locator or resource in the link",
			"side", side, "label", label)
	}
	return nil, false
}

// dereference resolves a locator to its target element, logging
// unresolvable hrefs.
func (r *linkResolver) dereference(loc xmldom.Element) xmldom.Element {
	if p, ok := loc.(*LocPrototype); ok {
		if target := p.Dereference(); target != nil {
			return target
		}
		r.report.Error("xlink:locatorHref", r.doc.Location(loc),
			"Synthesized locator {label} does not resolve", "label", xmldom.AttrValue(loc, NSXLink, "label"))
		return nil
	}

	href := xmldom.AttrValue(loc, NSXLink, "href")
	location := r.doc.Location(loc)
	docPart, fragment := SplitFragment(href)

	target := r.doc
	if docPart != "" {
		uri, err := Normalize(docPart, r.doc.URI)
		if err == nil {
			target = r.cache.Lookup(uri)
		} else {
			target = nil
		}
	}
	if target == nil {
		r.report.Error("xlink:locatorHref", location,
			"Locator href {href} does not resolve to a discovered document", "href", href)
		return nil
	}
	if !target.Loaded() {
		// the load failure was reported against the first referrer
		return nil
	}
	el := target.ResolveFragment(fragment)
	if el == nil {
		r.report.Error("xlink:locatorHref", location,
			"Locator href {href} does not resolve to an element", "href", href)
		return nil
	}
	return el
}
