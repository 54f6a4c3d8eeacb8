package dts

import (
	"github.com/adammathes/xbrlverify/pkg/report"
	"github.com/adammathes/xbrlverify/pkg/xmldom"
)

// checkRoleRefs reports extended link roles and arcroles that are neither
// standard nor declared by a roleRef or arcroleRef of the same linkbase.
func checkRoleRefs(doc *Document, r *report.Report) int {
	if doc.Root == nil {
		return 0
	}
	errs := 0
	xmldom.Walk(doc.Root, func(n *xmldom.Node) bool {
		if !xmldom.Is(n, NSLink, "linkbase") {
			return true
		}
		errs += checkLinkbaseRoleRefs(doc, n, r)
		return false
	})
	return errs
}

func checkLinkbaseRoleRefs(doc *Document, linkbase *xmldom.Node, r *report.Report) int {
	roles := make(map[string]bool)
	arcroles := make(map[string]bool)
	for _, n := range linkbase.Nodes() {
		switch {
		case xmldom.Is(n, NSLink, "roleRef"):
			roles[xmldom.AttrValue(n, "", "roleURI")] = true
		case xmldom.Is(n, NSLink, "arcroleRef"):
			arcroles[xmldom.AttrValue(n, "", "arcroleURI")] = true
		}
	}

	errs := 0
	reported := make(map[string]bool)
	for _, link := range linkbase.Nodes() {
		if xmldom.AttrValue(link, NSXLink, "type") != "extended" {
			continue
		}
		role := xmldom.AttrValue(link, NSXLink, "role")
		if role != "" && !IsStandardLinkrole(role) && !roles[role] && !reported[role] {
			reported[role] = true
			r.Error("xbrl.3.5.2.4:roleRefMissing", doc.Location(link),
				"Link role {role} is used without a roleRef", "role", role)
			errs++
		}
		for _, arc := range link.Nodes() {
			if xmldom.AttrValue(arc, NSXLink, "type") != "arc" {
				continue
			}
			arcrole := xmldom.AttrValue(arc, NSXLink, "arcrole")
			if arcrole == "" || IsStandardArcrole(arcrole) || arcroles[arcrole] || reported[arcrole] {
				continue
			}
			reported[arcrole] = true
			r.Error("xbrl.3.5.2.5:arcroleRefMissing", doc.Location(arc),
				"Arcrole {arcrole} is used without an arcroleRef", "arcrole", arcrole)
			errs++
		}
	}
	return errs
}
