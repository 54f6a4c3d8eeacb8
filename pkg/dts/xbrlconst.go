package dts

// Namespaces.
const (
	NSXSD    = "http://www.w3.org/2001/XMLSchema"
	NSXSI    = "http://www.w3.org/2001/XMLSchema-instance"
	NSXLink  = "http://www.w3.org/1999/xlink"
	NSLink   = "http://www.xbrl.org/2003/linkbase"
	NSXBRLI  = "http://www.xbrl.org/2003/instance"
	NSXBRLDT = "http://xbrl.org/2005/xbrldt"
	NSGen    = "http://xbrl.org/2008/generic"
	NSIX     = "http://www.xbrl.org/2013/inlineXBRL"
	NSIX11   = "http://www.xbrl.org/2008/inlineXBRL"
)

// Link roles.
const (
	RoleLink        = "http://www.xbrl.org/2003/role/link"
	RoleGenericLink = "http://www.xbrl.org/2008/role/link"
)

// Standard XBRL 2.1 arcroles.
const (
	ArcroleFactFootnote     = "http://www.xbrl.org/2003/arcrole/fact-footnote"
	ArcroleConceptLabel     = "http://www.xbrl.org/2003/arcrole/concept-label"
	ArcroleConceptReference = "http://www.xbrl.org/2003/arcrole/concept-reference"
	ArcroleParentChild      = "http://www.xbrl.org/2003/arcrole/parent-child"
	ArcroleSummationItem    = "http://www.xbrl.org/2003/arcrole/summation-item"
	ArcroleGeneralSpecial   = "http://www.xbrl.org/2003/arcrole/general-special"
	ArcroleEssenceAlias     = "http://www.xbrl.org/2003/arcrole/essence-alias"
	ArcroleSimilarTuples    = "http://www.xbrl.org/2003/arcrole/similar-tuples"
	ArcroleRequiresElement  = "http://www.xbrl.org/2003/arcrole/requires-element"
)

// XBRL Dimensions arcroles.
const (
	ArcroleAll                = "http://xbrl.org/int/dim/arcrole/all"
	ArcroleNotAll             = "http://xbrl.org/int/dim/arcrole/notAll"
	ArcroleHypercubeDimension = "http://xbrl.org/int/dim/arcrole/hypercube-dimension"
	ArcroleDimensionDomain    = "http://xbrl.org/int/dim/arcrole/dimension-domain"
	ArcroleDomainMember       = "http://xbrl.org/int/dim/arcrole/domain-member"
	ArcroleDimensionDefault   = "http://xbrl.org/int/dim/arcrole/dimension-default"
)

// Cycle policies, as in the cyclesAllowed attribute of arcroleType.
const (
	CyclesAny        = "any"
	CyclesUndirected = "undirected"
	CyclesNone       = "none"
)

// standardArcroles maps each XBRL 2.1 arcrole to its cycle policy. These
// arcroles need no arcroleRef.
var standardArcroles = map[string]string{
	ArcroleFactFootnote:     CyclesNone,
	ArcroleConceptLabel:     CyclesNone,
	ArcroleConceptReference: CyclesNone,
	ArcroleParentChild:      CyclesUndirected,
	ArcroleSummationItem:    CyclesAny,
	ArcroleGeneralSpecial:   CyclesUndirected,
	ArcroleEssenceAlias:     CyclesUndirected,
	ArcroleSimilarTuples:    CyclesAny,
	ArcroleRequiresElement:  CyclesAny,
}

// dimensionArcroles maps the dimensional arcroles to the cycle policy
// enforced for directed cycles.
var dimensionArcroles = map[string]string{
	ArcroleHypercubeDimension: CyclesNone,
	ArcroleDimensionDomain:    CyclesUndirected,
	ArcroleDomainMember:       CyclesUndirected,
}

// IsStandardArcrole reports whether arcrole is defined by XBRL 2.1.
func IsStandardArcrole(arcrole string) bool {
	_, ok := standardArcroles[arcrole]
	return ok
}

// IsStandardLinkrole reports whether role is a standard extended link role.
func IsStandardLinkrole(role string) bool {
	return role == RoleLink || role == RoleGenericLink
}
