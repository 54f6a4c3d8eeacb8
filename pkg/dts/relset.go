package dts

import (
	"cmp"
	"iter"
	"math/big"
	"slices"
	"sync"

	"github.com/adammathes/xbrlverify/pkg/qname"
	"github.com/adammathes/xbrlverify/pkg/report"
	"github.com/adammathes/xbrlverify/pkg/xmldom"
)

// SetKey selects the arcs of a relationship set. Empty fields match
// anything.
type SetKey struct {
	Arcrole   string
	Linkrole  string
	LinkQName qname.QName
	ArcQName  qname.QName
}

func (k SetKey) matches(a *ResolvedArc) bool {
	return (k.Arcrole == "" || k.Arcrole == a.Arcrole) &&
		(k.Linkrole == "" || k.Linkrole == a.Linkrole) &&
		(k.LinkQName.IsZero() || k.LinkQName == a.LinkQName) &&
		(k.ArcQName.IsZero() || k.ArcQName == a.ArcQName)
}

// Relationship is a directed edge that survived prohibition and override.
type Relationship struct {
	From, To xmldom.Element
	Order    *big.Rat
	Weight   *big.Rat
	Priority int
	Arc      *ResolvedArc
}

// Arcrole returns the arcrole of the originating arc.
func (r *Relationship) Arcrole() string { return r.Arc.Arcrole }

// Linkrole returns the link role of the originating arc.
func (r *Relationship) Linkrole() string { return r.Arc.Linkrole }

// arcSource supplies the current arcs for a key and a generation number
// that changes whenever arcs the key could match are added. generation is
// cheap; arcs copies.
type arcSource interface {
	generation(key SetKey) uint64
	arcs(key SetKey) ([]*ResolvedArc, uint64)
}

// RelationshipSet is the read side of the relationship graph for one key.
// Sets obtained from a DTS rebuild themselves on access when discovery has
// added arcs they could match.
type RelationshipSet struct {
	Key SetKey

	source arcSource
	report *report.Report

	mu         sync.Mutex
	built      bool
	generation uint64
	rels       []*Relationship
	from       map[xmldom.Element][]*Relationship
	to         map[xmldom.Element][]*Relationship
	roots      []xmldom.Element
	warned     map[edgeKey]bool
	onBuild    func()
}

// BuildRelationshipSet folds arcs matching key into a fixed relationship
// set. Ambiguous overrides are logged to r.
func BuildRelationshipSet(key SetKey, arcs []*ResolvedArc, r *report.Report) *RelationshipSet {
	s := &RelationshipSet{Key: key, report: r}
	s.build(arcs)
	s.built = true
	return s
}

func newLazySet(key SetKey, source arcSource, r *report.Report, onBuild func()) *RelationshipSet {
	return &RelationshipSet{Key: key, source: source, report: r, onBuild: onBuild}
}

// edgeKey identifies the arcs that compete for one relationship: same base
// set and same endpoints.
type edgeKey struct {
	arcrole  string
	linkrole string
	link     qname.QName
	arc      qname.QName
	from, to xmldom.Element
}

func (s *RelationshipSet) ensure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return
	}
	if s.built && s.source.generation(s.Key) == s.generation {
		return
	}
	arcs, gen := s.source.arcs(s.Key)
	s.build(arcs)
	s.built = true
	s.generation = gen
	if s.onBuild != nil {
		s.onBuild()
	}
}

// build applies override and prohibition rules. Within a group of
// competing arcs the highest priority wins; a prohibited arc at that
// priority removes the relationship; several optional arcs at that
// priority are all kept and reported as ambiguous.
func (s *RelationshipSet) build(arcs []*ResolvedArc) {
	groups := make(map[edgeKey][]*ResolvedArc)
	var keys []edgeKey
	for _, a := range arcs {
		if !s.Key.matches(a) {
			continue
		}
		k := edgeKey{arcrole: a.Arcrole, linkrole: a.Linkrole, link: a.LinkQName, arc: a.ArcQName, from: a.From, to: a.To}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], a)
	}

	s.rels = nil
	s.from = make(map[xmldom.Element][]*Relationship)
	s.to = make(map[xmldom.Element][]*Relationship)
	s.roots = nil

	for _, k := range keys {
		group := groups[k]
		top := group[0].Priority
		for _, a := range group[1:] {
			top = max(top, a.Priority)
		}
		var winners []*ResolvedArc
		prohibited := false
		for _, a := range group {
			if a.Priority != top {
				continue
			}
			if a.Prohibited() {
				prohibited = true
			}
			winners = append(winners, a)
		}
		if prohibited {
			continue
		}
		if len(winners) > 1 {
			s.warnAmbiguous(k, winners)
		}
		for _, a := range winners {
			s.rels = append(s.rels, &Relationship{
				From:     a.From,
				To:       a.To,
				Order:    a.Order,
				Weight:   a.Weight,
				Priority: a.Priority,
				Arc:      a,
			})
		}
	}

	slices.SortStableFunc(s.rels, func(a, b *Relationship) int {
		return cmp.Compare(a.Arc.Seq, b.Arc.Seq)
	})
	for _, rel := range s.rels {
		if _, ok := s.from[rel.From]; !ok {
			s.roots = append(s.roots, rel.From)
		}
		s.from[rel.From] = append(s.from[rel.From], rel)
		s.to[rel.To] = append(s.to[rel.To], rel)
	}
	for _, children := range s.from {
		slices.SortStableFunc(children, compareSiblings)
	}
	s.roots = slices.DeleteFunc(s.roots, func(el xmldom.Element) bool {
		return len(s.to[el]) > 0
	})
}

func compareSiblings(a, b *Relationship) int {
	if c := a.Order.Cmp(b.Order); c != 0 {
		return c
	}
	return cmp.Compare(a.Arc.Seq, b.Arc.Seq)
}

func (s *RelationshipSet) warnAmbiguous(k edgeKey, winners []*ResolvedArc) {
	if s.report == nil || s.warned[k] {
		return
	}
	if s.warned == nil {
		s.warned = make(map[edgeKey]bool)
	}
	s.warned[k] = true
	first := winners[0]
	s.report.Warn("xbrl:ambiguousOverride", first.Document.Location(first.Arc),
		"{count} arcs with priority {priority} assert the {arcrole} relationship from {from} to {to}; all are kept",
		"count", len(winners), "priority", first.Priority, "arcrole", first.Arcrole,
		"from", ElementLabel(first.From), "to", ElementLabel(first.To))
}

// Roots returns the sources that have no incoming relationship, in the
// order they were first declared.
func (s *RelationshipSet) Roots() []xmldom.Element {
	s.ensure()
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.roots)
}

// Children returns the relationships from el ordered by order, then
// declaration sequence.
func (s *RelationshipSet) Children(el xmldom.Element) []*Relationship {
	s.ensure()
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.from[el])
}

// Parents returns the relationships into el.
func (s *RelationshipSet) Parents(el xmldom.Element) []*Relationship {
	s.ensure()
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.to[el])
}

// Relationships yields every relationship in declaration order. Each
// iteration starts from the current state of the set.
func (s *RelationshipSet) Relationships() iter.Seq[*Relationship] {
	return func(yield func(*Relationship) bool) {
		s.ensure()
		s.mu.Lock()
		rels := slices.Clone(s.rels)
		s.mu.Unlock()
		for _, rel := range rels {
			if !yield(rel) {
				return
			}
		}
	}
}

// Len returns the number of relationships.
func (s *RelationshipSet) Len() int {
	s.ensure()
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rels)
}

// ElementLabel names an element for messages: its name or id attribute,
// falling back to the element's local name.
func ElementLabel(el xmldom.Element) string {
	if el == nil {
		return "(none)"
	}
	if name := xmldom.AttrValue(el, "", "name"); name != "" {
		return name
	}
	if id := xmldom.AttrValue(el, "", "id"); id != "" {
		return id
	}
	if label := xmldom.AttrValue(el, NSXLink, "label"); label != "" {
		return el.QName().Local + "[" + label + "]"
	}
	return el.QName().Local
}
