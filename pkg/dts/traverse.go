package dts

import (
	"strings"

	"github.com/adammathes/xbrlverify/pkg/xmldom"
)

// Cycle is a directed cycle of relationships; the last relationship
// leads back to the source of the first.
type Cycle []*Relationship

func (c Cycle) String() string {
	if len(c) == 0 {
		return ""
	}
	names := make([]string, 0, len(c)+1)
	for _, rel := range c {
		names = append(names, ElementLabel(rel.From))
	}
	names = append(names, ElementLabel(c[len(c)-1].To))
	return strings.Join(names, " -> ")
}

// Walk visits the set depth first from each root, children in order.
// visit returns false to skip the subtree below a relationship. A
// relationship leading back to a node on the current path is reported as
// xbrl:relationshipCycle, once per walk, and not followed.
func (s *RelationshipSet) Walk(visit func(rel *Relationship, depth int) bool) {
	onPath := make(map[xmldom.Element]bool)
	reported := make(map[*Relationship]bool)
	var path []*Relationship

	var walk func(node xmldom.Element, depth int)
	walk = func(node xmldom.Element, depth int) {
		onPath[node] = true
		for _, rel := range s.Children(node) {
			if onPath[rel.To] {
				if !reported[rel] {
					reported[rel] = true
					s.reportCycle(append(cyclePath(path, rel.To), rel))
				}
				continue
			}
			if !visit(rel, depth) {
				continue
			}
			path = append(path, rel)
			walk(rel.To, depth+1)
			path = path[:len(path)-1]
		}
		delete(onPath, node)
	}

	for _, root := range s.Roots() {
		walk(root, 0)
	}
}

// cyclePath returns the tail of path starting at the relationship that
// leaves node.
func cyclePath(path []*Relationship, node xmldom.Element) Cycle {
	for i, rel := range path {
		if rel.From == node {
			return append(Cycle(nil), path[i:]...)
		}
	}
	return nil
}

// Cycles returns the directed cycles of the set, each reported once by
// the relationship that closes it. Unlike Walk it also finds cycles not
// reachable from any root.
func (s *RelationshipSet) Cycles() []Cycle {
	type visitState uint8
	const (
		visiting visitState = iota + 1
		done
	)
	states := make(map[xmldom.Element]visitState)
	var path []*Relationship
	var cycles []Cycle

	var visit func(node xmldom.Element)
	visit = func(node xmldom.Element) {
		states[node] = visiting
		for _, rel := range s.Children(node) {
			switch states[rel.To] {
			case visiting:
				cycles = append(cycles, append(cyclePath(path, rel.To), rel))
			case done:
			default:
				path = append(path, rel)
				visit(rel.To)
				path = path[:len(path)-1]
			}
		}
		states[node] = done
	}

	for rel := range s.Relationships() {
		if states[rel.From] == 0 {
			visit(rel.From)
		}
	}
	return cycles
}

// CheckCycles reports every directed cycle as xbrl:relationshipCycle and
// returns the number found.
func (s *RelationshipSet) CheckCycles() int {
	cycles := s.Cycles()
	for _, c := range cycles {
		s.reportCycle(c)
	}
	return len(cycles)
}

func (s *RelationshipSet) reportCycle(c Cycle) {
	if s.report == nil || len(c) == 0 {
		return
	}
	last := c[len(c)-1]
	s.report.Error("xbrl:relationshipCycle", last.Arc.Document.Location(last.Arc.Arc),
		"Directed cycle in {arcrole} relationships of {linkrole}: {path}",
		"arcrole", last.Arcrole(), "linkrole", last.Linkrole(), "path", c.String())
}
