package validate

import "github.com/adammathes/xbrlverify/pkg/dts"

// checkRelationships builds every base relationship set, which reports
// ambiguous overrides, and looks for directed cycles where the arcrole's
// policy forbids them. It returns the number of sets and of cycles.
func checkRelationships(d *dts.DTS) (sets, cycles int) {
	for _, key := range d.BaseSets() {
		set := d.RelationshipSetFor(key)
		if set.Len() == 0 {
			continue
		}
		sets++
		switch d.CyclesAllowed(key.Arcrole) {
		case dts.CyclesNone, dts.CyclesUndirected:
			cycles += set.CheckCycles()
		}
	}
	return sets, cycles
}
