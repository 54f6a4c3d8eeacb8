package synthetic

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adammathes/xbrlverify/pkg/dts"
	"github.com/adammathes/xbrlverify/pkg/report"
	"github.com/adammathes/xbrlverify/pkg/validate"
)

var sizes = []struct {
	name     string
	concepts int
	fanOut   int
}{
	{"tiny", 10, 3},
	{"small", 200, 10},
	{"medium", 2000, 20},
}

// TestSyntheticTaxonomies validates generated taxonomies of growing size:
// one schema, a presentation tree with the given fan-out and a label per
// concept. All of them are valid and must pass without errors.
func TestSyntheticTaxonomies(t *testing.T) {
	for _, s := range sizes {
		t.Run(s.name, func(t *testing.T) {
			if testing.Short() && s.concepts > 200 {
				t.Skip("large taxonomy")
			}
			entry := generate(t, t.TempDir(), s.concepts, s.fanOut)

			res, err := validate.Run(context.Background(), entry, validate.Options{Offline: true})
			require.NoError(t, err)
			for _, m := range res.Report.Snapshot() {
				if m.Severity != report.Info {
					t.Errorf("unexpected %s", m)
				}
			}
			assert.Equal(t, 3, res.Documents)
			assert.Equal(t, 2*s.concepts-1, res.Arcs)
			assert.Equal(t, 2, res.BaseSets)
			assert.Zero(t, res.Cycles)
		})
	}
}

func TestSyntheticTreeShape(t *testing.T) {
	entry := generate(t, t.TempDir(), 40, 4)

	d, err := dts.Resolve(context.Background(), entry, dts.WithFetcher(dts.DefaultFetcher(true, 0)))
	require.NoError(t, err)
	defer d.Close()

	set := d.RelationshipSet(dts.ArcroleParentChild, "")
	roots := set.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, "C0", dts.ElementLabel(roots[0]))

	var got []string
	for _, rel := range set.Children(roots[0]) {
		got = append(got, dts.ElementLabel(rel.To))
	}
	assert.Equal(t, []string{"C1", "C2", "C3", "C4"}, got)

	labels := d.RelationshipSet(dts.ArcroleConceptLabel, "")
	assert.Equal(t, 40, labels.Len())
}

func BenchmarkResolve(b *testing.B) {
	for _, s := range sizes {
		b.Run(s.name, func(b *testing.B) {
			entry := generate(b, b.TempDir(), s.concepts, s.fanOut)
			b.ResetTimer()
			for range b.N {
				res, err := validate.Run(context.Background(), entry, validate.Options{Offline: true})
				if err != nil {
					b.Fatal(err)
				}
				if res.Documents != 3 {
					b.Fatalf("expected 3 documents, got %d", res.Documents)
				}
			}
		})
	}
}

// generate writes a taxonomy of n concepts C0..Cn-1 into dir and returns
// the entry schema path. Concept i>0 is a presentation child of
// (i-1)/fanOut.
func generate(tb testing.TB, dir string, n, fanOut int) string {
	tb.Helper()

	var elems strings.Builder
	for i := range n {
		fmt.Fprintf(&elems, `  <xs:element name="C%d" id="syn_C%d" type="xs:decimal" xbrli:periodType="instant" nillable="true"/>`+"\n", i, i)
	}
	writeFile(tb, dir, "entry.xsd", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
    xmlns:xbrli="http://www.xbrl.org/2003/instance"
    xmlns:link="http://www.xbrl.org/2003/linkbase"
    xmlns:xlink="http://www.w3.org/1999/xlink"
    targetNamespace="http://example.com/synthetic"
    elementFormDefault="qualified">
  <xs:annotation>
    <xs:appinfo>
      <link:linkbaseRef xlink:type="simple" xlink:href="pre.xml" xlink:arcrole="http://www.w3.org/1999/xlink/properties/linkbase"/>
      <link:linkbaseRef xlink:type="simple" xlink:href="lab.xml" xlink:arcrole="http://www.w3.org/1999/xlink/properties/linkbase"/>
    </xs:appinfo>
  </xs:annotation>
%s</xs:schema>
`, elems.String()))

	var pre, lab strings.Builder
	for i := range n {
		fmt.Fprintf(&pre, `    <link:loc xlink:type="locator" xlink:href="entry.xsd#syn_C%d" xlink:label="C%d"/>`+"\n", i, i)
		fmt.Fprintf(&lab, `    <link:loc xlink:type="locator" xlink:href="entry.xsd#syn_C%d" xlink:label="C%d"/>`+"\n", i, i)
		fmt.Fprintf(&lab, `    <link:label xlink:type="resource" xlink:label="C%d_lbl" xlink:role="http://www.xbrl.org/2003/role/label" xml:lang="en">Concept %d</link:label>`+"\n", i, i)
		fmt.Fprintf(&lab, `    <link:labelArc xlink:type="arc" xlink:arcrole="http://www.xbrl.org/2003/arcrole/concept-label" xlink:from="C%d" xlink:to="C%d_lbl"/>`+"\n", i, i)
		if i > 0 {
			fmt.Fprintf(&pre, `    <link:presentationArc xlink:type="arc" xlink:arcrole="http://www.xbrl.org/2003/arcrole/parent-child" xlink:from="C%d" xlink:to="C%d" order="%d"/>`+"\n",
				(i-1)/fanOut, i, (i-1)%fanOut+1)
		}
	}
	writeFile(tb, dir, "pre.xml", linkbase("presentationLink", pre.String()))
	writeFile(tb, dir, "lab.xml", linkbase("labelLink", lab.String()))

	return filepath.Join(dir, "entry.xsd")
}

func linkbase(link, body string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<link:linkbase xmlns:link="http://www.xbrl.org/2003/linkbase"
    xmlns:xlink="http://www.w3.org/1999/xlink">
  <link:%[1]s xlink:type="extended" xlink:role="http://www.xbrl.org/2003/role/link">
%[2]s  </link:%[1]s>
</link:linkbase>
`, link, body)
}

func writeFile(tb testing.TB, dir, name, content string) {
	tb.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		tb.Fatalf("writing %s: %v", name, err)
	}
}
