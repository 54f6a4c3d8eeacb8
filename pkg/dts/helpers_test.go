package dts

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/adammathes/xbrlverify/pkg/report"
	"github.com/adammathes/xbrlverify/pkg/xmldom"
)

func schemaDoc(tns, body string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
  xmlns:xbrli="http://www.xbrl.org/2003/instance"
  xmlns:link="http://www.xbrl.org/2003/linkbase"
  xmlns:xlink="http://www.w3.org/1999/xlink" xmlns:base="urn:base"
  xmlns:tns=%q targetNamespace=%q>
%s
</xs:schema>
`, tns, tns, body)
}

func linkbaseDoc(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<link:linkbase xmlns:link="http://www.xbrl.org/2003/linkbase"
  xmlns:xlink="http://www.w3.org/1999/xlink">
` + body + `
</link:linkbase>
`
}

func linkbaseRef(href string) string {
	return fmt.Sprintf(`<xs:annotation><xs:appinfo>
<link:linkbaseRef xlink:type="simple" xlink:href=%q
  xlink:arcrole="http://www.w3.org/1999/xlink/properties/linkbase"/>
</xs:appinfo></xs:annotation>`, href)
}

func concepts(names ...string) string {
	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, `<xs:element name=%q id=%q type="xs:string" xbrli:periodType="duration"/>
`, n, n)
	}
	return b.String()
}

func loc(href, label string) string {
	return fmt.Sprintf(`<link:loc xlink:type="locator" xlink:href=%q xlink:label=%q/>
`, href, label)
}

func presArc(from, to, extra string) string {
	return fmt.Sprintf(`<link:presentationArc xlink:type="arc" xlink:arcrole="http://www.xbrl.org/2003/arcrole/parent-child" xlink:from=%q xlink:to=%q %s/>
`, from, to, extra)
}

func presLink(body string) string {
	return `<link:presentationLink xlink:type="extended" xlink:role="http://www.xbrl.org/2003/role/link">
` + body + `</link:presentationLink>`
}

// resolveFS resolves entry from files and returns the session and its
// report.
func resolveFS(t *testing.T, files fstest.MapFS, entry string, opts ...Option) (*DTS, *report.Report) {
	t.Helper()
	r := report.NewReport()
	opts = append([]Option{WithFetcher(NewFSFetcher(files)), WithReport(r)}, opts...)
	d, err := Resolve(context.Background(), entry, opts...)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d, r
}

func labels(els []xmldom.Element) []string {
	out := make([]string, len(els))
	for i, el := range els {
		out[i] = ElementLabel(el)
	}
	return out
}

func targets(rels []*Relationship) []string {
	out := make([]string, len(rels))
	for i, rel := range rels {
		out[i] = ElementLabel(rel.To)
	}
	return out
}

func codes(r *report.Report) []string {
	var out []string
	for _, m := range r.Snapshot() {
		out = append(out, m.Code)
	}
	return out
}
