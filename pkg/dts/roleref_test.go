package dts

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRoleRefs(t *testing.T) {
	files := fstest.MapFS{
		"entry.xsd": {Data: []byte(schemaDoc("urn:entry", linkbaseRef("def.xml")+concepts("A", "B")))},
		"def.xml": {Data: []byte(linkbaseDoc(`
<link:roleRef roleURI="urn:role:declared" xlink:type="simple" xlink:href="entry.xsd#declared"/>
<link:arcroleRef arcroleURI="http://xbrl.org/int/dim/arcrole/domain-member" xlink:type="simple" xlink:href="entry.xsd#dm"/>
<link:definitionLink xlink:type="extended" xlink:role="urn:role:declared">
` + loc("entry.xsd#A", "a") + loc("entry.xsd#B", "b") + `
<link:definitionArc xlink:type="arc" xlink:arcrole="http://xbrl.org/int/dim/arcrole/domain-member" xlink:from="a" xlink:to="b"/>
<link:definitionArc xlink:type="arc" xlink:arcrole="http://xbrl.org/int/dim/arcrole/all" xlink:from="a" xlink:to="b"/>
<link:definitionArc xlink:type="arc" xlink:arcrole="http://xbrl.org/int/dim/arcrole/all" xlink:from="b" xlink:to="a"/>
<link:definitionArc xlink:type="arc" xlink:arcrole="http://www.xbrl.org/2003/arcrole/general-special" xlink:from="b" xlink:to="a"/>
</link:definitionLink>
<link:definitionLink xlink:type="extended" xlink:role="urn:role:undeclared">
</link:definitionLink>
<link:definitionLink xlink:type="extended" xlink:role="http://www.xbrl.org/2003/role/link">
</link:definitionLink>
`))},
	}
	d, r := resolveFS(t, files, "entry.xsd")

	assert.Equal(t, 2, d.CheckRoleRefs())
	roles := r.ByCode("xbrl.3.5.2.4:roleRefMissing")
	require.Len(t, roles, 1)
	assert.Equal(t, "urn:role:undeclared", roles[0].Context["role"])
	arcroles := r.ByCode("xbrl.3.5.2.5:arcroleRefMissing")
	require.Len(t, arcroles, 1)
	assert.Equal(t, ArcroleAll, arcroles[0].Context["arcrole"])
}
