package dts

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adammathes/xbrlverify/pkg/xmldom"
)

func referrers(t *testing.T) map[string]xmldom.Element {
	t.Helper()
	root, err := xmldom.Parse(strings.NewReader(`<r xmlns:xs="http://www.w3.org/2001/XMLSchema"
  xmlns:link="http://www.xbrl.org/2003/linkbase">
  <xs:import/><xs:include/><link:schemaRef/><link:linkbaseRef/><link:loc/>
</r>`))
	require.NoError(t, err)
	out := make(map[string]xmldom.Element)
	for _, n := range root.Nodes() {
		out[n.QName().Local] = n
	}
	return out
}

func TestGetOrLoadIsIdempotent(t *testing.T) {
	els := referrers(t)
	c := NewCache()
	a := newDocument("dir/a.xsd", TypeSchema, 0)
	b := newDocument("dir/sub/b.xml", TypeLinkbase, 1)

	first, created, err := c.GetOrLoad("x.xsd", a.URI, a, els["import"])
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "dir/x.xsd", first.URI)
	assert.Equal(t, TypeSchema, first.Type)

	second, created, err := c.GetOrLoad("../x.xsd#frag", b.URI, b, els["loc"])
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Len())

	from, referrer := first.Referrer()
	assert.Same(t, a, from)
	assert.Equal(t, els["import"], referrer)
	require.Len(t, a.References, 1)
	assert.Equal(t, RefImport, a.References[0].Kind)
	require.Len(t, b.References, 1)
	assert.Equal(t, RefHref, b.References[0].Kind)

	_, _, err = c.GetOrLoad("x.xsd", a.URI, a, els["import"])
	require.NoError(t, err)
	assert.Len(t, a.References, 1)
}

func TestGetOrLoadInfersTypeFromReferrer(t *testing.T) {
	els := referrers(t)
	tests := []struct {
		referrer string
		kind     ReferenceKind
		typ      DocumentType
	}{
		{"schemaRef", RefSchemaRef, TypeSchema},
		{"import", RefImport, TypeSchema},
		{"include", RefInclude, TypeSchema},
		{"linkbaseRef", RefLinkbaseRef, TypeLinkbase},
		{"loc", RefHref, TypeUnknownXML},
	}
	for _, tt := range tests {
		t.Run(tt.referrer, func(t *testing.T) {
			c := NewCache()
			from := newDocument("from.xml", TypeUnknownXML, 0)
			doc, _, err := c.GetOrLoad("to.xml", from.URI, from, els[tt.referrer])
			require.NoError(t, err)
			assert.Equal(t, tt.typ, doc.Type)
			assert.Equal(t, tt.kind, from.References[0].Kind)
		})
	}
}

func TestGetOrLoadConcurrent(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	docs := make([]*Document, 32)
	createdCount := make([]bool, 32)
	for i := range docs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			docs[i], createdCount[i], _ = c.GetOrLoad("shared.xsd", "", nil, nil)
		}()
	}
	wg.Wait()

	created := 0
	for i, doc := range docs {
		assert.Same(t, docs[0], doc)
		if createdCount[i] {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, c.Len())
}

func TestIncludeSetsEffectiveNamespace(t *testing.T) {
	els := referrers(t)
	c := NewCache()
	parent := newDocument("parent.xsd", TypeSchema, 0)
	parent.TargetNamespace = "urn:parent"
	child, _, err := c.GetOrLoad("child.xsd", parent.URI, parent, els["include"])
	require.NoError(t, err)
	assert.Equal(t, "urn:parent", child.EffectiveNamespace())

	child.TargetNamespace = "urn:own"
	assert.Equal(t, "urn:own", child.EffectiveNamespace())
}

func TestCacheClear(t *testing.T) {
	c := NewCache()
	doc, _, err := c.GetOrLoad("a.xml", "", nil, nil)
	require.NoError(t, err)
	root, err := xmldom.Parse(strings.NewReader(`<a id="x"><b/></a>`))
	require.NoError(t, err)
	doc.index(root)
	require.NotNil(t, doc.ElementByID("x"))

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Lookup("a.xml"))
	assert.Nil(t, doc.Root)
	assert.Nil(t, doc.ElementByID("x"))
}
