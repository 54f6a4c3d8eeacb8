package taxpkg

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adammathes/xbrlverify/pkg/dts"
	"github.com/adammathes/xbrlverify/pkg/report"
)

const metadataXML = `<?xml version="1.0" encoding="UTF-8"?>
<tp:taxonomyPackage xmlns:tp="http://xbrl.org/2016/taxonomy-package" xml:lang="en">
  <tp:identifier>http://example.com/acme/2024</tp:identifier>
  <tp:name>ACME Taxonomy</tp:name>
  <tp:description>Test package</tp:description>
  <tp:version>2024</tp:version>
  <tp:publisher>ACME</tp:publisher>
  <tp:entryPoints>
    <tp:entryPoint>
      <tp:name>Full</tp:name>
      <tp:entryPointDocument href="http://example.com/acme/2024/entry.xsd"/>
    </tp:entryPoint>
    <tp:entryPoint>
      <tp:name>Core</tp:name>
      <tp:entryPointDocument href="http://example.com/acme/2024/core/core.xsd"/>
    </tp:entryPoint>
  </tp:entryPoints>
</tp:taxonomyPackage>`

const catalogXMLDoc = `<?xml version="1.0" encoding="UTF-8"?>
<catalog xmlns="urn:oasis:names:tc:entity:xmlns:xml:catalog">
  <rewriteURI uriStartString="http://example.com/acme/2024/" rewritePrefix="../taxonomy/"/>
  <rewriteURI uriStartString="http://example.com/acme/2024/core/" rewritePrefix="../core-files/"/>
</catalog>`

const entryXSD = `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
  xmlns:link="http://www.xbrl.org/2003/linkbase" xmlns:xlink="http://www.w3.org/1999/xlink"
  targetNamespace="urn:acme">
  <xs:import namespace="urn:acme:core" schemaLocation="core/core.xsd"/>
  <xs:annotation><xs:appinfo>
    <link:linkbaseRef xlink:type="simple" xlink:href="entry-pre.xml"/>
  </xs:appinfo></xs:annotation>
  <xs:element name="Total" id="Total" type="xs:decimal"/>
</xs:schema>`

const coreXSD = `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:acme:core">
  <xs:element name="Part" id="Part" type="xs:decimal"/>
</xs:schema>`

const entryPre = `<link:linkbase xmlns:link="http://www.xbrl.org/2003/linkbase" xmlns:xlink="http://www.w3.org/1999/xlink">
  <link:presentationLink xlink:type="extended" xlink:role="http://www.xbrl.org/2003/role/link">
    <link:loc xlink:type="locator" xlink:href="entry.xsd#Total" xlink:label="total"/>
    <link:loc xlink:type="locator" xlink:href="core/core.xsd#Part" xlink:label="part"/>
    <link:presentationArc xlink:type="arc" xlink:arcrole="http://www.xbrl.org/2003/arcrole/parent-child" xlink:from="total" xlink:to="part"/>
  </link:presentationLink>
</link:linkbase>`

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func acmePackage(t *testing.T) []byte {
	return buildZip(t, map[string]string{
		"acme/META-INF/taxonomyPackage.xml": metadataXML,
		"acme/META-INF/catalog.xml":         catalogXMLDoc,
		"acme/taxonomy/entry.xsd":           entryXSD,
		"acme/taxonomy/entry-pre.xml":       entryPre,
		"acme/core-files/core.xsd":          coreXSD,
	})
}

func openBytes(t *testing.T, data []byte) *Package {
	t.Helper()
	p, err := NewReader(bytes.NewReader(data), int64(len(data)), "acme.zip")
	require.NoError(t, err)
	return p
}

func TestReadMetadata(t *testing.T) {
	p := openBytes(t, acmePackage(t))

	assert.Equal(t, "acme/", p.Top)
	assert.Equal(t, "http://example.com/acme/2024", p.Identifier)
	assert.Equal(t, "ACME Taxonomy", p.Name)
	assert.Equal(t, "Test package", p.Description)
	assert.Equal(t, "2024", p.Version)
	assert.Equal(t, "ACME", p.Publisher)
	require.Len(t, p.EntryPoints, 2)
	assert.Equal(t, "Full", p.EntryPoints[0].Name)
	assert.Equal(t, []string{
		"http://example.com/acme/2024/entry.xsd",
		"http://example.com/acme/2024/core/core.xsd",
	}, p.EntryPointURIs())
}

func TestCatalogRewrites(t *testing.T) {
	p := openBytes(t, acmePackage(t))

	require.Len(t, p.Rewrites, 2)
	assert.Equal(t, "http://example.com/acme/2024/core/", p.Rewrites[0].URIStart)

	name, ok := p.Resolve("http://example.com/acme/2024/entry.xsd")
	assert.True(t, ok)
	assert.Equal(t, "acme/taxonomy/entry.xsd", name)

	name, ok = p.Resolve("http://example.com/acme/2024/core/core.xsd")
	assert.True(t, ok)
	assert.Equal(t, "acme/core-files/core.xsd", name)

	_, ok = p.Resolve("http://elsewhere.example/x.xsd")
	assert.False(t, ok)
}

func TestFetch(t *testing.T) {
	p := openBytes(t, acmePackage(t))
	ctx := context.Background()

	rc, err := p.Fetch(ctx, "http://example.com/acme/2024/entry.xsd")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, entryXSD, string(data))

	_, err = p.Fetch(ctx, "http://example.com/acme/2024/missing.xsd")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = p.Fetch(ctx, "http://elsewhere.example/x.xsd")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestResolveDTSFromPackage(t *testing.T) {
	p := openBytes(t, acmePackage(t))
	r := report.NewReport()
	offline := dts.DefaultFetcher(true, 0)

	d, err := dts.Resolve(context.Background(), p.EntryPointURIs()[0],
		dts.WithFetcher(dts.ChainFetcher{p, offline}), dts.WithReport(r))
	require.NoError(t, err)
	defer d.Close()

	assert.Empty(t, r.Snapshot())
	assert.Len(t, d.Documents(), 3)
	assert.Equal(t, 0, d.CheckSchemaSemantics())

	set := d.RelationshipSet(dts.ArcroleParentChild, dts.RoleLink)
	roots := set.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, "Total", dts.ElementLabel(roots[0]))
	children := set.Children(roots[0])
	require.Len(t, children, 1)
	assert.Equal(t, "Part", dts.ElementLabel(children[0].To))
}

func TestPackageWithoutMetadata(t *testing.T) {
	p := openBytes(t, buildZip(t, map[string]string{
		"a.xsd":     coreXSD,
		"b/c.xsd":   coreXSD,
		"README.md": "hello",
	}))

	assert.Equal(t, "", p.Top)
	assert.Empty(t, p.EntryPoints)
	assert.Empty(t, p.Rewrites)
	_, err := p.ReadFile("missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	data, err := p.ReadFile("README.md")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestOpenFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acme.zip")
	require.NoError(t, os.WriteFile(path, acmePackage(t), 0o644))

	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, path, p.Path)
	assert.Equal(t, "ACME Taxonomy", p.Name)

	_, err = Open(filepath.Join(t.TempDir(), "missing.zip"))
	assert.Error(t, err)
}

func TestMalformedCatalog(t *testing.T) {
	data := buildZip(t, map[string]string{
		"pkg/META-INF/catalog.xml": "<catalog><rewriteURI",
	})
	_, err := NewReader(bytes.NewReader(data), int64(len(data)), "bad.zip")
	assert.ErrorContains(t, err, "catalog.xml")
}
