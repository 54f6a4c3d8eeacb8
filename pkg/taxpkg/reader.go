// Package taxpkg reads XBRL Taxonomy Packages: zip archives carrying a
// taxonomy together with META-INF/taxonomyPackage.xml metadata and a
// META-INF/catalog.xml that maps published URLs into the archive.
package taxpkg

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/adammathes/xbrlverify/pkg/dts"
)

const (
	metadataFile = "META-INF/taxonomyPackage.xml"
	catalogFile  = "META-INF/catalog.xml"
)

// Open opens a taxonomy package and parses its metadata and catalog.
// The caller must call Close() when done.
func Open(filepath string) (*Package, error) {
	zr, err := zip.OpenReader(filepath)
	if err != nil {
		return nil, fmt.Errorf("opening taxonomy package: %w", err)
	}
	p, err := load(&zr.Reader, filepath)
	if err != nil {
		zr.Close()
		return nil, err
	}
	p.ZipFile = zr
	return p, nil
}

// NewReader reads a taxonomy package from r, which holds size bytes.
func NewReader(r io.ReaderAt, size int64, name string) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opening taxonomy package: %w", err)
	}
	return load(zr, name)
}

func load(zr *zip.Reader, name string) (*Package, error) {
	p := &Package{
		Path:  name,
		Files: make(map[string]*zip.File),
	}
	for _, f := range zr.File {
		p.Files[f.Name] = f
	}
	p.Top = topDir(zr.File)

	if err := p.parseMetadata(); err != nil {
		return nil, err
	}
	if err := p.parseCatalog(); err != nil {
		return nil, err
	}
	return p, nil
}

// topDir returns the directory every entry shares, if there is exactly one.
func topDir(files []*zip.File) string {
	top := ""
	for _, f := range files {
		first, _, nested := strings.Cut(f.Name, "/")
		if !nested {
			return ""
		}
		if top == "" {
			top = first
		} else if first != top {
			return ""
		}
	}
	if top == "" {
		return ""
	}
	return top + "/"
}

// Close releases the underlying zip reader.
func (p *Package) Close() error {
	if p.ZipFile != nil {
		return p.ZipFile.Close()
	}
	return nil
}

// ReadFile reads the contents of a file within the package.
func (p *Package) ReadFile(name string) ([]byte, error) {
	f, ok := p.Files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Metadata XML types

type taxonomyPackageXML struct {
	XMLName     xml.Name        `xml:"taxonomyPackage"`
	Identifier  string          `xml:"identifier"`
	Names       []string        `xml:"name"`
	Description []string        `xml:"description"`
	Version     string          `xml:"version"`
	Publisher   []string        `xml:"publisher"`
	EntryPoints []entryPointXML `xml:"entryPoints>entryPoint"`
}

type entryPointXML struct {
	Names       []string      `xml:"name"`
	Description []string      `xml:"description"`
	Documents   []hrefAttrXML `xml:"entryPointDocument"`
}

type hrefAttrXML struct {
	Href string `xml:"href,attr"`
}

// parseMetadata parses META-INF/taxonomyPackage.xml. A package without
// one is still usable through its catalog.
func (p *Package) parseMetadata() error {
	data, err := p.ReadFile(p.Top + metadataFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var tp taxonomyPackageXML
	if err := xml.Unmarshal(data, &tp); err != nil {
		return fmt.Errorf("parsing taxonomyPackage.xml: %w", err)
	}

	p.Identifier = strings.TrimSpace(tp.Identifier)
	p.Name = first(tp.Names)
	p.Description = first(tp.Description)
	p.Version = strings.TrimSpace(tp.Version)
	p.Publisher = first(tp.Publisher)
	for _, ep := range tp.EntryPoints {
		entry := EntryPoint{Name: first(ep.Names), Description: first(ep.Description)}
		for _, doc := range ep.Documents {
			entry.Documents = append(entry.Documents, strings.TrimSpace(doc.Href))
		}
		p.EntryPoints = append(p.EntryPoints, entry)
	}
	return nil
}

// first returns the first non-blank of several language variants.
func first(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Catalog XML types

type catalogXML struct {
	XMLName     xml.Name        `xml:"catalog"`
	RewriteURIs []rewriteURIXML `xml:"rewriteURI"`
}

type rewriteURIXML struct {
	URIStart string `xml:"uriStartString,attr"`
	Prefix   string `xml:"rewritePrefix,attr"`
}

// parseCatalog parses META-INF/catalog.xml. Rewrite prefixes are resolved
// against the catalog's own directory.
func (p *Package) parseCatalog() error {
	name := p.Top + catalogFile
	data, err := p.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var c catalogXML
	if err := xml.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parsing catalog.xml: %w", err)
	}

	for _, rw := range c.RewriteURIs {
		prefix := path.Join(path.Dir(name), rw.Prefix)
		if strings.HasSuffix(rw.Prefix, "/") {
			prefix += "/"
		}
		p.Rewrites = append(p.Rewrites, Rewrite{URIStart: rw.URIStart, Prefix: prefix})
	}
	slices.SortStableFunc(p.Rewrites, func(a, b Rewrite) int {
		return len(b.URIStart) - len(a.URIStart)
	})
	return nil
}

// Resolve maps a URI to the archive path the catalog rewrites it to. The
// longest matching uriStartString wins.
func (p *Package) Resolve(uri string) (string, bool) {
	for _, rw := range p.Rewrites {
		if rest, ok := strings.CutPrefix(uri, rw.URIStart); ok {
			return rw.Prefix + rest, true
		}
	}
	return "", false
}

// Fetch implements dts.Fetcher. URIs the catalog does not cover, and
// rewritten paths missing from the archive, report fs.ErrNotExist so a
// dts.ChainFetcher can fall through to the next source.
func (p *Package) Fetch(_ context.Context, uri string) (io.ReadCloser, error) {
	name, ok := p.Resolve(uri)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: uri, Err: fs.ErrNotExist}
	}
	f, ok := p.Files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return f.Open()
}

// EntryPointURIs returns the documents of every entry point, in order.
func (p *Package) EntryPointURIs() []string {
	var out []string
	for _, ep := range p.EntryPoints {
		out = append(out, ep.Documents...)
	}
	return out
}

var _ dts.Fetcher = (*Package)(nil)
