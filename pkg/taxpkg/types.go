package taxpkg

import "archive/zip"

// Package is an opened XBRL Taxonomy Package.
type Package struct {
	Path    string
	ZipFile *zip.ReadCloser
	Files   map[string]*zip.File // path -> zip.File

	// Top is the single top-level directory of the archive, with a
	// trailing slash, or "" when files sit at the root.
	Top string

	// Parsed from META-INF/taxonomyPackage.xml
	Identifier  string
	Name        string
	Description string
	Version     string
	Publisher   string
	EntryPoints []EntryPoint

	// Parsed from META-INF/catalog.xml
	Rewrites []Rewrite
}

// EntryPoint is a named set of documents to load together.
type EntryPoint struct {
	Name        string
	Description string
	Documents   []string // entryPointDocument hrefs, usually absolute URLs
}

// Rewrite maps URIs starting with URIStart to archive paths starting with
// Prefix.
type Rewrite struct {
	URIStart string
	Prefix   string
}
