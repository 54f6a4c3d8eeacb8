package validate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adammathes/xbrlverify/pkg/dts"
	"github.com/adammathes/xbrlverify/pkg/report"
	"github.com/adammathes/xbrlverify/pkg/taxpkg"
)

// Options configures validation behavior.
type Options struct {
	// Strict keeps warnings that are downgraded to INFO by default.
	Strict bool

	// SkipSemantics disables the schema reference and import checks.
	SkipSemantics bool

	// Offline refuses http(s) URLs not covered by a taxonomy package or a
	// remapping.
	Offline bool

	// Timeout bounds each remote fetch. Zero means 30 seconds.
	Timeout time.Duration

	// Concurrency bounds the number of documents fetched at once.
	Concurrency int

	Remappings []dts.Remapping

	// Skip lists glob patterns of URIs left out of discovery.
	Skip []string

	// Packages are taxonomy package archives consulted before any other
	// source.
	Packages []string

	// Fetcher replaces the default file and http(s) source.
	Fetcher dts.Fetcher

	// Report receives the messages. A new report is created when nil.
	Report *report.Report

	Logger  *slog.Logger
	Metrics *dts.Metrics
}

// Result summarizes a validation run.
type Result struct {
	Report *report.Report

	// Entry is the entry document URI actually resolved. For a taxonomy
	// package it is the package's first entry point.
	Entry string

	Documents int
	Arcs      int
	BaseSets  int
	Cycles    int

	// Files are the local paths of the loaded documents.
	Files []string
}

// lenientCodes are downgraded to INFO unless Options.Strict is set.
var lenientCodes = map[string]bool{
	"xbrl:ambiguousOverride": true,
}

// Validate runs all validation checks on an XBRL entry document and
// returns a report.
func Validate(path string) (*report.Report, error) {
	return ValidateWithOptions(path, Options{})
}

// ValidateWithOptions runs validation with the given options.
func ValidateWithOptions(path string, opts Options) (*report.Report, error) {
	res, err := Run(context.Background(), path, opts)
	if err != nil {
		return nil, err
	}
	return res.Report, nil
}

// Run discovers the DTS of entry and checks it. Findings go to the
// report; an error is returned only when the run itself was interrupted.
// entry may be a taxonomy package (.zip), in which case its first entry
// point is validated.
func Run(ctx context.Context, entry string, opts Options) (*Result, error) {
	r := opts.Report
	if r == nil {
		r = report.NewReport()
	}
	res := &Result{Report: r, Entry: entry}

	// Phase 1: taxonomy packages
	pkgs, ok := openPackages(opts.Packages, r)
	defer func() { closePackages(pkgs) }()
	if !ok {
		return res, nil
	}
	if strings.EqualFold(filepath.Ext(entry), ".zip") {
		pkg, ok := openPackage(entry, r)
		if !ok {
			return res, nil
		}
		pkgs = append(pkgs, pkg)
		uris := pkg.EntryPointURIs()
		if len(uris) == 0 {
			r.Fatal("tpe:missingEntryPoint", entry, "Taxonomy package {path} declares no entry point", "path", entry)
			return res, nil
		}
		res.Entry = uris[0]
	}

	// Phase 2: discovery
	d, err := dts.Resolve(ctx, res.Entry, dtsOptions(opts, pkgs, r)...)
	if errors.Is(err, dts.ErrEntryNotLoaded) {
		return res, nil
	}
	if d != nil {
		defer d.Close()
	}
	if err != nil {
		return res, fmt.Errorf("resolving %s: %w", res.Entry, err)
	}
	res.Documents = len(d.Documents())
	res.Arcs = d.ArcCount()
	res.Files = localFiles(d)

	// Phase 3: schema semantics
	if !opts.SkipSemantics {
		d.CheckSchemaSemantics()
	}

	// Phase 4: roleRef and arcroleRef declarations
	d.CheckRoleRefs()

	// Phase 5: relationship sets
	res.BaseSets, res.Cycles = checkRelationships(d)

	if !opts.Strict {
		r.DowngradeToInfo(lenientCodes)
	}
	return res, nil
}

func dtsOptions(opts Options, pkgs []*taxpkg.Package, r *report.Report) []dts.Option {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	var base dts.Fetcher = dts.DefaultFetcher(opts.Offline, timeout)
	if opts.Fetcher != nil {
		base = opts.Fetcher
	}
	fetcher := base
	if len(pkgs) > 0 {
		chain := make(dts.ChainFetcher, 0, len(pkgs)+1)
		for _, p := range pkgs {
			chain = append(chain, p)
		}
		fetcher = append(chain, base)
	}

	out := []dts.Option{
		dts.WithFetcher(fetcher),
		dts.WithReport(r),
		dts.WithConcurrency(opts.Concurrency),
		dts.WithSkip(opts.Skip...),
		dts.WithRemappings(opts.Remappings...),
		dts.WithMetrics(opts.Metrics),
	}
	if opts.Logger != nil {
		out = append(out, dts.WithLogger(opts.Logger))
	}
	return out
}

// localFiles lists the loaded documents read from the local filesystem.
func localFiles(d *dts.DTS) []string {
	var files []string
	for _, doc := range d.Documents() {
		if !doc.Loaded() || dts.IsRemote(doc.URI) {
			continue
		}
		name := doc.URI
		if strings.HasPrefix(name, "file:") {
			u, err := url.Parse(name)
			if err != nil {
				continue
			}
			name = u.Path
		}
		files = append(files, filepath.FromSlash(name))
	}
	return files
}
