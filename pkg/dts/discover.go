package dts

import (
	"context"
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/adammathes/xbrlverify/pkg/xmldom"
)

// errSyntax marks content that was fetched but is not well-formed XML.
var errSyntax = errors.New("not well-formed XML")

type fetchResult struct {
	root *xmldom.Node
	err  error
}

// discover loads start and everything reachable from it, breadth first.
// Each level is fetched concurrently; references are scanned in level
// order so discovery order does not depend on fetch timing. It returns the
// documents it processed, in discovery order.
func (d *DTS) discover(ctx context.Context, start []*Document) []*Document {
	var processed []*Document
	level := start
	for len(level) > 0 {
		results := d.fetchLevel(ctx, level)
		var next []*Document
		for i, doc := range level {
			processed = append(processed, doc)
			if doc.state == stateSkipped {
				continue
			}
			d.finishLoad(doc, results[i])
			if doc.Loaded() {
				next = append(next, d.scanReferences(doc)...)
			}
		}
		level = next
	}
	return processed
}

// fetchLevel fetches and parses the documents of one level, at most
// d.concurrency at a time. A cancelled context fails the documents not yet
// fetched.
func (d *DTS) fetchLevel(ctx context.Context, level []*Document) []fetchResult {
	results := make([]fetchResult, len(level))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, doc := range level {
		if d.skipped(doc.URI) {
			doc.state = stateSkipped
			d.logger.Debug("skipping document", "uri", doc.URI)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].err = err
				return nil
			}
			results[i].root, results[i].err = d.fetch(gctx, doc.URI)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (d *DTS) fetch(ctx context.Context, uri string) (*xmldom.Node, error) {
	rc, err := d.fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	root, err := xmldom.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errSyntax, err)
	}
	return root, nil
}

func (d *DTS) skipped(uri string) bool {
	for _, pattern := range d.skip {
		if ok, _ := doublestar.Match(pattern, uri); ok {
			return true
		}
	}
	return false
}

// finishLoad records the outcome of a fetch. Failures are logged against
// the referring element; failure of the entry document is fatal.
func (d *DTS) finishLoad(doc *Document, res fetchResult) {
	if res.err != nil {
		doc.state = stateFailed
		d.metrics.fetchFailed()

		code := "IOerror"
		if errors.Is(res.err, errSyntax) {
			code = "xmlSchema:syntax"
		}
		from, referrer := doc.Referrer()
		location := doc.URI
		if from != nil {
			location = from.Location(referrer)
		}
		if doc == d.entry {
			d.report.Fatal("IOerror", location, "Entry document {uri} could not be loaded: {error}",
				"uri", doc.URI, "error", res.err.Error())
			return
		}
		d.report.Error(code, location, "Document {uri} could not be loaded: {error}",
			"uri", doc.URI, "error", res.err.Error())
		return
	}

	doc.index(res.root)
	doc.state = stateLoaded
	d.metrics.documentLoaded(doc.Type)
	d.logger.Debug("document loaded", "uri", doc.URI, "type", doc.Type.String(), "seq", doc.Seq())
}

// scanReferences registers every document doc refers to and returns those
// seen for the first time.
func (d *DTS) scanReferences(doc *Document) []*Document {
	switch doc.Type {
	case TypeSchema, TypeLinkbase, TypeInstance, TypeInlineXBRL:
	default:
		return nil
	}

	var found []*Document
	add := func(ref string, el *xmldom.Node) {
		target, created, err := d.cache.GetOrLoad(ref, doc.URI, doc, el)
		if err != nil {
			d.report.Error("IOerror", doc.Location(el), "Reference {href} is not a valid URI: {error}",
				"href", ref, "error", err.Error())
			return
		}
		if created {
			found = append(found, target)
		}
	}

	xmldom.Walk(doc.Root, func(n *xmldom.Node) bool {
		q := n.QName()
		if q.Namespace == NSXSD {
			switch q.Local {
			case "import", "include", "redefine":
				if loc := xmldom.AttrValue(n, "", "schemaLocation"); loc != "" {
					add(loc, n)
				}
				return false
			}
		}
		switch xmldom.AttrValue(n, NSXLink, "type") {
		case "simple", "locator":
			href := xmldom.AttrValue(n, NSXLink, "href")
			if part, _ := SplitFragment(href); part != "" {
				add(href, n)
			}
		}
		return true
	})
	return found
}
