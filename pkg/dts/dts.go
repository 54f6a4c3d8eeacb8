// Package dts discovers a Discoverable Taxonomy Set from an entry document
// and resolves its linkbases into relationship sets.
package dts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adammathes/xbrlverify/pkg/qname"
	"github.com/adammathes/xbrlverify/pkg/report"
)

// ErrEntryNotLoaded is returned when the entry document cannot be fetched
// or parsed.
var ErrEntryNotLoaded = errors.New("entry document not loaded")

// DefaultConcurrency is the number of documents fetched at once.
const DefaultConcurrency = 4

// DTS is one discovery session: the document cache, the declarations of
// its schemas and the arcs of its linkbases.
type DTS struct {
	// ID identifies the session in log records.
	ID string

	cache       *Cache
	names       *qname.Registry
	report      *report.Report
	logger      *slog.Logger
	fetcher     Fetcher
	remappings  []Remapping
	concurrency int
	skip        []string
	metrics     *Metrics

	entry *Document

	mu          sync.Mutex
	arcs        []*ResolvedArc
	byArcrole   map[string][]*ResolvedArc
	generations map[string]uint64
	generation  uint64
	sets        map[SetKey]*RelationshipSet
	decls       *declarations
}

// Option configures a DTS.
type Option func(*DTS)

// WithFetcher sets the document source. The default reads local files and
// http(s) URLs.
func WithFetcher(f Fetcher) Option {
	return func(d *DTS) { d.fetcher = f }
}

// WithReport sets the sink for coded messages.
func WithReport(r *report.Report) Option {
	return func(d *DTS) { d.report = r }
}

// WithLogger sets the logger for progress records.
func WithLogger(l *slog.Logger) Option {
	return func(d *DTS) { d.logger = l }
}

// WithConcurrency bounds the number of concurrent fetches.
func WithConcurrency(n int) Option {
	return func(d *DTS) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithSkip excludes documents whose URI matches one of the glob patterns.
// Skipped documents stay in the cache unloaded.
func WithSkip(patterns ...string) Option {
	return func(d *DTS) { d.skip = append(d.skip, patterns...) }
}

// WithRemappings rewrites URI prefixes before fetching.
func WithRemappings(rs ...Remapping) Option {
	return func(d *DTS) { d.remappings = append(d.remappings, rs...) }
}

// WithMetrics records discovery counters.
func WithMetrics(m *Metrics) Option {
	return func(d *DTS) { d.metrics = m }
}

// New returns an empty session.
func New(opts ...Option) *DTS {
	d := &DTS{
		ID:          uuid.New().String(),
		cache:       NewCache(),
		names:       qname.NewRegistry(),
		concurrency: DefaultConcurrency,
		byArcrole:   make(map[string][]*ResolvedArc),
		generations: make(map[string]uint64),
		sets:        make(map[SetKey]*RelationshipSet),
		decls:       newDeclarations(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.fetcher == nil {
		d.fetcher = DefaultFetcher(false, 30*time.Second)
	}
	if len(d.remappings) > 0 {
		d.fetcher = NewRemapFetcher(d.fetcher, d.remappings)
	}
	if d.report == nil {
		d.report = report.NewReport()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.logger = d.logger.With("session", d.ID)
	return d
}

// Resolve discovers the DTS of entryURI. Failure to load the entry
// document is logged as a fatal IOerror and returned as an error wrapping
// ErrEntryNotLoaded; every other problem is logged and skipped. When ctx is
// cancelled during discovery the partial DTS is returned with ctx's error.
func Resolve(ctx context.Context, entryURI string, opts ...Option) (*DTS, error) {
	d := New(opts...)
	start := time.Now()
	if _, err := d.Load(ctx, entryURI); err != nil {
		if errors.Is(err, ErrEntryNotLoaded) {
			d.Close()
			return nil, err
		}
		return d, err
	}
	d.logger.Info("DTS resolved",
		"entry", d.entry.URI,
		"documents", d.cache.Len(),
		"arcs", d.ArcCount(),
		"elapsed", time.Since(start))
	return d, nil
}

// Load discovers uri and everything reachable from it that is not yet in
// the session. The first document loaded becomes the entry. Relationship
// sets obtained earlier pick up the new arcs on their next access.
func (d *DTS) Load(ctx context.Context, uri string) (*Document, error) {
	doc, created, err := d.cache.GetOrLoad(uri, "", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", uri, err)
	}
	if d.entry == nil {
		d.entry = doc
	}
	if created {
		d.integrate(d.discover(ctx, []*Document{doc}))
	}
	if !doc.Loaded() {
		if doc == d.entry {
			return nil, fmt.Errorf("load %s: %w", doc.URI, ErrEntryNotLoaded)
		}
		return doc, fmt.Errorf("load %s: document not loaded", doc.URI)
	}
	if err := ctx.Err(); err != nil {
		return doc, fmt.Errorf("load %s: %w", doc.URI, err)
	}
	return doc, nil
}

// integrate collects the declarations of newly loaded schemas, then
// resolves the extended links of every newly loaded document.
func (d *DTS) integrate(docs []*Document) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, doc := range docs {
		if doc.Loaded() {
			d.decls.collect(doc, d.names, d.report)
		}
	}
	for _, doc := range docs {
		if !doc.Loaded() {
			continue
		}
		r := &linkResolver{cache: d.cache, report: d.report, doc: doc}
		d.addArcs(r.resolveDocument())
	}
}

// addArcs numbers arcs in discovery order and invalidates the relationship
// sets that could match them. d.mu must be held.
func (d *DTS) addArcs(arcs []*ResolvedArc) {
	if len(arcs) == 0 {
		return
	}
	for _, a := range arcs {
		a.Seq = len(d.arcs)
		d.arcs = append(d.arcs, a)
		d.byArcrole[a.Arcrole] = append(d.byArcrole[a.Arcrole], a)
		d.generations[a.Arcrole]++
	}
	d.generation++
	d.metrics.arcsResolved(len(arcs))
}

// sessionArcs is the arc source of the session's relationship sets.
type sessionArcs struct{ d *DTS }

func (a sessionArcs) generation(key SetKey) uint64 {
	a.d.mu.Lock()
	defer a.d.mu.Unlock()
	return a.d.generationFor(key)
}

func (a sessionArcs) arcs(key SetKey) ([]*ResolvedArc, uint64) {
	a.d.mu.Lock()
	defer a.d.mu.Unlock()
	if key.Arcrole == "" {
		return slices.Clone(a.d.arcs), a.d.generationFor(key)
	}
	return slices.Clone(a.d.byArcrole[key.Arcrole]), a.d.generationFor(key)
}

// generationFor must be called with d.mu held.
func (d *DTS) generationFor(key SetKey) uint64 {
	if key.Arcrole == "" {
		return d.generation
	}
	return d.generations[key.Arcrole]
}

// RelationshipSet returns the relationships of arcrole in linkrole. An
// empty linkrole selects every link role.
func (d *DTS) RelationshipSet(arcrole, linkrole string) *RelationshipSet {
	return d.RelationshipSetFor(SetKey{Arcrole: arcrole, Linkrole: linkrole})
}

// RelationshipSetFor returns the set for key. Each key maps to one set for
// the life of the session.
func (d *DTS) RelationshipSetFor(key SetKey) *RelationshipSet {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sets[key]
	if !ok {
		s = newLazySet(key, sessionArcs{d}, d.report, d.metrics.setBuilt)
		d.sets[key] = s
	}
	return s
}

// BaseSets returns the distinct (arcrole, linkrole, link, arc) keys of the
// resolved arcs, in order of first appearance.
func (d *DTS) BaseSets() []SetKey {
	d.mu.Lock()
	defer d.mu.Unlock()
	seen := make(map[SetKey]bool)
	var out []SetKey
	for _, a := range d.arcs {
		k := SetKey{Arcrole: a.Arcrole, Linkrole: a.Linkrole, LinkQName: a.LinkQName, ArcQName: a.ArcQName}
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// Arcs returns every resolved arc in discovery order.
func (d *DTS) Arcs() []*ResolvedArc {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.arcs)
}

// ArcCount returns the number of resolved arcs.
func (d *DTS) ArcCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.arcs)
}

// Entry returns the entry document.
func (d *DTS) Entry() *Document { return d.entry }

// Report returns the session's message sink.
func (d *DTS) Report() *report.Report { return d.report }

// Names returns the registry of display prefixes.
func (d *DTS) Names() *qname.Registry { return d.names }

// Document returns the document for uri, or nil.
func (d *DTS) Document(uri string) *Document {
	normalized, err := Normalize(uri, "")
	if err != nil {
		return nil
	}
	return d.cache.Lookup(normalized)
}

// Documents returns every document in discovery order, including those
// that failed to load.
func (d *DTS) Documents() []*Document { return d.cache.Documents() }

// Concepts returns the global element declarations.
func (d *DTS) Concepts() map[qname.QName]*Concept {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.decls.concepts)
}

// Types returns the global simple and complex type definitions.
func (d *DTS) Types() map[qname.QName]*Declaration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.decls.types)
}

// Attributes returns the global attribute declarations.
func (d *DTS) Attributes() map[qname.QName]*Declaration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.decls.attributes)
}

// RoleTypes returns the roleType definitions by role URI.
func (d *DTS) RoleTypes() map[string][]*RoleType {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.decls.roleTypes)
}

// ArcroleTypes returns the arcroleType definitions by arcrole URI.
func (d *DTS) ArcroleTypes() map[string][]*RoleType {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.decls.arcroleTypes)
}

// CyclesAllowed returns the cycle policy of arcrole: one of CyclesAny,
// CyclesUndirected or CyclesNone, or "" when the arcrole is neither
// standard nor declared by an arcroleType.
func (d *DTS) CyclesAllowed(arcrole string) string {
	if policy, ok := standardArcroles[arcrole]; ok {
		return policy
	}
	if policy, ok := dimensionArcroles[arcrole]; ok {
		return policy
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, rt := range d.decls.arcroleTypes[arcrole] {
		if rt.CyclesAllowed != "" {
			return rt.CyclesAllowed
		}
	}
	return ""
}

// CheckSchemaSemantics verifies that the QName references of every loaded
// schema (type, ref, substitutionGroup, base, itemType, memberTypes) name
// a declared component of the right kind in a reachable namespace, and
// that imports name the namespace their schema declares. It returns the
// number of errors logged.
func (d *DTS) CheckSchemaSemantics() int {
	docs := d.cache.Documents()
	d.mu.Lock()
	defer d.mu.Unlock()
	c := newSemanticChecker(d.decls, d.report, docs)
	errs := 0
	for _, doc := range docs {
		if doc.Type != TypeSchema || !doc.Loaded() {
			continue
		}
		errs += c.checkImports(doc)
		errs += c.checkDocument(doc)
	}
	return errs
}

// CheckRoleRefs reports custom link roles and arcroles used without a
// roleRef or arcroleRef. It returns the number of errors logged.
func (d *DTS) CheckRoleRefs() int {
	errs := 0
	for _, doc := range d.cache.Documents() {
		switch doc.Type {
		case TypeLinkbase, TypeSchema:
			if doc.Loaded() {
				errs += checkRoleRefs(doc, d.report)
			}
		}
	}
	return errs
}

// SyntheticArc is one relationship to synthesize. From and To are either
// an ID in the owning document or an xmldom.Element.
type SyntheticArc struct {
	From, To any
	Order    string
}

// Synthesize builds an extended link of prototypes holding arcs, attaches
// it to doc and resolves it like a parsed link.
func (d *DTS) Synthesize(doc *Document, linkName, arcName qname.QName, linkrole, arcrole string, arcs []SyntheticArc) *LinkPrototype {
	link := NewLinkPrototype(doc, nil, linkName, linkrole)
	for i, sa := range arcs {
		from := "from_" + strconv.Itoa(i)
		to := "to_" + strconv.Itoa(i)
		link.Append(NewLocPrototype(doc, link, from, sa.From, ""))
		link.Append(NewLocPrototype(doc, link, to, sa.To, ""))
		link.Append(NewArcPrototype(doc, link, arcName, from, to, linkrole, arcrole, sa.Order))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	doc.synthetic = append(doc.synthetic, link)
	r := &linkResolver{cache: d.cache, report: d.report, doc: doc}
	d.addArcs(r.resolveLink(link))
	return link
}

// Close clears every document, prototype and parsed node of the session.
// The DTS must not be used afterwards.
func (d *DTS) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache.Clear()
	d.entry = nil
	d.arcs = nil
	d.byArcrole = make(map[string][]*ResolvedArc)
	d.generations = make(map[string]uint64)
	d.sets = make(map[SetKey]*RelationshipSet)
	d.decls = newDeclarations()
}
