package dts

import (
	"sync"

	"github.com/adammathes/xbrlverify/pkg/xmldom"
)

// Cache maps normalized URIs to documents. Each distinct URI yields exactly
// one Document for the lifetime of the cache.
type Cache struct {
	mu    sync.Mutex
	docs  map[string]*Document
	order []*Document
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{docs: make(map[string]*Document)}
}

// GetOrLoad normalizes uri against base and returns the document for it,
// creating a pending one on first reference. created reports whether the
// document is new and still has to be loaded. When from is non-nil the
// discovery edge from -> document is recorded with the kind implied by the
// referring element.
func (c *Cache) GetOrLoad(uri, base string, from *Document, referrer xmldom.Element) (doc *Document, created bool, err error) {
	normalized, err := Normalize(uri, base)
	if err != nil {
		return nil, false, err
	}
	kind, typ := referenceKindFor(referrer)

	c.mu.Lock()
	defer c.mu.Unlock()

	doc, ok := c.docs[normalized]
	if !ok {
		doc = newDocument(normalized, typ, len(c.order))
		doc.discoveredBy = from
		doc.referrer = referrer
		c.docs[normalized] = doc
		c.order = append(c.order, doc)
		created = true
	}
	if from != nil && from != doc {
		from.addReference(kind, doc, referrer)
	}
	return doc, created, nil
}

// Lookup returns the document for an already normalized URI.
func (c *Cache) Lookup(uri string) *Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.docs[uri]
}

// Documents returns every document in discovery order.
func (c *Cache) Documents() []*Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Document, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of documents.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Clear drops every document after clearing it.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range c.order {
		doc.Clear()
	}
	c.docs = make(map[string]*Document)
	c.order = nil
}
