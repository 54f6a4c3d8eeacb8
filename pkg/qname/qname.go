// Package qname provides namespace-qualified names and a registry that
// interns the display prefix seen for each name.
package qname

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Well-known namespaces.
const (
	XMLNamespace   = "http://www.w3.org/XML/1998/namespace"
	XMLNSNamespace = "http://www.w3.org/2000/xmlns/"
)

// QName is a namespace-qualified name. Two QNames are equal when namespace
// and local name are equal; the prefix used to write the name is not part
// of its identity.
type QName struct {
	Namespace string
	Local     string
}

// New returns the QName {namespace}local.
func New(namespace, local string) QName {
	return QName{Namespace: namespace, Local: local}
}

// IsZero reports whether q has no local name.
func (q QName) IsZero() bool {
	return q.Local == ""
}

// String renders q in Clark notation.
func (q QName) String() string {
	if q.Namespace == "" {
		return q.Local
	}
	return "{" + q.Namespace + "}" + q.Local
}

// Compare orders QNames by namespace then local name.
func Compare(a, b QName) int {
	if c := cmp.Compare(a.Namespace, b.Namespace); c != 0 {
		return c
	}
	return cmp.Compare(a.Local, b.Local)
}

// SortedMapKeys returns map keys in deterministic QName order.
func SortedMapKeys[V any](m map[QName]V) []QName {
	return slices.SortedFunc(maps.Keys(m), Compare)
}

// Split separates a lexical QName into prefix and local part.
func Split(lexical string) (prefix, local string, err error) {
	lexical = strings.TrimSpace(lexical)
	if lexical == "" {
		return "", "", fmt.Errorf("invalid QName: empty string")
	}
	prefix, local, found := strings.Cut(lexical, ":")
	if !found {
		return "", lexical, nil
	}
	if prefix == "" || local == "" || strings.Contains(local, ":") {
		return "", "", fmt.Errorf("invalid QName %q", lexical)
	}
	return prefix, local, nil
}

// Resolver looks up the namespace bound to a prefix. The empty prefix is
// the default namespace.
type Resolver interface {
	LookupNamespace(prefix string) (string, bool)
}

// Parse resolves a lexical QName against the in-scope namespaces of r.
// Unprefixed names take the default namespace when one is bound.
func Parse(lexical string, r Resolver) (QName, string, error) {
	prefix, local, err := Split(lexical)
	if err != nil {
		return QName{}, "", err
	}
	if prefix == "xml" {
		return QName{Namespace: XMLNamespace, Local: local}, prefix, nil
	}
	ns, ok := r.LookupNamespace(prefix)
	if !ok && prefix != "" {
		return QName{}, prefix, fmt.Errorf("prefix %s not found in namespace context", prefix)
	}
	return QName{Namespace: ns, Local: local}, prefix, nil
}

// Registry interns QNames and remembers the first prefix seen for each.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	prefixes map[QName]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{prefixes: make(map[QName]string)}
}

// Intern records q with its display prefix and returns q. A later call with
// a different prefix does not replace the recorded one.
func (r *Registry) Intern(prefix, namespace, local string) QName {
	q := QName{Namespace: namespace, Local: local}
	r.mu.RLock()
	_, ok := r.prefixes[q]
	r.mu.RUnlock()
	if ok {
		return q
	}
	r.mu.Lock()
	if _, ok := r.prefixes[q]; !ok {
		r.prefixes[q] = prefix
	}
	r.mu.Unlock()
	return q
}

// Prefixed renders q as prefix:local using the interned prefix, falling
// back to Clark notation for names never interned.
func (r *Registry) Prefixed(q QName) string {
	r.mu.RLock()
	prefix, ok := r.prefixes[q]
	r.mu.RUnlock()
	switch {
	case !ok:
		return q.String()
	case prefix == "":
		return q.Local
	default:
		return prefix + ":" + q.Local
	}
}

// Len returns the number of interned names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.prefixes)
}
