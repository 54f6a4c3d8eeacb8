package dts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"
)

// ErrOffline is returned for network fetches when offline mode is on.
var ErrOffline = errors.New("network access disabled (offline)")

// Fetcher retrieves document content by normalized URI. Missing documents
// are reported with an error wrapping fs.ErrNotExist.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (io.ReadCloser, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, uri string) (io.ReadCloser, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, uri string) (io.ReadCloser, error) {
	return f(ctx, uri)
}

// FSFetcher fetches documents from an fs.FS. URIs are slash-separated
// paths relative to the root of the filesystem.
type FSFetcher struct {
	FS fs.FS
}

// NewFSFetcher returns a fetcher backed by fsys.
func NewFSFetcher(fsys fs.FS) *FSFetcher {
	return &FSFetcher{FS: fsys}
}

// Fetch implements Fetcher.
func (f *FSFetcher) Fetch(_ context.Context, uri string) (io.ReadCloser, error) {
	if f == nil || f.FS == nil {
		return nil, fmt.Errorf("no filesystem configured")
	}
	name := strings.TrimPrefix(uri, "./")
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: uri, Err: fs.ErrInvalid}
	}
	return f.FS.Open(name)
}

// FileFetcher reads local files, accepting plain paths and file: URLs.
type FileFetcher struct{}

// Fetch implements Fetcher.
func (FileFetcher) Fetch(_ context.Context, uri string) (io.ReadCloser, error) {
	name := uri
	if strings.HasPrefix(uri, "file:") {
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("parse file URL: %w", err)
		}
		name = u.Path
	}
	return os.Open(name)
}

// HTTPFetcher fetches http and https URLs.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) (io.ReadCloser, error) {
	client := http.DefaultClient
	if f != nil && f.Client != nil {
		client = f.Client
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, &fs.PathError{Op: "get", Path: uri, Err: fs.ErrNotExist}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		resp.Body.Close()
		return nil, fmt.Errorf("get %s: %s", uri, resp.Status)
	}
	return resp.Body, nil
}

// SchemeFetcher dispatches network URLs to Remote and everything else to
// Local. A nil Remote means offline.
type SchemeFetcher struct {
	Local  Fetcher
	Remote Fetcher
}

// DefaultFetcher reads local files and, unless offline, http(s) URLs.
func DefaultFetcher(offline bool, timeout time.Duration) *SchemeFetcher {
	f := &SchemeFetcher{Local: FileFetcher{}}
	if !offline {
		f.Remote = NewHTTPFetcher(timeout)
	}
	return f
}

// Fetch implements Fetcher.
func (f *SchemeFetcher) Fetch(ctx context.Context, uri string) (io.ReadCloser, error) {
	if IsRemote(uri) {
		if f.Remote == nil {
			return nil, fmt.Errorf("fetch %s: %w", uri, ErrOffline)
		}
		return f.Remote.Fetch(ctx, uri)
	}
	return f.Local.Fetch(ctx, uri)
}

// Remapping rewrites URIs that start with Prefix to start with Replacement.
type Remapping struct {
	Prefix      string
	Replacement string
}

// RemapFetcher rewrites URIs before handing them to Next. The longest
// matching prefix wins.
type RemapFetcher struct {
	Next  Fetcher
	remap []Remapping
}

// NewRemapFetcher returns a fetcher applying remappings in front of next.
func NewRemapFetcher(next Fetcher, remappings []Remapping) *RemapFetcher {
	sorted := slices.Clone(remappings)
	slices.SortStableFunc(sorted, func(a, b Remapping) int {
		return len(b.Prefix) - len(a.Prefix)
	})
	return &RemapFetcher{Next: next, remap: sorted}
}

// Rewrite applies the first matching remapping to uri.
func (f *RemapFetcher) Rewrite(uri string) string {
	for _, r := range f.remap {
		if rest, ok := strings.CutPrefix(uri, r.Prefix); ok {
			return r.Replacement + rest
		}
	}
	return uri
}

// Fetch implements Fetcher.
func (f *RemapFetcher) Fetch(ctx context.Context, uri string) (io.ReadCloser, error) {
	return f.Next.Fetch(ctx, f.Rewrite(uri))
}

// ChainFetcher tries each fetcher in turn, moving on only when a fetcher
// reports the document as not found.
type ChainFetcher []Fetcher

// Fetch implements Fetcher.
func (c ChainFetcher) Fetch(ctx context.Context, uri string) (io.ReadCloser, error) {
	err := error(&fs.PathError{Op: "open", Path: uri, Err: fs.ErrNotExist})
	for _, f := range c {
		var rc io.ReadCloser
		rc, err = f.Fetch(ctx, uri)
		if err == nil {
			return rc, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, err
}
