package validate

import (
	"os"

	"github.com/adammathes/xbrlverify/pkg/report"
	"github.com/adammathes/xbrlverify/pkg/taxpkg"
)

// openPackages opens every archive in paths. On failure the packages
// opened so far are returned with ok false; the caller closes them.
func openPackages(paths []string, r *report.Report) (pkgs []*taxpkg.Package, ok bool) {
	for _, path := range paths {
		p, opened := openPackage(path, r)
		if !opened {
			return pkgs, false
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, true
}

func openPackage(path string, r *report.Report) (*taxpkg.Package, bool) {
	p, err := taxpkg.Open(path)
	if err == nil {
		return p, true
	}
	if fi, statErr := os.Stat(path); statErr == nil && fi.Size() == 0 {
		r.Fatal("tpe:invalidArchiveFormat", path, "Taxonomy package {path} is empty", "path", path)
		return nil, false
	}
	r.Fatal("tpe:invalidArchiveFormat", path, "Unable to read taxonomy package {path}: {error}",
		"path", path, "error", err)
	return nil, false
}

func closePackages(pkgs []*taxpkg.Package) {
	for _, p := range pkgs {
		p.Close()
	}
}
