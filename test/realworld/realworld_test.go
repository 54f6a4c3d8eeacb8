package realworld

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/adammathes/xbrlverify/pkg/report"
	"github.com/adammathes/xbrlverify/pkg/validate"
)

// knownInvalid lists packages that are genuinely invalid. They are kept in
// the corpus to verify we detect real errors, not just to check for false
// positives.
var knownInvalid = map[string]bool{}

// TestRealWorldPackages validates downloaded taxonomy packages and checks
// for false positives. Every package in the directory is also offered to
// the others as a URI source, so a filing package resolves against the
// base taxonomies next to it without going online.
//
// Set REALWORLD_SAMPLES_DIR to point at a directory of taxonomy packages
// (.zip). Set REALWORLD_ONLINE=1 to allow fetching URIs none of them cover.
func TestRealWorldPackages(t *testing.T) {
	dir := os.Getenv("REALWORLD_SAMPLES_DIR")
	if dir == "" {
		dir = filepath.Join(findRepoRoot(t), "test", "realworld", "samples")
	}

	pkgs, err := filepath.Glob(filepath.Join(dir, "*.zip"))
	if err != nil {
		t.Fatalf("globbing samples: %v", err)
	}
	if len(pkgs) == 0 {
		t.Skipf("no taxonomy packages found in %s", dir)
	}
	online := os.Getenv("REALWORLD_ONLINE") == "1"

	for _, pkg := range pkgs {
		name := filepath.Base(pkg)
		t.Run(name, func(t *testing.T) {
			others := slices.DeleteFunc(slices.Clone(pkgs), func(p string) bool { return p == pkg })
			res, err := validate.Run(context.Background(), pkg, validate.Options{
				Offline:  !online,
				Packages: others,
			})
			if err != nil {
				t.Fatalf("validation failed: %v", err)
			}
			rpt := res.Report

			if knownInvalid[name] {
				if rpt.IsValid() {
					t.Errorf("expected invalid (known-invalid sample), but got valid")
				}
				return
			}

			if rpt.FatalCount() > 0 || rpt.ErrorCount() > 0 {
				t.Errorf("expected valid, got invalid (fatal=%d, errors=%d)",
					rpt.FatalCount(), rpt.ErrorCount())
				for _, m := range rpt.Snapshot() {
					if m.Severity == report.Fatal || m.Severity == report.Error {
						t.Logf("  %s(%s): %s [%s]", m.Severity, m.Code, m.Message, m.Location)
					}
				}
			}
			t.Logf("%s: %d documents, %d arcs, %d base sets", res.Entry, res.Documents, res.Arcs, res.BaseSets)
		})
	}
}

// findRepoRoot walks up from the test file location to find the repo root.
func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find repo root (no go.mod)")
		}
		dir = parent
	}
}
