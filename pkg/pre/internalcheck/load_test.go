package internalcheck

import (
	"testing"

	"golang.org/x/tools/go/packages"
)

const (
	modulePath = "github.com/manishvishnoi2/nucypher"
	prePattern = modulePath + "/pkg/pre/..."
)

func loadPre(t *testing.T, mode packages.LoadMode) []*packages.Package {
	t.Helper()
	cfg := &packages.Config{Mode: mode}
	pkgs, err := packages.Load(cfg, prePattern)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		t.Fatalf("packages under %s failed to load", prePattern)
	}
	if len(pkgs) == 0 {
		t.Fatalf("no packages matched %s", prePattern)
	}
	return pkgs
}
